// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httperr

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/afterparty/dto"
	"github.com/zintix-labs/afterparty/errs"
)

// codeStatus : 封閉錯誤碼到 HTTP status 的映射表。
// 不在表內的代碼（含未知錯誤）一律 500。
var codeStatus = map[errs.Code]int{
	errs.CodeInvalidRequest:      http.StatusBadRequest,          // 400
	errs.CodeInvalidBet:          http.StatusBadRequest,          // 400
	errs.CodeFeatureDisabled:     http.StatusConflict,            // 409
	errs.CodeInsufficientFunds:   http.StatusPaymentRequired,     // 402
	errs.CodeRoundInProgress:     http.StatusConflict,            // 409
	errs.CodeIdempotencyConflict: http.StatusConflict,            // 409
	errs.CodeRateLimitExceeded:   http.StatusTooManyRequests,     // 429
	errs.CodeMaintenance:         http.StatusServiceUnavailable,  // 503
	errs.CodeInternalError:       http.StatusInternalServerError, // 500
	errs.CodeNotImplemented:      http.StatusNotImplemented,      // 501
}

// StatusCode 將錯誤映射成 HTTP status code。
//
// CodeOf 對未知錯誤（含 context 取消/超時）收斂成 INTERNAL_ERROR，
// 因此這裡不對 ctx 錯誤另做分支：對客戶端而言都是可重試的 500。
//
// 注意：本函數屬於 HTTP 邊界層，因此放在 server/*（而不是 core errs）。
// 這樣可以避免讓核心錯誤包依賴 net/http 等傳輸層細節。
func StatusCode(err error) int {
	if status, ok := codeStatus[errs.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Errs 把錯誤以統一的 JSON error body 寫回。
// body 永遠是封閉錯誤碼格式；未知錯誤不外洩內部訊息。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.NewErrorBody(err))
}

// Log 依 status 級別記錄錯誤：4xx 類走 Warn，5xx 走 Error。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	if (status >= 400) && (status < 500) {
		log.Warn(msg, slog.Any("err", err))
	} else if (status >= 500) && (status < 600) {
		log.Error(msg, slog.Any("err", err))
	}
}
