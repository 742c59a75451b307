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

package errs

import "fmt"

// Code : 封閉式遊戲錯誤碼。對外回應只允許出現這裡列舉的代碼，
// 未知錯誤一律收斂成 CodeInternalError，避免內部細節外洩。
type Code string

const (
	CodeInvalidRequest      Code = "INVALID_REQUEST"
	CodeInvalidBet          Code = "INVALID_BET"
	CodeFeatureDisabled     Code = "FEATURE_DISABLED"
	CodeInsufficientFunds   Code = "INSUFFICIENT_FUNDS"
	CodeRoundInProgress     Code = "ROUND_IN_PROGRESS"
	CodeIdempotencyConflict Code = "IDEMPOTENCY_CONFLICT"
	CodeRateLimitExceeded   Code = "RATE_LIMIT_EXCEEDED"
	CodeMaintenance         Code = "MAINTENANCE"
	CodeInternalError       Code = "INTERNAL_ERROR"
	CodeNotImplemented      Code = "NOT_IMPLEMENTED"
)

// recoverableMap : 同一請求（換一個 clientRequestId）重試是否有機會成功。
// 參數錯誤與冪等衝突重試也不會變對，故不可恢復；
// 餘額不足、撞鎖、限流、維護中、內部錯誤都是暫時性的。
var recoverableMap = map[Code]bool{
	CodeInvalidRequest:      false,
	CodeInvalidBet:          false,
	CodeFeatureDisabled:     false,
	CodeInsufficientFunds:   true,
	CodeRoundInProgress:     true,
	CodeIdempotencyConflict: false,
	CodeRateLimitExceeded:   true,
	CodeMaintenance:         true,
	CodeInternalError:       true,
	CodeNotImplemented:      false,
}

// Known 回報代碼是否屬於封閉集合。
func (c Code) Known() bool {
	_, ok := recoverableMap[c]
	return ok
}

// Recoverable 回報該代碼是否可重試。未知代碼視為不可重試。
func (c Code) Recoverable() bool {
	return recoverableMap[c]
}

// NewCode 建立帶錯誤碼的 *E。ErrLv 由代碼的來源推導：
// 系統面（內部錯誤、維護中）→ Fatal；請求面 → Warn。
func NewCode(code Code, msg string) *E {
	lv := Warn
	if code == CodeInternalError || code == CodeMaintenance {
		lv = Fatal
	}
	return &E{Code: code, Message: msg, ErrLv: lv}
}

func Codef(code Code, format string, a ...any) *E {
	return NewCode(code, fmt.Sprintf(format, a...))
}

// CodeOf 取出錯誤鏈上的代碼；非 *E 或未設定代碼時回傳 CodeInternalError。
func CodeOf(err error) Code {
	if e, ok := AsErr(err); ok && e.Code.Known() {
		return e.Code
	}
	return CodeInternalError
}
