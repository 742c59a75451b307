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

package dto

import (
	"encoding/json"
	"io"
	"net/http"

	afterparty "github.com/zintix-labs/afterparty"
	"github.com/zintix-labs/afterparty/errs"
)

// SpinRequest 為 POST /spin 的請求體。
//
// clientRequestId 是冪等鍵：重試必須帶同一個值才會命中原回應。
// mode 缺省視為 NORMAL。
type SpinRequest struct {
	ClientRequestID string  `json:"clientRequestId"`
	BetAmount       float64 `json:"betAmount"`
	Mode            string  `json:"mode,omitempty"`
	HypeMode        bool    `json:"hypeMode,omitempty"`
}

// DecodeSpinRequest 會把 HTTP 請求解碼成 SpinRequest。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換，不做任何遊戲合法性校驗；
//     合法性（例如 bet 是否在允許清單）由協調層決定。
//   - 為避免過大 body 影響服務，會對 body 做大小限制（預設 1MiB）。
//   - 開啟 DisallowUnknownFields()，對未知欄位採用嚴格拒絕，以避免靜默丟資料。
func DecodeSpinRequest(r *http.Request) (*SpinRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	if r.Method != http.MethodPost {
		return nil, errs.NewWarn("method not allowed")
	}

	const maxBody = 1 << 20
	body := io.LimitReader(r.Body, maxBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	req := new(SpinRequest)
	if err := dec.Decode(req); err != nil {
		return nil, errs.NewWarn("invalid json: " + err.Error())
	}
	if req.Mode == "" {
		req.Mode = string(afterparty.SpinModeNormal)
	}
	return req, nil
}
