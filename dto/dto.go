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

// Package dto 定義對外的 wire 格式。
// 引擎輸出（SpinResult）到 wire 的映射必須是決定性的：
// 冪等回放依賴「同一份結果必然序列化成同一份回應」。
package dto

import (
	afterparty "github.com/zintix-labs/afterparty"
	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/gamecfg"
)

// Configuration 為 init 回應中的遊戲設定快照。
type Configuration struct {
	Currency                 string    `json:"currency"`
	AllowedBets              []float64 `json:"allowedBets"`
	EnableBuyFeature         bool      `json:"enableBuyFeature"`
	BuyFeatureCostMultiplier float64   `json:"buyFeatureCostMultiplier"`
	EnableTurbo              bool      `json:"enableTurbo"`
	EnableHypeModeAnteBet    bool      `json:"enableHypeModeAnteBet"`
	HypeModeCostIncrease     float64   `json:"hypeModeCostIncrease"`
}

// RestoreState 為未完成 bonus 的續局資訊。
type RestoreState struct {
	Mode           string `json:"mode"`
	SpinsRemaining int    `json:"spinsRemaining"`
	HeatLevel      int    `json:"heatLevel"`
}

// InitResponse 為 GET /init 的回應。restoreState 沒有續局時為 null。
type InitResponse struct {
	ProtocolVersion string        `json:"protocolVersion"`
	Configuration   Configuration `json:"configuration"`
	RestoreState    *RestoreState `json:"restoreState"`
}

// NewInitResponse 由設定與續局資訊組出 init 回應。
func NewInitResponse(cfg gamecfg.Config, info *afterparty.InitInfo) InitResponse {
	resp := InitResponse{
		ProtocolVersion: gamecfg.ProtocolVersion,
		Configuration: Configuration{
			Currency:                 cfg.Currency,
			AllowedBets:              cfg.AllowedBets,
			EnableBuyFeature:         cfg.EnableBuyFeature,
			BuyFeatureCostMultiplier: cfg.BuyFeatureCostMultiplier,
			EnableTurbo:              cfg.EnableTurbo,
			EnableHypeModeAnteBet:    cfg.EnableHypeModeAnteBet,
			HypeModeCostIncrease:     cfg.HypeModeCostIncrease,
		},
	}
	if r := info.Restore; r != nil {
		resp.RestoreState = &RestoreState{
			Mode:           string(r.Mode),
			SpinsRemaining: r.SpinsRemaining,
			HeatLevel:      r.HeatLevel,
		}
	}
	return resp
}

// Context 為 spin 回應中的結算脈絡。
type Context struct {
	Currency string `json:"currency"`
}

// Outcome 為 spin 回應中的彙總結果。capReason 未封頂時為 null。
type Outcome struct {
	TotalWin  float64 `json:"totalWin"`
	TotalWinX float64 `json:"totalWinX"`
	IsCapped  bool    `json:"isCapped"`
	CapReason *string `json:"capReason"`
}

// NextStateView 為 spin 回應中的下一步狀態。
type NextStateView struct {
	Mode           string `json:"mode"`
	SpinsRemaining int    `json:"spinsRemaining"`
	HeatLevel      int    `json:"heatLevel"`
}

// SpinResponse 為 POST /spin 的回應。
type SpinResponse struct {
	ProtocolVersion string             `json:"protocolVersion"`
	RoundID         string             `json:"roundId"`
	Context         Context            `json:"context"`
	Outcome         Outcome            `json:"outcome"`
	Events          []afterparty.Event `json:"events"`
	NextState       NextStateView      `json:"nextState"`
}

// NewSpinResponse 把一次結算紀錄映射成 wire 格式。
func NewSpinResponse(cfg gamecfg.Config, rec *afterparty.SpinRecord) SpinResponse {
	res := rec.Result
	out := Outcome{
		TotalWin:  res.TotalWin,
		TotalWinX: res.TotalWinX,
		IsCapped:  res.IsCapped,
	}
	if res.CapReason != "" {
		reason := res.CapReason
		out.CapReason = &reason
	}
	return SpinResponse{
		ProtocolVersion: gamecfg.ProtocolVersion,
		RoundID:         rec.RoundID,
		Context:         Context{Currency: cfg.Currency},
		Outcome:         out,
		Events:          res.Events,
		NextState: NextStateView{
			Mode:           string(res.NextState.Mode),
			SpinsRemaining: res.NextState.SpinsRemaining,
			HeatLevel:      res.NextState.HeatLevel,
		},
	}
}

// ErrorBody 為所有錯誤回應的統一格式。
type ErrorBody struct {
	ProtocolVersion string      `json:"protocolVersion"`
	Error           ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// NewErrorBody 把任意錯誤收斂成封閉錯誤碼的回應體。
// 未知錯誤一律 INTERNAL_ERROR，且不外洩內部訊息。
func NewErrorBody(err error) ErrorBody {
	code := errs.CodeOf(err)
	msg := "internal error"
	if code != errs.CodeInternalError {
		if e, ok := errs.AsErr(err); ok {
			msg = e.Message
		}
	}
	return ErrorBody{
		ProtocolVersion: gamecfg.ProtocolVersion,
		Error: ErrorDetail{
			Code:        string(code),
			Message:     msg,
			Recoverable: code.Recoverable(),
		},
	}
}
