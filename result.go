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

package afterparty

// Mode 為玩家所處的遊戲模式。
type Mode string

const (
	ModeBase      Mode = "BASE"
	ModeFreeSpins Mode = "FREE_SPINS"
)

// SpinMode 為單次 spin 請求的型態。
type SpinMode string

const (
	SpinModeNormal     SpinMode = "NORMAL"
	SpinModeBuyFeature SpinMode = "BUY_FEATURE"
)

// bonus 的兩種來源變體。
const (
	BonusVariantStandard = "standard"
	BonusVariantVIPBuy   = "vip_buy"
)

// 免費旋轉收尾的三種展演路徑。
const (
	FinalePathStandard   = "standard"
	FinalePathMultiplier = "multiplier"
	FinalePathUpgrade    = "upgrade"
)

// 封頂原因。
const (
	CapReasonMaxWinBase  = "max_win_base"
	CapReasonMaxWinBonus = "max_win_bonus"
)

// 派彩分級。
const (
	WinTierNone = ""
	WinTierBig  = "big"
	WinTierMega = "mega"
	WinTierEpic = "epic"
)

// LineWin 為單一中獎線（或 scatter 賠付，LineID = -1）的結果。
// Amount 以貨幣計、未含倍數；WinX 為 Amount 對 bet 的倍數。
type LineWin struct {
	LineID int     `json:"lineId"`
	Symbol string  `json:"symbol"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
	WinX   float64 `json:"winX"`
}

// NextState 為 spin 後回報給客戶端的下一步狀態。
type NextState struct {
	Mode           Mode `json:"mode"`
	SpinsRemaining int  `json:"spinsRemaining"`
	HeatLevel      int  `json:"heatLevel"`
}

// SpinResult 為引擎輸出的完整 spin 結果。
// TotalWin/Debit 以貨幣計；TotalWinX 以 bet 倍數計（含所有倍數與封頂）。
type SpinResult struct {
	Grid Grid `json:"grid"`

	Debit     float64 `json:"debit"`
	BaseWinX  float64 `json:"baseWinX"`
	TotalWin  float64 `json:"totalWin"`
	TotalWinX float64 `json:"totalWinX"`
	IsCapped  bool    `json:"isCapped"`
	// 未封頂時為空字串，wire 層轉成 null
	CapReason string `json:"capReason,omitempty"`
	WinTier   string `json:"winTier,omitempty"`

	ScatterCount int       `json:"scatterCount"`
	WildCount    int       `json:"wildCount"`
	LineWins     []LineWin `json:"lineWins,omitempty"`

	Events    []Event   `json:"events"`
	NextState NextState `json:"nextState"`
}

// EnteredBonus 回報本次 spin 是否進入了免費旋轉（購買或自然觸發）。
func (r *SpinResult) EnteredBonus() bool {
	for _, ev := range r.Events {
		if ev.Type() == EventTypeEnterFreeSpins {
			return true
		}
	}
	return false
}

// BonusEnded 回報本次 spin 是否結束了免費旋轉 session。
func (r *SpinResult) BonusEnded() bool {
	for _, ev := range r.Events {
		if ev.Type() == EventTypeBonusEnd {
			return true
		}
	}
	return false
}

// winTier 依 spin 的 bet 倍數分級。
func winTier(winX, big, mega, epic float64) string {
	switch {
	case winX >= epic:
		return WinTierEpic
	case winX >= mega:
		return WinTierMega
	case winX >= big:
		return WinTierBig
	default:
		return WinTierNone
	}
}
