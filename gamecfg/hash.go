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

package gamecfg

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashSubset : 只取會影響玩家結算語意的欄位進雜湊。
// 欄位以字典序排列，序列化為 compact JSON，確保跨版本穩定。
// 調整日誌等不影響派彩的設定不會改變雜湊。
type hashSubset struct {
	AllowedBets           []float64 `json:"allowed_bets"`
	EnableBuyFeature      bool      `json:"enable_buy_feature"`
	EnableHypeModeAnteBet bool      `json:"enable_hype_mode_ante_bet"`
	MaxWinTotalX          float64   `json:"max_win_total_x"`
}

// Hash 回傳設定指紋：sha256 十六進位前 16 碼。
// init 回應與稽核產物都會帶上這個值，供跨環境比對。
func (c Config) Hash() string {
	sub := hashSubset{
		AllowedBets:           c.AllowedBets,
		EnableBuyFeature:      c.EnableBuyFeature,
		EnableHypeModeAnteBet: c.EnableHypeModeAnteBet,
		MaxWinTotalX:          c.MaxWinTotalX,
	}
	bs, err := json.Marshal(sub)
	if err != nil {
		// hashSubset 只含基本型別，Marshal 不應失敗
		return "invalid"
	}
	sum := sha256.Sum256(bs)
	return hex.EncodeToString(sum[:])[:16]
}
