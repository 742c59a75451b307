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

// Package gamecfg 定義遊戲端的所有可調參數。
// 載入順序：內建預設 → YAML 覆寫 → APP_ 前綴環境變數。
package gamecfg

import (
	"time"

	"github.com/zintix-labs/afterparty/errs"
)

// ProtocolVersion : 所有回應中的協定版本字串。
const ProtocolVersion = "1.0"

// Config 包含啟動一個遊戲伺服器所需的所有遊戲面設定。
// 傳輸層設定（port、timeout）不在此，見 server/svrcfg。
type Config struct {
	// 幣別與下注
	Currency     string    `yaml:"currency"         json:"currency"`
	MaxWinTotalX float64   `yaml:"max_win_total_x"  json:"max_win_total_x"`
	AllowedBets  []float64 `yaml:"allowed_bets"     json:"allowed_bets"`

	// 付費功能
	BuyFeatureCostMultiplier float64 `yaml:"buy_feature_cost_multiplier" json:"buy_feature_cost_multiplier"`
	HypeModeCostIncrease     float64 `yaml:"hype_mode_cost_increase"     json:"hype_mode_cost_increase"`
	EnableBuyFeature         bool    `yaml:"enable_buy_feature"          json:"enable_buy_feature"`
	EnableHypeModeAnteBet    bool    `yaml:"enable_hype_mode_ante_bet"   json:"enable_hype_mode_ante_bet"`
	EnableTurbo              bool    `yaml:"enable_turbo"                json:"enable_turbo"`

	// Afterparty meter / rage
	EnableAfterpartyMeter bool    `yaml:"enable_afterparty_meter" json:"enable_afterparty_meter"`
	MeterMax              int     `yaml:"meter_max"               json:"meter_max"`
	MeterIncAnyWin        int     `yaml:"meter_inc_any_win"       json:"meter_inc_any_win"`
	MeterIncWildPresent   int     `yaml:"meter_inc_wild_present"  json:"meter_inc_wild_present"`
	MeterIncTwoScatters   int     `yaml:"meter_inc_two_scatters"  json:"meter_inc_two_scatters"`
	RageSpins             int     `yaml:"rage_spins"              json:"rage_spins"`
	RageMultiplier        float64 `yaml:"rage_multiplier"         json:"rage_multiplier"`
	RageCooldownSpins     int     `yaml:"rage_cooldown_spins"     json:"rage_cooldown_spins"`

	// Boost / Explosive 展演事件
	BoostTriggerSmallWins int     `yaml:"boost_trigger_small_wins" json:"boost_trigger_small_wins"`
	ExplosiveTriggerWinX  float64 `yaml:"explosive_trigger_win_x"  json:"explosive_trigger_win_x"`
	BoostSpins            int     `yaml:"boost_spins"              json:"boost_spins"`
	ExplosiveSpins        int     `yaml:"explosive_spins"          json:"explosive_spins"`
	EventCapPer100        int     `yaml:"event_cap_per_100"        json:"event_cap_per_100"`
	BoostCapPer100        int     `yaml:"boost_cap_per_100"        json:"boost_cap_per_100"`
	ExplosiveCapPer100    int     `yaml:"explosive_cap_per_100"    json:"explosive_cap_per_100"`

	// 盤面機率
	BaseScatterChance      float64 `yaml:"base_scatter_chance"      json:"base_scatter_chance"`
	HypeScatterMultiplier  float64 `yaml:"hype_scatter_multiplier"  json:"hype_scatter_multiplier"`
	SpotlightWildFrequency float64 `yaml:"spotlight_wild_frequency" json:"spotlight_wild_frequency"`

	// Free spins
	FreeSpinsBase            int     `yaml:"free_spins_base"              json:"free_spins_base"`
	FreeSpinsPerExtraScatter int     `yaml:"free_spins_per_extra_scatter" json:"free_spins_per_extra_scatter"`
	HeatMax                  int     `yaml:"heat_max"                     json:"heat_max"`
	BoughtBonusMultiplier    float64 `yaml:"bought_bonus_multiplier"      json:"bought_bonus_multiplier"`

	// 派彩分級門檻（以 bet 倍數計）
	BigWinX  float64 `yaml:"big_win_x"  json:"big_win_x"`
	MegaWinX float64 `yaml:"mega_win_x" json:"mega_win_x"`
	EpicWinX float64 `yaml:"epic_win_x" json:"epic_win_x"`

	// 狀態儲存 TTL（秒）
	PlayerStateTTLSec int `yaml:"player_state_ttl_sec" json:"player_state_ttl_sec"`
	IdempotencyTTLSec int `yaml:"idempotency_ttl_sec"  json:"idempotency_ttl_sec"`
	LockTTLSec        int `yaml:"lock_ttl_sec"         json:"lock_ttl_sec"`
}

// Default 回傳出廠預設值。所有數值與線上版本一致。
func Default() Config {
	return Config{
		Currency:                 "USD",
		MaxWinTotalX:             25000,
		AllowedBets:              []float64{0.10, 0.20, 0.50, 1.00, 2.00, 5.00, 10.00},
		BuyFeatureCostMultiplier: 100,
		HypeModeCostIncrease:     0.25,
		EnableBuyFeature:         true,
		EnableHypeModeAnteBet:    true,
		EnableTurbo:              true,

		EnableAfterpartyMeter: true,
		MeterMax:              100,
		MeterIncAnyWin:        3,
		MeterIncWildPresent:   5,
		MeterIncTwoScatters:   8,
		RageSpins:             3,
		RageMultiplier:        2,
		RageCooldownSpins:     15,

		BoostTriggerSmallWins: 4,
		ExplosiveTriggerWinX:  5,
		BoostSpins:            3,
		ExplosiveSpins:        1,
		EventCapPer100:        18,
		BoostCapPer100:        8,
		ExplosiveCapPer100:    10,

		BaseScatterChance:      0.02,
		HypeScatterMultiplier:  2.0,
		SpotlightWildFrequency: 0.05,

		FreeSpinsBase:            10,
		FreeSpinsPerExtraScatter: 2,
		HeatMax:                  10,
		BoughtBonusMultiplier:    11,

		BigWinX:  20,
		MegaWinX: 200,
		EpicWinX: 1000,

		PlayerStateTTLSec: 86400,
		IdempotencyTTLSec: 3600,
		LockTTLSec:        30,
	}
}

func (c Config) PlayerStateTTL() time.Duration { return time.Duration(c.PlayerStateTTLSec) * time.Second }
func (c Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempotencyTTLSec) * time.Second }
func (c Config) LockTTL() time.Duration        { return time.Duration(c.LockTTLSec) * time.Second }

// BetAllowed 回報 bet 是否在允許清單內（精確比對，不做容差）。
func (c Config) BetAllowed(bet float64) bool {
	for _, b := range c.AllowedBets {
		if b == bet {
			return true
		}
	}
	return false
}

// Valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
// 設定錯誤屬於部署問題而非請求問題，一律 Fatal。
func (c Config) Valid() error {
	if c.Currency == "" {
		return errs.NewFatal("config: empty currency")
	}
	if c.MaxWinTotalX <= 0 {
		return errs.NewFatal("config: max_win_total_x must be positive")
	}
	if len(c.AllowedBets) == 0 {
		return errs.NewFatal("config: empty allowed_bets")
	}
	for _, b := range c.AllowedBets {
		if b <= 0 {
			return errs.Fatalf("config: invalid bet unit: %v", b)
		}
	}
	if c.BaseScatterChance <= 0 || c.BaseScatterChance >= 1 {
		return errs.Fatalf("config: base_scatter_chance out of range: %v", c.BaseScatterChance)
	}
	if c.HypeScatterMultiplier < 1 {
		return errs.NewFatal("config: hype_scatter_multiplier must be >= 1")
	}
	if c.PlayerStateTTLSec <= 0 || c.IdempotencyTTLSec <= 0 || c.LockTTLSec <= 0 {
		return errs.NewFatal("config: ttl values must be positive")
	}
	if c.MeterMax <= 0 || c.RageSpins <= 0 || c.RageCooldownSpins < 0 {
		return errs.NewFatal("config: meter settings must be positive")
	}
	if c.FreeSpinsBase <= 0 {
		return errs.NewFatal("config: free_spins_base must be positive")
	}
	return nil
}
