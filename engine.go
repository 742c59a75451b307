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

import (
	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/gamecfg"
	"github.com/zintix-labs/afterparty/sdk/core"
	"github.com/zintix-labs/afterparty/sdk/sampler"
)

// eventWindow : 展演事件頻率上限的滾動視窗長度（spin 數）。
const eventWindow = 100

// SpinRequest 為引擎層的 spin 輸入。欄位已由上層解碼與驗證完成。
type SpinRequest struct {
	Bet      float64
	Mode     SpinMode
	HypeMode bool
}

// Engine 為純函數式的 spin 引擎：同一份 (設定, 亂數序列, 狀態, 請求)
// 必然產生同一份 (結果, 新狀態)。Engine 本身不可變，可安全併發共用。
type Engine struct {
	cfg  gamecfg.Config
	base *sampler.Dist
	hype *sampler.Dist
}

// NewEngine 依設定建立引擎，內含基礎與 hype 符號分佈的預計算。
func NewEngine(cfg gamecfg.Config) (*Engine, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	weights := make([]float64, symbolCount)
	copy(weights, symbolWeights[:])
	d := sampler.NewDist(weights)
	// 設定檔的 scatter 機率與內建權重不同時，以縮放方式對齊
	if p := d.Prob(int(Scatter)); p != cfg.BaseScatterChance {
		d = d.ScaleIndex(int(Scatter), cfg.BaseScatterChance/p)
	}
	// hype 模式只抬 scatter 權重，其餘符號等比回縮
	h := d.ScaleIndex(int(Scatter), cfg.HypeScatterMultiplier)
	return &Engine{cfg: cfg, base: d, hype: h}, nil
}

// Config 回傳引擎目前使用的設定。
func (e *Engine) Config() gamecfg.Config { return e.cfg }

// ScatterChance 回傳指定模式下單格出現 scatter 的有效機率。
func (e *Engine) ScatterChance(hypeMode bool) float64 {
	if hypeMode {
		return e.hype.Prob(int(Scatter))
	}
	return e.base.Prob(int(Scatter))
}

// Spin 執行一次 spin 並就地推進 st。呼叫端要負責傳入狀態的複本，
// 引擎不做任何 I/O，也不讀取 st 以外的可變狀態。
//
// 事件串流依協定固定順序組裝：reveal → spotlightWilds → winLine →
// afterpartyMeterUpdate → eventStart → eventEnd → enterFreeSpins →
// heatUpdate → bonusEnd → winTier。
func (e *Engine) Spin(rng *core.Core, st *PlayerState, req SpinRequest) (*SpinResult, error) {
	if req.Bet <= 0 {
		return nil, errs.Codef(errs.CodeInvalidBet, "bet %v must be positive", req.Bet)
	}
	if req.Mode != SpinModeNormal && req.Mode != SpinModeBuyFeature {
		return nil, errs.Codef(errs.CodeInvalidRequest, "unknown spin mode %q", req.Mode)
	}

	// 進入時的快照：步驟間的判斷一律以進入值為準，避免被同一 spin 的
	// 狀態推進污染
	entryMode := st.Mode
	entryRage := st.RageActive
	entryRageSpins := st.RageSpinsLeft
	entryCooldown := st.RageCooldownRemaining
	entryHeat := st.HeatLevel
	entryRemaining := st.FreeSpinsRemaining

	// 事件分桶，最後照協定順序串接
	var (
		meterEvents    []Event
		startEvents    []Event
		endEvents      []Event
		enterEvents    []Event
		heatEvents     []Event
		bonusEndEvents []Event
	)

	// 購買 bonus：立即切入免費旋轉，本次 spin 就是第一次免費旋轉。
	// 已在 bonus 內時 BUY_FEATURE 不重複觸發，視為一般 spin。
	if req.Mode == SpinModeBuyFeature && entryMode == ModeBase {
		st.Mode = ModeFreeSpins
		st.FreeSpinsRemaining = e.cfg.FreeSpinsBase
		st.HeatLevel = 1
		st.BonusIsBought = true
		enterEvents = append(enterEvents, evEnterFreeSpins(e.cfg.FreeSpinsBase, "buy_feature", BonusVariantVIPBuy))
		heatEvents = append(heatEvents, evHeatUpdate(1))
	}
	curMode := st.Mode

	debit := req.Bet
	switch {
	case req.Mode == SpinModeBuyFeature && entryMode == ModeBase:
		debit = req.Bet * e.cfg.BuyFeatureCostMultiplier
	case entryMode == ModeFreeSpins:
		debit = 0
	case req.HypeMode:
		debit = req.Bet * (1 + e.cfg.HypeModeCostIncrease)
	}

	// 盤面：hype 模式抬 scatter 機率，其餘與 BASE 相同
	dist := e.base
	if req.HypeMode {
		dist = e.hype
	}
	g := drawGrid(rng, dist)
	spot := applySpotlight(rng, &g, e.cfg.SpotlightWildFrequency)

	scatters := g.CountSymbol(Scatter)
	wilds := g.CountSymbol(Wild)

	wins, baseWinX := evalGrid(&g, req.Bet)

	// 倍數：購買的 bonus 每次 spin 都乘（含購買當下這一次），rage 另乘
	mult := 1.0
	if curMode == ModeFreeSpins && st.BonusIsBought {
		mult *= e.cfg.BoughtBonusMultiplier
	}
	if entryRage && entryRageSpins > 0 {
		mult *= e.cfg.RageMultiplier
	}
	totalWinX := baseWinX * mult

	// 單次 spin 封頂
	isCapped := false
	capReason := ""
	if totalWinX > e.cfg.MaxWinTotalX {
		isCapped = true
		capReason = CapReasonMaxWinBonus
		if curMode == ModeBase {
			capReason = CapReasonMaxWinBase
		}
		totalWinX = e.cfg.MaxWinTotalX
	}
	totalWin := totalWinX * req.Bet

	// ---- 狀態推進 ----
	st.SpinCount++

	// meter：BASE 且非 rage 時逐項累加，每項各自封頂
	if e.cfg.EnableAfterpartyMeter && curMode == ModeBase && !entryRage {
		before := st.AfterpartyMeter
		if totalWin > 0 {
			st.AfterpartyMeter = min(st.AfterpartyMeter+e.cfg.MeterIncAnyWin, e.cfg.MeterMax)
		}
		if wilds > 0 {
			st.AfterpartyMeter = min(st.AfterpartyMeter+e.cfg.MeterIncWildPresent, e.cfg.MeterMax)
		}
		if scatters == 2 {
			st.AfterpartyMeter = min(st.AfterpartyMeter+e.cfg.MeterIncTwoScatters, e.cfg.MeterMax)
		}

		triggered := false
		if st.AfterpartyMeter >= e.cfg.MeterMax && entryCooldown == 0 {
			triggered = true
			st.RageActive = true
			st.RageSpinsLeft = e.cfg.RageSpins
			st.AfterpartyMeter = 0
		}
		if st.AfterpartyMeter != before || triggered {
			meterEvents = append(meterEvents, evMeterUpdate(st.AfterpartyMeter, triggered))
		}
		if triggered {
			startEvents = append(startEvents, evRageStart(e.cfg.RageSpins, e.cfg.RageMultiplier))
		}
	}

	// 連續紀錄（僅 BASE）
	if curMode == ModeBase {
		switch {
		case totalWinX == 0:
			st.DeadspinsStreak++
			st.SmallwinsStreak = 0
		case totalWinX <= 2:
			st.SmallwinsStreak++
			st.DeadspinsStreak = 0
		default:
			st.DeadspinsStreak = 0
			st.SmallwinsStreak = 0
		}
	}

	if entryCooldown > 0 {
		st.RageCooldownRemaining = entryCooldown - 1
	}

	// rage 進行中：消耗一次，歸零時結束並進入冷卻
	if entryRage {
		st.RageSpinsLeft = entryRageSpins - 1
		if st.RageSpinsLeft <= 0 {
			st.RageActive = false
			st.RageSpinsLeft = 0
			st.AfterpartyMeter = 0
			st.RageCooldownRemaining = e.cfg.RageCooldownSpins
			endEvents = append(endEvents, evEventEnd(GameEventRage))
		}
	}

	// boost / explosive 為純展演事件，不影響盤面與派彩，
	// 受滾動視窗頻率上限控管
	canEvent := st.eventsInWindow(eventWindow, "") < e.cfg.EventCapPer100
	if canEvent && !entryRage && curMode == ModeBase &&
		st.SmallwinsStreak >= e.cfg.BoostTriggerSmallWins &&
		st.eventsInWindow(eventWindow, EventBoost) < e.cfg.BoostCapPer100 {
		st.SmallwinsStreak = 0
		st.Events = append(st.Events, EventRecord{Spin: st.SpinCount, Kind: EventBoost})
		startEvents = append(startEvents, evEventStart(GameEventBoost, "smallwins", e.cfg.BoostSpins))
	}
	if canEvent && curMode == ModeBase &&
		totalWinX >= e.cfg.ExplosiveTriggerWinX &&
		st.eventsInWindow(eventWindow, EventExplosive) < e.cfg.ExplosiveCapPer100 {
		st.Events = append(st.Events, EventRecord{Spin: st.SpinCount, Kind: EventExplosive})
		startEvents = append(startEvents, evEventStart(GameEventExplosive, "win_threshold", e.cfg.ExplosiveSpins))
	}
	st.pruneEvents(eventWindow)

	// 自然觸發：只在 BASE 模式，bonus 內的 scatter 不 retrigger
	if curMode == ModeBase && scatters >= 3 {
		count := e.cfg.FreeSpinsBase + e.cfg.FreeSpinsPerExtraScatter*(scatters-3)
		st.Mode = ModeFreeSpins
		st.FreeSpinsRemaining = count
		st.HeatLevel = 1
		enterEvents = append(enterEvents, evEnterFreeSpins(count, "scatter", BonusVariantStandard))
		heatEvents = append(heatEvents, evHeatUpdate(1))
	}

	// 免費旋轉推進：只有「進入本次 spin 時就在 bonus 內」才消耗次數，
	// 購買或自然觸發的當次 spin 不消耗
	if entryMode == ModeFreeSpins {
		st.FreeSpinsRemaining = entryRemaining - 1

		if totalWin > 0 && entryHeat < e.cfg.HeatMax {
			st.HeatLevel = entryHeat + 1
			heatEvents = append(heatEvents, evHeatUpdate(st.HeatLevel))
		}

		if st.FreeSpinsRemaining <= 0 {
			// 收尾路徑看最後一次 spin：熱度滿 → upgrade，大獎 → multiplier
			finale := FinalePathStandard
			switch {
			case st.HeatLevel >= e.cfg.HeatMax:
				finale = FinalePathUpgrade
			case totalWinX >= e.cfg.BigWinX:
				finale = FinalePathMultiplier
			}
			bonusEndEvents = append(bonusEndEvents,
				evBonusEnd(finale, totalWinX, st.BonusIsBought, e.cfg.BoughtBonusMultiplier))
			st.Mode = ModeBase
			st.FreeSpinsRemaining = 0
			st.HeatLevel = 0
			st.BonusIsBought = false
		}
	}

	tier := winTier(totalWinX, e.cfg.BigWinX, e.cfg.MegaWinX, e.cfg.EpicWinX)

	// ---- 事件組裝 ----
	events := make([]Event, 0, 4+len(wins))
	events = append(events, evReveal(&g))
	if len(spot) > 0 {
		events = append(events, evSpotlightWilds(spot))
	}
	for _, w := range wins {
		events = append(events, evWinLine(w.LineID, w.Amount, w.WinX))
	}
	events = append(events, meterEvents...)
	events = append(events, startEvents...)
	events = append(events, endEvents...)
	events = append(events, enterEvents...)
	events = append(events, heatEvents...)
	events = append(events, bonusEndEvents...)
	if tier != WinTierNone {
		events = append(events, evWinTier(tier, totalWinX))
	}

	return &SpinResult{
		Grid:         g,
		Debit:        debit,
		BaseWinX:     baseWinX,
		TotalWin:     totalWin,
		TotalWinX:    totalWinX,
		IsCapped:     isCapped,
		CapReason:    capReason,
		WinTier:      tier,
		ScatterCount: scatters,
		WildCount:    wilds,
		LineWins:     wins,
		Events:       events,
		NextState: NextState{
			Mode:           st.Mode,
			SpinsRemaining: st.FreeSpinsRemaining,
			HeatLevel:      st.HeatLevel,
		},
	}, nil
}
