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
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/gamecfg"
	"github.com/zintix-labs/afterparty/sdk/core"
	"github.com/zintix-labs/afterparty/store"
	"github.com/zintix-labs/afterparty/telemetry"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(gamecfg.Default())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func testRNG(seed int64) *core.Core {
	return core.New(core.Default().New(seed))
}

// eventIndex 回傳第一個指定型別事件的位置，找不到回 -1。
func eventIndex(events []Event, typ string) int {
	for i, ev := range events {
		if ev.Type() == typ {
			return i
		}
	}
	return -1
}

// ============================================================
// ** Engine **
// ============================================================

func TestEngineDeterministic(t *testing.T) {
	eng := testEngine(t)

	rngA, rngB := testRNG(7), testRNG(7)
	stA, stB := NewPlayerState(), NewPlayerState()

	for i := 0; i < 500; i++ {
		outA, errA := eng.Spin(rngA, stA, SpinRequest{Bet: 1, Mode: SpinModeNormal})
		outB, errB := eng.Spin(rngB, stB, SpinRequest{Bet: 1, Mode: SpinModeNormal})
		if errA != nil || errB != nil {
			t.Fatalf("spin %d: %v / %v", i, errA, errB)
		}
		ja, _ := json.Marshal(outA)
		jb, _ := json.Marshal(outB)
		if string(ja) != string(jb) {
			t.Fatalf("spin %d diverged:\n%s\n%s", i, ja, jb)
		}
	}
}

func TestEngineRejectsInvalidRequests(t *testing.T) {
	eng := testEngine(t)
	rng := testRNG(1)

	_, err := eng.Spin(rng, NewPlayerState(), SpinRequest{Bet: 0, Mode: SpinModeNormal})
	if errs.CodeOf(err) != errs.CodeInvalidBet {
		t.Fatalf("zero bet: %v", err)
	}
	_, err = eng.Spin(rng, NewPlayerState(), SpinRequest{Bet: -1, Mode: SpinModeNormal})
	if errs.CodeOf(err) != errs.CodeInvalidBet {
		t.Fatalf("negative bet: %v", err)
	}
	_, err = eng.Spin(rng, NewPlayerState(), SpinRequest{Bet: 1, Mode: "TURBO"})
	if errs.CodeOf(err) != errs.CodeInvalidRequest {
		t.Fatalf("unknown mode: %v", err)
	}
}

func TestEngineBuyFeatureImmediateEntry(t *testing.T) {
	eng := testEngine(t)
	cfg := eng.Config()
	rng := testRNG(11)
	st := NewPlayerState()

	out, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeBuyFeature})
	if err != nil {
		t.Fatalf("buy spin: %v", err)
	}
	if out.Debit != cfg.BuyFeatureCostMultiplier {
		t.Fatalf("buy debit = %v", out.Debit)
	}
	if !out.EnteredBonus() {
		t.Fatalf("buy spin must enter free spins immediately")
	}

	idx := eventIndex(out.Events, EventTypeEnterFreeSpins)
	if idx < 0 {
		t.Fatalf("missing enterFreeSpins event")
	}
	ev := out.Events[idx]
	if ev["count"] != cfg.FreeSpinsBase || ev["reason"] != "buy_feature" || ev["bonusVariant"] != BonusVariantVIPBuy {
		t.Fatalf("enterFreeSpins payload: %v", ev)
	}

	// 購買當下的 spin 不消耗次數
	if st.Mode != ModeFreeSpins || st.FreeSpinsRemaining != cfg.FreeSpinsBase {
		t.Fatalf("state after buy: mode=%v remaining=%d", st.Mode, st.FreeSpinsRemaining)
	}
	if st.HeatLevel < 1 || !st.BonusIsBought {
		t.Fatalf("state after buy: heat=%d bought=%v", st.HeatLevel, st.BonusIsBought)
	}
	if out.NextState.Mode != ModeFreeSpins || out.NextState.SpinsRemaining != cfg.FreeSpinsBase {
		t.Fatalf("next state after buy: %+v", out.NextState)
	}

	// 已在 bonus 內時 BUY_FEATURE 視為一般 spin，不重入也不再收購買費
	out2, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeBuyFeature})
	if err != nil {
		t.Fatalf("buy inside bonus: %v", err)
	}
	if out2.Debit != 0 {
		t.Fatalf("buy inside bonus debited %v", out2.Debit)
	}
	if eventIndex(out2.Events, EventTypeEnterFreeSpins) >= 0 {
		t.Fatalf("bonus re-entered from inside bonus")
	}
}

func TestEngineBoughtBonusMultiplierPerSpin(t *testing.T) {
	eng := testEngine(t)
	cfg := eng.Config()
	rng := testRNG(13)
	st := NewPlayerState()

	if _, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeBuyFeature}); err != nil {
		t.Fatalf("buy spin: %v", err)
	}

	// 購買的 bonus 內，每次 spin 的派彩都乘上固定倍數
	sawWin := false
	for st.InBonus() {
		out, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeNormal})
		if err != nil {
			t.Fatalf("free spin: %v", err)
		}
		if out.Debit != 0 {
			t.Fatalf("free spin must not debit, got %v", out.Debit)
		}
		if out.BaseWinX > 0 && !out.IsCapped {
			sawWin = true
			if out.TotalWinX != out.BaseWinX*cfg.BoughtBonusMultiplier {
				t.Fatalf("bought spin win %v, base %v, want x%v",
					out.TotalWinX, out.BaseWinX, cfg.BoughtBonusMultiplier)
			}
		}
	}
	if !sawWin {
		t.Fatalf("bought bonus session produced no wins to verify")
	}
	if st.Mode != ModeBase || st.HeatLevel != 0 || st.BonusIsBought {
		t.Fatalf("state not reset after bonus: %+v", st)
	}
}

func TestEngineWinCapPerSpin(t *testing.T) {
	cfg := gamecfg.Default()
	cfg.MaxWinTotalX = 1
	eng, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	rng := testRNG(3)
	st := NewPlayerState()

	sawBase, sawBonus := false, false
	for i := 0; i < 3000; i++ {
		inBonus := st.Mode == ModeFreeSpins
		out, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeNormal})
		if err != nil {
			t.Fatalf("spin %d: %v", i, err)
		}
		if out.TotalWinX > cfg.MaxWinTotalX {
			t.Fatalf("win %v exceeds cap %v", out.TotalWinX, cfg.MaxWinTotalX)
		}
		if out.IsCapped {
			want := CapReasonMaxWinBase
			if inBonus {
				want = CapReasonMaxWinBonus
			}
			if out.CapReason != want {
				t.Fatalf("cap reason = %q, want %q", out.CapReason, want)
			}
			if inBonus {
				sawBonus = true
			} else {
				sawBase = true
			}
		}
	}
	if !sawBase {
		t.Fatalf("cap at 1x never hit in base spins")
	}
	_ = sawBonus // bonus 觸發與否取決於亂數序列，不強求
}

func TestEngineScatterChance(t *testing.T) {
	eng := testEngine(t)
	cfg := eng.Config()

	base := eng.ScatterChance(false)
	if diff := base - cfg.BaseScatterChance; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("base scatter chance = %v", base)
	}
	hype := eng.ScatterChance(true)
	if hype <= base {
		t.Fatalf("hype chance %v not above base %v", hype, base)
	}
}

func TestEngineMeterAdditive(t *testing.T) {
	eng := testEngine(t)
	cfg := eng.Config()
	rng := testRNG(5)
	st := NewPlayerState()

	for i := 0; i < 500; i++ {
		if st.InBonus() || st.RageActive || st.RageCooldownRemaining > 0 {
			if _, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeNormal}); err != nil {
				t.Fatalf("spin %d: %v", i, err)
			}
			continue
		}
		before := st.AfterpartyMeter
		out, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeNormal})
		if err != nil {
			t.Fatalf("spin %d: %v", i, err)
		}
		// 逐項累加、各自封頂
		want := before
		if out.TotalWin > 0 {
			want = min(want+cfg.MeterIncAnyWin, cfg.MeterMax)
		}
		if out.WildCount > 0 {
			want = min(want+cfg.MeterIncWildPresent, cfg.MeterMax)
		}
		if out.ScatterCount == 2 {
			want = min(want+cfg.MeterIncTwoScatters, cfg.MeterMax)
		}
		if want >= cfg.MeterMax {
			// 滿格觸發 rage 並歸零
			if !st.RageActive || st.AfterpartyMeter != 0 {
				t.Fatalf("spin %d: meter full but rage=%v meter=%d", i, st.RageActive, st.AfterpartyMeter)
			}
			if st.RageSpinsLeft != cfg.RageSpins {
				t.Fatalf("spin %d: rage spins = %d", i, st.RageSpinsLeft)
			}
			continue
		}
		if st.AfterpartyMeter != want {
			t.Fatalf("spin %d: meter %d -> %d, want %d", i, before, st.AfterpartyMeter, want)
		}
	}
}

func TestEngineRageCooldown(t *testing.T) {
	eng := testEngine(t)
	cfg := eng.Config()
	rng := testRNG(17)

	st := NewPlayerState()
	st.AfterpartyMeter = cfg.MeterMax - 1

	// 轉到 meter 觸發 rage 為止
	for i := 0; i < 5000 && !st.RageActive; i++ {
		if _, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeNormal}); err != nil {
			t.Fatalf("spin: %v", err)
		}
	}
	if !st.RageActive || st.RageSpinsLeft != cfg.RageSpins {
		t.Fatalf("rage not granted: %+v", st)
	}
	if st.AfterpartyMeter != 0 {
		t.Fatalf("meter not reset on trigger: %d", st.AfterpartyMeter)
	}

	// rage 結束後進入冷卻
	for st.RageActive {
		if _, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeNormal}); err != nil {
			t.Fatalf("rage spin: %v", err)
		}
	}
	if st.RageCooldownRemaining != cfg.RageCooldownSpins {
		t.Fatalf("cooldown = %d, want %d", st.RageCooldownRemaining, cfg.RageCooldownSpins)
	}

	// 冷卻期間 meter 滿格也不觸發
	st.AfterpartyMeter = cfg.MeterMax
	st.Mode = ModeBase
	st.FreeSpinsRemaining = 0
	if _, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeNormal}); err != nil {
		t.Fatalf("cooldown spin: %v", err)
	}
	if st.RageActive {
		t.Fatalf("rage triggered inside cooldown window")
	}
	if st.RageCooldownRemaining != cfg.RageCooldownSpins-1 {
		t.Fatalf("cooldown not decremented: %d", st.RageCooldownRemaining)
	}
}

func TestEngineFreeSpinsSession(t *testing.T) {
	eng := testEngine(t)
	cfg := eng.Config()
	rng := testRNG(23)
	st := NewPlayerState()

	if _, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeBuyFeature}); err != nil {
		t.Fatalf("buy spin: %v", err)
	}

	streakBefore := st.DeadspinsStreak
	remaining := st.FreeSpinsRemaining
	heat := st.HeatLevel
	var last *SpinResult
	for st.InBonus() {
		out, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeNormal})
		if err != nil {
			t.Fatalf("free spin: %v", err)
		}
		if out.Debit != 0 {
			t.Fatalf("free spin must not debit, got %v", out.Debit)
		}
		// 每次免費旋轉恰好消耗一次
		if st.FreeSpinsRemaining != remaining-1 {
			t.Fatalf("remaining %d -> %d", remaining, st.FreeSpinsRemaining)
		}
		remaining = st.FreeSpinsRemaining
		// 熱度只在有派彩時 +1，封頂不超過上限（最後一次 spin 後歸零）
		if st.InBonus() {
			want := heat
			if out.TotalWin > 0 && heat < cfg.HeatMax {
				want = heat + 1
			}
			if st.HeatLevel != want {
				t.Fatalf("heat %d -> %d, want %d", heat, st.HeatLevel, want)
			}
			heat = st.HeatLevel
		}
		// bonus 內的 scatter 不 retrigger
		if eventIndex(out.Events, EventTypeEnterFreeSpins) >= 0 {
			t.Fatalf("retrigger inside bonus")
		}
		last = out
	}

	if st.Mode != ModeBase || st.HeatLevel != 0 || st.BonusIsBought {
		t.Fatalf("session state not reset: %+v", st)
	}
	// 免費旋轉不推進 BASE 連續紀錄
	if st.DeadspinsStreak != streakBefore {
		t.Fatalf("dead spin streak changed inside bonus: %d -> %d", streakBefore, st.DeadspinsStreak)
	}

	idx := eventIndex(last.Events, EventTypeBonusEnd)
	if idx < 0 {
		t.Fatalf("missing bonusEnd on last free spin")
	}
	end := last.Events[idx]
	if end["bonusType"] != "freespins" {
		t.Fatalf("bonusEnd payload: %v", end)
	}
	if end["bonusVariant"] != BonusVariantVIPBuy || end["bonusMultiplierApplied"] != cfg.BoughtBonusMultiplier {
		t.Fatalf("bought bonusEnd payload: %v", end)
	}
	// 收尾路徑看最後一次 spin 的結果
	finale := end["finalePath"]
	if finale != FinalePathStandard && finale != FinalePathMultiplier && finale != FinalePathUpgrade {
		t.Fatalf("unknown finalePath: %v", finale)
	}
	if last.TotalWinX >= cfg.BigWinX && finale == FinalePathStandard {
		t.Fatalf("big final spin but finalePath = %v", finale)
	}
}

func TestEngineNaturalTriggerHeatStartsAtOne(t *testing.T) {
	eng := testEngine(t)
	cfg := eng.Config()
	rng := testRNG(29)
	st := NewPlayerState()

	var entry *SpinResult
	for i := 0; i < 20000 && entry == nil; i++ {
		out, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeNormal})
		if err != nil {
			t.Fatalf("spin %d: %v", i, err)
		}
		if out.EnteredBonus() {
			entry = out
		}
	}
	if entry == nil {
		t.Fatalf("natural trigger never hit")
	}

	want := cfg.FreeSpinsBase + cfg.FreeSpinsPerExtraScatter*(entry.ScatterCount-3)
	if st.FreeSpinsRemaining != want {
		t.Fatalf("awarded %d spins for %d scatters, want %d",
			st.FreeSpinsRemaining, entry.ScatterCount, want)
	}
	if st.HeatLevel != 1 {
		t.Fatalf("heat starts at %d, want 1", st.HeatLevel)
	}
	if st.BonusIsBought {
		t.Fatalf("natural trigger marked as bought")
	}
	idx := eventIndex(entry.Events, EventTypeEnterFreeSpins)
	if idx < 0 {
		t.Fatalf("missing enterFreeSpins event")
	}
	ev := entry.Events[idx]
	if ev["reason"] != "scatter" || ev["bonusVariant"] != BonusVariantStandard {
		t.Fatalf("enterFreeSpins payload: %v", ev)
	}
}

func TestEngineEventsArePresentationOnly(t *testing.T) {
	eng := testEngine(t)
	cfg := eng.Config()

	// 事件紀錄塞滿視窗上限與全空，同一亂數序列必須給出同一盤面與派彩
	rngA, rngB := testRNG(31), testRNG(31)
	stA, stB := NewPlayerState(), NewPlayerState()
	for i := 0; i < cfg.EventCapPer100; i++ {
		stB.Events = append(stB.Events, EventRecord{Spin: int64(i + 1), Kind: EventBoost})
	}
	stB.SpinCount = int64(cfg.EventCapPer100)
	stA.SpinCount = stB.SpinCount

	for i := 0; i < 200; i++ {
		outA, errA := eng.Spin(rngA, stA, SpinRequest{Bet: 1, Mode: SpinModeNormal})
		outB, errB := eng.Spin(rngB, stB, SpinRequest{Bet: 1, Mode: SpinModeNormal})
		if errA != nil || errB != nil {
			t.Fatalf("spin %d: %v / %v", i, errA, errB)
		}
		if outA.TotalWinX != outB.TotalWinX || outA.Grid != outB.Grid {
			t.Fatalf("spin %d: event history changed the outcome", i)
		}
	}
}

func TestEngineEventWindowCap(t *testing.T) {
	st := NewPlayerState()
	st.SpinCount = 150
	st.Events = []EventRecord{
		{Spin: 40, Kind: EventBoost},     // 視窗外
		{Spin: 60, Kind: EventBoost},     // 視窗內
		{Spin: 120, Kind: EventExplosive}, // 視窗內
	}

	if n := st.eventsInWindow(eventWindow, ""); n != 2 {
		t.Fatalf("window total = %d", n)
	}
	if n := st.eventsInWindow(eventWindow, EventBoost); n != 1 {
		t.Fatalf("window boost = %d", n)
	}
	st.pruneEvents(eventWindow)
	if len(st.Events) != 2 {
		t.Fatalf("prune kept %d records", len(st.Events))
	}
}

func TestEngineEventOrder(t *testing.T) {
	eng := testEngine(t)
	rng := testRNG(37)
	st := NewPlayerState()

	out, err := eng.Spin(rng, st, SpinRequest{Bet: 1, Mode: SpinModeBuyFeature})
	if err != nil {
		t.Fatalf("buy spin: %v", err)
	}
	if out.Events[0].Type() != EventTypeReveal {
		t.Fatalf("first event = %q", out.Events[0].Type())
	}
	enter := eventIndex(out.Events, EventTypeEnterFreeSpins)
	heat := eventIndex(out.Events, EventTypeHeatUpdate)
	if enter < 0 || heat < 0 || enter > heat {
		t.Fatalf("enterFreeSpins/heatUpdate order: %d / %d", enter, heat)
	}
	if tier := eventIndex(out.Events, EventTypeWinTier); tier >= 0 && tier != len(out.Events)-1 {
		t.Fatalf("winTier not last: %d of %d", tier, len(out.Events))
	}
	if line := eventIndex(out.Events, EventTypeWinLine); line >= 0 && line > enter {
		t.Fatalf("winLine after enterFreeSpins: %d / %d", line, enter)
	}
}

func TestWinTierThresholds(t *testing.T) {
	cfg := gamecfg.Default()
	cases := []struct {
		winX float64
		want string
	}{
		{0, WinTierNone},
		{19.99, WinTierNone},
		{20, WinTierBig},
		{199.99, WinTierBig},
		{200, WinTierMega},
		{999.99, WinTierMega},
		{1000, WinTierEpic},
		{25000, WinTierEpic},
	}
	for _, c := range cases {
		if got := winTier(c.winX, cfg.BigWinX, cfg.MegaWinX, cfg.EpicWinX); got != c.want {
			t.Fatalf("winTier(%v) = %q, want %q", c.winX, got, c.want)
		}
	}
}

// ============================================================
// ** Runtime **
// ============================================================

// recordSink 收集所有事件供斷言。
type recordSink struct {
	mu        sync.Mutex
	inits     []telemetry.InitServed
	processed []telemetry.SpinProcessed
	rejected  []telemetry.SpinRejected
}

func (s *recordSink) InitServed(ev telemetry.InitServed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inits = append(s.inits, ev)
}

func (s *recordSink) SpinProcessed(ev telemetry.SpinProcessed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = append(s.processed, ev)
}

func (s *recordSink) SpinRejected(ev telemetry.SpinRejected) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, ev)
}

func testRuntime(t *testing.T, st store.Store, sink telemetry.Sink) *Runtime {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := NewRuntime(testEngine(t), st, sink, log)
	rt.seedFn = func() (int64, error) { return 42, nil }
	return rt
}

func TestRuntimeInitIsReadOnly(t *testing.T) {
	mem := store.NewMem(store.DefaultOptions())
	sink := &recordSink{}
	rt := testRuntime(t, mem, sink)
	ctx := context.Background()

	info, err := rt.Init(ctx, "p1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if info.Restore != nil {
		t.Fatalf("fresh player has restore state: %+v", info.Restore)
	}
	// init 不得產生任何玩家狀態
	if _, found, err := mem.GetPlayerState(ctx, "p1"); err != nil || found {
		t.Fatalf("init persisted state: found=%v err=%v", found, err)
	}

	if len(sink.inits) != 1 {
		t.Fatalf("init_served count = %d", len(sink.inits))
	}
	ev := sink.inits[0]
	if ev.PlayerID != "p1" || ev.RestoreStatePresent {
		t.Fatalf("init_served payload: %+v", ev)
	}

	if _, err := rt.Init(ctx, ""); errs.CodeOf(err) != errs.CodeInvalidRequest {
		t.Fatalf("missing player id: %v", err)
	}
}

func TestRuntimeInitRestoresBonus(t *testing.T) {
	mem := store.NewMem(store.DefaultOptions())
	sink := &recordSink{}
	rt := testRuntime(t, mem, sink)
	ctx := context.Background()

	in := SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeBuyFeature}
	if _, err := rt.Spin(ctx, in); err != nil {
		t.Fatalf("buy spin: %v", err)
	}

	info, err := rt.Init(ctx, "p1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if info.Restore == nil || info.Restore.Mode != ModeFreeSpins || info.Restore.SpinsRemaining <= 0 {
		t.Fatalf("restore state: %+v", info.Restore)
	}
	ev := sink.inits[len(sink.inits)-1]
	if !ev.RestoreStatePresent || ev.RestoreMode != string(ModeFreeSpins) || ev.SpinsRemaining != info.Restore.SpinsRemaining {
		t.Fatalf("init_served payload: %+v", ev)
	}
}

func TestRuntimeSpinIdempotency(t *testing.T) {
	mem := store.NewMem(store.DefaultOptions())
	sink := &recordSink{}
	rt := testRuntime(t, mem, sink)
	ctx := context.Background()

	in := SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeNormal}
	first, err := rt.Spin(ctx, in)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if first.Replayed {
		t.Fatalf("first spin marked replayed")
	}

	second, err := rt.Spin(ctx, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("second spin not replayed")
	}
	if second.RoundID != first.RoundID {
		t.Fatalf("replay changed round id: %q vs %q", second.RoundID, first.RoundID)
	}
	// 回放必須逐 byte 一致，連事件串流都不例外
	ja, _ := json.Marshal(first.Result)
	jb, _ := json.Marshal(second.Result)
	if string(ja) != string(jb) {
		t.Fatalf("replay returned a different result:\n%s\n%s", ja, jb)
	}

	// 回放不得重複發 spin_processed
	if len(sink.processed) != 1 {
		t.Fatalf("spin_processed count = %d, want 1", len(sink.processed))
	}

	// 同 clientRequestId、不同 payload → 衝突
	in.Bet = 2
	if _, err := rt.Spin(ctx, in); errs.CodeOf(err) != errs.CodeIdempotencyConflict {
		t.Fatalf("payload mismatch: %v", err)
	}
}

func TestRuntimeValidationEmitsNoTelemetry(t *testing.T) {
	cfg := gamecfg.Default()
	cfg.EnableBuyFeature = false
	cfg.EnableHypeModeAnteBet = false
	eng, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	sink := &recordSink{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := NewRuntime(eng, store.NewMem(store.DefaultOptions()), sink, log)
	ctx := context.Background()

	cases := []struct {
		in   SpinInput
		code errs.Code
	}{
		{SpinInput{ClientRequestID: "r1", Bet: 1, Mode: SpinModeNormal}, errs.CodeInvalidRequest},
		{SpinInput{PlayerID: "p1", Bet: 1, Mode: SpinModeNormal}, errs.CodeInvalidRequest},
		{SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 0.33, Mode: SpinModeNormal}, errs.CodeInvalidBet},
		{SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeBuyFeature}, errs.CodeFeatureDisabled},
		{SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeNormal, HypeMode: true}, errs.CodeFeatureDisabled},
	}
	for i, c := range cases {
		if _, err := rt.Spin(ctx, c.in); errs.CodeOf(err) != c.code {
			t.Fatalf("case %d: %v, want %v", i, err, c.code)
		}
	}
	if len(sink.processed) != 0 || len(sink.rejected) != 0 {
		t.Fatalf("validation failures emitted telemetry: %d processed, %d rejected",
			len(sink.processed), len(sink.rejected))
	}
}

func TestRuntimeSpinLockBusy(t *testing.T) {
	mem := store.NewMem(store.DefaultOptions())
	sink := &recordSink{}
	rt := testRuntime(t, mem, sink)
	ctx := context.Background()

	if _, ok, err := mem.AcquireLock(ctx, "p1"); err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}
	in := SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeNormal}
	_, err := rt.Spin(ctx, in)
	if errs.CodeOf(err) != errs.CodeRoundInProgress {
		t.Fatalf("busy lock: %v", err)
	}

	// 撞鎖是唯一會發 spin_rejected 的情況
	if len(sink.rejected) != 1 {
		t.Fatalf("spin_rejected count = %d", len(sink.rejected))
	}
	ev := sink.rejected[0]
	if ev.PlayerID != "p1" || ev.ClientRequestID != "r1" || ev.Reason != string(errs.CodeRoundInProgress) {
		t.Fatalf("spin_rejected payload: %+v", ev)
	}
}

func TestRuntimeStateLifecycle(t *testing.T) {
	mem := store.NewMem(store.DefaultOptions())
	sink := &recordSink{}
	rt := testRuntime(t, mem, sink)
	ctx := context.Background()

	// BASE 收尾的 spin 不得留下任何狀態
	rec, err := rt.Spin(ctx, SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeNormal})
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if rec.Result.NextState.Mode == ModeBase {
		if _, found, err := mem.GetPlayerState(ctx, "p1"); err != nil || found {
			t.Fatalf("state persisted after base spin: found=%v err=%v", found, err)
		}
	}

	// 進入 bonus 的 spin 必須持久化狀態
	if _, err := rt.Spin(ctx, SpinInput{PlayerID: "p2", ClientRequestID: "r2", Bet: 1, Mode: SpinModeBuyFeature}); err != nil {
		t.Fatalf("buy spin: %v", err)
	}
	data, found, err := mem.GetPlayerState(ctx, "p2")
	if err != nil || !found {
		t.Fatalf("bonus state missing: found=%v err=%v", found, err)
	}
	st := &PlayerState{}
	if err := json.Unmarshal(data, st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if st.Mode != ModeFreeSpins || !st.BonusIsBought || st.BonusContinuationCount != 0 {
		t.Fatalf("persisted state: %+v", st)
	}

	// 接續 spin：計數遞增、觀測事件標記接續
	if _, err := rt.Spin(ctx, SpinInput{PlayerID: "p2", ClientRequestID: "r3", Bet: 1, Mode: SpinModeNormal}); err != nil {
		t.Fatalf("continuation spin: %v", err)
	}
	ev := sink.processed[len(sink.processed)-1]
	if !ev.IsBonusContinuation || ev.BonusContinuationCount != 1 || ev.BonusVariant != BonusVariantVIPBuy {
		t.Fatalf("continuation telemetry: %+v", ev)
	}
	data, found, err = mem.GetPlayerState(ctx, "p2")
	if err != nil || !found {
		t.Fatalf("state after continuation: found=%v err=%v", found, err)
	}
	st = &PlayerState{}
	if err := json.Unmarshal(data, st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if st.BonusContinuationCount != 1 {
		t.Fatalf("continuation count = %d", st.BonusContinuationCount)
	}
}

func TestRuntimeSpinTelemetryFields(t *testing.T) {
	mem := store.NewMem(store.DefaultOptions())
	sink := &recordSink{}
	rt := testRuntime(t, mem, sink)
	ctx := context.Background()

	if _, err := rt.Spin(ctx, SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeNormal, HypeMode: true}); err != nil {
		t.Fatalf("hype spin: %v", err)
	}
	if _, err := rt.Spin(ctx, SpinInput{PlayerID: "p2", ClientRequestID: "r2", Bet: 1, Mode: SpinModeBuyFeature, HypeMode: true}); err != nil {
		t.Fatalf("buy spin: %v", err)
	}
	if len(sink.processed) != 2 {
		t.Fatalf("spin_processed count = %d", len(sink.processed))
	}
	hype, buy := sink.processed[0], sink.processed[1]
	if hype.Mode != telemetry.ModeHype {
		t.Fatalf("hype mode label = %q", hype.Mode)
	}
	// buy 與 hype 同時成立時 buy 優先
	if buy.Mode != telemetry.ModeBuy {
		t.Fatalf("buy mode label = %q", buy.Mode)
	}
	if hype.ConfigHash == "" || hype.RoundID == "" || hype.ClientRequestID != "r1" {
		t.Fatalf("spin_processed payload: %+v", hype)
	}
	if buy.BonusVariant != BonusVariantVIPBuy {
		t.Fatalf("buy bonus variant = %q", buy.BonusVariant)
	}
}

// flakyStore 讓狀態寫入失敗一次，驗證「冪等紀錄先寫」的順序保證。
type flakyStore struct {
	store.Store
	failPuts int
}

func (f *flakyStore) PutPlayerState(ctx context.Context, playerID string, data []byte) error {
	if f.failPuts > 0 {
		f.failPuts--
		return errs.NewCode(errs.CodeInternalError, "injected failure")
	}
	return f.Store.PutPlayerState(ctx, playerID, data)
}

func TestRuntimeIdemWrittenBeforeState(t *testing.T) {
	fs := &flakyStore{Store: store.NewMem(store.DefaultOptions()), failPuts: 1}
	rt := testRuntime(t, fs, nil)
	ctx := context.Background()

	// 購買才會走狀態寫入路徑
	in := SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeBuyFeature}
	if _, err := rt.Spin(ctx, in); errs.CodeOf(err) != errs.CodeInternalError {
		t.Fatalf("expected injected store failure, got %v", err)
	}

	// 狀態寫失敗，但冪等紀錄已落地：重送同 clientRequestId 拿到回放結果
	rec, err := rt.Spin(ctx, in)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !rec.Replayed {
		t.Fatalf("retry after state write failure must replay, got %+v", rec)
	}
}

// panicSink 的每個方法都 panic，驗證觀測失敗不影響遊戲流程。
type panicSink struct{}

func (panicSink) InitServed(telemetry.InitServed)       { panic("sink down") }
func (panicSink) SpinProcessed(telemetry.SpinProcessed) { panic("sink down") }
func (panicSink) SpinRejected(telemetry.SpinRejected)   { panic("sink down") }

func TestRuntimeTelemetryPanicSwallowed(t *testing.T) {
	mem := store.NewMem(store.DefaultOptions())
	rt := testRuntime(t, mem, panicSink{})
	ctx := context.Background()

	if _, err := rt.Init(ctx, "p1"); err != nil {
		t.Fatalf("init with panicking sink: %v", err)
	}
	in := SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeNormal}
	if _, err := rt.Spin(ctx, in); err != nil {
		t.Fatalf("spin with panicking sink: %v", err)
	}
}

func TestRuntimeClosed(t *testing.T) {
	mem := store.NewMem(store.DefaultOptions())
	rt := testRuntime(t, mem, nil)
	rt.Close()
	rt.Close() // 重覆關閉安全

	if !rt.Closed() {
		t.Fatalf("runtime should report closed")
	}
	in := SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeNormal}
	if _, err := rt.Spin(context.Background(), in); err == nil {
		t.Fatalf("spin on closed runtime should fail")
	}
}

func TestRuntimeAllocatesRoundID(t *testing.T) {
	mem := store.NewMem(store.DefaultOptions())
	rt := testRuntime(t, mem, nil)
	ctx := context.Background()

	a, err := rt.Spin(ctx, SpinInput{PlayerID: "p1", ClientRequestID: "r1", Bet: 1, Mode: SpinModeNormal})
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	b, err := rt.Spin(ctx, SpinInput{PlayerID: "p1", ClientRequestID: "r2", Bet: 1, Mode: SpinModeNormal})
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if a.RoundID == "" || b.RoundID == "" || a.RoundID == b.RoundID {
		t.Fatalf("round ids: %q / %q", a.RoundID, b.RoundID)
	}
}
