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

package audit

import (
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/zintix-labs/afterparty/gamecfg"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := NewRunner(gamecfg.Default())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r
}

func TestSpinsBetweenWins(t *testing.T) {
	// 有派彩的局: 1, 3, 4
	got := spinsBetweenWins([]float64{0, 1, 0, 2, 1})
	if !reflect.DeepEqual(got, []int{2, 1}) {
		t.Fatalf("intervals = %v", got)
	}
	if got := spinsBetweenWins([]float64{0, 0}); got != nil {
		t.Fatalf("no wins should give nil, got %v", got)
	}
}

func TestBonusIntervals(t *testing.T) {
	got := bonusIntervals([]int{5, 10, 30}, 100)
	if !reflect.DeepEqual(got, []int{5, 5, 20, 70}) {
		t.Fatalf("intervals = %v", got)
	}
	// 最後一次進場正好在結尾，不補殘段
	got = bonusIntervals([]int{100}, 100)
	if !reflect.DeepEqual(got, []int{100}) {
		t.Fatalf("intervals = %v", got)
	}
	if got := bonusIntervals(nil, 100); got != nil {
		t.Fatalf("no entries should give nil, got %v", got)
	}
}

func TestRunDeterministic(t *testing.T) {
	r := testRunner(t)

	a, _, err := r.Run(ModeBase, 400, "AUDIT_TEST", false)
	if err != nil {
		t.Fatalf("run a: %v", err)
	}
	b, _, err := r.Run(ModeBase, 400, "AUDIT_TEST", false)
	if err != nil {
		t.Fatalf("run b: %v", err)
	}

	if a.RTP != b.RTP || a.HitFreq != b.HitFreq || a.MaxWinX != b.MaxWinX ||
		a.BonusEntryRate != b.BonusEntryRate || a.CappedRate != b.CappedRate {
		t.Fatalf("same seed produced different summaries:\n%+v\n%+v", a, b)
	}
	if a.MaxWinX > r.Config().MaxWinTotalX {
		t.Fatalf("max win %v exceeds cap %v", a.MaxWinX, r.Config().MaxWinTotalX)
	}
	if a.AvgDebit != 1.0 {
		t.Fatalf("base avg debit = %v", a.AvgDebit)
	}
	if a.DebitMultiplier != 1.0 {
		t.Fatalf("base debit multiplier = %v", a.DebitMultiplier)
	}
	if a.ScatterChanceMultiplier != 1.0 {
		t.Fatalf("base scatter multiplier = %v", a.ScatterChanceMultiplier)
	}
}

func TestRunSeedSensitivity(t *testing.T) {
	r := testRunner(t)
	a, _, err := r.Run(ModeBase, 400, "SEED_A", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, _, err := r.Run(ModeBase, 400, "SEED_B", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if a.RTP == b.RTP && a.HitFreq == b.HitFreq && a.MaxWinX == b.MaxWinX {
		t.Fatalf("different seeds produced identical summaries")
	}
}

func TestRunBuyMode(t *testing.T) {
	r := testRunner(t)
	s, rec, err := r.Run(ModeBuy, 30, "BUY_TEST", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.AvgDebit != r.Config().BuyFeatureCostMultiplier {
		t.Fatalf("buy avg debit = %v", s.AvgDebit)
	}
	// 購買必定進 bonus，而且都是 vip_buy 變體
	if s.BonusEntryRate != 100 || s.VipBuyBonusRate != 100 || s.StandardBonusRate != 0 {
		t.Fatalf("buy bonus rates = %v / %v / %v", s.BonusEntryRate, s.VipBuyBonusRate, s.StandardBonusRate)
	}
	if rec.Rounds != 30 {
		t.Fatalf("rounds = %d", rec.Rounds)
	}
}

func TestRunHypeDebit(t *testing.T) {
	r := testRunner(t)
	s, _, err := r.Run(ModeHype, 200, "HYPE_TEST", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := 1.0 + r.Config().HypeModeCostIncrease
	if math.Abs(s.AvgDebit-want) > 1e-9 {
		t.Fatalf("hype avg debit = %v, want %v", s.AvgDebit, want)
	}
	if s.ScatterChanceMultiplier != r.Config().HypeScatterMultiplier {
		t.Fatalf("hype scatter multiplier = %v", s.ScatterChanceMultiplier)
	}
	if s.ScatterChanceEffective <= s.ScatterChanceBase {
		t.Fatalf("hype effective chance %v not above base %v", s.ScatterChanceEffective, s.ScatterChanceBase)
	}
}

func TestRunRejectsBadParams(t *testing.T) {
	r := testRunner(t)
	if _, _, err := r.Run(Mode("bogus"), 10, "S", false); err == nil {
		t.Fatalf("bogus mode accepted")
	}
	if _, _, err := r.Run(ModeBase, 0, "S", false); err == nil {
		t.Fatalf("zero rounds accepted")
	}
	if _, _, err := r.Run(ModeBase, 10, "", false); err == nil {
		t.Fatalf("empty seed accepted")
	}
}

func TestSummaryCSVRoundTrip(t *testing.T) {
	r := testRunner(t)
	s, _, err := r.Run(ModeBase, 100, "CSV_TEST", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	path := filepath.Join(t.TempDir(), "audit_base.csv")
	if err := s.WriteCSV(path); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	got, err := LoadSummaryCSV(path)
	if err != nil {
		t.Fatalf("load csv: %v", err)
	}

	if got.ConfigHash != s.ConfigHash || got.Mode != s.Mode || got.Rounds != s.Rounds || got.Seed != s.Seed {
		t.Fatalf("cache keys lost in round trip: %+v", got)
	}
	// 數值經 %.4f 格式化，round trip 比對用格式化後精度
	if math.Abs(got.RTP-s.RTP) > 0.0001 {
		t.Fatalf("rtp drifted: %v vs %v", got.RTP, s.RTP)
	}
	if math.Abs(got.DebitMultiplier-1.0) > 1e-9 {
		t.Fatalf("debit multiplier drifted: %v", got.DebitMultiplier)
	}

	if !CacheValid(path, s.ConfigHash, s.Rounds, s.Seed, s.Mode) {
		t.Fatalf("cache should be valid for matching keys")
	}
	if CacheValid(path, s.ConfigHash, s.Rounds+1, s.Seed, s.Mode) {
		t.Fatalf("cache valid despite different rounds")
	}
	if CacheValid(path, "deadbeefdeadbeef", s.Rounds, s.Seed, s.Mode) {
		t.Fatalf("cache valid despite different config hash")
	}
	if CacheValid(filepath.Join(t.TempDir(), "missing.csv"), s.ConfigHash, s.Rounds, s.Seed, s.Mode) {
		t.Fatalf("cache valid for missing file")
	}
}

func TestTailCheck(t *testing.T) {
	tol := DefaultTailTolerances()
	base := &Summary{Rate1000xPlus: 0.5, Rate10000xPlus: 0, MaxWinX: 12000}

	// 在容忍內的小幅下滑要過
	run := &Summary{Rate1000xPlus: 0.35, Rate10000xPlus: 0, MaxWinX: 11950}
	if ok, msgs := tailCheck(run, base, tol); !ok {
		t.Fatalf("within tolerance should pass: %v", msgs)
	}

	// 超出容忍的下滑要失敗
	run = &Summary{Rate1000xPlus: 0.2, Rate10000xPlus: 0, MaxWinX: 12000}
	if ok, _ := tailCheck(run, base, tol); ok {
		t.Fatalf("regression beyond tolerance should fail")
	}

	// 基準 0 且本次 0：必過
	base = &Summary{Rate1000xPlus: 0, Rate10000xPlus: 0, MaxWinX: 0}
	run = &Summary{Rate1000xPlus: 0, Rate10000xPlus: 0, MaxWinX: 0}
	if ok, _ := tailCheck(run, base, tol); !ok {
		t.Fatalf("all-zero baseline should pass")
	}

	// 上漲永遠不算劣化
	base = &Summary{Rate1000xPlus: 0.1, MaxWinX: 5000}
	run = &Summary{Rate1000xPlus: 5.0, MaxWinX: 25000}
	if ok, _ := tailCheck(run, base, tol); !ok {
		t.Fatalf("improvement should pass")
	}
}

func TestComparePacing(t *testing.T) {
	mp := ModePacing{
		Rtp:                 0.96,
		WinRate:             0.3,
		DrySpinsRate:        0.7,
		BonusEntryRate:      0.02,
		SpinsBetweenWinsP50: 3,
		SpinsBetweenWinsP90: 8,
		SpinsBetweenWinsP99: 20,
		SpinsBetweenBonusP50: 35,
		SpinsBetweenBonusP90: 110,
		SpinsBetweenBonusP99: 250,
		MaxWinX:             8000,
		Rate1000xPlus:       0.0005,
	}
	newBaseline := func(m ModePacing) *PacingBaseline {
		return &PacingBaseline{
			Schema:     PacingSchema,
			Seed:       "PACING",
			Rounds:     20000,
			ConfigHash: "abc",
			Modes: map[string]ModePacing{
				"base": m, "buy": m, "hype": m,
			},
		}
	}

	// 相同數字要全過
	res := comparePacing(newBaseline(mp), newBaseline(mp))
	if !res.AllPassed {
		t.Fatalf("identical baselines should pass: %+v", res)
	}

	// bonus_entry_rate 偏移超過 ±0.0015 要失敗
	bad := mp
	bad.BonusEntryRate = mp.BonusEntryRate + 0.01
	res = comparePacing(newBaseline(bad), newBaseline(mp))
	if res.AllPassed {
		t.Fatalf("bonus rate drift should fail")
	}

	// max_win_x 掉到 85% 樓地板以下要失敗
	bad = mp
	bad.MaxWinX = mp.MaxWinX * 0.5
	res = comparePacing(newBaseline(bad), newBaseline(mp))
	if res.AllPassed {
		t.Fatalf("max win floor should fail")
	}

	// rtp 只列資訊，再大的差也不判定
	bad = mp
	bad.Rtp = 2.0
	res = comparePacing(newBaseline(bad), newBaseline(mp))
	if !res.AllPassed {
		t.Fatalf("rtp is info-only and must not fail the compare")
	}
}

func TestPacingBaselineRoundTrip(t *testing.T) {
	r := testRunner(t)
	recs, _, err := r.RunAll(150, "PACING_TEST", false)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	b := r.BuildPacingBaseline(recs, "PACING_TEST", 150)
	if b.Schema != PacingSchema {
		t.Fatalf("schema = %q", b.Schema)
	}
	buy := b.Modes["buy"]
	if buy.SpinsBetweenBonusP50 != 1 || buy.SpinsBetweenBonusP99 != 1 {
		t.Fatalf("buy bonus pacing should be fixed at 1: %+v", buy)
	}

	path := filepath.Join(t.TempDir(), "pacing_baseline.yaml")
	if err := SavePacingBaseline(path, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadPacingBaseline(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ConfigHash != b.ConfigHash || got.Rounds != b.Rounds || got.Seed != b.Seed {
		t.Fatalf("baseline keys lost: %+v", got)
	}
	if got.Modes["base"] != b.Modes["base"] {
		t.Fatalf("base mode pacing drifted:\n%+v\n%+v", got.Modes["base"], b.Modes["base"])
	}

	// schema 不符要拒收
	bad := *b
	bad.Schema = "v0"
	badPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := SavePacingBaseline(badPath, &bad); err != nil {
		t.Fatalf("save bad: %v", err)
	}
	if _, err := LoadPacingBaseline(badPath); err == nil {
		t.Fatalf("invalid schema accepted")
	}
}

func TestHuntDeterministic(t *testing.T) {
	r := testRunner(t)
	p := HuntParams{
		Mode:       ModeBase,
		MinWinX:    0,
		Target:     HuntTargetHigh,
		MaxSeeds:   40,
		SeedPrefix: "HUNT_TEST",
		Workers:    4,
	}
	a, err := r.Hunt(p, false)
	if err != nil {
		t.Fatalf("hunt: %v", err)
	}
	// min_win_x = 0 時每顆 seed 都命中
	if a.FoundCount != 40 {
		t.Fatalf("found = %d, want 40", a.FoundCount)
	}
	for i := 1; i < len(a.Found); i++ {
		if a.Found[i].TotalWinX > a.Found[i-1].TotalWinX {
			t.Fatalf("hits not sorted desc at %d", i)
		}
	}

	// worker 數不影響結果
	p.Workers = 1
	b, err := r.Hunt(p, false)
	if err != nil {
		t.Fatalf("hunt: %v", err)
	}
	if !reflect.DeepEqual(a.Found, b.Found) {
		t.Fatalf("worker count changed hunt results")
	}
	if a.MaxFoundWinX != a.Found[0].TotalWinX {
		t.Fatalf("max found = %v, top hit = %v", a.MaxFoundWinX, a.Found[0].TotalWinX)
	}
}

func TestHuntWriteJSON(t *testing.T) {
	r := testRunner(t)
	rep, err := r.Hunt(HuntParams{
		Mode:       ModeBuy,
		MinWinX:    0,
		Target:     HuntTargetHigh,
		MaxSeeds:   5,
		SeedPrefix: "HUNT_JSON",
		Workers:    2,
	}, false)
	if err != nil {
		t.Fatalf("hunt: %v", err)
	}
	path := filepath.Join(t.TempDir(), "tail_seeds.json")
	if err := rep.WriteJSON(path); err != nil {
		t.Fatalf("write json: %v", err)
	}
}

func TestDiffIsDeterministic(t *testing.T) {
	r := testRunner(t)
	rep, err := r.Diff(120, "DIFF_TEST", t.TempDir(), false)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !rep.AllPassed {
		for _, md := range rep.PerMode {
			t.Logf("%s: %v", md.Mode, md.Differences)
		}
		t.Fatalf("simulation pipeline is non-deterministic")
	}
	if len(rep.PerMode) != len(Modes) {
		t.Fatalf("modes compared = %d", len(rep.PerMode))
	}
}
