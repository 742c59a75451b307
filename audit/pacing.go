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
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/stats"
)

// PacingSchema 為 pacing 基準檔的版本標記。
const PacingSchema = "pacing_baseline_v1"

// ModePacing 為單一模式的節奏指標。比率皆為 0~1 分數（非百分比）。
type ModePacing struct {
	Rtp            float64 `yaml:"rtp"              json:"rtp"`
	WinRate        float64 `yaml:"win_rate"         json:"win_rate"`
	DrySpinsRate   float64 `yaml:"dry_spins_rate"   json:"dry_spins_rate"`
	BonusEntryRate float64 `yaml:"bonus_entry_rate" json:"bonus_entry_rate"`

	SpinsBetweenWinsP50 int `yaml:"spins_between_wins_p50" json:"spins_between_wins_p50"`
	SpinsBetweenWinsP90 int `yaml:"spins_between_wins_p90" json:"spins_between_wins_p90"`
	SpinsBetweenWinsP99 int `yaml:"spins_between_wins_p99" json:"spins_between_wins_p99"`

	SpinsBetweenBonusP50 int `yaml:"spins_between_bonus_p50" json:"spins_between_bonus_p50"`
	SpinsBetweenBonusP90 int `yaml:"spins_between_bonus_p90" json:"spins_between_bonus_p90"`
	SpinsBetweenBonusP99 int `yaml:"spins_between_bonus_p99" json:"spins_between_bonus_p99"`

	BonusDroughtGt300Rate float64 `yaml:"bonus_drought_gt300_rate" json:"bonus_drought_gt300_rate"`
	BonusDroughtGt500Rate float64 `yaml:"bonus_drought_gt500_rate" json:"bonus_drought_gt500_rate"`

	MaxWinX       float64 `yaml:"max_win_x"      json:"max_win_x"`
	Rate100xPlus  float64 `yaml:"rate_100x_plus"  json:"rate_100x_plus"`
	Rate500xPlus  float64 `yaml:"rate_500x_plus"  json:"rate_500x_plus"`
	Rate1000xPlus float64 `yaml:"rate_1000x_plus" json:"rate_1000x_plus"`
}

// PacingBaseline 為三模式節奏基準。
type PacingBaseline struct {
	Schema     string                `yaml:"schema"      json:"schema"`
	Seed       string                `yaml:"seed"        json:"seed"`
	Rounds     int                   `yaml:"rounds"      json:"rounds"`
	ConfigHash string                `yaml:"config_hash" json:"config_hash"`
	GitCommit  string                `yaml:"git_commit"  json:"git_commit"`
	Modes      map[string]ModePacing `yaml:"modes"       json:"modes"`
}

// BuildPacingBaseline 由三模式的紀錄組出基準。
func (r *Runner) BuildPacingBaseline(recs map[Mode]*RoundRecorder, seed string, rounds int) *PacingBaseline {
	modes := make(map[string]ModePacing, len(recs))
	for mode, rec := range recs {
		modes[string(mode)] = modePacing(mode, rec)
	}
	return &PacingBaseline{
		Schema:     PacingSchema,
		Seed:       seed,
		Rounds:     rounds,
		ConfigHash: r.ConfigHash(),
		GitCommit:  gitCommit(),
		Modes:      modes,
	}
}

// modePacing 整理單模式的節奏指標。
func modePacing(mode Mode, rec *RoundRecorder) ModePacing {
	mp := ModePacing{
		WinRate:        rec.fraction(rec.Wins),
		BonusEntryRate: rec.fraction(rec.BonusEntries),
		MaxWinX:        rec.MaxWinX,
		Rate100xPlus:   rec.fraction(rec.Wins100x),
		Rate500xPlus:   rec.fraction(rec.Wins500x),
		Rate1000xPlus:  rec.fraction(rec.Wins1000x),
	}
	if rec.TotalDebit > 0 {
		mp.Rtp = rec.TotalCredit / rec.TotalDebit
	}
	mp.DrySpinsRate = 1.0 - mp.WinRate

	sbw := spinsBetweenWins(rec.WinX)
	if len(sbw) > 0 {
		mp.SpinsBetweenWinsP50 = int(stats.PercentileInts(sbw, 50))
		mp.SpinsBetweenWinsP90 = int(stats.PercentileInts(sbw, 90))
		mp.SpinsBetweenWinsP99 = int(stats.PercentileInts(sbw, 99))
	}

	if mode == ModeBuy {
		// 購買模式每局都是 bonus session，節奏固定
		mp.SpinsBetweenBonusP50 = 1
		mp.SpinsBetweenBonusP90 = 1
		mp.SpinsBetweenBonusP99 = 1
		return mp
	}

	intervals := bonusIntervals(rec.BonusEntryRounds, rec.Rounds)
	if len(intervals) > 0 {
		mp.SpinsBetweenBonusP50 = int(stats.PercentileInts(intervals, 50))
		mp.SpinsBetweenBonusP90 = int(stats.PercentileInts(intervals, 90))
		mp.SpinsBetweenBonusP99 = int(stats.PercentileInts(intervals, 99))

		gt300, gt500 := 0, 0
		for _, iv := range intervals {
			if iv > 300 {
				gt300++
			}
			if iv > 500 {
				gt500++
			}
		}
		mp.BonusDroughtGt300Rate = float64(gt300) / float64(len(intervals))
		mp.BonusDroughtGt500Rate = float64(gt500) / float64(len(intervals))
	}
	return mp
}

// spinsBetweenWins 計算相鄰兩次有派彩局之間的間隔。
func spinsBetweenWins(winX []float64) []int {
	var intervals []int
	last := -1
	for i, wx := range winX {
		if wx > 0 {
			if last >= 0 {
				intervals = append(intervals, i-last)
			}
			last = i
		}
	}
	return intervals
}

// bonusIntervals 計算 bonus 進場間隔：含開頭到首次進場、以及最後
// 一次進場到模擬結尾的殘段。
func bonusIntervals(entryRounds []int, totalRounds int) []int {
	if len(entryRounds) == 0 {
		return nil
	}
	sorted := make([]int, len(entryRounds))
	copy(sorted, entryRounds)
	sort.Ints(sorted)

	var intervals []int
	prev := 0
	for _, r := range sorted {
		intervals = append(intervals, r-prev)
		prev = r
	}
	if sorted[len(sorted)-1] < totalRounds {
		intervals = append(intervals, totalRounds-sorted[len(sorted)-1])
	}
	return intervals
}

// ============================================================
// ** 基準檔存取 **
// ============================================================

// SavePacingBaseline 以 YAML 寫出基準檔。
func SavePacingBaseline(path string, b *PacingBaseline) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return errs.Wrap(err, "marshal pacing baseline")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, "mkdir pacing output dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(err, "write pacing baseline")
	}
	return nil
}

// LoadPacingBaseline 讀回基準檔並驗 schema。YAML 為 JSON 超集，
// 舊的 JSON 基準檔也能直接讀。
func LoadPacingBaseline(path string) (*PacingBaseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "read pacing baseline")
	}
	b := new(PacingBaseline)
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, errs.Wrap(err, "parse pacing baseline")
	}
	if b.Schema != PacingSchema {
		return nil, errs.NewWarn(fmt.Sprintf("invalid pacing baseline schema: %q (want %s)", b.Schema, PacingSchema))
	}
	return b, nil
}

// ============================================================
// ** 基準比對 **
// ============================================================

// pacingTolerance 為單一指標的容忍設定。
type pacingTolerance struct {
	absolute      float64 // ± 絕對容忍，0 表不設
	relativeFloor float64 // run < baseline*floor 才失敗，0 表不設
	infoOnly      bool    // 只列出不判定
}

// pacingTolerances : 指標 -> 容忍。比率以 0~1 分數計，
// 間隔以局數計，容忍值挑到能吃下 20k 樣本的抖動。
var pacingTolerances = map[string]pacingTolerance{
	"dry_spins_rate":   {absolute: 0.05},
	"win_rate":         {absolute: 0.03},
	"bonus_entry_rate": {absolute: 0.0015},

	"spins_between_wins_p50": {absolute: 15},
	"spins_between_wins_p90": {absolute: 25},
	"spins_between_wins_p99": {absolute: 80},

	"spins_between_bonus_p50": {absolute: 60},
	"spins_between_bonus_p90": {absolute: 120},
	"spins_between_bonus_p99": {absolute: 250},

	"bonus_drought_gt300_rate": {absolute: 0.02},
	"bonus_drought_gt500_rate": {absolute: 0.01},

	"max_win_x":       {relativeFloor: 0.85},
	"rate_100x_plus":  {absolute: 0.002},
	"rate_500x_plus":  {absolute: 0.0006},
	"rate_1000x_plus": {absolute: 0.002},

	"rtp": {infoOnly: true},
}

// pacingMetricsOrder 為比對表的固定列序。
var pacingMetricsOrder = []string{
	"rtp",
	"win_rate",
	"dry_spins_rate",
	"bonus_entry_rate",
	"spins_between_wins_p50",
	"spins_between_wins_p90",
	"spins_between_wins_p99",
	"spins_between_bonus_p50",
	"spins_between_bonus_p90",
	"spins_between_bonus_p99",
	"bonus_drought_gt300_rate",
	"bonus_drought_gt500_rate",
	"max_win_x",
	"rate_100x_plus",
	"rate_500x_plus",
	"rate_1000x_plus",
}

// pacingMetric 取出指標值。
func pacingMetric(mp ModePacing, metric string) float64 {
	switch metric {
	case "rtp":
		return mp.Rtp
	case "win_rate":
		return mp.WinRate
	case "dry_spins_rate":
		return mp.DrySpinsRate
	case "bonus_entry_rate":
		return mp.BonusEntryRate
	case "spins_between_wins_p50":
		return float64(mp.SpinsBetweenWinsP50)
	case "spins_between_wins_p90":
		return float64(mp.SpinsBetweenWinsP90)
	case "spins_between_wins_p99":
		return float64(mp.SpinsBetweenWinsP99)
	case "spins_between_bonus_p50":
		return float64(mp.SpinsBetweenBonusP50)
	case "spins_between_bonus_p90":
		return float64(mp.SpinsBetweenBonusP90)
	case "spins_between_bonus_p99":
		return float64(mp.SpinsBetweenBonusP99)
	case "bonus_drought_gt300_rate":
		return mp.BonusDroughtGt300Rate
	case "bonus_drought_gt500_rate":
		return mp.BonusDroughtGt500Rate
	case "max_win_x":
		return mp.MaxWinX
	case "rate_100x_plus":
		return mp.Rate100xPlus
	case "rate_500x_plus":
		return mp.Rate500xPlus
	case "rate_1000x_plus":
		return mp.Rate1000xPlus
	default:
		return 0
	}
}

// spinMetric 判斷是否為整數局數類指標（輸出格式用）。
func spinMetric(metric string) bool {
	switch metric {
	case "spins_between_wins_p50", "spins_between_wins_p90", "spins_between_wins_p99",
		"spins_between_bonus_p50", "spins_between_bonus_p90", "spins_between_bonus_p99":
		return true
	}
	return false
}

// PacingRow 為比對表的一列。
type PacingRow struct {
	Metric   string
	Run      string
	Baseline string
	Diff     string
	Status   string
}

// PacingModeResult 為單模式比對結果。
type PacingModeResult struct {
	Mode   Mode
	Passed bool
	Rows   []PacingRow
}

// PacingResult 為整體比對結果。
type PacingResult struct {
	AllPassed bool
	PerMode   []PacingModeResult
}

// ComparePacing 以基準的 seed/rounds 重跑三模式並逐指標比對。
func (r *Runner) ComparePacing(baseline *PacingBaseline, showpb bool) (*PacingResult, error) {
	if hash := r.ConfigHash(); hash != baseline.ConfigHash {
		return nil, errs.NewWarn(fmt.Sprintf(
			"config hash mismatch: run=%s baseline=%s (regenerate the pacing baseline)",
			hash, baseline.ConfigHash))
	}
	recs, _, err := r.RunAll(baseline.Rounds, baseline.Seed, showpb)
	if err != nil {
		return nil, err
	}
	run := r.BuildPacingBaseline(recs, baseline.Seed, baseline.Rounds)
	return comparePacing(run, baseline), nil
}

// comparePacing 為純比對邏輯。
func comparePacing(run, baseline *PacingBaseline) *PacingResult {
	result := &PacingResult{AllPassed: true}
	for _, mode := range Modes {
		runMode, okA := run.Modes[string(mode)]
		baseMode, okB := baseline.Modes[string(mode)]
		if !okA || !okB {
			result.AllPassed = false
			result.PerMode = append(result.PerMode, PacingModeResult{
				Mode:   mode,
				Passed: false,
				Rows:   []PacingRow{{Metric: "(missing mode)", Status: "FAIL"}},
			})
			continue
		}

		mr := PacingModeResult{Mode: mode, Passed: true}
		for _, metric := range pacingMetricsOrder {
			rv := pacingMetric(runMode, metric)
			bv := pacingMetric(baseMode, metric)
			tol := pacingTolerances[metric]

			passed, status := checkPacingMetric(rv, bv, tol)
			if !passed {
				mr.Passed = false
				result.AllPassed = false
			}
			mr.Rows = append(mr.Rows, PacingRow{
				Metric:   metric,
				Run:      formatPacingValue(metric, rv),
				Baseline: formatPacingValue(metric, bv),
				Diff:     formatPacingDiff(metric, rv, bv),
				Status:   status,
			})
		}
		result.PerMode = append(result.PerMode, mr)
	}
	return result
}

func checkPacingMetric(run, baseline float64, tol pacingTolerance) (bool, string) {
	if tol.infoOnly {
		return true, "INFO"
	}
	if tol.absolute > 0 {
		if math.Abs(run-baseline) <= tol.absolute {
			return true, "PASS"
		}
		return false, fmt.Sprintf("FAIL (±%v)", tol.absolute)
	}
	if tol.relativeFloor > 0 {
		if run >= baseline*tol.relativeFloor {
			return true, "PASS"
		}
		return false, fmt.Sprintf("FAIL (<%.0f%%)", tol.relativeFloor*100)
	}
	return true, "PASS"
}

func formatPacingValue(metric string, v float64) string {
	switch {
	case metric == "max_win_x":
		return fmt.Sprintf("%.2fx", v)
	case spinMetric(metric):
		return fmt.Sprintf("%d", int(v))
	case metric == "rtp":
		return fmt.Sprintf("%.4f%%", v*100)
	case v < 0.001:
		return fmt.Sprintf("%.6f", v)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

func formatPacingDiff(metric string, run, baseline float64) string {
	d := run - baseline
	if spinMetric(metric) {
		return fmt.Sprintf("%+d", int(d))
	}
	if math.Abs(d) < 0.0001 {
		return "0"
	}
	return fmt.Sprintf("%+.6f", d)
}
