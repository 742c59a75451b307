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
	"path/filepath"

	"github.com/zintix-labs/afterparty/errs"
)

// rtpEpsilon : 重現性比對時 RTP 類指標的容許誤差（百分比點）。
const rtpEpsilon = 0.0001

// ModeDiff 為單一模式跑兩次的比對結果。
type ModeDiff struct {
	Mode        Mode
	A, B        *Summary
	Identical   bool
	Differences []string
}

// DiffReport 為三模式重現性比對的總結果。
type DiffReport struct {
	Rounds    int
	Seed      string
	PerMode   []ModeDiff
	AllPassed bool
}

// Diff 針對每個模式以相同參數跑兩次模擬並逐欄比對。
//
// 兩次結果必須一致——有差異代表模擬管線存在非決定性，這比數字
// 本身難看更嚴重。產物會落到 outdir 下 diff_{mode}_{gate|long}.csv。
func (r *Runner) Diff(rounds int, seed, outdir string, showpb bool) (*DiffReport, error) {
	if rounds < 1 {
		return nil, errs.NewWarn("rounds must > 0")
	}

	report := &DiffReport{Rounds: rounds, Seed: seed, AllPassed: true}
	for _, mode := range Modes {
		a, _, err := r.Run(mode, rounds, seed, showpb)
		if err != nil {
			return nil, err
		}
		b, _, err := r.Run(mode, rounds, seed, showpb)
		if err != nil {
			return nil, err
		}

		if outdir != "" {
			if err := a.WriteCSV(filepath.Join(outdir, fmt.Sprintf("diff_%s_gate.csv", mode))); err != nil {
				return nil, err
			}
			if err := b.WriteCSV(filepath.Join(outdir, fmt.Sprintf("diff_%s_long.csv", mode))); err != nil {
				return nil, err
			}
		}

		md := compareSummaries(mode, a, b)
		if !md.Identical {
			report.AllPassed = false
		}
		// config hash 不一致代表兩次跑的不是同一份數學，直接失敗
		if a.ConfigHash != b.ConfigHash {
			return report, errs.NewFatal("config hash changed between runs: " + a.ConfigHash + " vs " + b.ConfigHash)
		}
		report.PerMode = append(report.PerMode, md)
	}
	return report, nil
}

// compareSummaries 逐欄比對兩份產物。
func compareSummaries(mode Mode, a, b *Summary) ModeDiff {
	md := ModeDiff{Mode: mode, A: a, B: b}

	critical := []struct {
		name string
		a, b string
	}{
		{"config_hash", a.ConfigHash, b.ConfigHash},
		{"mode", string(a.Mode), string(b.Mode)},
		{"rounds", fmt.Sprintf("%d", a.Rounds), fmt.Sprintf("%d", b.Rounds)},
		{"seed", a.Seed, b.Seed},
	}
	for _, c := range critical {
		if c.a != c.b {
			md.Differences = append(md.Differences,
				fmt.Sprintf("CRITICAL: %s mismatch: %s vs %s", c.name, c.a, c.b))
		}
	}

	numeric := []struct {
		name    string
		a, b    float64
		epsilon float64
	}{
		{"rtp", a.RTP, b.RTP, rtpEpsilon},
		{"hit_freq", a.HitFreq, b.HitFreq, rtpEpsilon},
		{"bonus_entry_rate", a.BonusEntryRate, b.BonusEntryRate, rtpEpsilon},
		{"avg_debit", a.AvgDebit, b.AvgDebit, 0.0001},
		{"avg_credit", a.AvgCredit, b.AvgCredit, 0.0001},
		{"max_win_x", a.MaxWinX, b.MaxWinX, 0.01},
		{"rate_1000x_plus", a.Rate1000xPlus, b.Rate1000xPlus, rtpEpsilon},
		{"rate_10000x_plus", a.Rate10000xPlus, b.Rate10000xPlus, rtpEpsilon},
		{"capped_rate", a.CappedRate, b.CappedRate, rtpEpsilon},
	}
	for _, n := range numeric {
		if d := math.Abs(n.a - n.b); d > n.epsilon {
			md.Differences = append(md.Differences,
				fmt.Sprintf("%s: %.6f vs %.6f (diff: %.6f)", n.name, n.a, n.b, d))
		}
	}

	md.Identical = len(md.Differences) == 0
	return md
}
