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

	"github.com/zintix-labs/afterparty/errs"
)

// TailTolerances 為尾端回歸檢查的絕對容忍值。
// 比率類以百分比點計，max_win_x 以倍數計。
type TailTolerances struct {
	Rate1000xPlus  float64
	Rate10000xPlus float64
	MaxWinX        float64
}

// DefaultTailTolerances 為預設容忍值。
func DefaultTailTolerances() TailTolerances {
	return TailTolerances{
		Rate1000xPlus:  0.2,
		Rate10000xPlus: 0.01,
		MaxWinX:        100.0,
	}
}

// TailResult 為尾端回歸檢查的結果。
type TailResult struct {
	Passed   bool
	Messages []string
	Run      *Summary
	Baseline *Summary
}

// TailGate 以基準產物的參數重跑一次模擬，檢查尾端指標是否劣化。
//
// 劣化定義：run < baseline - tolerance（大獎變少）。基準為 0 且本次
// 也為 0 視為通過。config hash 或 debit multiplier 不一致時直接報錯，
// 不做比對——那不是回歸，是拿錯基準。
func (r *Runner) TailGate(baselinePath string, tol TailTolerances, showpb bool) (*TailResult, error) {
	baseline, err := LoadSummaryCSV(baselinePath)
	if err != nil {
		return nil, errs.Wrap(err, "load tail baseline")
	}
	if baseline.Mode == "" || baseline.Seed == "" || baseline.Rounds < 1 {
		return nil, errs.NewWarn("tail baseline missing mode/seed/rounds")
	}

	if hash := r.ConfigHash(); hash != baseline.ConfigHash {
		return nil, errs.NewWarn(fmt.Sprintf(
			"config hash mismatch: run=%s baseline=%s (game math changed, regenerate the baseline)",
			hash, baseline.ConfigHash))
	}

	run, _, err := r.Run(baseline.Mode, baseline.Rounds, baseline.Seed, showpb)
	if err != nil {
		return nil, err
	}

	if math.Abs(run.DebitMultiplier-baseline.DebitMultiplier) > 1e-9 {
		return nil, errs.NewWarn(fmt.Sprintf(
			"debit multiplier mismatch: run=%.2f baseline=%.2f (mode cost settings differ)",
			run.DebitMultiplier, baseline.DebitMultiplier))
	}

	passed, messages := tailCheck(run, baseline, tol)
	return &TailResult{
		Passed:   passed,
		Messages: messages,
		Run:      run,
		Baseline: baseline,
	}, nil
}

// tailCheck 為純比對邏輯，與模擬解耦方便測試。
func tailCheck(run, baseline *Summary, tol TailTolerances) (bool, []string) {
	checks := []struct {
		field     string
		run, base float64
		tolerance float64
	}{
		{"rate_1000x_plus", run.Rate1000xPlus, baseline.Rate1000xPlus, tol.Rate1000xPlus},
		{"rate_10000x_plus", run.Rate10000xPlus, baseline.Rate10000xPlus, tol.Rate10000xPlus},
		{"max_win_x", run.MaxWinX, baseline.MaxWinX, tol.MaxWinX},
	}

	passed := true
	var messages []string
	for _, c := range checks {
		// 基準 0 且本次 0：不可能劣化
		if c.base == 0 && c.run == 0 {
			messages = append(messages,
				fmt.Sprintf("PASS: %s: %.6f (baseline=0, run=0, no regression possible)", c.field, c.run))
			continue
		}
		minAllowed := c.base - c.tolerance
		if c.run >= minAllowed {
			messages = append(messages,
				fmt.Sprintf("PASS: %s: %.6f >= %.6f (baseline=%.6f, diff=%+.6f)",
					c.field, c.run, minAllowed, c.base, c.run-c.base))
		} else {
			passed = false
			messages = append(messages,
				fmt.Sprintf("FAIL: %s: %.6f < %.6f (baseline=%.6f, regression=%.6f, tolerance=%v)",
					c.field, c.run, minAllowed, c.base, c.base-c.run, c.tolerance))
		}
	}
	return passed, messages
}
