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
	"time"

	"github.com/zintix-labs/afterparty/stats"
)

// RoundRecorder 累計一次模擬內每局的統計。
//
// 紀錄時只累加，不排序不重算；Summary / Pacing 輸出時才做
// 分位數等整理。
type RoundRecorder struct {
	Mode            Mode
	DebitMultiplier float64

	Rounds      int
	TotalDebit  float64
	TotalCredit float64

	Wins            int
	CappedSpins     int
	BonusEntries    int
	VipBuyEntries   int
	StandardEntries int

	WinX    []float64
	MaxWinX float64

	Wins100x   int
	Wins500x   int
	Wins1000x  int
	Wins10000x int

	// pacing: 每次進 bonus 的局編號（0-based）
	BonusEntryRounds []int
}

// NewRoundRecorder 建立指定模式的紀錄員。
func NewRoundRecorder(mode Mode, debitMultiplier float64) *RoundRecorder {
	return &RoundRecorder{
		Mode:            mode,
		DebitMultiplier: debitMultiplier,
	}
}

// Record 累計一局。
func (r *RoundRecorder) Record(res roundResult) {
	round := r.Rounds
	r.Rounds++
	r.TotalDebit += res.debit
	r.TotalCredit += res.credit
	r.CappedSpins += res.cappedSpins

	if res.credit > 0 {
		r.Wins++
	}
	if res.bonusEntered {
		r.BonusEntries++
		r.BonusEntryRounds = append(r.BonusEntryRounds, round)
		if res.bonusVariant == "vip_buy" {
			r.VipBuyEntries++
		} else {
			r.StandardEntries++
		}
	}

	r.WinX = append(r.WinX, res.winX)
	if res.winX > r.MaxWinX {
		r.MaxWinX = res.winX
	}
	if res.winX >= 100 {
		r.Wins100x++
	}
	if res.winX >= 500 {
		r.Wins500x++
	}
	if res.winX >= 1000 {
		r.Wins1000x++
	}
	if res.winX >= 10000 {
		r.Wins10000x++
	}
}

// Rtp 回傳百分比口徑的 RTP。
func (r *RoundRecorder) Rtp() float64 {
	if r.TotalDebit == 0 {
		return 0
	}
	return r.TotalCredit / r.TotalDebit * 100
}

// rate 把計數換算成百分比。
func (r *RoundRecorder) rate(count int) float64 {
	if r.Rounds == 0 {
		return 0
	}
	return float64(count) / float64(r.Rounds) * 100
}

// fraction 把計數換算成 0~1 比例（pacing 基準用）。
func (r *RoundRecorder) fraction(count int) float64 {
	if r.Rounds == 0 {
		return 0
	}
	return float64(count) / float64(r.Rounds)
}

// Report 轉成 stats 報告（終端摘要輸出用）。
func (r *RoundRecorder) Report() *stats.Report {
	rep := stats.NewReport(string(r.Mode))
	avgDebit := 0.0
	if r.Rounds > 0 {
		avgDebit = r.TotalDebit / float64(r.Rounds)
	}
	for _, wx := range r.WinX {
		rep.Add(wx, avgDebit, wx*simBet, wx > 0, false, false)
	}
	// bonus / capped 旗標不逐局重放，用總量補上再 Done
	rep.BonusEntries = r.BonusEntries
	rep.Capped = r.CappedSpins
	rep.Done()
	return rep
}

// StdOut 印出單模式摘要表。
func (r *RoundRecorder) StdOut(used time.Duration) {
	r.Report().StdOut(used)
}
