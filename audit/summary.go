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
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/stats"
)

// Summary 為一次稽核模擬的產物：一列 CSV。
//
// 欄位順序與格式是稽核介面的一部分，不可改動——下游的 diff / tail
// 工具靠欄位名與小數位數做比對。
type Summary struct {
	Timestamp  string
	GitCommit  string
	ConfigHash string
	Mode       Mode
	Rounds     int
	Seed       string

	DebitMultiplier float64

	ScatterChanceBase       float64
	ScatterChanceEffective  float64
	ScatterChanceMultiplier float64

	RTP               float64 // 百分比
	HitFreq           float64 // 百分比
	BonusEntryRate    float64 // 百分比
	VipBuyBonusRate   float64 // 百分比
	StandardBonusRate float64 // 百分比

	AvgDebit  float64
	AvgCredit float64

	P95WinX float64
	P99WinX float64
	MaxWinX float64

	Rate1000xPlus  float64 // 百分比
	Rate10000xPlus float64 // 百分比
	CappedRate     float64 // 百分比
}

// csvColumns 為固定欄位順序。
var csvColumns = []string{
	"timestamp",
	"git_commit",
	"config_hash",
	"mode",
	"rounds",
	"seed",
	"debit_multiplier",
	"scatter_chance_base",
	"scatter_chance_effective",
	"scatter_chance_multiplier",
	"rtp",
	"hit_freq",
	"bonus_entry_rate",
	"vip_buy_bonus_rate",
	"standard_bonus_rate",
	"avg_debit",
	"avg_credit",
	"p95_win_x",
	"p99_win_x",
	"max_win_x",
	"rate_1000x_plus",
	"rate_10000x_plus",
	"capped_rate",
}

// buildSummary 把紀錄員的累計整理成一列 Summary。
func (r *Runner) buildSummary(mode Mode, seed string, rec *RoundRecorder) *Summary {
	s := &Summary{
		Timestamp:       timestampISO(),
		GitCommit:       gitCommit(),
		ConfigHash:      r.ConfigHash(),
		Mode:            mode,
		Rounds:          rec.Rounds,
		Seed:            seed,
		DebitMultiplier: rec.DebitMultiplier,

		ScatterChanceBase:       r.cfg.BaseScatterChance,
		ScatterChanceEffective:  r.cfg.BaseScatterChance,
		ScatterChanceMultiplier: 1.0,

		RTP:               rec.Rtp(),
		HitFreq:           rec.rate(rec.Wins),
		BonusEntryRate:    rec.rate(rec.BonusEntries),
		VipBuyBonusRate:   rec.rate(rec.VipBuyEntries),
		StandardBonusRate: rec.rate(rec.StandardEntries),

		P95WinX: stats.Percentile(rec.WinX, 95),
		P99WinX: stats.Percentile(rec.WinX, 99),
		MaxWinX: rec.MaxWinX,

		Rate1000xPlus:  rec.rate(rec.Wins1000x),
		Rate10000xPlus: rec.rate(rec.Wins10000x),
		CappedRate:     rec.rate(rec.CappedSpins),
	}
	if mode == ModeHype {
		s.ScatterChanceEffective = r.cfg.BaseScatterChance * r.cfg.HypeScatterMultiplier
		s.ScatterChanceMultiplier = r.cfg.HypeScatterMultiplier
	}
	if rec.Rounds > 0 {
		s.AvgDebit = rec.TotalDebit / float64(rec.Rounds)
		s.AvgCredit = rec.TotalCredit / float64(rec.Rounds)
	}
	return s
}

// record 依欄位順序輸出格式化字串。小數位數固定。
func (s *Summary) record() []string {
	return []string{
		s.Timestamp,
		s.GitCommit,
		s.ConfigHash,
		string(s.Mode),
		strconv.Itoa(s.Rounds),
		s.Seed,
		fmt.Sprintf("%.2f", s.DebitMultiplier),
		fmt.Sprintf("%.4f", s.ScatterChanceBase),
		fmt.Sprintf("%.4f", s.ScatterChanceEffective),
		fmt.Sprintf("%.2f", s.ScatterChanceMultiplier),
		fmt.Sprintf("%.4f", s.RTP),
		fmt.Sprintf("%.4f", s.HitFreq),
		fmt.Sprintf("%.4f", s.BonusEntryRate),
		fmt.Sprintf("%.6f", s.VipBuyBonusRate),
		fmt.Sprintf("%.6f", s.StandardBonusRate),
		fmt.Sprintf("%.4f", s.AvgDebit),
		fmt.Sprintf("%.4f", s.AvgCredit),
		fmt.Sprintf("%.2f", s.P95WinX),
		fmt.Sprintf("%.2f", s.P99WinX),
		fmt.Sprintf("%.2f", s.MaxWinX),
		fmt.Sprintf("%.6f", s.Rate1000xPlus),
		fmt.Sprintf("%.6f", s.Rate10000xPlus),
		fmt.Sprintf("%.6f", s.CappedRate),
	}
}

// WriteCSV 寫出單列 CSV 產物（含表頭），必要時建目錄。
func (s *Summary) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, "mkdir audit output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "create audit csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return errs.Wrap(err, "write csv header")
	}
	if err := w.Write(s.record()); err != nil {
		return errs.Wrap(err, "write csv row")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errs.Wrap(err, "flush audit csv")
	}
	return nil
}

// LoadSummaryCSV 讀回單列 CSV 產物。
func LoadSummaryCSV(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err, "open audit csv")
	}
	defer f.Close()

	rd := csv.NewReader(f)
	header, err := rd.Read()
	if err != nil {
		return nil, errs.Wrap(err, "read csv header")
	}
	row, err := rd.Read()
	if err != nil {
		return nil, errs.Wrap(err, "read csv row")
	}
	if len(row) != len(header) {
		return nil, errs.NewWarn("audit csv row/header length mismatch")
	}

	m := make(map[string]string, len(header))
	for i, h := range header {
		m[strings.TrimSpace(h)] = row[i]
	}

	s := &Summary{
		Timestamp:  m["timestamp"],
		GitCommit:  m["git_commit"],
		ConfigHash: m["config_hash"],
		Mode:       Mode(m["mode"]),
		Seed:       m["seed"],
	}
	var parseErr error
	num := func(key string) float64 {
		v, err := strconv.ParseFloat(m[key], 64)
		if err != nil && parseErr == nil {
			parseErr = errs.NewWarn("bad numeric field " + key + ": " + m[key])
		}
		return v
	}
	s.Rounds, err = strconv.Atoi(m["rounds"])
	if err != nil {
		return nil, errs.NewWarn("bad rounds field: " + m["rounds"])
	}
	s.DebitMultiplier = num("debit_multiplier")
	s.ScatterChanceBase = num("scatter_chance_base")
	s.ScatterChanceEffective = num("scatter_chance_effective")
	s.ScatterChanceMultiplier = num("scatter_chance_multiplier")
	s.RTP = num("rtp")
	s.HitFreq = num("hit_freq")
	s.BonusEntryRate = num("bonus_entry_rate")
	s.VipBuyBonusRate = num("vip_buy_bonus_rate")
	s.StandardBonusRate = num("standard_bonus_rate")
	s.AvgDebit = num("avg_debit")
	s.AvgCredit = num("avg_credit")
	s.P95WinX = num("p95_win_x")
	s.P99WinX = num("p99_win_x")
	s.MaxWinX = num("max_win_x")
	s.Rate1000xPlus = num("rate_1000x_plus")
	s.Rate10000xPlus = num("rate_10000x_plus")
	s.CappedRate = num("capped_rate")
	if parseErr != nil {
		return nil, parseErr
	}
	return s, nil
}

// CacheValid 判斷既有產物是否可重用：config_hash、rounds、seed、mode
// 四個鍵都要一致。
func CacheValid(path, configHash string, rounds int, seed string, mode Mode) bool {
	s, err := LoadSummaryCSV(path)
	if err != nil {
		return false
	}
	return s.ConfigHash == configHash &&
		s.Rounds == rounds &&
		s.Seed == seed &&
		s.Mode == mode
}

// Table 輸出終端摘要表。
func (s *Summary) Table() string {
	keys := []string{"Mode", "Rounds", "Seed", "Config Hash", "RTP", "Hit Freq", "Bonus Rate", "Avg Debit", "Avg Credit", "p95 WinX", "p99 WinX", "Max WinX", "Rate 1000x+", "Rate 10000x+", "Capped Rate"}
	msg := map[string]string{
		"Mode":         string(s.Mode),
		"Rounds":       strconv.Itoa(s.Rounds),
		"Seed":         s.Seed,
		"Config Hash":  s.ConfigHash,
		"RTP":          fmt.Sprintf("%.4f %%", s.RTP),
		"Hit Freq":     fmt.Sprintf("%.4f %%", s.HitFreq),
		"Bonus Rate":   fmt.Sprintf("%.4f %%", s.BonusEntryRate),
		"Avg Debit":    fmt.Sprintf("%.4f", s.AvgDebit),
		"Avg Credit":   fmt.Sprintf("%.4f", s.AvgCredit),
		"p95 WinX":     fmt.Sprintf("%.2f x", s.P95WinX),
		"p99 WinX":     fmt.Sprintf("%.2f x", s.P99WinX),
		"Max WinX":     fmt.Sprintf("%.2f x", s.MaxWinX),
		"Rate 1000x+":  fmt.Sprintf("%.6f %%", s.Rate1000xPlus),
		"Rate 10000x+": fmt.Sprintf("%.6f %%", s.Rate10000xPlus),
		"Capped Rate":  fmt.Sprintf("%.6f %%", s.CappedRate),
	}
	return stats.Table("AUDIT "+strings.ToUpper(string(s.Mode)), keys, msg)
}

// ============================================================
// ** 產物 metadata **
// ============================================================

func timestampISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// gitCommit 取目前 repo 的短 commit，取不到回 "unknown"。
func gitCommit() string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
