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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/afterparty/errs"
)

// HuntTarget 為搜尋條件。
type HuntTarget string

const (
	HuntTargetHigh HuntTarget = "high" // winX >= MinWinX
	HuntTargetCap  HuntTarget = "cap"  // 觸發派彩封頂
)

// HuntParams 為 seed 搜尋的參數。
type HuntParams struct {
	Mode       Mode
	MinWinX    float64
	Target     HuntTarget
	MaxSeeds   int
	SeedPrefix string
	Workers    int
}

// HuntHit 為一顆命中的 seed。
type HuntHit struct {
	Seed         string  `json:"seed"`
	TotalWinX    float64 `json:"total_win_x"`
	Capped       bool    `json:"is_capped"`
	BonusVariant string  `json:"bonus_variant"`
}

// HuntReport 為 seed 搜尋的 JSON 產物。
type HuntReport struct {
	Timestamp  string `json:"timestamp"`
	GitCommit  string `json:"git_commit"`
	ConfigHash string `json:"config_hash"`

	Mode         Mode       `json:"mode"`
	MaxSeeds     int        `json:"max_seeds"`
	MinWinX      float64    `json:"min_win_x"`
	Target       HuntTarget `json:"target"`
	SeedPrefix   string     `json:"seed_prefix"`
	MaxWinTotalX float64    `json:"max_win_total_x"`

	FoundCount      int       `json:"found_count"`
	Count1000xPlus  int       `json:"count_1000x_plus"`
	Count10000xPlus int       `json:"count_10000x_plus"`
	CountCapped     int       `json:"count_capped"`
	MaxFoundWinX    float64   `json:"max_found_win_x"`
	Found           []HuntHit `json:"found"`
}

// Hunt 搜尋能打出高倍數（或封頂）的 seed。
//
// 每顆 seed 都是獨立的一局（base: 單 spin；buy: 整段 bonus session），
// 可安全併發：workers 之間以原子計數器領號，結果與 worker 數無關。
func (r *Runner) Hunt(p HuntParams, showpb bool) (*HuntReport, error) {
	if p.Mode != ModeBase && p.Mode != ModeBuy {
		return nil, errs.NewWarn("hunt supports base and buy modes only")
	}
	if p.Target != HuntTargetHigh && p.Target != HuntTargetCap {
		return nil, errs.NewWarn(fmt.Sprintf("unknown hunt target: %q", p.Target))
	}
	if p.MaxSeeds < 1 {
		return nil, errs.NewWarn("max seeds must > 0")
	}
	if p.SeedPrefix == "" {
		p.SeedPrefix = "HUNT"
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	bar := pb.StartNew(p.MaxSeeds)
	if !showpb {
		bar.SetWriter(io.Discard)
	}

	var next atomic.Int64
	hits := make([][]HuntHit, workers)

	wg := new(sync.WaitGroup)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for {
				i := next.Add(1) - 1
				if i >= int64(p.MaxSeeds) {
					return
				}
				seed := fmt.Sprintf("%s_%06d", p.SeedPrefix, i)
				hit := r.huntOne(seed, p.Mode)
				if p.Target == HuntTargetCap {
					if hit.Capped {
						hits[w] = append(hits[w], hit)
					}
				} else if hit.TotalWinX >= p.MinWinX {
					hits[w] = append(hits[w], hit)
				}
				bar.Increment()
			}
		}(w)
	}
	wg.Wait()
	bar.Finish()

	var found []HuntHit
	for _, h := range hits {
		found = append(found, h...)
	}
	// 高倍優先；同倍數時以 seed 穩定排序，讓結果與 worker 數無關
	sort.Slice(found, func(i, j int) bool {
		if found[i].TotalWinX != found[j].TotalWinX {
			return found[i].TotalWinX > found[j].TotalWinX
		}
		return found[i].Seed < found[j].Seed
	})

	report := &HuntReport{
		Timestamp:  timestampISO(),
		GitCommit:  gitCommit(),
		ConfigHash: r.ConfigHash(),

		Mode:         p.Mode,
		MaxSeeds:     p.MaxSeeds,
		MinWinX:      p.MinWinX,
		Target:       p.Target,
		SeedPrefix:   p.SeedPrefix,
		MaxWinTotalX: r.cfg.MaxWinTotalX,

		FoundCount: len(found),
		Found:      found,
	}
	for _, h := range found {
		if h.TotalWinX >= 1000 {
			report.Count1000xPlus++
		}
		if h.TotalWinX >= 10000 {
			report.Count10000xPlus++
		}
		if h.Capped {
			report.CountCapped++
		}
	}
	if len(found) > 0 {
		report.MaxFoundWinX = found[0].TotalWinX
	}
	return report, nil
}

// huntOne 以單一 seed 跑一局。每顆 seed 用全新機台，局間互不影響。
func (r *Runner) huntOne(seed string, mode Mode) HuntHit {
	m := newMachine(r.eng, seed)
	res, err := m.playRound(mode)
	if err != nil {
		// 搜尋情境下單局失敗視為未命中
		return HuntHit{Seed: seed}
	}
	return HuntHit{
		Seed:         seed,
		TotalWinX:    res.winX,
		Capped:       res.cappedSpins > 0,
		BonusVariant: res.bonusVariant,
	}
}

// WriteJSON 寫出搜尋產物。
func (h *HuntReport) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, "mkdir hunt output dir")
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return errs.Wrap(err, "marshal hunt report")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(err, "write hunt report")
	}
	return nil
}
