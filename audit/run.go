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
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/afterparty/errs"
)

// Run 以單一機台連續跑指定局數，回傳 CSV 產物列與原始紀錄。
//
// 同一 (cfg, mode, rounds, seed) 必然產出同一份數字：一顆 seed 餵一顆
// RNG，狀態跨局延續，不做任何併發切分。
func (r *Runner) Run(mode Mode, rounds int, seed string, showpb bool) (*Summary, *RoundRecorder, error) {
	if err := validMode(mode); err != nil {
		return nil, nil, err
	}
	if rounds < 1 {
		return nil, nil, errs.NewWarn("rounds must > 0")
	}
	if seed == "" {
		return nil, nil, errs.NewWarn("seed must not be empty")
	}

	m := newMachine(r.eng, seed)
	rec := NewRoundRecorder(mode, r.DebitMultiplier(mode))

	bar := pb.StartNew(rounds)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < rounds; i++ {
		res, err := m.playRound(mode)
		if err != nil {
			bar.Finish()
			return nil, nil, err
		}
		rec.Record(res)
		bar.Increment()
	}
	bar.Finish()

	return r.buildSummary(mode, seed, rec), rec, nil
}

// RunAll 平行跑三個模式（各自獨立的機台與 RNG，結果仍是決定性的），
// 回傳每模式的紀錄。
func (r *Runner) RunAll(rounds int, seed string, showpb bool) (map[Mode]*RoundRecorder, time.Duration, error) {
	start := time.Now()

	type result struct {
		mode Mode
		rec  *RoundRecorder
		err  error
	}
	results := make([]result, len(Modes))

	wg := new(sync.WaitGroup)
	wg.Add(len(Modes))
	bar := pb.StartNew(rounds * len(Modes))
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i, mode := range Modes {
		go func(i int, mode Mode) {
			defer wg.Done()
			m := newMachine(r.eng, seed)
			rec := NewRoundRecorder(mode, r.DebitMultiplier(mode))
			for n := 0; n < rounds; n++ {
				res, err := m.playRound(mode)
				if err != nil {
					results[i] = result{mode: mode, err: err}
					return
				}
				rec.Record(res)
				bar.Increment()
			}
			results[i] = result{mode: mode, rec: rec}
		}(i, mode)
	}
	wg.Wait()
	bar.Finish()

	out := make(map[Mode]*RoundRecorder, len(Modes))
	for _, res := range results {
		if res.err != nil {
			return nil, 0, res.err
		}
		out[res.mode] = res.rec
	}
	return out, time.Since(start), nil
}
