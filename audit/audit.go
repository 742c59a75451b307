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

// Package audit 提供離線稽核模擬與回歸比對工具。
//
// 所有模擬皆走 seed 字串 -> 決定性 RNG 的路徑：同一份設定、同一個
// seed、同一個模式必然產出同一份數字。產物（CSV / YAML / JSON）都帶
// config hash，讓比對工具能擋下「數學改了還拿舊基準比」的誤用。
package audit

import (
	"fmt"

	afterparty "github.com/zintix-labs/afterparty"
	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/gamecfg"
	"github.com/zintix-labs/afterparty/sdk/core"
)

// Mode 為稽核模擬的一種玩法情境。
type Mode string

const (
	ModeBase Mode = "base" // 一般 spin，每次 spin 算一局
	ModeBuy  Mode = "buy"  // 購買 bonus，一整段 bonus session 算一局
	ModeHype Mode = "hype" // ante bet，每次 spin 算一局
)

// Modes 為完整比對時的固定順序。
var Modes = []Mode{ModeBase, ModeBuy, ModeHype}

// simBet 為稽核模擬的固定投注額。
const simBet = 1.0

// Runner 為稽核模擬的進入點：一份設定對應一個引擎。
type Runner struct {
	cfg gamecfg.Config
	eng *afterparty.Engine
}

// NewRunner 以設定建立稽核模擬器。
func NewRunner(cfg gamecfg.Config) (*Runner, error) {
	eng, err := afterparty.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, eng: eng}, nil
}

// Config 回傳模擬使用的設定。
func (r *Runner) Config() gamecfg.Config { return r.cfg }

// ConfigHash 回傳稽核產物要帶的設定雜湊。
func (r *Runner) ConfigHash() string { return r.cfg.Hash() }

// DebitMultiplier 回傳該模式每局投注對基礎 bet 的倍數。
func (r *Runner) DebitMultiplier(mode Mode) float64 {
	switch mode {
	case ModeBuy:
		return r.cfg.BuyFeatureCostMultiplier
	case ModeHype:
		return 1.0 + r.cfg.HypeModeCostIncrease
	default:
		return 1.0
	}
}

func validMode(mode Mode) error {
	switch mode {
	case ModeBase, ModeBuy, ModeHype:
		return nil
	default:
		return errs.NewWarn(fmt.Sprintf("unknown audit mode: %q", mode))
	}
}

// ============================================================
// ** 模擬機台 **
// ============================================================

// roundResult 為一「局」的結果。base/hype 模式一局就是一次 spin
// （含免費旋轉的 spin）；buy 模式一局是整段 bonus session。
type roundResult struct {
	winX         float64
	debit        float64
	credit       float64
	cappedSpins  int
	bonusEntered bool
	bonusVariant string
}

// machine 綁定一顆決定性 RNG 與一份玩家狀態，連續跑局。
type machine struct {
	eng   *afterparty.Engine
	cfg   gamecfg.Config
	rng   *core.Core
	state *afterparty.PlayerState
}

// newMachine 以 seed 字串建立機台。狀態跨局延續（meter、事件視窗、
// 免費旋轉都會帶到下一局），與線上玩家的連續歷程一致。
func newMachine(eng *afterparty.Engine, seedStr string) *machine {
	seed := core.SeedFromString(seedStr)
	return &machine{
		eng:   eng,
		cfg:   eng.Config(),
		rng:   core.New(core.Default().New(seed)),
		state: afterparty.NewPlayerState(),
	}
}

// playRound 跑一局並回傳該局統計。
func (m *machine) playRound(mode Mode) (roundResult, error) {
	if mode == ModeBuy {
		return m.playBuyRound()
	}
	return m.playSpinRound(mode)
}

// playSpinRound : base / hype，一次 spin 算一局。
//
// 投注額固定以 bet * 模式倍數入帳，即使當下這一轉是免費旋轉——
// 稽核口徑把免費旋轉視為已付費歷程的一部分。
func (m *machine) playSpinRound(mode Mode) (roundResult, error) {
	// hype 口徑對整段歷程生效：免費旋轉內也以 hype 盤面與費率計
	req := afterparty.SpinRequest{
		Bet:      simBet,
		Mode:     afterparty.SpinModeNormal,
		HypeMode: mode == ModeHype,
	}
	out, err := m.eng.Spin(m.rng, m.state, req)
	if err != nil {
		return roundResult{}, err
	}

	res := roundResult{
		winX:         out.TotalWinX,
		credit:       out.TotalWin,
		bonusVariant: afterparty.BonusVariantStandard,
	}
	res.debit = simBet
	if mode == ModeHype {
		res.debit = simBet * (1.0 + m.cfg.HypeModeCostIncrease)
	}
	if out.IsCapped {
		res.cappedSpins++
	}
	if out.EnteredBonus() {
		res.bonusEntered = true
	}
	return res, nil
}

// playBuyRound : 購買 bonus，整段 session 算一局，投注額為 bet * 購買倍數。
func (m *machine) playBuyRound() (roundResult, error) {
	res := roundResult{
		debit:        simBet * m.cfg.BuyFeatureCostMultiplier,
		bonusVariant: "vip_buy",
	}

	out, err := m.eng.Spin(m.rng, m.state, afterparty.SpinRequest{
		Bet:  simBet,
		Mode: afterparty.SpinModeBuyFeature,
	})
	if err != nil {
		return roundResult{}, err
	}
	res.credit += out.TotalWin
	if out.IsCapped {
		res.cappedSpins++
	}
	if out.EnteredBonus() {
		res.bonusEntered = true
	}

	// 跑完整段免費旋轉
	for m.state.InBonus() {
		out, err = m.eng.Spin(m.rng, m.state, afterparty.SpinRequest{
			Bet:  simBet,
			Mode: afterparty.SpinModeNormal,
		})
		if err != nil {
			return roundResult{}, err
		}
		res.credit += out.TotalWin
		if out.IsCapped {
			res.cappedSpins++
		}
	}

	res.winX = res.credit / simBet
	return res, nil
}
