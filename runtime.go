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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/sdk/core"
	"github.com/zintix-labs/afterparty/store"
	"github.com/zintix-labs/afterparty/telemetry"
)

// SpinInput 為協調層的 spin 輸入（已完成 wire 解碼）。
type SpinInput struct {
	PlayerID        string
	ClientRequestID string
	Bet             float64
	Mode            SpinMode
	HypeMode        bool
}

// spinPayload : 冪等指紋的正規化請求內容，欄位依鍵名字典序排列。
// ClientRequestID 是鍵本身，不進指紋。
type spinPayload struct {
	Bet      float64  `json:"betAmount"`
	HypeMode bool     `json:"hypeMode"`
	Mode     SpinMode `json:"mode"`
}

// SpinRecord 為一次結算的完整紀錄：整份寫入冪等紀錄，
// 重送時原封回放，連 roundId 都與第一次相同。
type SpinRecord struct {
	RoundID  string      `json:"round_id"`
	PlayerID string      `json:"player_id"`
	Result   *SpinResult `json:"result"`

	// Replayed 僅在回放時為 true，不進儲存
	Replayed bool `json:"-"`
}

// InitInfo 為 init 的結果。Restore 只在玩家有未完成的免費旋轉時非 nil。
type InitInfo struct {
	Restore *NextState
}

// spinStats 為一次 spin 的觀測欄位，鎖釋放後才發事件。
type spinStats struct {
	lockMs       int64
	lockRetries  int
	continuation bool
	contCount    int
	bonusVariant string
}

// Runtime 為遊戲協調層：串起狀態儲存、引擎與觀測。
// 引擎是純函數，所有 I/O 與鎖都收在這一層。
type Runtime struct {
	eng     *Engine
	st      store.Store
	tele    telemetry.Sink
	log     *slog.Logger
	factory core.PRNGFactory
	cfgHash string

	// seedFn 預設為 CryptoSeed；測試可注入固定序列
	seedFn func() (int64, error)

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewRuntime 組裝協調層。telemetry 會自動套上 Safe 包裝。
func NewRuntime(eng *Engine, st store.Store, sink telemetry.Sink, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{
		eng:     eng,
		st:      st,
		tele:    telemetry.Safe(sink),
		log:     log,
		factory: core.Default(),
		cfgHash: eng.Config().Hash(),
		seedFn:  core.CryptoSeed,
		done:    make(chan struct{}),
	}
}

// Engine 回傳底層引擎（稽核工具共用）。
func (rt *Runtime) Engine() *Engine { return rt.eng }

// Init 回報玩家是否有未完成的免費旋轉。純讀取，不寫任何狀態：
// 玩家狀態只在 spin 進入 bonus 時誕生。
func (rt *Runtime) Init(ctx context.Context, playerID string) (*InitInfo, error) {
	if err := rt.guard(ctx); err != nil {
		return nil, err
	}
	if playerID == "" {
		return nil, errs.NewCode(errs.CodeInvalidRequest, "missing player id")
	}

	st, found, err := rt.loadState(ctx, playerID)
	if err != nil {
		return nil, err
	}

	info := &InitInfo{}
	ev := telemetry.InitServed{PlayerID: playerID}
	if found && st.InBonus() {
		info.Restore = &NextState{
			Mode:           st.Mode,
			SpinsRemaining: st.FreeSpinsRemaining,
			HeatLevel:      st.HeatLevel,
		}
		ev.RestoreStatePresent = true
		ev.RestoreMode = string(st.Mode)
		ev.SpinsRemaining = st.FreeSpinsRemaining
	}
	rt.tele.InitServed(ev)
	return info, nil
}

// Spin 執行完整的一次 spin：
//
//	驗證 → 冪等預檢 → 取鎖 → 鎖內冪等複檢 → 讀狀態 → 引擎結算
//	→ 先寫冪等紀錄、再寫（或刪）狀態 → 釋放鎖 → 發事件
//
// 寫入順序是刻意的：冪等紀錄先落地，狀態寫失敗時重送同一
// clientRequestId 仍會拿到同一份結果，不會重複結算。
// 冪等回放不發 spin_processed；驗證失敗不發任何事件，
// 只有撞鎖發 spin_rejected。
func (rt *Runtime) Spin(ctx context.Context, in SpinInput) (*SpinRecord, error) {
	if err := rt.guard(ctx); err != nil {
		return nil, err
	}
	if in.PlayerID == "" {
		return nil, errs.NewCode(errs.CodeInvalidRequest, "missing player id")
	}
	if in.ClientRequestID == "" {
		return nil, errs.NewCode(errs.CodeInvalidRequest, "missing clientRequestId")
	}
	if !rt.eng.Config().BetAllowed(in.Bet) {
		return nil, errs.Codef(errs.CodeInvalidBet, "bet %v not in allowed list", in.Bet)
	}
	if in.Mode == SpinModeBuyFeature && !rt.eng.Config().EnableBuyFeature {
		return nil, errs.NewCode(errs.CodeFeatureDisabled, "buy feature is disabled")
	}
	if in.HypeMode && !rt.eng.Config().EnableHypeModeAnteBet {
		return nil, errs.NewCode(errs.CodeFeatureDisabled, "hype mode is disabled")
	}

	payloadHash := store.HashPayload(spinPayload{
		Bet:      in.Bet,
		HypeMode: in.HypeMode,
		Mode:     in.Mode,
	})

	// 冪等預檢：鎖外先擋掉明顯的重送，省一次取鎖
	if rec, err := rt.checkIdem(ctx, in.ClientRequestID, payloadHash); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	rec, stats, err := rt.spinLocked(ctx, in, payloadHash)
	if err != nil {
		if errs.CodeOf(err) == errs.CodeRoundInProgress {
			rt.tele.SpinRejected(telemetry.SpinRejected{
				PlayerID:        in.PlayerID,
				ClientRequestID: in.ClientRequestID,
				Reason:          string(errs.CodeRoundInProgress),
				LockAcquireMs:   stats.lockMs,
				LockWaitRetries: stats.lockRetries,
			})
		}
		return nil, err
	}
	if rec.Replayed {
		// 回放不重複發事件
		return rec, nil
	}

	rt.tele.SpinProcessed(telemetry.SpinProcessed{
		PlayerID:               in.PlayerID,
		ClientRequestID:        in.ClientRequestID,
		RoundID:                rec.RoundID,
		Mode:                   modeLabel(in),
		ConfigHash:             rt.cfgHash,
		LockAcquireMs:          stats.lockMs,
		LockWaitRetries:        stats.lockRetries,
		IsBonusContinuation:    stats.continuation,
		BonusContinuationCount: stats.contCount,
		BonusVariant:           stats.bonusVariant,
	})
	return rec, nil
}

// spinLocked 為鎖內流程。回傳時鎖必然已釋放（或靠 TTL 過期）。
func (rt *Runtime) spinLocked(ctx context.Context, in SpinInput, payloadHash string) (*SpinRecord, spinStats, error) {
	var stats spinStats

	lockStart := time.Now()
	token, ok, err := rt.st.AcquireLock(ctx, in.PlayerID)
	stats.lockMs = time.Since(lockStart).Milliseconds()
	if err != nil {
		return nil, stats, err
	}
	if !ok {
		return nil, stats, errs.NewCode(errs.CodeRoundInProgress, "another spin is in flight")
	}
	defer func() {
		released, rerr := rt.st.ReleaseLock(ctx, in.PlayerID, token)
		if rerr != nil || !released {
			// 鎖會靠 TTL 自行過期，釋放失敗只記錄不致命
			rt.log.Warn("lock release failed",
				slog.String("player_id", in.PlayerID),
				slog.Bool("released", released),
				slog.Any("err", rerr),
			)
		}
	}()

	// 鎖內複檢：預檢與取鎖之間可能有人完成了同一個請求
	if rec, err := rt.checkIdem(ctx, in.ClientRequestID, payloadHash); err != nil {
		return nil, stats, err
	} else if rec != nil {
		return rec, stats, nil
	}

	st, _, err := rt.loadState(ctx, in.PlayerID)
	if err != nil {
		return nil, stats, err
	}

	entryBought := st.BonusIsBought
	stats.continuation = st.InBonus()
	if stats.continuation {
		stats.contCount = st.BonusContinuationCount + 1
	}

	seed, err := rt.seedFn()
	if err != nil {
		e := errs.NewCode(errs.CodeInternalError, "seed generation failed")
		e.Cause = err
		return nil, stats, e
	}
	rng := core.New(rt.factory.New(seed))

	out, err := rt.eng.Spin(rng, st, SpinRequest{
		Bet:      in.Bet,
		Mode:     in.Mode,
		HypeMode: in.HypeMode,
	})
	if err != nil {
		return nil, stats, err
	}

	if entryBought || st.BonusIsBought {
		stats.bonusVariant = BonusVariantVIPBuy
	} else if stats.continuation || out.EnteredBonus() {
		stats.bonusVariant = BonusVariantStandard
	}

	// roundId 一律由伺服器配發，客戶端只認 clientRequestId
	rec := &SpinRecord{RoundID: uuid.NewString(), PlayerID: in.PlayerID, Result: out}

	// 冪等紀錄先寫，狀態後寫
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, stats, errs.Wrap(err, "marshal spin record")
	}
	if err := rt.st.PutIdem(ctx, in.ClientRequestID, &store.IdemRecord{
		PayloadHash: payloadHash,
		Response:    data,
	}); err != nil {
		return nil, stats, err
	}

	// 狀態只活在 bonus 期間：回到 BASE 整筆刪除，否則帶著
	// 接續計數持久化
	if out.NextState.Mode == ModeBase {
		if err := rt.st.DeletePlayerState(ctx, in.PlayerID); err != nil {
			return nil, stats, err
		}
	} else {
		st.BonusContinuationCount = stats.contCount
		if err := rt.saveState(ctx, in.PlayerID, st); err != nil {
			return nil, stats, err
		}
	}

	return rec, stats, nil
}

// checkIdem 回傳已存在且指紋一致的紀錄；指紋不一致回衝突錯誤。
func (rt *Runtime) checkIdem(ctx context.Context, requestID, payloadHash string) (*SpinRecord, error) {
	idem, found, err := rt.st.GetIdem(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if idem.PayloadHash != payloadHash {
		return nil, errs.NewCode(errs.CodeIdempotencyConflict,
			"clientRequestId reused with a different payload")
	}
	rec := &SpinRecord{}
	if err := json.Unmarshal(idem.Response, rec); err != nil {
		return nil, errs.Wrap(err, "corrupt idempotency record")
	}
	rec.Replayed = true
	return rec, nil
}

func (rt *Runtime) loadState(ctx context.Context, playerID string) (*PlayerState, bool, error) {
	data, found, err := rt.st.GetPlayerState(ctx, playerID)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return NewPlayerState(), false, nil
	}
	st := &PlayerState{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, false, errs.Wrap(err, "corrupt player state")
	}
	return st, true, nil
}

func (rt *Runtime) saveState(ctx context.Context, playerID string, st *PlayerState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return errs.Wrap(err, "marshal player state")
	}
	return rt.st.PutPlayerState(ctx, playerID, data)
}

// modeLabel 回傳 spin_processed 的 mode 標籤：buy 優先於 hype。
func modeLabel(in SpinInput) string {
	switch {
	case in.Mode == SpinModeBuyFeature:
		return telemetry.ModeBuy
	case in.HypeMode:
		return telemetry.ModeHype
	default:
		return telemetry.ModeBase
	}
}

// guard 檢查 runtime 與請求生命週期。
func (rt *Runtime) guard(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errs.Wrap(ctx.Err(), "request canceled/timeout")
	case <-rt.done:
		rt.closed.Store(true)
		return errs.NewFatal("runtime closed")
	default:
		return nil
	}
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *Runtime) Close() {
	rt.closeOnce.Do(func() {
		rt.closed.Store(true)
		close(rt.done)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}
