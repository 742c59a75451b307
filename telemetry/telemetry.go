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

// Package telemetry 定義遊戲事件的觀測介面。
// 鐵律：遊戲流程絕不因觀測失敗而失敗——Safe 包裝會吞掉 sink 的 panic。
package telemetry

import "log/slog"

// spin_processed 的 mode 標籤。
const (
	ModeBase = "base"
	ModeBuy  = "buy"
	ModeHype = "hype"
)

// InitServed : 成功回應 /init。
type InitServed struct {
	PlayerID            string `json:"player_id"`
	RestoreStatePresent bool   `json:"restore_state_present"`
	// 有 restore state 時才有值
	RestoreMode    string `json:"restore_mode,omitempty"`
	SpinsRemaining int    `json:"spins_remaining,omitempty"`
}

// SpinProcessed : 成功結算一次 spin。冪等回放不發此事件。
type SpinProcessed struct {
	PlayerID        string `json:"player_id"`
	ClientRequestID string `json:"client_request_id"`
	RoundID         string `json:"round_id"`
	// base / buy / hype
	Mode       string `json:"mode"`
	ConfigHash string `json:"config_hash"`

	LockAcquireMs   int64 `json:"lock_acquire_ms"`
	LockWaitRetries int   `json:"lock_wait_retries"`

	IsBonusContinuation    bool `json:"is_bonus_continuation"`
	BonusContinuationCount int  `json:"bonus_continuation_count"`
	// standard / vip_buy；不在 bonus 內時為空
	BonusVariant string `json:"bonus_variant,omitempty"`
}

// SpinRejected : spin 因鎖衝突被拒絕。
type SpinRejected struct {
	PlayerID        string `json:"player_id"`
	ClientRequestID string `json:"client_request_id,omitempty"`
	Reason          string `json:"reason"`
	LockAcquireMs   int64  `json:"lock_acquire_ms"`
	LockWaitRetries int    `json:"lock_wait_retries"`
}

// Sink 為事件出口。實作不可假設呼叫順序，且必須能安全併發呼叫。
type Sink interface {
	InitServed(ev InitServed)
	SpinProcessed(ev SpinProcessed)
	SpinRejected(ev SpinRejected)
}

// SlogSink 把事件寫進結構化日誌。
type SlogSink struct {
	Log *slog.Logger
}

func NewSlogSink(log *slog.Logger) *SlogSink {
	return &SlogSink{Log: log}
}

func (s *SlogSink) InitServed(ev InitServed) {
	s.Log.Info("telemetry.init_served",
		slog.String("player_id", ev.PlayerID),
		slog.Bool("restore_state_present", ev.RestoreStatePresent),
		slog.String("restore_mode", ev.RestoreMode),
		slog.Int("spins_remaining", ev.SpinsRemaining),
	)
}

func (s *SlogSink) SpinProcessed(ev SpinProcessed) {
	s.Log.Info("telemetry.spin_processed",
		slog.String("player_id", ev.PlayerID),
		slog.String("client_request_id", ev.ClientRequestID),
		slog.String("round_id", ev.RoundID),
		slog.String("mode", ev.Mode),
		slog.String("config_hash", ev.ConfigHash),
		slog.Int64("lock_acquire_ms", ev.LockAcquireMs),
		slog.Int("lock_wait_retries", ev.LockWaitRetries),
		slog.Bool("is_bonus_continuation", ev.IsBonusContinuation),
		slog.Int("bonus_continuation_count", ev.BonusContinuationCount),
		slog.String("bonus_variant", ev.BonusVariant),
	)
}

func (s *SlogSink) SpinRejected(ev SpinRejected) {
	s.Log.Warn("telemetry.spin_rejected",
		slog.String("player_id", ev.PlayerID),
		slog.String("client_request_id", ev.ClientRequestID),
		slog.String("reason", ev.Reason),
		slog.Int64("lock_acquire_ms", ev.LockAcquireMs),
		slog.Int("lock_wait_retries", ev.LockWaitRetries),
	)
}

// Nop 為丟棄所有事件的 sink。
type Nop struct{}

func (Nop) InitServed(InitServed)       {}
func (Nop) SpinProcessed(SpinProcessed) {}
func (Nop) SpinRejected(SpinRejected)   {}

// Safe 包裝 sink：任何 panic 都被吞掉，遊戲流程不受影響。
func Safe(sink Sink) Sink {
	if sink == nil {
		return Nop{}
	}
	return &safeSink{inner: sink}
}

type safeSink struct {
	inner Sink
}

func (s *safeSink) InitServed(ev InitServed) {
	defer func() { _ = recover() }()
	s.inner.InitServed(ev)
}

func (s *safeSink) SpinProcessed(ev SpinProcessed) {
	defer func() { _ = recover() }()
	s.inner.SpinProcessed(ev)
}

func (s *safeSink) SpinRejected(ev SpinRejected) {
	defer func() { _ = recover() }()
	s.inner.SpinRejected(ev)
}
