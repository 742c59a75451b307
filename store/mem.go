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

package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zintix-labs/afterparty/errs"
)

type memEntry struct {
	data     []byte
	expireAt time.Time
}

// Mem 為記憶體版 Store，語意對齊 Redis 實作（含 TTL 與 token 鎖）。
// 供測試與本機無 Redis 的開發模式使用。
type Mem struct {
	mu   sync.Mutex
	kv   map[string]memEntry
	opt  Options
	now  func() time.Time
	done bool
}

// NewMem 建立記憶體 store。
func NewMem(opt Options) *Mem {
	return &Mem{
		kv:  make(map[string]memEntry),
		opt: opt,
		now: time.Now,
	}
}

// SetClock 注入時鐘，讓測試能推進時間驗證 TTL。
func (m *Mem) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Mem) get(key string) ([]byte, bool) {
	ent, ok := m.kv[key]
	if !ok {
		return nil, false
	}
	if m.now().After(ent.expireAt) {
		delete(m.kv, key)
		return nil, false
	}
	return ent.data, true
}

func (m *Mem) set(key string, data []byte, ttl time.Duration) {
	m.kv[key] = memEntry{data: data, expireAt: m.now().Add(ttl)}
}

func (m *Mem) GetPlayerState(_ context.Context, playerID string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return nil, false, errs.NewCode(errs.CodeInternalError, "store: closed")
	}
	data, ok := m.get(StateKey(playerID))
	return data, ok, nil
}

func (m *Mem) PutPlayerState(_ context.Context, playerID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return errs.NewCode(errs.CodeInternalError, "store: closed")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.set(StateKey(playerID), cp, m.opt.StateTTL)
	return nil
}

func (m *Mem) DeletePlayerState(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return errs.NewCode(errs.CodeInternalError, "store: closed")
	}
	delete(m.kv, StateKey(playerID))
	return nil
}

func (m *Mem) GetIdem(_ context.Context, requestID string) (*IdemRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.get(IdemKey(requestID))
	if !ok {
		return nil, false, nil
	}
	rec := &IdemRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, false, errs.Wrap(err, "store: corrupt idem record")
	}
	return rec, true, nil
}

func (m *Mem) PutIdem(_ context.Context, requestID string, rec *IdemRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(err, "store: marshal idem record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(IdemKey(requestID), data, m.opt.IdemTTL)
	return nil
}

func (m *Mem) AcquireLock(_ context.Context, playerID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := LockKey(playerID)
	if _, held := m.get(key); held {
		return "", false, nil
	}
	token := uuid.NewString()
	m.set(key, []byte(token), m.opt.LockTTL)
	return token, true, nil
}

func (m *Mem) ReleaseLock(_ context.Context, playerID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := LockKey(playerID)
	cur, ok := m.get(key)
	if !ok || string(cur) != token {
		return false, nil
	}
	delete(m.kv, key)
	return true, nil
}

func (m *Mem) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return errs.NewCode(errs.CodeInternalError, "store: closed")
	}
	return nil
}

func (m *Mem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
	return nil
}
