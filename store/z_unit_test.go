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
	"testing"
	"time"
)

func testOptions() Options {
	return Options{
		StateTTL: 24 * time.Hour,
		IdemTTL:  time.Hour,
		LockTTL:  30 * time.Second,
	}
}

func TestKeys(t *testing.T) {
	if got := StateKey("p1"); got != "state:player:p1" {
		t.Fatalf("state key = %q", got)
	}
	if got := IdemKey("r9"); got != "idem:r9" {
		t.Fatalf("idem key = %q", got)
	}
	if got := LockKey("p1"); got != "lock:player:p1" {
		t.Fatalf("lock key = %q", got)
	}
}

func TestMemPlayerState(t *testing.T) {
	m := NewMem(testOptions())
	ctx := context.Background()

	_, ok, err := m.GetPlayerState(ctx, "p1")
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := m.PutPlayerState(ctx, "p1", []byte(`{"meter":7}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, ok, err := m.GetPlayerState(ctx, "p1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(data) != `{"meter":7}` {
		t.Fatalf("unexpected data: %s", data)
	}

	// 刪除後視同不存在，重覆刪除安全
	if err := m.DeletePlayerState(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := m.GetPlayerState(ctx, "p1"); ok {
		t.Fatalf("state survived delete")
	}
	if err := m.DeletePlayerState(ctx, "p1"); err != nil {
		t.Fatalf("re-delete: %v", err)
	}
}

func TestMemStateTTL(t *testing.T) {
	m := NewMem(testOptions())
	ctx := context.Background()

	now := time.Now()
	m.SetClock(func() time.Time { return now })
	if err := m.PutPlayerState(ctx, "p1", []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	// 23 小時後仍在
	now = now.Add(23 * time.Hour)
	if _, ok, _ := m.GetPlayerState(ctx, "p1"); !ok {
		t.Fatalf("state expired too early")
	}
	// 超過 24 小時後過期
	now = now.Add(2 * time.Hour)
	if _, ok, _ := m.GetPlayerState(ctx, "p1"); ok {
		t.Fatalf("state should have expired")
	}
}

func TestMemIdemRecord(t *testing.T) {
	m := NewMem(testOptions())
	ctx := context.Background()

	rec := &IdemRecord{
		PayloadHash: "abcd1234abcd1234",
		Response:    json.RawMessage(`{"totalWinX":1.7}`),
	}
	if err := m.PutIdem(ctx, "r1", rec); err != nil {
		t.Fatalf("put idem: %v", err)
	}
	got, ok, err := m.GetIdem(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.PayloadHash != rec.PayloadHash {
		t.Fatalf("hash mismatch: %s", got.PayloadHash)
	}
	if string(got.Response) != `{"totalWinX":1.7}` {
		t.Fatalf("response mismatch: %s", got.Response)
	}

	if _, ok, _ := m.GetIdem(ctx, "r2"); ok {
		t.Fatalf("unexpected idem hit for other request")
	}
}

func TestMemLockTokenSafety(t *testing.T) {
	m := NewMem(testOptions())
	ctx := context.Background()

	token, ok, err := m.AcquireLock(ctx, "p1")
	if err != nil || !ok || token == "" {
		t.Fatalf("acquire failed: ok=%v token=%q err=%v", ok, token, err)
	}

	// 鎖被持有時再取必須失敗
	if _, ok, _ := m.AcquireLock(ctx, "p1"); ok {
		t.Fatalf("double acquire should fail")
	}

	// 錯誤 token 不可釋放
	released, err := m.ReleaseLock(ctx, "p1", "not-the-token")
	if err != nil || released {
		t.Fatalf("release with wrong token should be a no-op")
	}
	if _, ok, _ := m.AcquireLock(ctx, "p1"); ok {
		t.Fatalf("lock should still be held")
	}

	// 正確 token 釋放後可重取
	released, err = m.ReleaseLock(ctx, "p1", token)
	if err != nil || !released {
		t.Fatalf("release failed: released=%v err=%v", released, err)
	}
	if _, ok, _ := m.AcquireLock(ctx, "p1"); !ok {
		t.Fatalf("re-acquire after release should succeed")
	}
}

func TestMemLockExpiry(t *testing.T) {
	m := NewMem(testOptions())
	ctx := context.Background()

	now := time.Now()
	m.SetClock(func() time.Time { return now })

	tokenA, ok, _ := m.AcquireLock(ctx, "p1")
	if !ok {
		t.Fatalf("acquire failed")
	}

	// 鎖過期後他人可取得；舊 token 不可誤刪新鎖
	now = now.Add(31 * time.Second)
	tokenB, ok, _ := m.AcquireLock(ctx, "p1")
	if !ok {
		t.Fatalf("acquire after expiry failed")
	}
	if released, _ := m.ReleaseLock(ctx, "p1", tokenA); released {
		t.Fatalf("stale token must not release the new lock")
	}
	if released, _ := m.ReleaseLock(ctx, "p1", tokenB); !released {
		t.Fatalf("current token should release")
	}
}

func TestHashPayload(t *testing.T) {
	type payload struct {
		Bet  float64 `json:"betAmount"`
		Hype bool    `json:"hypeMode"`
		Mode string  `json:"mode"`
	}
	a := HashPayload(payload{Bet: 1, Mode: "NORMAL"})
	b := HashPayload(payload{Bet: 1, Mode: "NORMAL"})
	c := HashPayload(payload{Bet: 2, Mode: "NORMAL"})
	if len(a) != 16 {
		t.Fatalf("hash length = %d, want 16", len(a))
	}
	if a != b {
		t.Fatalf("identical payloads hash differently")
	}
	if a == c {
		t.Fatalf("different payloads collided")
	}
}
