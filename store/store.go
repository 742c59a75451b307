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

// Package store 定義遊戲狀態的 KV 儲存層。
//
// 三類資料共用一個 Store：
//   - 玩家狀態  state:player:{id}       TTL 24h
//   - 冪等紀錄  idem:{clientRequestId}  TTL 1h
//   - 玩家鎖    lock:player:{id}        TTL 30s，token 比對後才能釋放
//
// 正式服使用 Redis 實作，測試使用記憶體實作。
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// 鍵值前綴。
const (
	statePrefix = "state:player:"
	idemPrefix  = "idem:"
	lockPrefix  = "lock:player:"
)

// StateKey 組出玩家狀態的鍵。
func StateKey(playerID string) string { return statePrefix + playerID }

// IdemKey 組出冪等紀錄的鍵。冪等以 clientRequestId 為全域鍵，
// 不掛在玩家底下：重送必須命中同一筆，即使標頭帶錯玩家。
func IdemKey(requestID string) string { return idemPrefix + requestID }

// LockKey 組出玩家鎖的鍵。
func LockKey(playerID string) string { return lockPrefix + playerID }

// IdemRecord 為冪等紀錄：請求指紋 + 當時的完整回應。
// 同指紋重送 → 原封不動回放 Response；不同指紋 → 衝突。
type IdemRecord struct {
	PayloadHash string          `json:"payload_hash"`
	Response    json.RawMessage `json:"response"`
}

// Options 為儲存層的 TTL 設定。
type Options struct {
	StateTTL time.Duration
	IdemTTL  time.Duration
	LockTTL  time.Duration
}

// DefaultOptions 回傳正式服預設 TTL。
func DefaultOptions() Options {
	return Options{
		StateTTL: 24 * time.Hour,
		IdemTTL:  time.Hour,
		LockTTL:  30 * time.Second,
	}
}

// Store 為狀態儲存層介面。所有方法都要能安全併發呼叫。
type Store interface {
	// GetPlayerState 讀取玩家狀態；不存在時 ok 為 false 且不視為錯誤。
	GetPlayerState(ctx context.Context, playerID string) (data []byte, ok bool, err error)
	// PutPlayerState 寫入玩家狀態並重設 TTL。
	PutPlayerState(ctx context.Context, playerID string, data []byte) error
	// DeletePlayerState 移除玩家狀態。回到 BASE 模式時整筆刪除，
	// 鍵不存在不視為錯誤。
	DeletePlayerState(ctx context.Context, playerID string) error

	// GetIdem 讀取冪等紀錄；不存在時 ok 為 false。
	GetIdem(ctx context.Context, requestID string) (rec *IdemRecord, ok bool, err error)
	// PutIdem 寫入冪等紀錄並設定 TTL。
	PutIdem(ctx context.Context, requestID string, rec *IdemRecord) error

	// AcquireLock 嘗試取得玩家鎖。成功時回傳隨機 token；
	// 鎖已被持有時 ok 為 false 且不視為錯誤。
	AcquireLock(ctx context.Context, playerID string) (token string, ok bool, err error)
	// ReleaseLock 僅在 token 與持有者一致時釋放鎖（compare-and-delete）。
	// 回傳是否真的釋放了鎖。
	ReleaseLock(ctx context.Context, playerID, token string) (bool, error)

	// Ping 檢查儲存層連線。
	Ping(ctx context.Context) error
	Close() error
}

// HashPayload 計算請求指紋：欄位序固定的 JSON 取 sha256 前 16 碼。
// v 應為正規化後的請求結構（struct 欄位序即為正規序）。
func HashPayload(v any) string {
	bs, err := json.Marshal(v)
	if err != nil {
		return "unhashable"
	}
	sum := sha256.Sum256(bs)
	return hex.EncodeToString(sum[:])[:16]
}
