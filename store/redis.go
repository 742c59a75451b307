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
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zintix-labs/afterparty/errs"
)

// releaseScript : 只有持有者能釋放鎖。GET 與 DEL 必須在同一個原子操作內，
// 否則鎖過期後可能誤刪下一位持有者的鎖。
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Redis 為正式服的 Store 實作。
type Redis struct {
	cli *redis.Client
	opt Options
}

// NewRedis 以位址建立 Redis store。
func NewRedis(addr, password string, db int, opt Options) *Redis {
	cli := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{cli: cli, opt: opt}
}

// NewRedisWithClient 允許測試或呼叫端自備 client。
func NewRedisWithClient(cli *redis.Client, opt Options) *Redis {
	return &Redis{cli: cli, opt: opt}
}

func (r *Redis) GetPlayerState(ctx context.Context, playerID string) ([]byte, bool, error) {
	data, err := r.cli.Get(ctx, StateKey(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr("get player state", err)
	}
	return data, true, nil
}

func (r *Redis) PutPlayerState(ctx context.Context, playerID string, data []byte) error {
	if err := r.cli.Set(ctx, StateKey(playerID), data, r.opt.StateTTL).Err(); err != nil {
		return storeErr("put player state", err)
	}
	return nil
}

func (r *Redis) DeletePlayerState(ctx context.Context, playerID string) error {
	if err := r.cli.Del(ctx, StateKey(playerID)).Err(); err != nil {
		return storeErr("delete player state", err)
	}
	return nil
}

func (r *Redis) GetIdem(ctx context.Context, requestID string) (*IdemRecord, bool, error) {
	data, err := r.cli.Get(ctx, IdemKey(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr("get idem record", err)
	}
	rec := &IdemRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, false, errs.Wrap(err, "store: corrupt idem record")
	}
	return rec, true, nil
}

func (r *Redis) PutIdem(ctx context.Context, requestID string, rec *IdemRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(err, "store: marshal idem record")
	}
	if err := r.cli.Set(ctx, IdemKey(requestID), data, r.opt.IdemTTL).Err(); err != nil {
		return storeErr("put idem record", err)
	}
	return nil
}

func (r *Redis) AcquireLock(ctx context.Context, playerID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.cli.SetNX(ctx, LockKey(playerID), token, r.opt.LockTTL).Result()
	if err != nil {
		return "", false, storeErr("acquire lock", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *Redis) ReleaseLock(ctx context.Context, playerID, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, r.cli, []string{LockKey(playerID)}, token).Int()
	if err != nil {
		return false, storeErr("release lock", err)
	}
	return n == 1, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.cli.Ping(ctx).Err(); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.cli.Close()
}

// storeErr 把傳輸層錯誤收斂為 INTERNAL_ERROR，不對外洩漏 Redis 細節。
func storeErr(op string, err error) *errs.E {
	e := errs.NewCode(errs.CodeInternalError, "store: "+op+" failed")
	e.Cause = err
	return e
}
