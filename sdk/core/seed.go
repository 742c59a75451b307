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

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"math"
	"math/big"
)

// CryptoSeed 由加密隨機來源產生 [0, MaxInt64) 的 seed。
// 正式服每次請求都走這裡，稽核/回放才會使用外部指定 seed。
func CryptoSeed() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// SeedFromString 把任意字串映射為 [0, 2^31) 的決定性 seed。
// 算法：sha256 視為大整數後取 mod 2^31，與稽核工具的 seed 推導一致，
// 讓同一份 seed 字串在不同環境跑出同一條序列。
func SeedFromString(s string) int64 {
	sum := sha256.Sum256([]byte(s))
	n := new(big.Int).SetBytes(sum[:])
	return n.Mod(n, big.NewInt(1<<31)).Int64()
}
