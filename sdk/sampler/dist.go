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

// Package sampler 提供一系列加權抽樣演算法與工具。
//
// 本檔案 (dist.go) 實作浮點權重的離散分佈抽樣。
//
// 與 weightitem.go 的整數權重抽樣不同，Dist 針對「單次抽一個、權重為機率」
// 的場景：一次 Float64 掃過累積門檻即可取樣，並支援對單一項目做
// 機率縮放（其餘項目按比例重分配）。
package sampler

import (
	"math"

	"github.com/zintix-labs/afterparty/sdk/core"
)

// Dist 為浮點權重的離散分佈。權重總和不需為 1，抽樣時按比例歸一。
type Dist struct {
	weights []float64
	total   float64
}

// NewDist 依權重建立分佈。負權重或總和為 0 會 panic（視為程式錯誤）。
func NewDist(weights []float64) *Dist {
	total := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			panic("dist: negative weight")
		}
		total += w
	}
	if total <= 0 {
		panic("dist: all weights are zero")
	}
	d := &Dist{weights: make([]float64, len(weights)), total: total}
	copy(d.weights, weights)
	return d
}

// Weight 回傳索引 i 的原始權重。
func (d *Dist) Weight(i int) float64 {
	return d.weights[i]
}

// Prob 回傳索引 i 的歸一化機率。
func (d *Dist) Prob(i int) float64 {
	return d.weights[i] / d.total
}

// Pick 以一次 Float64 取樣：r 落在哪個累積區間就回傳哪個索引。
// 權重大者區間長、被選中機率高。浮點誤差造成的邊界溢出收斂到最後一項。
func (d *Dist) Pick(r core.RAND) int {
	u := r.Float64() * d.total
	acc := 0.0
	for i, w := range d.weights {
		acc += w
		if u < acc {
			return i
		}
	}
	return len(d.weights) - 1
}

// ScaleIndex 回傳新分佈：索引 i 的機率乘上 mult，其餘項目按比例縮小，
// 使總機率維持 1。mult 必須使縮放後機率仍 < 1。
//
// 這是 hype / boost 模式的核心：scatter 機率嚴格上升，
// 其他符號相對比例不變。
func (d *Dist) ScaleIndex(i int, mult float64) *Dist {
	if mult <= 0 {
		panic("dist: non-positive multiplier")
	}
	p := d.Prob(i)
	scaled := p * mult
	if scaled >= 1 {
		panic("dist: scaled probability reaches 1")
	}
	rest := 1 - p
	factor := (1 - scaled) / rest

	out := make([]float64, len(d.weights))
	for j := range d.weights {
		if j == i {
			out[j] = scaled
			continue
		}
		out[j] = d.Prob(j) * factor
	}
	return NewDist(out)
}
