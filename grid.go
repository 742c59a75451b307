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
	"github.com/zintix-labs/afterparty/sdk/core"
	"github.com/zintix-labs/afterparty/sdk/sampler"
)

// Grid 為 5x3 盤面，第一維是輪 (reel)，第二維是列 (row)。
// 格位編號 pos = reel*Rows + row，範圍 [0, 15)。
type Grid [Reels][Rows]Symbol

// At 以格位編號取符號。
func (g *Grid) At(pos int) Symbol {
	return g[pos/Rows][pos%Rows]
}

// Set 以格位編號寫入符號。
func (g *Grid) Set(pos int, sym Symbol) {
	g[pos/Rows][pos%Rows] = sym
}

// CountSymbol 回傳全盤面中指定符號的數量。
func (g *Grid) CountSymbol(sym Symbol) int {
	n := 0
	for reel := 0; reel < Reels; reel++ {
		for row := 0; row < Rows; row++ {
			if g[reel][row] == sym {
				n++
			}
		}
	}
	return n
}

// uniformCells : 供不放回抽樣使用的等權重格位表。
var uniformCells = func() []int {
	w := make([]int, Cells)
	for i := range w {
		w[i] = 1
	}
	return w
}()

// drawGrid 依分佈逐格抽出盤面。
func drawGrid(rng *core.Core, dist *sampler.Dist) Grid {
	var g Grid
	for reel := 0; reel < Reels; reel++ {
		for row := 0; row < Rows; row++ {
			g[reel][row] = Symbol(dist.Pick(rng))
		}
	}
	return g
}

// applySpotlight 以 SpotlightWildFrequency 的機率在盤面上覆蓋 1~3 個 wild，
// 位置為不重複的隨機格位。回傳覆蓋的格位（未觸發時為 nil）。
func applySpotlight(rng *core.Core, g *Grid, freq float64) []int {
	if rng.Float64() >= freq {
		return nil
	}
	k := 1 + rng.IntN(3)
	cells := sampler.WeightedSample(rng, uniformCells, k)
	for _, pos := range cells {
		g.Set(pos, Wild)
	}
	return cells
}
