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

// Symbol 為盤面符號。數值即為權重表/賠付表的索引。
type Symbol int

const (
	Scatter Symbol = iota
	Wild
	High1
	High2
	High3
	Mid1
	Mid2
	Low1
	Low2
	Low3

	symbolCount = 10
)

var symbolNames = [symbolCount]string{
	"SCATTER", "WILD", "HIGH1", "HIGH2", "HIGH3",
	"MID1", "MID2", "LOW1", "LOW2", "LOW3",
}

func (s Symbol) String() string {
	if s < 0 || int(s) >= symbolCount {
		return "UNKNOWN"
	}
	return symbolNames[s]
}

// symbolWeights : 基礎盤面的符號機率，總和為 1。
// scatter 的 0.02 是所有「機率倍增」模式（hype / boost）的縮放基準。
var symbolWeights = [symbolCount]float64{
	0.02, // SCATTER
	0.05, // WILD
	0.10, // HIGH1
	0.10, // HIGH2
	0.10, // HIGH3
	0.15, // MID1
	0.15, // MID2
	0.11, // LOW1
	0.11, // LOW2
	0.11, // LOW3
}

// payTable : 連線賠付倍數（以 bet 為單位），索引為連線長度 3/4/5。
// scatter 不走連線，見 scatterPays。
var payTable = map[Symbol]map[int]float64{
	Wild:  {3: 3.22, 4: 16.7, 5: 167.4},
	High1: {3: 1.70, 4: 8.56, 5: 85.6},
	High2: {3: 1.31, 4: 6.58, 5: 66.2},
	High3: {3: 1.03, 4: 5.15, 5: 51.5},
	Mid1:  {3: 0.64, 4: 3.22, 5: 25.3},
	Mid2:  {3: 0.52, 4: 2.53, 5: 17.0},
	Low1:  {3: 0.33, 4: 1.21, 5: 6.6},
	Low2:  {3: 0.23, 4: 0.95, 5: 4.7},
	Low3:  {3: 0.14, 4: 0.66, 5: 3.27},
}

// defaultPays : 不在賠付表上的符號的保底倍數。
var defaultPays = map[int]float64{3: 0.5, 4: 2, 5: 5}

// scatterPays : 全盤 scatter 數量對應的賠付倍數，回報時 lineId 一律為 -1。
var scatterPays = map[int]float64{3: 2, 4: 10, 5: 50}

// ScatterLineID : scatter 賠付在 lineWins 中使用的虛擬線號。
const ScatterLineID = -1

// 盤面尺寸。
const (
	Reels = 5
	Rows  = 3
	Cells = Reels * Rows
)

// paylines : 10 條固定中獎線，值為每一輪 (reel) 上的列 (row)。
var paylines = [10][Reels]int{
	{1, 1, 1, 1, 1},
	{0, 0, 0, 0, 0},
	{2, 2, 2, 2, 2},
	{0, 1, 2, 1, 0},
	{2, 1, 0, 1, 2},
	{0, 0, 1, 2, 2},
	{2, 2, 1, 0, 0},
	{1, 0, 0, 0, 1},
	{1, 2, 2, 2, 1},
	{0, 1, 1, 1, 0},
}

// linePay 回傳符號連線 count 個時的賠付倍數。
func linePay(sym Symbol, count int) float64 {
	if pays, ok := payTable[sym]; ok {
		if v, ok := pays[count]; ok {
			return v
		}
		return 0
	}
	if v, ok := defaultPays[count]; ok {
		return v
	}
	return 0
}
