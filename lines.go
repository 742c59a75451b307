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

// lineResult 為單條線的評估結果。
type lineResult struct {
	count   int
	sym     Symbol
	pay     float64
	hasWild bool
}

// evalLine 從左往右評估單條線：
//   - wild 可替代任何一般符號；線由 wild 開頭時，採用第一個非 wild 符號。
//   - scatter 不參與連線，遇到即中斷。
//   - 全 wild 的線以 wild 本身的賠付表計算。
//   - 連線長度 >= 3 才算中獎。
func evalLine(g *Grid, rows [Reels]int) lineResult {
	var res lineResult
	base := Symbol(-1)

	for reel := 0; reel < Reels; reel++ {
		sym := g[reel][rows[reel]]
		if sym == Scatter {
			break
		}
		if sym == Wild {
			res.count++
			res.hasWild = true
			continue
		}
		if base == Symbol(-1) {
			base = sym
			res.count++
			continue
		}
		if sym == base {
			res.count++
			continue
		}
		break
	}

	if res.count < 3 {
		return lineResult{}
	}
	if base == Symbol(-1) {
		base = Wild
	}
	res.sym = base
	res.pay = linePay(base, res.count)
	if res.pay == 0 {
		return lineResult{}
	}
	return res
}

// evalGrid 評估全部中獎線與 scatter 賠付，以 bet 計出各線金額。
// 回傳值：各線結果、未乘倍數的總賠付倍數。
func evalGrid(g *Grid, bet float64) (wins []LineWin, totalX float64) {
	for lineID, rows := range paylines {
		res := evalLine(g, rows)
		if res.count == 0 {
			continue
		}
		wins = append(wins, LineWin{
			LineID: lineID,
			Symbol: res.sym.String(),
			Count:  res.count,
			Amount: res.pay * bet,
			WinX:   res.pay,
		})
		totalX += res.pay
	}

	// scatter 賠付：全盤計數，lineId 固定為 -1。
	// 只有 3/4/5 個在賠付表上；6 個以上不另給付。
	scatters := g.CountSymbol(Scatter)
	if pay, ok := scatterPays[scatters]; ok {
		wins = append(wins, LineWin{
			LineID: ScatterLineID,
			Symbol: Scatter.String(),
			Count:  scatters,
			Amount: pay * bet,
			WinX:   pay,
		})
		totalX += pay
	}
	return wins, totalX
}
