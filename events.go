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

// Event 為 spin 回應 events 串流中的單一事件。
// 採開放 map 而非固定 struct：各事件型別的欄位集合不同，
// 且 encoding/json 對 map 以鍵名排序輸出，回放時序列化必然 byte 相同。
type Event map[string]any

// Type 回傳事件型別字串；缺漏時為空字串。
func (e Event) Type() string {
	t, _ := e["type"].(string)
	return t
}

// 事件型別。串流中的出現順序固定為此宣告順序的子序列。
const (
	EventTypeReveal          = "reveal"
	EventTypeSpotlightWilds  = "spotlightWilds"
	EventTypeWinLine         = "winLine"
	EventTypeMeterUpdate     = "afterpartyMeterUpdate"
	EventTypeEventStart      = "eventStart"
	EventTypeEventEnd        = "eventEnd"
	EventTypeEnterFreeSpins  = "enterFreeSpins"
	EventTypeHeatUpdate      = "heatUpdate"
	EventTypeBonusEnd        = "bonusEnd"
	EventTypeWinTier         = "winTier"
)

// eventStart/eventEnd 的 eventType 值。
const (
	GameEventRage      = "afterpartyRage"
	GameEventBoost     = "boost"
	GameEventExplosive = "explosive"
)

func evReveal(g *Grid) Event {
	grid := make([][]int, Reels)
	for reel := 0; reel < Reels; reel++ {
		col := make([]int, Rows)
		for row := 0; row < Rows; row++ {
			col[row] = int(g[reel][row])
		}
		grid[reel] = col
	}
	return Event{"type": EventTypeReveal, "grid": grid}
}

func evSpotlightWilds(positions []int) Event {
	return Event{
		"type":      EventTypeSpotlightWilds,
		"positions": positions,
		"count":     len(positions),
	}
}

func evWinLine(lineID int, amount, winX float64) Event {
	return Event{
		"type":   EventTypeWinLine,
		"lineId": lineID,
		"amount": amount,
		"winX":   winX,
	}
}

func evMeterUpdate(level int, triggered bool) Event {
	return Event{
		"type":      EventTypeMeterUpdate,
		"level":     level,
		"triggered": triggered,
	}
}

// evRageStart 與一般 eventStart 不同：多帶 multiplier 供前端展演。
func evRageStart(durationSpins int, multiplier float64) Event {
	return Event{
		"type":          EventTypeEventStart,
		"eventType":     GameEventRage,
		"reason":        "meter_full",
		"durationSpins": durationSpins,
		"multiplier":    multiplier,
	}
}

func evEventStart(eventType, reason string, durationSpins int) Event {
	return Event{
		"type":          EventTypeEventStart,
		"eventType":     eventType,
		"reason":        reason,
		"durationSpins": durationSpins,
	}
}

func evEventEnd(eventType string) Event {
	return Event{"type": EventTypeEventEnd, "eventType": eventType}
}

func evEnterFreeSpins(count int, reason, bonusVariant string) Event {
	return Event{
		"type":         EventTypeEnterFreeSpins,
		"count":        count,
		"reason":       reason,
		"bonusVariant": bonusVariant,
	}
}

func evHeatUpdate(level int) Event {
	return Event{"type": EventTypeHeatUpdate, "level": level}
}

// evBonusEnd 在購買的 bonus 上額外帶 VIP 欄位（倍數與倍數前的倍率）。
func evBonusEnd(finalePath string, totalWinX float64, bought bool, boughtMult float64) Event {
	ev := Event{
		"type":       EventTypeBonusEnd,
		"bonusType":  "freespins",
		"finalePath": finalePath,
		"totalWinX":  totalWinX,
	}
	if bought {
		ev["bonusVariant"] = BonusVariantVIPBuy
		ev["bonusMultiplierApplied"] = boughtMult
		ev["totalWinXPreMultiplier"] = totalWinX / boughtMult
	}
	return ev
}

func evWinTier(tier string, winX float64) Event {
	return Event{"type": EventTypeWinTier, "tier": tier, "winX": winX}
}
