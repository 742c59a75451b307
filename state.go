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

// EventKind 為頻率上限控管的事件種類。
type EventKind string

const (
	EventBoost     EventKind = "boost"
	EventExplosive EventKind = "explosive"
)

// EventRecord 紀錄事件發生在第幾次 spin，供滾動視窗計數。
type EventRecord struct {
	Spin int64     `json:"spin"`
	Kind EventKind `json:"kind"`
}

// PlayerState 為玩家的完整遊戲狀態，整份序列化存入 state store。
// 只有在免費旋轉進行中才會被持久化；回到 BASE 即整筆刪除。
// 所有欄位都必須可 JSON 序列化，且不可夾帶衍生值（衍生值一律重算）。
type PlayerState struct {
	Mode               Mode `json:"mode"`
	FreeSpinsRemaining int  `json:"free_spins_remaining"`
	HeatLevel          int  `json:"heat_level"`
	BonusIsBought      bool `json:"bonus_is_bought"`
	// 同一段 bonus 內已完成的接續 spin 數，由協調層維護
	BonusContinuationCount int `json:"bonus_continuation_count"`

	// Afterparty meter / rage
	AfterpartyMeter       int `json:"afterparty_meter"`
	RageSpinsLeft         int `json:"rage_spins_left"`
	RageCooldownRemaining int `json:"rage_cooldown_remaining"`
	RageActive            bool `json:"rage_active"`

	// 連續紀錄（僅 BASE 模式推進）
	SmallwinsStreak int `json:"smallwins_streak"`
	DeadspinsStreak int `json:"deadspins_streak"`

	SpinCount int64 `json:"spin_count"`

	// 滾動視窗內的展演事件紀錄，寫入前會裁剪到最近 100 次 spin
	Events []EventRecord `json:"events,omitempty"`
}

// NewPlayerState 建立全新玩家狀態。
func NewPlayerState() *PlayerState {
	return &PlayerState{Mode: ModeBase}
}

// InBonus 回報玩家是否在免費旋轉 session 中。
func (s *PlayerState) InBonus() bool {
	return s.Mode == ModeFreeSpins && s.FreeSpinsRemaining > 0
}

// Clone 回傳深拷貝。引擎就地推進狀態，呼叫端靠這個保住原本。
func (s *PlayerState) Clone() *PlayerState {
	c := *s
	if len(s.Events) > 0 {
		c.Events = append([]EventRecord(nil), s.Events...)
	}
	return &c
}

// pruneEvents 移除視窗外的事件紀錄，視窗為最近 window 次 spin。
func (s *PlayerState) pruneEvents(window int64) {
	if len(s.Events) == 0 {
		return
	}
	cut := s.SpinCount - window
	kept := s.Events[:0]
	for _, rec := range s.Events {
		if rec.Spin > cut {
			kept = append(kept, rec)
		}
	}
	s.Events = kept
}

// eventsInWindow 回傳視窗內指定種類的事件數；kind 為空字串時計全部。
func (s *PlayerState) eventsInWindow(window int64, kind EventKind) int {
	cut := s.SpinCount - window
	n := 0
	for _, rec := range s.Events {
		if rec.Spin <= cut {
			continue
		}
		if kind == "" || rec.Kind == kind {
			n++
		}
	}
	return n
}
