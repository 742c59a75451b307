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

package dto

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	afterparty "github.com/zintix-labs/afterparty"
	"github.com/zintix-labs/afterparty/errs"
	"github.com/zintix-labs/afterparty/gamecfg"
)

func TestDecodeSpinRequest(t *testing.T) {
	data := []byte(`{"clientRequestId":"r-1","betAmount":0.5,"mode":"BUY_FEATURE","hypeMode":true}`)
	r := httptest.NewRequest(http.MethodPost, "/spin", bytes.NewReader(data))
	req, err := DecodeSpinRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ClientRequestID != "r-1" || req.BetAmount != 0.5 || !req.HypeMode {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Mode != string(afterparty.SpinModeBuyFeature) {
		t.Fatalf("mode = %q", req.Mode)
	}
}

func TestDecodeSpinRequestDefaultsMode(t *testing.T) {
	data := []byte(`{"clientRequestId":"r-1","betAmount":1}`)
	r := httptest.NewRequest(http.MethodPost, "/spin", bytes.NewReader(data))
	req, err := DecodeSpinRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Mode != string(afterparty.SpinModeNormal) {
		t.Fatalf("missing mode should default to NORMAL, got %q", req.Mode)
	}
}

func TestDecodeSpinRequestRejectsGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/spin", nil)
	if _, err := DecodeSpinRequest(r); err == nil {
		t.Fatalf("expected error for GET")
	}
}

func TestDecodeSpinRequestRejectsUnknownFields(t *testing.T) {
	data := []byte(`{"betAmount":1,"wager":1}`)
	r := httptest.NewRequest(http.MethodPost, "/spin", bytes.NewReader(data))
	if _, err := DecodeSpinRequest(r); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestNewInitResponse(t *testing.T) {
	cfg := gamecfg.Default()

	resp := NewInitResponse(cfg, &afterparty.InitInfo{})
	if resp.ProtocolVersion != gamecfg.ProtocolVersion {
		t.Fatalf("protocol version = %q", resp.ProtocolVersion)
	}
	c := resp.Configuration
	if c.Currency != cfg.Currency || len(c.AllowedBets) != len(cfg.AllowedBets) {
		t.Fatalf("configuration = %+v", c)
	}
	if !c.EnableBuyFeature || c.BuyFeatureCostMultiplier != cfg.BuyFeatureCostMultiplier {
		t.Fatalf("configuration = %+v", c)
	}
	if resp.RestoreState != nil {
		t.Fatalf("fresh player restoreState = %+v", resp.RestoreState)
	}
	// 沒有續局時 restoreState 必須序列化為 null，不能整欄消失
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"restoreState":null`) {
		t.Fatalf("restoreState not null in %s", data)
	}
}

func TestNewInitResponseWithRestore(t *testing.T) {
	info := &afterparty.InitInfo{
		Restore: &afterparty.NextState{
			Mode:           afterparty.ModeFreeSpins,
			SpinsRemaining: 4,
			HeatLevel:      2,
		},
	}
	resp := NewInitResponse(gamecfg.Default(), info)
	r := resp.RestoreState
	if r == nil || r.Mode != string(afterparty.ModeFreeSpins) || r.SpinsRemaining != 4 || r.HeatLevel != 2 {
		t.Fatalf("restoreState = %+v", r)
	}
}

func TestNewSpinResponse(t *testing.T) {
	cfg := gamecfg.Default()
	rec := &afterparty.SpinRecord{
		RoundID:  "round-1",
		PlayerID: "p1",
		Result: &afterparty.SpinResult{
			TotalWin:  5,
			TotalWinX: 5,
			Events: []afterparty.Event{
				{"type": "reveal"},
				{"type": "winLine", "lineId": 0},
			},
			NextState: afterparty.NextState{
				Mode:           afterparty.ModeFreeSpins,
				SpinsRemaining: 9,
				HeatLevel:      1,
			},
		},
	}

	resp := NewSpinResponse(cfg, rec)
	if resp.ProtocolVersion != gamecfg.ProtocolVersion || resp.RoundID != "round-1" {
		t.Fatalf("envelope = %+v", resp)
	}
	if resp.Context.Currency != cfg.Currency {
		t.Fatalf("context = %+v", resp.Context)
	}
	if resp.Outcome.TotalWin != 5 || resp.Outcome.TotalWinX != 5 || resp.Outcome.IsCapped {
		t.Fatalf("outcome = %+v", resp.Outcome)
	}
	// 未封頂時 capReason 必須是 null
	if resp.Outcome.CapReason != nil {
		t.Fatalf("capReason = %v", *resp.Outcome.CapReason)
	}
	if len(resp.Events) != 2 || resp.Events[0].Type() != "reveal" {
		t.Fatalf("events = %v", resp.Events)
	}
	if resp.NextState.Mode != string(afterparty.ModeFreeSpins) || resp.NextState.SpinsRemaining != 9 {
		t.Fatalf("nextState = %+v", resp.NextState)
	}
}

func TestNewSpinResponseCapped(t *testing.T) {
	rec := &afterparty.SpinRecord{
		RoundID: "round-1",
		Result: &afterparty.SpinResult{
			IsCapped:  true,
			CapReason: afterparty.CapReasonMaxWinBase,
		},
	}
	resp := NewSpinResponse(gamecfg.Default(), rec)
	if resp.Outcome.CapReason == nil || *resp.Outcome.CapReason != afterparty.CapReasonMaxWinBase {
		t.Fatalf("capReason = %v", resp.Outcome.CapReason)
	}
}

func TestNewErrorBody(t *testing.T) {
	body := NewErrorBody(errs.NewCode(errs.CodeInvalidBet, "bet 0.33 not allowed"))
	if body.ProtocolVersion != gamecfg.ProtocolVersion {
		t.Fatalf("protocol version = %q", body.ProtocolVersion)
	}
	if body.Error.Code != string(errs.CodeInvalidBet) {
		t.Fatalf("code = %q", body.Error.Code)
	}
	if body.Error.Message != "bet 0.33 not allowed" || body.Error.Recoverable {
		t.Fatalf("body = %+v", body)
	}

	body = NewErrorBody(errs.NewCode(errs.CodeRoundInProgress, "another spin is in flight"))
	if !body.Error.Recoverable {
		t.Fatalf("ROUND_IN_PROGRESS must be recoverable: %+v", body)
	}

	// 未知錯誤收斂成 INTERNAL_ERROR，且不外洩訊息
	body = NewErrorBody(errs.NewFatal("pointer corruption at 0xdeadbeef"))
	if body.Error.Code != string(errs.CodeInternalError) {
		t.Fatalf("code = %q", body.Error.Code)
	}
	if body.Error.Message != "internal error" || !body.Error.Recoverable {
		t.Fatalf("body = %+v", body)
	}
}
