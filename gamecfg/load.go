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

package gamecfg

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"github.com/zintix-labs/afterparty/errs"
	"gopkg.in/yaml.v3"
)

// EnvPrefix : 環境變數覆寫的前綴。
const EnvPrefix = "APP_"

// FromYAML 會在預設值之上套用 YAML 覆寫、執行基本檢查後回傳。
// YAML 採嚴格解碼：多寫/拼錯欄位就報錯。
func FromYAML(data []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return c, errs.Wrap(err, "gamecfg: failed to decode yaml")
	}
	if err := c.Valid(); err != nil {
		return c, errs.Wrap(err, "gamecfg: config initialized err")
	}
	return c, nil
}

// FromFile 讀取 YAML 設定檔；path 為空時直接回傳預設值。
func FromFile(path string) (Config, error) {
	if path == "" {
		c := Default()
		return c, c.Valid()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), errs.Wrap(err, "gamecfg: can not read config file")
	}
	return FromYAML(data)
}

// ApplyEnv 以 APP_ 前綴環境變數覆寫設定，僅支援營運端常動到的欄位。
// 解析失敗一律回錯，不做靜默忽略。
func (c *Config) ApplyEnv() error {
	if v, ok := lookup("MAX_WIN_TOTAL_X"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errs.Warnf("gamecfg: bad %sMAX_WIN_TOTAL_X: %v", EnvPrefix, err)
		}
		c.MaxWinTotalX = f
	}
	if v, ok := lookup("ALLOWED_BETS"); ok {
		parts := strings.Split(v, ",")
		bets := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return errs.Warnf("gamecfg: bad %sALLOWED_BETS: %v", EnvPrefix, err)
			}
			bets = append(bets, f)
		}
		c.AllowedBets = bets
	}
	if v, ok := lookup("ENABLE_BUY_FEATURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errs.Warnf("gamecfg: bad %sENABLE_BUY_FEATURE: %v", EnvPrefix, err)
		}
		c.EnableBuyFeature = b
	}
	if v, ok := lookup("ENABLE_HYPE_MODE_ANTE_BET"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errs.Warnf("gamecfg: bad %sENABLE_HYPE_MODE_ANTE_BET: %v", EnvPrefix, err)
		}
		c.EnableHypeModeAnteBet = b
	}
	if v, ok := lookup("BASE_SCATTER_CHANCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errs.Warnf("gamecfg: bad %sBASE_SCATTER_CHANCE: %v", EnvPrefix, err)
		}
		c.BaseScatterChance = f
	}
	return c.Valid()
}

func lookup(key string) (string, bool) {
	return os.LookupEnv(EnvPrefix + key)
}
