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

package api

import (
	"log/slog"

	v1 "github.com/zintix-labs/afterparty/server/api/v1"
	"github.com/zintix-labs/afterparty/server/netsvr"
	"github.com/zintix-labs/afterparty/server/netsvr/middleware"
	"github.com/zintix-labs/afterparty/server/svrcfg"
)

// RegisterRoutes 註冊
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware

	h := v1.NewHealthHandler(sCfg.Store)
	svr.Get("/health", h.Health) // 2. 存活探針

	return registerGameAPI(svr, sCfg) // 3. 註冊遊戲端點
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.Recover)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Compression)
	svr.Use(middleware.PlayerID)
}

// 註冊遊戲端點。協定把 /init 與 /spin 放在根路徑，不帶版本前綴。
func registerGameAPI(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	i, err := v1.NewInitHandler(sCfg)
	if err != nil {
		return err
	}
	s, err := v1.NewSpinHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Get("/init", i.Init)
	svr.Post("/spin", s.Spin)
	return nil
}
