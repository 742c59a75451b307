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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	afterparty "github.com/zintix-labs/afterparty"
	"github.com/zintix-labs/afterparty/gamecfg"
	"github.com/zintix-labs/afterparty/server"
	"github.com/zintix-labs/afterparty/server/logger"
	"github.com/zintix-labs/afterparty/server/netsvr"
	"github.com/zintix-labs/afterparty/server/svrcfg"
	"github.com/zintix-labs/afterparty/store"
	"github.com/zintix-labs/afterparty/telemetry"
)

// Game server entrypoint.
// 設定來源優先序：flag > 環境變數（.env 可選）> 內建預設值。
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	Addr      string
	CfgPath   string
	LogMode   string
	RedisAddr string
	RedisPass string
	RedisDB   int
	MemStore  bool
}

func run() error {
	// .env 是可選的：本機開發便利，正式環境用真環境變數
	_ = godotenv.Load()

	cfg := new(config)
	flag.StringVar(&cfg.Addr, "addr", envOr("ADDR", ":5808"), "listen address")
	flag.StringVar(&cfg.CfgPath, "config", envOr("GAME_CONFIG", ""), "game config yaml path (empty = defaults)")
	flag.StringVar(&cfg.LogMode, "log-mode", envOr("LOG_MODE", "ModeDev"), "log mode: ModeDev|ModeProd|ModeSilence")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "redis address")
	flag.StringVar(&cfg.RedisPass, "redis-pass", envOr("REDIS_PASSWORD", ""), "redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "redis db index")
	flag.BoolVar(&cfg.MemStore, "mem-store", false, "use in-memory store instead of redis (dev only)")
	flag.Parse()

	log, ah := logger.NewAsync(4096, cfg.norm())
	defer ah.Close()

	gameCfg, err := gamecfg.FromFile(cfg.CfgPath)
	if err != nil {
		return err
	}
	if err := gameCfg.ApplyEnv(); err != nil {
		return err
	}

	eng, err := afterparty.NewEngine(gameCfg)
	if err != nil {
		return err
	}

	var st store.Store
	if cfg.MemStore {
		st = store.NewMem(store.DefaultOptions())
	} else {
		st = store.NewRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, store.DefaultOptions())
	}
	defer st.Close()

	rt := afterparty.NewRuntime(eng, st, telemetry.NewSlogSink(log), log)
	defer rt.Close()

	sCfg := &svrcfg.SvrCfg{
		Log:     log,
		Runtime: rt,
		Store:   st,
	}
	server.RunWithSvr(sCfg, netsvr.NewChiServer(cfg.Addr))
	return nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (cfg *config) norm() logger.LogMode {
	switch cfg.LogMode {
	case "ModeDev":
		return logger.ModeDev
	case "ModeProd":
		return logger.ModeProd
	case "ModeSilence":
		return logger.ModeSilence
	default:
		return logger.ModeDev
	}
}
