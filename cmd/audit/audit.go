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

// 稽核工具入口。子命令：
//
//	run     跑模擬並落地 CSV 產物（支援快取跳過）
//	diff    同參數跑兩次驗證重現性
//	tail    對基準產物做尾端回歸檢查
//	pacing  節奏基準的產生（report）與比對（compare）
//	hunt    搜尋高倍數 / 封頂 seed
//
// 所有 gate 類子命令失敗時以 exit code 1 結束，供 CI 直接串接。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/zintix-labs/afterparty/audit"
	"github.com/zintix-labs/afterparty/gamecfg"
	"github.com/zintix-labs/afterparty/sdk/perf"
)

const (
	green = "\033[1;32m"
	red   = "\033[1;31m"
	reset = "\033[0m"
)

var p = message.NewPrinter(language.English)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "diff":
		cmdDiff(os.Args[2:])
	case "tail":
		cmdTail(os.Args[2:])
	case "pacing":
		cmdPacing(os.Args[2:])
	case "hunt":
		cmdHunt(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: audit <run|diff|tail|pacing|hunt> [flags]")
}

// newRunner 統一組裝：設定檔（可選）→ 環境變數覆寫 → Runner。
func newRunner(cfgPath string) *audit.Runner {
	cfg, err := gamecfg.FromFile(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatal(err)
	}
	r, err := audit.NewRunner(cfg)
	if err != nil {
		log.Fatal(err)
	}
	return r
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "game config yaml path (empty = defaults)")
	mode := fs.String("mode", "all", "base|buy|hype|all")
	rounds := fs.Int("rounds", 100000, "rounds per mode")
	seed := fs.String("seed", "AUDIT", "deterministic seed string")
	out := fs.String("out", "audit_artifacts", "output directory for csv artifacts")
	skipCached := fs.Bool("skip-if-cached", false, "skip modes whose artifact already matches config/rounds/seed")
	showpb := fs.Bool("pb", true, "show progress bar")
	pprofMode := fs.String("p", "", "pprof: '', cpu, heap, allocs")
	_ = fs.Parse(args)

	r := newRunner(*cfgPath)

	modes := audit.Modes
	if *mode != "all" {
		modes = []audit.Mode{audit.Mode(*mode)}
	}
	perf.RunPProf(func() {
		for _, m := range modes {
			path := filepath.Join(*out, fmt.Sprintf("audit_%s.csv", m))
			if *skipCached && audit.CacheValid(path, r.ConfigHash(), *rounds, *seed, m) {
				p.Printf("%s[AUDIT:%s] cached, skipped%s\n", green, m, reset)
				continue
			}
			p.Printf("%s[AUDIT:%s] [ROUNDS:%d] [SEED:%s]%s\n", green, m, *rounds, *seed, reset)
			s, rec, err := r.Run(m, *rounds, *seed, *showpb)
			if err != nil {
				log.Fatal(err)
			}
			if err := s.WriteCSV(path); err != nil {
				log.Fatal(err)
			}
			rec.StdOut(0)
			fmt.Println(s.Table())
		}
	}, *pprofMode)
}

func cmdDiff(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	cfgPath := fs.String("config", "", "game config yaml path (empty = defaults)")
	rounds := fs.Int("rounds", 50000, "rounds per run")
	seed := fs.String("seed", "DIFF", "deterministic seed string")
	out := fs.String("out", "audit_artifacts", "output directory for csv artifacts")
	showpb := fs.Bool("pb", true, "show progress bar")
	_ = fs.Parse(args)

	r := newRunner(*cfgPath)

	rep, err := r.Diff(*rounds, *seed, *out, *showpb)
	if err != nil {
		log.Fatal(err)
	}
	for _, md := range rep.PerMode {
		if md.Identical {
			p.Printf("%s[DIFF:%s] identical%s\n", green, md.Mode, reset)
			continue
		}
		p.Printf("%s[DIFF:%s] MISMATCH%s\n", red, md.Mode, reset)
		for _, d := range md.Differences {
			fmt.Println("  " + d)
		}
	}
	if !rep.AllPassed {
		os.Exit(1)
	}
}

func cmdTail(args []string) {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	cfgPath := fs.String("config", "", "game config yaml path (empty = defaults)")
	baseline := fs.String("baseline", "", "baseline csv artifact (required)")
	showpb := fs.Bool("pb", true, "show progress bar")
	_ = fs.Parse(args)

	if *baseline == "" {
		log.Fatal("tail: -baseline is required")
	}
	r := newRunner(*cfgPath)

	res, err := r.TailGate(*baseline, audit.DefaultTailTolerances(), *showpb)
	if err != nil {
		log.Fatal(err)
	}
	for _, m := range res.Messages {
		fmt.Println(m)
	}
	if !res.Passed {
		p.Printf("%stail gate FAILED%s\n", red, reset)
		os.Exit(1)
	}
	p.Printf("%stail gate passed%s\n", green, reset)
}

func cmdPacing(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: audit pacing <report|compare> [flags]")
		os.Exit(2)
	}
	switch args[0] {
	case "report":
		cmdPacingReport(args[1:])
	case "compare":
		cmdPacingCompare(args[1:])
	default:
		fmt.Fprintln(os.Stderr, "usage: audit pacing <report|compare> [flags]")
		os.Exit(2)
	}
}

func cmdPacingReport(args []string) {
	fs := flag.NewFlagSet("pacing report", flag.ExitOnError)
	cfgPath := fs.String("config", "", "game config yaml path (empty = defaults)")
	rounds := fs.Int("rounds", 200000, "rounds per mode")
	seed := fs.String("seed", "PACING", "deterministic seed string")
	out := fs.String("out", "audit_artifacts/pacing_baseline.yaml", "baseline output path")
	showpb := fs.Bool("pb", true, "show progress bar")
	_ = fs.Parse(args)

	r := newRunner(*cfgPath)

	p.Printf("%s[PACING REPORT] [ROUNDS:%d] [SEED:%s]%s\n", green, *rounds, *seed, reset)
	recs, used, err := r.RunAll(*rounds, *seed, *showpb)
	if err != nil {
		log.Fatal(err)
	}
	b := r.BuildPacingBaseline(recs, *seed, *rounds)
	if err := audit.SavePacingBaseline(*out, b); err != nil {
		log.Fatal(err)
	}
	for _, m := range audit.Modes {
		recs[m].StdOut(used)
	}
	p.Printf("baseline written: %s\n", *out)
}

func cmdPacingCompare(args []string) {
	fs := flag.NewFlagSet("pacing compare", flag.ExitOnError)
	cfgPath := fs.String("config", "", "game config yaml path (empty = defaults)")
	baseline := fs.String("baseline", "", "pacing baseline path (required)")
	showpb := fs.Bool("pb", true, "show progress bar")
	_ = fs.Parse(args)

	if *baseline == "" {
		log.Fatal("pacing compare: -baseline is required")
	}
	r := newRunner(*cfgPath)

	b, err := audit.LoadPacingBaseline(*baseline)
	if err != nil {
		log.Fatal(err)
	}
	res, err := r.ComparePacing(b, *showpb)
	if err != nil {
		log.Fatal(err)
	}
	for _, mr := range res.PerMode {
		color := green
		if !mr.Passed {
			color = red
		}
		p.Printf("%s[PACING:%s]%s\n", color, mr.Mode, reset)
		for _, row := range mr.Rows {
			fmt.Printf("  %-28s run=%-12s base=%-12s diff=%-10s %s\n",
				row.Metric, row.Run, row.Baseline, row.Diff, row.Status)
		}
	}
	if !res.AllPassed {
		p.Printf("%spacing gate FAILED%s\n", red, reset)
		os.Exit(1)
	}
	p.Printf("%spacing gate passed%s\n", green, reset)
}

func cmdHunt(args []string) {
	fs := flag.NewFlagSet("hunt", flag.ExitOnError)
	cfgPath := fs.String("config", "", "game config yaml path (empty = defaults)")
	mode := fs.String("mode", "buy", "base|buy")
	minWinX := fs.Float64("min-win-x", 1000, "win multiplier threshold for target=high")
	target := fs.String("target", "high", "high|cap")
	maxSeeds := fs.Int("max-seeds", 100000, "number of seeds to scan")
	prefix := fs.String("prefix", "HUNT", "seed prefix")
	workers := fs.Int("workers", 4, "number of workers")
	out := fs.String("out", "audit_artifacts/tail_seeds.json", "output json path")
	showpb := fs.Bool("pb", true, "show progress bar")
	_ = fs.Parse(args)

	r := newRunner(*cfgPath)

	p.Printf("%s[HUNT:%s] [TARGET:%s] [SEEDS:%d] [WORKERS:%d]%s\n",
		green, *mode, *target, *maxSeeds, *workers, reset)
	rep, err := r.Hunt(audit.HuntParams{
		Mode:       audit.Mode(*mode),
		MinWinX:    *minWinX,
		Target:     audit.HuntTarget(*target),
		MaxSeeds:   *maxSeeds,
		SeedPrefix: *prefix,
		Workers:    *workers,
	}, *showpb)
	if err != nil {
		log.Fatal(err)
	}
	if err := rep.WriteJSON(*out); err != nil {
		log.Fatal(err)
	}
	p.Printf("found %d hits (max %.2fx, %d capped), report: %s\n",
		rep.FoundCount, rep.MaxFoundWinX, rep.CountCapped, *out)
}
