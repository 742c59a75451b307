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
	"fmt"
	"os"
	"os/exec"
)

// 稽核 gate 任務。CI 的合併門檻直接跑這三個任務，
// 任何一個 exit code != 0 就擋下合併。

// runAuditDiff 對應 CI 的重現性 gate：同參數跑兩次必須逐欄一致。
func runAuditDiff() {
	PrintGreen("running audit diff gate")
	runAuditCmd("diff", "-rounds", "50000", "-seed", "CI_DIFF", "-pb=false")
}

// runAuditTail 對應 CI 的尾端回歸 gate：對 in-repo 基準檢查大獎頻率。
func runAuditTail() {
	PrintGreen("running audit tail gate")
	runAuditCmd("tail", "-baseline", "audit_artifacts/audit_base.csv", "-pb=false")
}

// runAuditPacing 對應 CI 的節奏 gate：對 in-repo 基準比對節奏指標。
func runAuditPacing() {
	PrintGreen("running audit pacing gate")
	runAuditCmd("pacing", "compare", "-baseline", "audit_artifacts/pacing_baseline.yaml", "-pb=false")
}

func runAuditCmd(args ...string) {
	full := append([]string{"run", "./cmd/audit"}, args...)
	cmd := exec.Command("go", full...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		PrintRed(fmt.Sprintf("\naudit gate failed: %v\n", err))
		os.Exit(1)
	}
}
