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

package stats_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/afterparty/stats"
)

func TestBucketIndex(t *testing.T) {
	cases := []struct {
		winX float64
		want int
	}{
		{0, 0},
		{0.0001, 1},
		{0.99, 1},
		{1, 2},
		{1.5, 2},
		{2, 3},
		{4.99, 3},
		{9999, 12},
		{10000, 13},
		{25000, 13},
	}
	for _, c := range cases {
		if got := stats.Buckets.Index(c.winX); got != c.want {
			t.Fatalf("Index(%v) = %d, want %d", c.winX, got, c.want)
		}
	}
	if len(stats.Buckets.Labels()) != 14 {
		t.Fatalf("labels len = %d", len(stats.Buckets.Labels()))
	}
}

func TestPercentile(t *testing.T) {
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = float64(i)
	}
	if got := stats.Percentile(vals, 95); got != 95 {
		t.Fatalf("p95 = %v", got)
	}
	if got := stats.Percentile(vals, 50); got != 50 {
		t.Fatalf("p50 = %v", got)
	}
	// 上界夾住
	if got := stats.Percentile(vals, 100); got != 99 {
		t.Fatalf("p100 = %v", got)
	}
	if got := stats.Percentile(nil, 95); got != 0 {
		t.Fatalf("empty p95 = %v", got)
	}
}

func TestProportionCI(t *testing.T) {
	p, ci := stats.ProportionCI(0, 100, 0.95)
	if p != 0 || ci.Lo != 0 {
		t.Fatalf("zero successes: p=%v ci=%+v", p, ci)
	}
	if ci.Hi <= 0 || ci.Hi > 0.1 {
		t.Fatalf("zero-success upper bound out of range: %v", ci.Hi)
	}

	p, ci = stats.ProportionCI(100, 100, 0.95)
	if p != 1 || ci.Hi != 1 {
		t.Fatalf("all successes: p=%v ci=%+v", p, ci)
	}

	p, ci = stats.ProportionCI(50, 100, 0.95)
	if math.Abs(p-0.5) > 1e-12 {
		t.Fatalf("p = %v", p)
	}
	if !(ci.Lo < 0.5 && 0.5 < ci.Hi) {
		t.Fatalf("ci does not bracket p: %+v", ci)
	}

	_, ci = stats.ProportionCI(0, 0, 0.95)
	if ci.Lo != 0 || ci.Hi != 1 {
		t.Fatalf("empty sample ci = %+v", ci)
	}
}

func TestRateAbove(t *testing.T) {
	data := []float64{0, 10, 1000, 2500, 9}
	p, _ := stats.RateAbove(data, 1000, 0.95)
	if math.Abs(p-0.4) > 1e-12 {
		t.Fatalf("rate = %v", p)
	}
}

func TestQuantileCIBrackets(t *testing.T) {
	vals := make([]float64, 1000)
	for i := range vals {
		vals[i] = float64(i)
	}
	lo, hi := stats.QuantileCI(vals, 0.5, 0.95)
	if !(lo <= 500 && 500 <= hi) {
		t.Fatalf("median ci [%v,%v] does not bracket 500", lo, hi)
	}
	if lo > hi {
		t.Fatalf("lo > hi: %v %v", lo, hi)
	}
}

func TestReportDone(t *testing.T) {
	r := stats.NewReport("base")
	r.Add(0, 1, 0, false, false, false)
	r.Add(2, 1, 2, true, false, false)
	r.Add(10, 1, 10, true, true, false)
	r.Add(0, 1, 0, false, false, false)
	r.Done()

	if r.Rounds != 4 {
		t.Fatalf("rounds = %d", r.Rounds)
	}
	if math.Abs(r.RTP-3.0) > 1e-12 {
		t.Fatalf("rtp = %v", r.RTP)
	}
	if math.Abs(r.HitRate-0.5) > 1e-12 {
		t.Fatalf("hit rate = %v", r.HitRate)
	}
	if math.Abs(r.BonusRate-0.25) > 1e-12 {
		t.Fatalf("bonus rate = %v", r.BonusRate)
	}
	if r.MaxWinX != 10 {
		t.Fatalf("max winX = %v", r.MaxWinX)
	}
	if r.WinXCollect[0] != 2 {
		t.Fatalf("no-win bucket = %d", r.WinXCollect[0])
	}
	sum := 0.0
	for _, d := range r.WinXDist {
		sum += d
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("dist sum = %v", sum)
	}
	// Done 必須冪等
	before := r.RTP
	r.Done()
	if r.RTP != before {
		t.Fatalf("second Done changed report")
	}
}

func TestReportStd(t *testing.T) {
	r := stats.NewReport("base")
	for i := 0; i < 10; i++ {
		r.Add(5, 1, 5, true, false, false)
	}
	if got := r.StdDev(); got != 0 {
		t.Fatalf("constant sample std = %v", got)
	}
}

func TestRenderers(t *testing.T) {
	r := stats.NewReport("buy")
	r.Add(100, 100, 100, true, true, false)
	r.Done()

	var jbuf bytes.Buffer
	if err := r.WriteWith(&jbuf, &stats.JsonReportRender{}); err != nil {
		t.Fatalf("json render: %v", err)
	}
	if !strings.Contains(jbuf.String(), `"Mode":"buy"`) {
		t.Fatalf("json output missing mode: %s", jbuf.String())
	}

	var ybuf bytes.Buffer
	if err := r.WriteWith(&ybuf, &stats.YAMLReportRender{}); err != nil {
		t.Fatalf("yaml render: %v", err)
	}
	// 一維陣列要 flow style
	if !strings.Contains(ybuf.String(), "[") {
		t.Fatalf("yaml output not flow-styled: %s", ybuf.String())
	}
}

func TestTableRendering(t *testing.T) {
	out := stats.Table("TITLE", []string{"a", "bb"}, map[string]string{"a": "1", "bb": "22"})
	if !strings.Contains(out, "TITLE") || !strings.Contains(out, "| a") {
		t.Fatalf("table output malformed:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	w := len(lines[0])
	for _, l := range lines {
		if len(l) != w {
			t.Fatalf("ragged table row: %q", l)
		}
	}
}
