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

package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 對外 : 點估計與信賴區間 **
// ============================================================

// ProportionCI 二項比例點估計 + 信賴區間（Clopper–Pearson exact）。
//
// 用於命中率、bonus 進場率、尾端事件率等「k 次成功 / n 局」型指標。
func ProportionCI(k int, n int, confidence float64) (pHat float64, ci CI) {
	return proportionCICP(k, n, confidence)
}

// Percentile 最近秩分位數。p 以百分比計（95 表 p95）。
//
// 索引取 int(n*p/100) 後夾住上界，與稽核產物的既有語意一致，
// 不做內插。
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, values)
	sort.Float64s(cp)
	idx := int(float64(n) * p / 100.0)
	if idx > n-1 {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return cp[idx]
}

// PercentileInts 同 Percentile，但輸入為整數樣本（間隔類指標用）。
func PercentileInts(values []int, p float64) float64 {
	fs := make([]float64, len(values))
	for i, v := range values {
		fs[i] = float64(v)
	}
	return Percentile(fs, p)
}

// QuantileCI 回傳第 q 分位（q 為 0~1 分數）的信賴區間。
//
// 做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
func QuantileCI(data []float64, q, confidence float64) (float64, float64) {
	return quantileCI(data, q, confidence)
}

// RateAbove 回傳樣本中 >= 門檻的比例與其 CP 信賴區間。
func RateAbove(data []float64, threshold float64, confidence float64) (pHat float64, ci CI) {
	k := 0
	for _, v := range data {
		if v >= threshold {
			k++
		}
	}
	return proportionCICP(k, len(data), confidence)
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 想估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	// 以 CP 思想反推 p 範圍
	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}
