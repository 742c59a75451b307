package stats

import "sort"

// WinBuckets
//
// 用來定位贏倍 -> 分桶位置
//
// 請勿修改預設值
//   - win區間: 贏倍區間 [0,0], (0,1), [1,2), [2,5), ..., [2000,10000), [10000, +inf)
type WinBuckets struct {
	bounds []float64
	labels []string
}

// Buckets
//
// 全域預設分桶。贏倍為浮點數，無法用整數 LUT 反查，改用邊界二分搜尋。
var Buckets *WinBuckets = &WinBuckets{
	bounds: []float64{0, 1, 2, 5, 10, 20, 50, 100, 300, 500, 1000, 2000, 10000},
	labels: []string{"[0,0]", "(0,1)", "[1,2)", "[2,5)", "[5,10)", "[10,20)", "[20,50)", "[50,100)", "[100,300)", "[300,500)", "[500,1000)", "[1000,2000)", "[2000,10000)", "[10000,+inf)"},
}

func (b *WinBuckets) Labels() []string {
	return b.labels
}

// Index 回傳 winX 所屬的分桶索引。
//
//	0 -> 0（無派彩專屬桶）
//	(0,1) -> 1，其後依邊界遞增，>= 10000 落最後一桶
func (b *WinBuckets) Index(winX float64) int {
	if winX <= 0 {
		return 0
	}
	// bounds[i] 為第 i+1 桶的下界（bounds[0]=0 對應 (0,1) 桶的起點）
	i := sort.SearchFloat64s(b.bounds, winX)
	if i < len(b.bounds) && b.bounds[i] == winX {
		return i + 1
	}
	return i
}
