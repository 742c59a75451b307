package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// Report 單次稽核模擬的統計報告
//
// 紀錄時只做累加，避免每局重算；累計完成後呼叫 Done 一次性
// 計算 RTP / Std / CI 等衍生量。
type Report struct {
	Mode         string  `json:"Mode"`
	Rounds       int     `json:"Rounds"`
	TotalDebit   float64 `json:"TotalDebit"`
	TotalCredit  float64 `json:"TotalCredit"`
	Wins         int     `json:"Wins"`
	BonusEntries int     `json:"BonusEntries"`
	Capped       int     `json:"Capped"`

	WinXSum   float64 `json:"WinXSum"`
	WinXSqSum float64 `json:"WinXSqSum"` // 平方和
	MaxWinX   float64 `json:"MaxWinX"`

	RTP         float64 `json:"RTP"`
	RtpCI       CI      `json:"RtpCI"`
	Std         float64 `json:"Std"`
	Cv          float64 `json:"Cv"`
	HitRate     float64 `json:"HitRate"`
	HitRateCI   CI      `json:"HitRateCI"`
	BonusRate   float64 `json:"BonusRate"`
	BonusRateCI CI      `json:"BonusRateCI"`

	// 贏倍區間落點
	WinBucket    []string  `json:"WinBucket"`
	WinXCollect  []int     `json:"WinXCollect"`
	WinXDist     []float64 `json:"WinXDist"`
	isDone       bool
}

// NewReport 建立空報告，分桶欄位依全域 Buckets 配置。
func NewReport(mode string) *Report {
	return &Report{
		Mode:        mode,
		WinBucket:   Buckets.Labels(),
		WinXCollect: make([]int, len(Buckets.Labels())),
	}
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Add 累計一局結果。win 表該局是否有派彩，bonus 表該局是否進入 bonus。
func (s *Report) Add(winX, debit, credit float64, win, bonus, capped bool) {
	s.Rounds++
	s.TotalDebit += debit
	s.TotalCredit += credit
	s.WinXSum += winX
	s.WinXSqSum += winX * winX
	if winX > s.MaxWinX {
		s.MaxWinX = winX
	}
	if win {
		s.Wins++
	}
	if bonus {
		s.BonusEntries++
	}
	if capped {
		s.Capped++
	}
	s.WinXCollect[Buckets.Index(winX)]++
}

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
func (s *Report) Done() {
	if s.isDone {
		return
	}
	s.RTP = s.Rtp()
	s.RtpCI = s.Ci()
	s.Std = s.StdDev()
	s.Cv = s.CvOf()
	s.HitRate, s.HitRateCI = ProportionCI(s.Wins, s.Rounds, 0.95)
	s.BonusRate, s.BonusRateCI = ProportionCI(s.BonusEntries, s.Rounds, 0.95)

	dist := make([]float64, len(s.WinXCollect))
	if s.Rounds > 0 {
		rf := float64(s.Rounds)
		for i, c := range s.WinXCollect {
			dist[i] = float64(c) / rf
		}
	}
	s.WinXDist = dist
	s.isDone = true
}

// Rtp 回傳整體 RTP（總派彩 / 總投注）
func (s *Report) Rtp() float64 {
	if s.TotalDebit == 0 {
		return 0
	}
	return s.TotalCredit / s.TotalDebit
}

// StdDev 回傳單局贏倍的樣本標準差
func (s *Report) StdDev() float64 {
	if s.Rounds < 2 {
		return 0
	}
	rounds := float64(s.Rounds)
	variance := (s.WinXSqSum - s.WinXSum*s.WinXSum/rounds) / (rounds - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// CvOf 回傳單局贏倍的變異係數
func (s *Report) CvOf() float64 {
	rtp := s.Rtp()
	if rtp <= 0 {
		return 0
	}
	return s.StdDev() / rtp
}

// Ci 回傳(95% Rtp)信賴區間
func (s *Report) Ci() CI {
	rtp := s.Rtp()
	std := s.StdDev()
	rtpSe := float64(0)
	if s.Rounds > 1 && s.TotalDebit > 0 {
		// winX 標準差換算到 RTP 標度：每局平均投注當分母
		avgDebit := s.TotalDebit / float64(s.Rounds)
		rtpSe = std / avgDebit / math.Sqrt(float64(s.Rounds))
	}
	return CI{
		Lo: max(rtp-1.96*rtpSe, 0.0),
		Hi: rtp + 1.96*rtpSe,
	}
}

func (s *Report) WriteWith(w io.Writer, rep ReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *Report) StdOut(ut time.Duration) {
	s.Done()
	formatDuration(ut, s.Rounds)
	sk, sm := s.fmtBasic()
	str := Table(strings.ToUpper(s.Mode)+" MODE", sk, sm)
	fmt.Println(str)
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, spins int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	sps := int(float64(spins) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\nsps : %d spins/sec\n", sec, sps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		s = s % 60
		p.Printf("used: %dm %ds\nsps : %d spins/sec\n", m, s, sps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\nsps : %d spins/sec\n", h, m, s, sps)
}

// StdOut

func (s *Report) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Mode":         s.Mode,
		"Total Rounds": p.Sprintf("%d", s.Rounds),
		"Total RTP":    p.Sprintf("%.4f %%", 100.0*s.RTP),
		"RTP 95% CI":   p.Sprintf("[%.4f%%,%.4f%%]", 100.0*s.RtpCI.Lo, 100.0*s.RtpCI.Hi),
		"Total Debit":  p.Sprintf("%.2f", s.TotalDebit),
		"Total Credit": p.Sprintf("%.2f", s.TotalCredit),
		"Hit Rate":     p.Sprintf("%.4f %%", 100.0*s.HitRate),
		"Bonus Rate":   p.Sprintf("%.4f %%", 100.0*s.BonusRate),
		"Capped":       p.Sprintf("%d", s.Capped),
		"Max WinX":     p.Sprintf("%.2f x", s.MaxWinX),
		"STD":          p.Sprintf("%.3f", s.Std),
		"CV":           p.Sprintf("%.3f", s.Cv),
	}
	keys := []string{"Mode", "Total Rounds", "Total RTP", "RTP 95% CI", "Total Debit", "Total Credit", "Hit Rate", "Bonus Rate", "Capped", "Max WinX", "STD", "CV"}
	return keys, basic
}

// Table 以等寬框線輸出 key/value 報表（CJK 寬度安全）。
func Table(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
