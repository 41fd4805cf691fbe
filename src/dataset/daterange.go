package dataset

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 日期的标准格式
const DateLayout = "2006-01-02"

// 支持的日期格式
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
	time.RFC3339,
}

// DateRange 日期闭区间 [Start, End], 精确到天
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewRange 创建日期范围, 起止时间截断到天
func NewRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// ParseRange 解析 "YYYY-MM-DD" 形式的起止日期, 空字符串表示未选择(零值)
func ParseRange(start, end string) (time.Time, time.Time, error) {
	var s, e time.Time
	var err error
	if strings.TrimSpace(start) != "" {
		if s, err = ParseDay(start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
		}
	}
	if strings.TrimSpace(end) != "" {
		if e, err = ParseDay(end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
		}
	}
	return s, e, nil
}

// Contains 日期是否在范围内
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days 范围内的天数
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// Day 截断到 UTC 零点
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay 尝试多种格式解析日期, 返回当天零点
func ParseDay(s string) (time.Time, error) {
	str := strings.TrimSpace(s)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, str); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
