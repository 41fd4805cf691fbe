package dataset

import (
	"fmt"
	"time"
)

// RangeError 用户选择的日期范围为空或超出数据集范围
type RangeError struct {
	Start  time.Time
	End    time.Time
	Min    time.Time
	Max    time.Time
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid date range %s..%s (data covers %s..%s): %s",
		formatDay(e.Start), formatDay(e.End), formatDay(e.Min), formatDay(e.Max), e.Reason)
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "?"
	}
	return t.Format(DateLayout)
}
