package processor

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 标签表名称, 用于 LabelMapError
const (
	TableYear    = "year"
	TableMonth   = "month"
	TableSeason  = "season"
	TableWeekday = "weekday"
)

// Labels 各类别代码到显示名称的完整映射
// 年份代码 0-1, 月份 1-12, 季节 1-4, 星期 0-6(0 为星期日)
type Labels struct {
	Locale   language.Tag
	Years    [2]int
	Months   [12]string
	Seasons  [4]string
	Weekdays [7]string
}

// english 默认标签, 校验之后不再修改; 对外只提供副本
var english = Labels{
	Locale: language.English,
	Years:  [2]int{2011, 2012},
	Months: [12]string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
	Seasons:  [4]string{"Spring", "Summer", "Fall", "Winter"},
	Weekdays: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
}

// indonesian 印尼语标签
var indonesian = Labels{
	Locale: language.Indonesian,
	Years:  [2]int{2011, 2012},
	Months: [12]string{
		"Januari", "Februari", "Maret", "April", "Mei", "Juni",
		"Juli", "Agustus", "September", "Oktober", "November", "Desember",
	},
	Seasons:  [4]string{"Musim Semi", "Musim Panas", "Musim Gugur", "Musim Dingin"},
	Weekdays: [7]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"},
}

var supported = []*Labels{&english, &indonesian}

var matcher = language.NewMatcher([]language.Tag{english.Locale, indonesian.Locale})

// English 英文标签表的副本
func English() *Labels {
	l := english
	return &l
}

// Indonesian 印尼语标签表的副本
func Indonesian() *Labels {
	l := indonesian
	return &l
}

// LabelsFor 按语言返回标签表的副本, 无法识别的语言回退到英文
func LabelsFor(locale string) (*Labels, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", locale, err)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return English(), nil
	}
	l := *supported[idx]
	return &l, nil
}

// ValidateLabels 启动时检查所有标签表
func ValidateLabels() error {
	for _, l := range supported {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("labels %s: %w", l.Locale, err)
		}
	}
	return nil
}

// Validate 每个位置都有名称且没有重复
func (l *Labels) Validate() error {
	if l.Years[0] == 0 || l.Years[0] == l.Years[1] {
		return fmt.Errorf("year labels %v are not distinct", l.Years)
	}
	if err := checkNames(TableMonth, l.Months[:], 1); err != nil {
		return err
	}
	if err := checkNames(TableSeason, l.Seasons[:], 1); err != nil {
		return err
	}
	return checkNames(TableWeekday, l.Weekdays[:], 0)
}

func checkNames(table string, names []string, base int) error {
	seen := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return fmt.Errorf("%s code %d has an empty label", table, i+base)
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%s codes %d and %d share label %q", table, prev, i+base, name)
		}
		seen[name] = i + base
	}
	return nil
}

// Year 年份代码 -> 公历年份
func (l *Labels) Year(code int) (int, error) {
	if code < 0 || code >= len(l.Years) {
		return 0, &LabelMapError{Table: TableYear, Code: code}
	}
	return l.Years[code], nil
}

// Month 月份代码(1-12) -> 月份名称
func (l *Labels) Month(code int) (string, error) {
	if code < 1 || code > len(l.Months) {
		return "", &LabelMapError{Table: TableMonth, Code: code}
	}
	return l.Months[code-1], nil
}

// Season 季节代码(1-4) -> 季节名称
func (l *Labels) Season(code int) (string, error) {
	if code < 1 || code > len(l.Seasons) {
		return "", &LabelMapError{Table: TableSeason, Code: code}
	}
	return l.Seasons[code-1], nil
}

// Weekday 星期代码(0-6) -> 星期名称
func (l *Labels) Weekday(code int) (string, error) {
	if code < 0 || code >= len(l.Weekdays) {
		return "", &LabelMapError{Table: TableWeekday, Code: code}
	}
	return l.Weekdays[code], nil
}

// FormatCount 按语言格式化整数, 例如 3,292,679 / 3.292.679
func (l *Labels) FormatCount(n int) string {
	return message.NewPrinter(l.Locale).Sprintf("%d", n)
}
