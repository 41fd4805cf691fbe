package processor

import (
	"math"
	"sort"
	"time"

	"BikeSharing/src/dataset"

	"github.com/go-gota/gota/series"
)

// DailyTotal 单日汇总: 不同记录数与租赁总数
type DailyTotal struct {
	Date    time.Time
	Records int
	Cnt     int
}

// YearTotal 年度租赁总数
type YearTotal struct {
	Yr   int // 年份代码 0/1
	Year int // 显示年份 2011/2012
	Cnt  int
}

// MonthTotal 按(年, 月)汇总的租赁总数
type MonthTotal struct {
	Yr    int
	Year  int
	Mnth  int
	Month string
	Cnt   int
}

// SeasonTotal 季节租赁总数
type SeasonTotal struct {
	Season int
	Label  string
	Cnt    int
}

// SeasonWeekdayAverage 按(季节, 星期)计算的平均租赁数
type SeasonWeekdayAverage struct {
	Season       int
	SeasonLabel  string
	Weekday      int
	WeekdayLabel string
	Avg          float64
}

// Aggregator 五个无状态的聚合操作, 只依赖标签表
type Aggregator struct {
	labels *Labels
}

// NewAggregator labels 为空时使用英文标签
func NewAggregator(labels *Labels) *Aggregator {
	if labels == nil {
		labels = English()
	}
	return &Aggregator{labels: labels}
}

// Labels 当前使用的标签表
func (a *Aggregator) Labels() *Labels { return a.labels }

// DailyTotals 按日期分组, 输出每天的不同记录数和租赁总数, 按日期升序
// 首尾之间没有记录的日期以 0 补齐
func (a *Aggregator) DailyTotals(set dataset.FilteredSet) ([]DailyTotal, error) {
	if set.Len() == 0 {
		return nil, nil
	}
	dates, err := dateColumn(set)
	if err != nil {
		return nil, err
	}
	ids, err := intColumn(set, dataset.ColInstant)
	if err != nil {
		return nil, err
	}
	counts, err := countColumn(set)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		ids map[int]struct{}
		cnt int
	}
	buckets := make(map[time.Time]*bucket)
	first, last := dates[0], dates[0]
	for i, d := range dates {
		b, ok := buckets[d]
		if !ok {
			b = &bucket{ids: make(map[int]struct{})}
			buckets[d] = b
		}
		b.ids[ids[i]] = struct{}{}
		b.cnt += counts[i]
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	result := make([]DailyTotal, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		row := DailyTotal{Date: d}
		if b, ok := buckets[d]; ok {
			row.Records = len(b.ids)
			row.Cnt = b.cnt
		}
		result = append(result, row)
	}
	return result, nil
}

// YearTotals 按年份代码分组求和, 代码映射为 2011/2012
func (a *Aggregator) YearTotals(set dataset.FilteredSet) ([]YearTotal, error) {
	if set.Len() == 0 {
		return nil, nil
	}
	years, err := intColumn(set, dataset.ColYear)
	if err != nil {
		return nil, err
	}
	counts, err := countColumn(set)
	if err != nil {
		return nil, err
	}

	order, groups := groupBy(len(years), func(i int) int { return years[i] })
	result := make([]YearTotal, 0, len(order))
	for _, yr := range order {
		year, err := a.labels.Year(yr)
		if err != nil {
			return nil, err
		}
		result = append(result, YearTotal{Yr: yr, Year: year, Cnt: sumAt(counts, groups[yr])})
	}
	return result, nil
}

type yearMonth struct{ yr, mnth int }

// MonthTotals 按(年份代码, 月份)分组求和, 最多 24 行
func (a *Aggregator) MonthTotals(set dataset.FilteredSet) ([]MonthTotal, error) {
	if set.Len() == 0 {
		return nil, nil
	}
	years, err := intColumn(set, dataset.ColYear)
	if err != nil {
		return nil, err
	}
	months, err := intColumn(set, dataset.ColMonth)
	if err != nil {
		return nil, err
	}
	counts, err := countColumn(set)
	if err != nil {
		return nil, err
	}

	order, groups := groupBy(len(years), func(i int) yearMonth { return yearMonth{years[i], months[i]} })
	result := make([]MonthTotal, 0, len(order))
	for _, key := range order {
		year, err := a.labels.Year(key.yr)
		if err != nil {
			return nil, err
		}
		month, err := a.labels.Month(key.mnth)
		if err != nil {
			return nil, err
		}
		result = append(result, MonthTotal{
			Yr:    key.yr,
			Year:  year,
			Mnth:  key.mnth,
			Month: month,
			Cnt:   sumAt(counts, groups[key]),
		})
	}
	return result, nil
}

// SeasonTotals 按季节代码分组求和, 最多 4 行
func (a *Aggregator) SeasonTotals(set dataset.FilteredSet) ([]SeasonTotal, error) {
	if set.Len() == 0 {
		return nil, nil
	}
	seasons, err := intColumn(set, dataset.ColSeason)
	if err != nil {
		return nil, err
	}
	counts, err := countColumn(set)
	if err != nil {
		return nil, err
	}

	order, groups := groupBy(len(seasons), func(i int) int { return seasons[i] })
	result := make([]SeasonTotal, 0, len(order))
	for _, season := range order {
		label, err := a.labels.Season(season)
		if err != nil {
			return nil, err
		}
		result = append(result, SeasonTotal{Season: season, Label: label, Cnt: sumAt(counts, groups[season])})
	}
	return result, nil
}

type seasonWeekday struct{ season, weekday int }

// SeasonWeekdayAverages 按(季节, 星期)分组求租赁数平均值, 最多 28 行
func (a *Aggregator) SeasonWeekdayAverages(set dataset.FilteredSet) ([]SeasonWeekdayAverage, error) {
	if set.Len() == 0 {
		return nil, nil
	}
	seasons, err := intColumn(set, dataset.ColSeason)
	if err != nil {
		return nil, err
	}
	weekdays, err := intColumn(set, dataset.ColWeekday)
	if err != nil {
		return nil, err
	}
	counts, err := countColumn(set)
	if err != nil {
		return nil, err
	}

	order, groups := groupBy(len(seasons), func(i int) seasonWeekday { return seasonWeekday{seasons[i], weekdays[i]} })
	result := make([]SeasonWeekdayAverage, 0, len(order))
	for _, key := range order {
		seasonLabel, err := a.labels.Season(key.season)
		if err != nil {
			return nil, err
		}
		weekdayLabel, err := a.labels.Weekday(key.weekday)
		if err != nil {
			return nil, err
		}
		values := make([]int, len(groups[key]))
		for j, idx := range groups[key] {
			values[j] = counts[idx]
		}
		result = append(result, SeasonWeekdayAverage{
			Season:       key.season,
			SeasonLabel:  seasonLabel,
			Weekday:      key.weekday,
			WeekdayLabel: weekdayLabel,
			Avg:          series.Ints(values).Mean(),
		})
	}
	return result, nil
}

// 默认(英文)聚合器的快捷函数
var defaultAggregator = NewAggregator(English())

func DailyTotals(set dataset.FilteredSet) ([]DailyTotal, error) {
	return defaultAggregator.DailyTotals(set)
}

func YearTotals(set dataset.FilteredSet) ([]YearTotal, error) {
	return defaultAggregator.YearTotals(set)
}

func MonthTotals(set dataset.FilteredSet) ([]MonthTotal, error) {
	return defaultAggregator.MonthTotals(set)
}

func SeasonTotals(set dataset.FilteredSet) ([]SeasonTotal, error) {
	return defaultAggregator.SeasonTotals(set)
}

func SeasonWeekdayAverages(set dataset.FilteredSet) ([]SeasonWeekdayAverage, error) {
	return defaultAggregator.SeasonWeekdayAverages(set)
}

// YearsForDisplay 按年份降序排列的副本, 柱状图使用
func YearsForDisplay(rows []YearTotal) []YearTotal {
	out := append([]YearTotal(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

// SeasonsForDisplay 按季节代码升序排列的副本, 柱状图使用
func SeasonsForDisplay(rows []SeasonTotal) []SeasonTotal {
	out := append([]SeasonTotal(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out
}

// groupBy 按首次出现的顺序分组, 返回键的顺序和每组的行号
func groupBy[K comparable](n int, key func(i int) K) ([]K, map[K][]int) {
	order := make([]K, 0)
	groups := make(map[K][]int)
	for i := 0; i < n; i++ {
		k := key(i)
		if _, exists := groups[k]; !exists {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	return order, groups
}

func sumAt(values []int, idx []int) int {
	total := 0
	for _, i := range idx {
		total += values[i]
	}
	return total
}

// intColumn 读取整数列, 缺列或非整数时返回 SchemaError
func intColumn(set dataset.FilteredSet, name string) ([]int, error) {
	if !set.HasColumn(name) {
		return nil, &SchemaError{Column: name, Err: ErrMissingColumn}
	}
	col := set.Frame().Col(name)
	if col.Type() == series.Bool {
		return nil, &SchemaError{Column: name, Err: errNotInteger}
	}
	values := make([]int, col.Len())
	for i := 0; i < col.Len(); i++ {
		el := col.Elem(i)
		if el.IsNA() {
			return nil, &SchemaError{Column: name, Row: i + 1, Err: ErrMissingValue}
		}
		if col.Type() == series.Float {
			f := el.Float()
			if f != math.Trunc(f) {
				return nil, &SchemaError{Column: name, Row: i + 1, Err: errNotInteger}
			}
		}
		v, err := el.Int()
		if err != nil {
			return nil, &SchemaError{Column: name, Row: i + 1, Err: err}
		}
		values[i] = v
	}
	return values, nil
}

// countColumn 租赁数列, 不允许负数
func countColumn(set dataset.FilteredSet) ([]int, error) {
	counts, err := intColumn(set, dataset.ColCount)
	if err != nil {
		return nil, err
	}
	for i, c := range counts {
		if c < 0 {
			return nil, &SchemaError{Column: dataset.ColCount, Row: i + 1, Err: ErrNegative}
		}
	}
	return counts, nil
}

func dateColumn(set dataset.FilteredSet) ([]time.Time, error) {
	if !set.HasColumn(dataset.ColDate) {
		return nil, &SchemaError{Column: dataset.ColDate, Err: ErrMissingColumn}
	}
	col := set.Frame().Col(dataset.ColDate)
	dates := make([]time.Time, col.Len())
	for i := 0; i < col.Len(); i++ {
		el := col.Elem(i)
		if el.IsNA() || el.String() == "" {
			return nil, &SchemaError{Column: dataset.ColDate, Row: i + 1, Err: ErrMissingValue}
		}
		d, err := dataset.ParseDay(el.String())
		if err != nil {
			return nil, &SchemaError{Column: dataset.ColDate, Row: i + 1, Err: err}
		}
		dates[i] = d
	}
	return dates, nil
}
