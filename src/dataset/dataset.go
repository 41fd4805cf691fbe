package dataset

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 数据集的逻辑字段名
const (
	ColInstant = "instant"
	ColDate    = "dteday"
	ColYear    = "yr"
	ColMonth   = "mnth"
	ColSeason  = "season"
	ColWeekday = "weekday"
	ColCount   = "cnt"
)

// RequiredColumns 数据文件必须包含的字段
var RequiredColumns = []string{ColInstant, ColDate, ColYear, ColMonth, ColSeason, ColWeekday, ColCount}

// IntColumns 必须是整数的字段
var IntColumns = []string{ColInstant, ColYear, ColMonth, ColSeason, ColWeekday, ColCount}

// Record 一天的租赁记录
type Record struct {
	Instant int
	Date    time.Time
	Yr      int
	Mnth    int
	Season  int
	Weekday int
	Cnt     int
}

// Dataset 全量记录的只读句柄, 启动时加载一次, 之后不再修改
type Dataset struct {
	df       dataframe.DataFrame
	min      time.Time
	max      time.Time
	source   string
	loadedAt time.Time
}

// New 由加载器构建的 DataFrame 创建数据集
// df 中 dteday 列为 "2006-01-02" 格式的字符串, 其余必需列为整数
func New(df dataframe.DataFrame, source string) (*Dataset, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	for _, col := range RequiredColumns {
		if !hasColumn(df, col) {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("dataset %s has no rows", source)
	}

	sorted := df.Arrange(dataframe.Sort(ColDate))
	if sorted.Err != nil {
		return nil, fmt.Errorf("sort by %s: %w", ColDate, sorted.Err)
	}

	dates := sorted.Col(ColDate).Records()
	first, err := ParseDay(dates[0])
	if err != nil {
		return nil, fmt.Errorf("row 1 %s: %w", ColDate, err)
	}
	last, err := ParseDay(dates[len(dates)-1])
	if err != nil {
		return nil, fmt.Errorf("row %d %s: %w", len(dates), ColDate, err)
	}

	return &Dataset{
		df:       sorted,
		min:      first,
		max:      last,
		source:   source,
		loadedAt: time.Now(),
	}, nil
}

// FromRecords 由记录切片构建数据集
func FromRecords(records []Record, source string) (*Dataset, error) {
	return New(recordsFrame(records), source)
}

// Min 数据集中最早的日期
func (d *Dataset) Min() time.Time { return d.min }

// Max 数据集中最晚的日期
func (d *Dataset) Max() time.Time { return d.max }

// Source 数据来源文件
func (d *Dataset) Source() string { return d.source }

// LoadedAt 加载时间
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Len 记录条数
func (d *Dataset) Len() int { return d.df.Nrow() }

// FullRange 数据集的完整日期范围, 也是默认选择
func (d *Dataset) FullRange() DateRange {
	return DateRange{Start: d.min, End: d.max}
}

// Filter 按日期闭区间过滤记录
func (d *Dataset) Filter(r DateRange) (FilteredSet, error) {
	if err := d.checkRange(r); err != nil {
		return FilteredSet{}, err
	}

	start := r.Start.Format(DateLayout)
	end := r.End.Format(DateLayout)
	filtered := d.df.Filter(
		dataframe.F{
			Colname:    ColDate,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				day := el.String()
				return day >= start && day <= end
			},
		},
	)
	if filtered.Err != nil {
		return FilteredSet{}, fmt.Errorf("filter %s: %w", r, filtered.Err)
	}
	return FilteredSet{df: filtered}, nil
}

// Clamp 把用户选择的日期限制在数据范围内
// 零值表示未选择, 分别取数据集的最早/最晚日期; 起止颠倒或完全落在数据范围之外时返回 RangeError
func (d *Dataset) Clamp(start, end time.Time) (DateRange, error) {
	if start.IsZero() {
		start = d.min
	}
	if end.IsZero() {
		end = d.max
	}
	start, end = Day(start), Day(end)

	if start.After(end) {
		return DateRange{}, &RangeError{Start: start, End: end, Min: d.min, Max: d.max, Reason: "start date is after end date"}
	}
	if end.Before(d.min) || start.After(d.max) {
		return DateRange{}, &RangeError{Start: start, End: end, Min: d.min, Max: d.max, Reason: "range lies outside the dataset"}
	}
	if start.Before(d.min) {
		start = d.min
	}
	if end.After(d.max) {
		end = d.max
	}
	return DateRange{Start: start, End: end}, nil
}

func (d *Dataset) checkRange(r DateRange) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return &RangeError{Start: r.Start, End: r.End, Min: d.min, Max: d.max, Reason: "range is empty"}
	}
	if r.Start.After(r.End) {
		return &RangeError{Start: r.Start, End: r.End, Min: d.min, Max: d.max, Reason: "start date is after end date"}
	}
	if r.Start.Before(d.min) || r.End.After(d.max) {
		return &RangeError{Start: r.Start, End: r.End, Min: d.min, Max: d.max, Reason: "range exceeds dataset bounds"}
	}
	return nil
}

// 辅助函数：判断DataFrame是否有某列
func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func recordsFrame(records []Record) dataframe.DataFrame {
	n := len(records)
	instants := make([]int, n)
	dates := make([]string, n)
	years := make([]int, n)
	months := make([]int, n)
	seasons := make([]int, n)
	weekdays := make([]int, n)
	counts := make([]int, n)
	for i, r := range records {
		instants[i] = r.Instant
		dates[i] = r.Date.Format(DateLayout)
		years[i] = r.Yr
		months[i] = r.Mnth
		seasons[i] = r.Season
		weekdays[i] = r.Weekday
		counts[i] = r.Cnt
	}
	return dataframe.New(
		series.New(instants, series.Int, ColInstant),
		series.New(dates, series.String, ColDate),
		series.New(years, series.Int, ColYear),
		series.New(months, series.Int, ColMonth),
		series.New(seasons, series.Int, ColSeason),
		series.New(weekdays, series.Int, ColWeekday),
		series.New(counts, series.Int, ColCount),
	)
}
