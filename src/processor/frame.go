package processor

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"BikeSharing/src/dataset"
)

// 导出表格使用的 sheet 名称
const (
	SheetDaily   = "Daily"
	SheetYear    = "Year"
	SheetMonth   = "Month"
	SheetSeason  = "Season"
	SheetWeekday = "SeasonWeekday"
)

// NamedFrame 带 sheet 名称的 DataFrame
type NamedFrame struct {
	Name  string
	Frame dataframe.DataFrame
}

// Frames 把各视图转换为 DataFrame, 顺序与图表一致
func (v *Views) Frames() []NamedFrame {
	return []NamedFrame{
		{SheetDaily, DailyFrame(v.Daily)},
		{SheetYear, YearFrame(v.Years)},
		{SheetMonth, MonthFrame(v.Months)},
		{SheetSeason, SeasonFrame(v.Seasons)},
		{SheetWeekday, SeasonWeekdayFrame(v.Weekdays)},
	}
}

func DailyFrame(rows []DailyTotal) dataframe.DataFrame {
	dates := make([]string, len(rows))
	records := make([]int, len(rows))
	counts := make([]int, len(rows))
	for i, r := range rows {
		dates[i] = r.Date.Format(dataset.DateLayout)
		records[i] = r.Records
		counts[i] = r.Cnt
	}
	return dataframe.New(
		series.New(dates, series.String, dataset.ColDate),
		series.New(records, series.Int, "records"),
		series.New(counts, series.Int, dataset.ColCount),
	)
}

func YearFrame(rows []YearTotal) dataframe.DataFrame {
	years := make([]int, len(rows))
	counts := make([]int, len(rows))
	for i, r := range rows {
		years[i] = r.Year
		counts[i] = r.Cnt
	}
	return dataframe.New(
		series.New(years, series.Int, "year"),
		series.New(counts, series.Int, dataset.ColCount),
	)
}

func MonthFrame(rows []MonthTotal) dataframe.DataFrame {
	years := make([]int, len(rows))
	months := make([]string, len(rows))
	counts := make([]int, len(rows))
	for i, r := range rows {
		years[i] = r.Year
		months[i] = r.Month
		counts[i] = r.Cnt
	}
	return dataframe.New(
		series.New(years, series.Int, "year"),
		series.New(months, series.String, "month"),
		series.New(counts, series.Int, dataset.ColCount),
	)
}

func SeasonFrame(rows []SeasonTotal) dataframe.DataFrame {
	labels := make([]string, len(rows))
	counts := make([]int, len(rows))
	for i, r := range rows {
		labels[i] = r.Label
		counts[i] = r.Cnt
	}
	return dataframe.New(
		series.New(labels, series.String, dataset.ColSeason),
		series.New(counts, series.Int, dataset.ColCount),
	)
}

func SeasonWeekdayFrame(rows []SeasonWeekdayAverage) dataframe.DataFrame {
	seasons := make([]string, len(rows))
	weekdays := make([]string, len(rows))
	avgs := make([]float64, len(rows))
	for i, r := range rows {
		seasons[i] = r.SeasonLabel
		weekdays[i] = r.WeekdayLabel
		avgs[i] = r.Avg
	}
	return dataframe.New(
		series.New(seasons, series.String, dataset.ColSeason),
		series.New(weekdays, series.String, dataset.ColWeekday),
		series.New(avgs, series.Float, "avg_cnt"),
	)
}
