// data.go
package processor

import (
	"BikeSharing/src/dataset"
)

// Summary 所选范围的总记录数与总租赁数
type Summary struct {
	TotalRecords int
	TotalCount   int
}

// Summarize 由每日汇总计算总数
func Summarize(daily []DailyTotal) Summary {
	var s Summary
	for _, d := range daily {
		s.TotalRecords += d.Records
		s.TotalCount += d.Cnt
	}
	return s
}

// DataProcessor 对一个过滤结果执行全部聚合
type DataProcessor struct {
	set dataset.FilteredSet
	agg *Aggregator
}

func NewDataProcessor(set dataset.FilteredSet, agg *Aggregator) *DataProcessor {
	if agg == nil {
		agg = defaultAggregator
	}
	return &DataProcessor{set: set, agg: agg}
}

// Views 五个视图的计算结果
type Views struct {
	Daily    []DailyTotal
	Years    []YearTotal
	Months   []MonthTotal
	Seasons  []SeasonTotal
	Weekdays []SeasonWeekdayAverage
	Summary  Summary
}

// CalculateMetrics 依次计算所有视图, 任一视图出错即返回
func (p *DataProcessor) CalculateMetrics() (*Views, error) {
	var (
		v   Views
		err error
	)
	if v.Daily, err = p.agg.DailyTotals(p.set); err != nil {
		return nil, err
	}
	if v.Years, err = p.agg.YearTotals(p.set); err != nil {
		return nil, err
	}
	if v.Months, err = p.agg.MonthTotals(p.set); err != nil {
		return nil, err
	}
	if v.Seasons, err = p.agg.SeasonTotals(p.set); err != nil {
		return nil, err
	}
	if v.Weekdays, err = p.agg.SeasonWeekdayAverages(p.set); err != nil {
		return nil, err
	}
	v.Summary = Summarize(v.Daily)
	return &v, nil
}
