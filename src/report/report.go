package report

import (
	"fmt"
	"time"

	"BikeSharing/src/dataset"
	"BikeSharing/src/processor"
)

// Options 生成报表的参数
type Options struct {
	Labels *processor.Labels // 为空时使用英文标签
}

// Report 一个日期范围内的五个视图和两个汇总指标
type Report struct {
	Range       dataset.DateRange
	Source      string
	GeneratedAt time.Time
	Labels      *processor.Labels
	Views       *processor.Views

	TotalRecords string // 按语言格式化的总记录数
	TotalCount   string // 按语言格式化的总租赁数
}

// Build 过滤数据并计算所有视图, 任一视图出错则不返回部分结果
func Build(ds *dataset.Dataset, r dataset.DateRange, opts Options) (*Report, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is not loaded")
	}
	labels := opts.Labels
	if labels == nil {
		labels = processor.English()
	}

	set, err := ds.Filter(r)
	if err != nil {
		return nil, err
	}
	views, err := processor.NewDataProcessor(set, processor.NewAggregator(labels)).CalculateMetrics()
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", r, err)
	}

	return &Report{
		Range:        r,
		Source:       ds.Source(),
		GeneratedAt:  time.Now(),
		Labels:       labels,
		Views:        views,
		TotalRecords: labels.FormatCount(views.Summary.TotalRecords),
		TotalCount:   labels.FormatCount(views.Summary.TotalCount),
	}, nil
}

// Empty 所选范围内没有任何记录
func (r *Report) Empty() bool {
	return r.Views == nil || len(r.Views.Daily) == 0
}

// Title 报表标题, 用于邮件主题和导出文件名
func (r *Report) Title() string {
	return fmt.Sprintf("Bike Sharing %s", r.Range)
}
