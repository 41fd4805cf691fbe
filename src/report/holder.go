package report

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"BikeSharing/src/dataset"
	"BikeSharing/src/processor"
)

// Holder 持有当前数据集; 重新加载时整体替换, 已取得旧句柄的读者不受影响
type Holder struct {
	ds       atomic.Pointer[dataset.Dataset]
	labels   *processor.Labels
	reloadMu sync.Mutex // 同一时间只有一次重新加载
}

func NewHolder(ds *dataset.Dataset, labels *processor.Labels) *Holder {
	if labels == nil {
		labels = processor.English()
	}
	h := &Holder{labels: labels}
	h.ds.Store(ds)
	return h
}

// Dataset 当前数据集
func (h *Holder) Dataset() *dataset.Dataset { return h.ds.Load() }

// Labels 报表使用的标签表
func (h *Holder) Labels() *processor.Labels { return h.labels }

// Swap 替换数据集并返回旧的数据集
func (h *Holder) Swap(ds *dataset.Dataset) *dataset.Dataset {
	return h.ds.Swap(ds)
}

// Reload 调用 load 构建新数据集, 失败时保留当前数据集
// 并发调用按顺序执行, 最后一次成功的加载生效
func (h *Holder) Reload(load func() (*dataset.Dataset, error)) (*dataset.Dataset, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	ds, err := load()
	if err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	h.Swap(ds)
	return ds, nil
}

// Range 把用户输入限制在当前数据集范围内, 零值表示使用数据集边界
func (h *Holder) Range(start, end time.Time) (dataset.DateRange, error) {
	ds := h.Dataset()
	if ds == nil {
		return dataset.DateRange{}, fmt.Errorf("dataset is not loaded")
	}
	return ds.Clamp(start, end)
}

// Build 对当前数据集生成报表
func (h *Holder) Build(start, end time.Time) (*Report, error) {
	ds := h.Dataset()
	if ds == nil {
		return nil, fmt.Errorf("dataset is not loaded")
	}
	r, err := ds.Clamp(start, end)
	if err != nil {
		return nil, err
	}
	return Build(ds, r, Options{Labels: h.labels})
}
