package dataset

import (
	"github.com/go-gota/gota/dataframe"
)

// FilteredSet 落在所选日期范围内的记录, 每次范围变化时重新生成
type FilteredSet struct {
	df dataframe.DataFrame
}

// NewFilteredSet 由记录直接构建过滤结果
func NewFilteredSet(records []Record) FilteredSet {
	return FilteredSet{df: recordsFrame(records)}
}

// FromFrame 包装任意 DataFrame, 列的校验推迟到聚合时进行
func FromFrame(df dataframe.DataFrame) FilteredSet {
	return FilteredSet{df: df}
}

// Frame 底层 DataFrame
func (s FilteredSet) Frame() dataframe.DataFrame { return s.df }

// Len 记录条数
func (s FilteredSet) Len() int { return s.df.Nrow() }

// HasColumn 是否包含某列
func (s FilteredSet) HasColumn(name string) bool { return hasColumn(s.df, name) }
