package processor

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn = errors.New("required column is missing")
	ErrMissingValue  = errors.New("value is missing")
	ErrNegative      = errors.New("value must not be negative")

	errNotInteger = errors.New("value is not an integer")
)

// SchemaError 必需字段缺失或不是数值
// Row 从 1 开始, 0 表示整列的问题
type SchemaError struct {
	Column string
	Row    int
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("schema error: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("schema error: column %q row %d: %v", e.Column, e.Row, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// LabelMapError 类别代码超出标签表范围
type LabelMapError struct {
	Table string
	Code  int
}

func (e *LabelMapError) Error() string {
	return fmt.Sprintf("label map error: %s code %d has no label", e.Table, e.Code)
}
