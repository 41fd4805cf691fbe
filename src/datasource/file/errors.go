package file

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupported   = errors.New("unsupported file type")
	ErrMissingColumn = errors.New("required column is missing")
	ErrEmptyValue    = errors.New("value is empty")
	ErrNegativeCount = errors.New("rental count is negative")
)

// LoadError 数据文件无法加载, 启动时遇到即退出
// Row 为文件中的行号(表头为第 1 行), 0 表示与具体行无关
type LoadError struct {
	Path   string
	Row    int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("load %s: row %d column %q: %v", e.Path, e.Row, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("load %s: column %q: %v", e.Path, e.Column, e.Err)
	default:
		return fmt.Sprintf("load %s: %v", e.Path, e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }
