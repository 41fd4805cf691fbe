// reader.go
package file

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"BikeSharing/src/config"
	"BikeSharing/src/dataset"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// Loader 按列映射读取共享单车日数据文件
type Loader struct {
	dcfg  *config.DataConfig
	sheet string // xlsx 工作表名, 为空时读取第一个工作表
}

// NewLoader dcfg 为空时所有字段与源列同名
func NewLoader(dcfg *config.DataConfig) *Loader {
	if dcfg == nil {
		dcfg = config.DefaultDataConfig()
	}
	return &Loader{dcfg: dcfg, sheet: dcfg.Sheet}
}

// WithSheet 指定 xlsx 工作表
func (l *Loader) WithSheet(name string) *Loader {
	l.sheet = name
	return l
}

// Load 使用默认列映射加载文件
func Load(path string) (*dataset.Dataset, error) {
	return NewLoader(nil).Load(path)
}

// Load 读取 csv/xlsx 文件并构建数据集
// 任何一行不合法都会使整个加载失败, 不会跳过行
func (l *Loader) Load(path string) (*dataset.Dataset, error) {
	var (
		df    dataframe.DataFrame
		lines []int
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		df, err = ReadCSV(path)
	case ".xlsx":
		df, lines, err = readXLSX(path, l.sheet)
	default:
		return nil, &LoadError{Path: path, Err: ErrUnsupported}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	typed, err := l.convert(path, df, lines)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.New(typed, path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return ds, nil
}

// ReadCSV 所有列按字符串读取, 类型转换由 convert 完成
func ReadCSV(filePath string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read csv: %w", df.Err)
	}
	return df, nil
}

// ReadXLSX 读取工作表为字符串列, 第一行为标题行
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	df, _, err := readXLSX(filePath, sheetName)
	return df, err
}

// readXLSX 同时返回每个数据行在工作表中的行号(从 1 开始, 标题为第 1 行)
func readXLSX(filePath, sheetName string) (dataframe.DataFrame, []int, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, nil, fmt.Errorf("xlsx open file: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, nil, fmt.Errorf("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		var ok bool
		if sheet, ok = xlFile.Sheet[sheetName]; !ok {
			return dataframe.DataFrame{}, nil, fmt.Errorf("工作表 %q 不存在", sheetName)
		}
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
// 第一行为标题行, 完全空白的行不计入数据, lines 记录保留下来的行在表中的行号
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, []int, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.DataFrame{}, nil, fmt.Errorf("工作表 %s 为空", sheet.Name)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}

	columns := make([][]string, len(headers))
	var lines []int
	for idx, row := range sheet.Rows[1:] {
		if row == nil || blankRow(row) {
			continue
		}
		lines = append(lines, idx+2)
		for i := range headers {
			value := ""
			if i < len(row.Cells) && row.Cells[i] != nil {
				value = row.Cells[i].Value
			}
			columns[i] = append(columns[i], value)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}
	df := dataframe.New(seriesList...)
	return df, lines, df.Err
}

func blankRow(row *xlsx.Row) bool {
	for _, cell := range row.Cells {
		if cell != nil && strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}

// convert 按列映射取出必需字段并转换类型, 列名统一为逻辑字段名
// lines 为 nil 时第 i 个数据行位于文件第 i+2 行
func (l *Loader) convert(path string, df dataframe.DataFrame, lines []int) (dataframe.DataFrame, error) {
	line := func(i int) int {
		if i < len(lines) {
			return lines[i]
		}
		return i + 2
	}
	cols := make([]series.Series, 0, len(dataset.RequiredColumns))
	for _, name := range dataset.RequiredColumns {
		src := l.dcfg.GetColumn(name)
		if !hasColumn(df, src) {
			return dataframe.DataFrame{}, &LoadError{Path: path, Column: src, Err: ErrMissingColumn}
		}
		raw := df.Col(src)

		if name == dataset.ColDate {
			dates := make([]string, raw.Len())
			for i := 0; i < raw.Len(); i++ {
				d, err := parseDate(raw.Elem(i))
				if err != nil {
					return dataframe.DataFrame{}, &LoadError{Path: path, Row: line(i), Column: src, Err: err}
				}
				dates[i] = d.Format(dataset.DateLayout)
			}
			cols = append(cols, series.New(dates, series.String, name))
			continue
		}

		values := make([]int, raw.Len())
		for i := 0; i < raw.Len(); i++ {
			v, err := parseInt(raw.Elem(i))
			if err == nil && name == dataset.ColCount && v < 0 {
				err = ErrNegativeCount
			}
			if err != nil {
				return dataframe.DataFrame{}, &LoadError{Path: path, Row: line(i), Column: src, Err: err}
			}
			values[i] = v
		}
		cols = append(cols, series.New(values, series.Int, name))
	}
	return dataframe.New(cols...), nil
}

func cellString(el series.Element) (string, bool) {
	if el.IsNA() {
		return "", false
	}
	s := strings.TrimSpace(el.String())
	return s, s != ""
}

func parseInt(el series.Element) (int, error) {
	s, ok := cellString(el)
	if !ok {
		return 0, ErrEmptyValue
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	// xlsx 数值单元格可能带小数部分, 例如 "985.0"
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}

// parseDate 支持文本日期和 Excel 日期序列号
func parseDate(el series.Element) (time.Time, error) {
	s, ok := cellString(el)
	if !ok {
		return time.Time{}, ErrEmptyValue
	}
	if d, err := dataset.ParseDay(s); err == nil {
		return d, nil
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return dataset.Day(excelToTime(serial)), nil
}

// excel时间类型转time.Time类型
func excelToTime(excelDays float64) time.Time {
	// 1900 年闰年错误: 序列号 60 对应不存在的 1900-02-29, 之前的日期基准后移一天
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	if excelDays < 61 {
		base = base.AddDate(0, 0, 1)
	}
	days := int(excelDays)
	fraction := excelDays - float64(days)

	return base.AddDate(0, 0, days).
		Add(time.Duration(86400*fraction*1e9) * time.Nanosecond)
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
