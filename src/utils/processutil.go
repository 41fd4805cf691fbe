package utils

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"

	"BikeSharing/src/render"
	"BikeSharing/src/report"
)

const (
	SheetSummary = "Summary"
	SheetCharts  = "Charts"

	chartScale = 0.5
	rowHeight  = 20 // excelize 默认行高约 20 像素
)

// ReportFileName 报表文件名, 例如 bike-sharing_2011-01-01_2012-12-31.xlsx
func ReportFileName(rep *report.Report) string {
	return fmt.Sprintf("bike-sharing_%s_%s.xlsx",
		rep.Range.Start.Format("2006-01-02"), rep.Range.End.Format("2006-01-02"))
}

// NewWorkbook 汇总 sheet + 每个视图一个 sheet, charts 不为空时追加图表 sheet
func NewWorkbook(rep *report.Report, charts []render.Image) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, rep); err != nil {
		f.Close()
		return nil, err
	}

	for _, nf := range rep.Views.Frames() {
		if _, err := f.NewSheet(nf.Name); err != nil {
			f.Close()
			return nil, err
		}
		if err := writeFrame(f, nf.Name, nf.Frame); err != nil {
			f.Close()
			return nil, fmt.Errorf("写入 %s 失败: %w", nf.Name, err)
		}
	}

	if len(charts) > 0 {
		if err := addCharts(f, charts); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// SaveReport 保存报表到文件, 目录不存在时自动创建
func SaveReport(path string, rep *report.Report, charts []render.Image) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := NewWorkbook(rep, charts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// WriteReport 把报表写入 w, 用于 HTTP 下载
func WriteReport(w io.Writer, rep *report.Report, charts []render.Image) error {
	f, err := NewWorkbook(rep, charts)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func writeSummary(f *excelize.File, rep *report.Report) error {
	rows := [][]interface{}{
		{"Source", rep.Source},
		{"Start", rep.Range.Start.Format("2006-01-02")},
		{"End", rep.Range.End.Format("2006-01-02")},
		{"Total records", rep.Views.Summary.TotalRecords},
		{"Total rentals", rep.Views.Summary.TotalCount},
		{"Generated at", rep.GeneratedAt.Format(time.DateTime)},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "B", 24)
}

// writeFrame 写入列名和数据
func writeFrame(f *excelize.File, sheetName string, df dataframe.DataFrame) error {
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}
	}

	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		for colIdx, colName := range colNames {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, df.Col(colName).Val(rowIdx)); err != nil {
				return err
			}
		}
	}

	if len(colNames) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(len(colNames), 1)
		if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(colNames))
		if err := f.SetColWidth(sheetName, "A", lastCol, 16); err != nil {
			return err
		}
	}
	return nil
}

// addCharts 图表依次纵向排列
func addCharts(f *excelize.File, charts []render.Image) error {
	if _, err := f.NewSheet(SheetCharts); err != nil {
		return err
	}
	row := 1
	for _, img := range charts {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(img.PNG))
		if err != nil {
			return fmt.Errorf("图表 %s 无法解析: %w", img.Name, err)
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		err = f.AddPictureFromBytes(SheetCharts, cell, &excelize.Picture{
			Extension: ".png",
			File:      img.PNG,
			Format: &excelize.GraphicOptions{
				AltText: img.Name,
				ScaleX:  chartScale,
				ScaleY:  chartScale,
			},
		})
		if err != nil {
			return fmt.Errorf("插入图表 %s 失败: %w", img.Name, err)
		}
		row += int(float64(cfg.Height)*chartScale)/rowHeight + 2
	}
	return nil
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}
