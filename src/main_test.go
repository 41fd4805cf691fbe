package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"BikeSharing/src/config"
	"BikeSharing/src/datasource/file"
	"BikeSharing/src/processor"
	"BikeSharing/src/storage"
)

const dayCSV = `instant,dteday,season,yr,mnth,holiday,weekday,workingday,weathersit,cnt
1,2011-01-01,1,0,1,0,6,0,2,985
2,2011-01-02,1,0,1,0,0,0,2,801
3,2011-01-03,1,0,1,0,1,1,1,1349
4,2012-12-31,1,1,12,0,1,1,2,2729
`

func testApp(t *testing.T, csv string) *app {
	t.Helper()
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "day.csv")
	if err := os.WriteFile(dataFile, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{DataFile: dataFile}
	cfg.Report.Dir = filepath.Join(dir, "reports")
	cfg.Report.Charts = true
	cfg.SetDefaults()
	cfg.Chart.Width, cfg.Chart.Height = 480, 240

	logger, err := storage.NewLogger(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { logger.Close() })

	a, err := newApp(cfg, config.DefaultDataConfig(), logger)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return a
}

func TestNewAppLoadError(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "day.csv")
	csv := strings.Replace(dayCSV, "2011-01-02,1,0,1,0,0,0,2,801", "2011-01-02,1,0,1,0,0,0,2,", 1)
	if err := os.WriteFile(dataFile, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{DataFile: dataFile}
	cfg.SetDefaults()
	logger, err := storage.NewLogger(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	_, err = newApp(cfg, config.DefaultDataConfig(), logger)
	var loadErr *file.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("got %v, want LoadError", err)
	}
	if loadErr.Row != 3 || loadErr.Column != "cnt" {
		t.Errorf("got row %d column %q", loadErr.Row, loadErr.Column)
	}
}

func TestNewAppLocale(t *testing.T) {
	a := testApp(t, dayCSV)
	if a.holder.Labels().Locale != processor.English().Locale {
		t.Errorf("default locale should be English")
	}

	a.cfg.Locale = "id-ID"
	b, err := newApp(a.cfg, config.DefaultDataConfig(), a.logger)
	if err != nil {
		t.Fatal(err)
	}
	if b.holder.Labels().Locale != processor.Indonesian().Locale {
		t.Errorf("id-ID should select Indonesian labels")
	}
}

func TestExport(t *testing.T) {
	a := testApp(t, dayCSV)
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")

	start, _ := time.Parse("2006-01-02", "2011-01-01")
	end, _ := time.Parse("2006-01-02", "2011-01-02")
	if err := a.export(path, start, end); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(processor.SheetDaily)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("daily rows: got %d, want header + 2", len(rows))
	}
	if v, _ := f.GetCellValue(processor.SheetYear, "B2"); v != "1786" {
		t.Errorf("year total: got %s", v)
	}

	inverted := filepath.Join(t.TempDir(), "inverted.xlsx")
	if err := a.export(inverted, end, start); err == nil {
		t.Errorf("expected error for inverted range")
	}
	if _, err := os.Stat(inverted); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("no workbook expected for a rejected range")
	}
}

func TestScheduledReport(t *testing.T) {
	a := testApp(t, dayCSV)
	a.scheduledReport()

	path := filepath.Join(a.cfg.Report.Dir, "bike-sharing_2011-01-01_2012-12-31.xlsx")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("scheduled report not written: %v", err)
	}
}

func TestReload(t *testing.T) {
	a := testApp(t, dayCSV)
	before := a.holder.Dataset()

	// 损坏的文件不替换当前数据
	if err := os.WriteFile(a.cfg.DataFile, []byte("instant,dteday\n1,2011-01-01\n"), 0644); err != nil {
		t.Fatal(err)
	}
	a.reload(a.cfg.DataFile)
	if a.holder.Dataset() != before {
		t.Errorf("failed reload should keep the old dataset")
	}

	extra := dayCSV + "5,2013-01-01,1,1,1,0,2,1,1,100\n"
	if err := os.WriteFile(a.cfg.DataFile, []byte(extra), 0644); err != nil {
		t.Fatal(err)
	}
	a.reload(a.cfg.DataFile)
	if got := a.holder.Dataset().Len(); got != 5 {
		t.Errorf("records after reload: got %d, want 5", got)
	}
}

func TestWritePidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "bike-sharing.pid")
	if err := writePidFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid != os.Getpid() {
		t.Errorf("pid file: got %q", data)
	}
}
