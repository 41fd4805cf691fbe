package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"BikeSharing/src/config"
	"BikeSharing/src/dataset"

	"github.com/tealeg/xlsx"
)

const dayCSV = `instant,dteday,season,yr,mnth,holiday,weekday,workingday,weathersit,temp,atemp,hum,windspeed,casual,registered,cnt
1,2011-01-01,1,0,1,0,6,0,2,0.344167,0.363625,0.805833,0.160446,331,654,985
2,2011-01-02,1,0,1,0,0,0,2,0.363478,0.353739,0.696087,0.248539,131,670,801
3,2011-01-03,1,0,1,0,1,1,1,0.196364,0.189405,0.437273,0.248309,120,1229,1349
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "day.csv", dayCSV)
	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 3 {
		t.Errorf("Len: got %d, want 3", ds.Len())
	}
	if got := ds.Min().Format(dataset.DateLayout); got != "2011-01-01" {
		t.Errorf("Min: got %s", got)
	}
	if got := ds.Max().Format(dataset.DateLayout); got != "2011-01-03" {
		t.Errorf("Max: got %s", got)
	}
	if ds.Source() != path {
		t.Errorf("Source: got %s", ds.Source())
	}

	set, err := ds.Filter(ds.FullRange())
	if err != nil {
		t.Fatal(err)
	}
	counts, err := set.Frame().Col(dataset.ColCount).Int()
	if err != nil {
		t.Fatal(err)
	}
	if counts[0]+counts[1]+counts[2] != 985+801+1349 {
		t.Errorf("counts: got %v", counts)
	}
}

func TestLoadColumnMapping(t *testing.T) {
	csv := strings.Replace(dayCSV, "dteday", "date", 1)
	path := writeFile(t, "day.csv", csv)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing column error")
	}

	dcfg := config.DefaultDataConfig()
	dcfg.SetColumn(dataset.ColDate, "date")
	ds, err := NewLoader(dcfg).Load(path)
	if err != nil {
		t.Fatalf("Load with mapping: %v", err)
	}
	if ds.Len() != 3 {
		t.Errorf("Len: got %d", ds.Len())
	}
}

func TestLoadErrors(t *testing.T) {
	header := "instant,dteday,season,yr,mnth,weekday,cnt\n"
	tests := []struct {
		name    string
		file    string
		content string
		row     int
		column  string
		want    error
	}{
		{"missing column", "day.csv", "instant,dteday,season,yr,mnth,weekday\n1,2011-01-01,1,0,1,6\n", 0, "cnt", ErrMissingColumn},
		{"empty count", "day.csv", header + "1,2011-01-01,1,0,1,6,985\n2,2011-01-02,1,0,1,0,\n", 3, "cnt", ErrEmptyValue},
		{"negative count", "day.csv", header + "1,2011-01-01,1,0,1,6,-5\n", 2, "cnt", ErrNegativeCount},
		{"text season", "day.csv", header + "1,2011-01-01,spring,0,1,6,985\n", 2, "season", nil},
		{"bad date", "day.csv", header + "1,01.01.2011,1,0,1,6,985\n", 2, "dteday", nil},
		{"fraction", "day.csv", header + "1,2011-01-01,1,0,1,6,98.5\n", 2, "cnt", nil},
		{"unsupported", "day.json", "{}", 0, "", ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := Load(path)
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("got %v, want LoadError", err)
			}
			if loadErr.Path != path {
				t.Errorf("Path: got %s", loadErr.Path)
			}
			if loadErr.Row != tt.row || loadErr.Column != tt.column {
				t.Errorf("got row %d column %q, want row %d column %q", loadErr.Row, loadErr.Column, tt.row, tt.column)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("got %v, want LoadError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
}

func TestLoadXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("day")
	if err != nil {
		t.Fatal(err)
	}
	row := sheet.AddRow()
	for _, h := range []string{"instant", "dteday", "season", "yr", "mnth", "weekday", "cnt"} {
		row.AddCell().SetString(h)
	}

	row = sheet.AddRow()
	row.AddCell().SetInt(1)
	row.AddCell().SetString("2011-01-01")
	for _, v := range []int{1, 0, 1, 6, 985} {
		row.AddCell().SetInt(v)
	}

	// 日期以 Excel 序列号保存
	row = sheet.AddRow()
	row.AddCell().SetInt(2)
	row.AddCell().SetInt(40545)
	for _, v := range []int{1, 0, 1, 0, 801} {
		row.AddCell().SetInt(v)
	}

	path := filepath.Join(t.TempDir(), "day.xlsx")
	if err := f.Save(path); err != nil {
		t.Fatal(err)
	}

	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 2 {
		t.Errorf("Len: got %d, want 2", ds.Len())
	}
	if got := ds.Max().Format(dataset.DateLayout); got != "2011-01-02" {
		t.Errorf("Max: got %s, want 2011-01-02", got)
	}

	if _, err := NewLoader(nil).WithSheet("missing").Load(path); err == nil {
		t.Errorf("expected error for missing sheet")
	}
}

func TestLoadXLSXRowAfterBlank(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("day")
	if err != nil {
		t.Fatal(err)
	}
	row := sheet.AddRow()
	for _, h := range []string{"instant", "dteday", "season", "yr", "mnth", "weekday", "cnt"} {
		row.AddCell().SetString(h)
	}
	row = sheet.AddRow()
	row.AddCell().SetInt(1)
	row.AddCell().SetString("2011-01-01")
	for _, v := range []int{1, 0, 1, 6, 985} {
		row.AddCell().SetInt(v)
	}

	// 第 3 行空白, 第 4 行的 cnt 为负数
	sheet.AddRow().AddCell().SetString("")
	row = sheet.AddRow()
	row.AddCell().SetInt(2)
	row.AddCell().SetString("2011-01-02")
	for _, v := range []int{1, 0, 1, 0, -5} {
		row.AddCell().SetInt(v)
	}

	path := filepath.Join(t.TempDir(), "day.xlsx")
	if err := f.Save(path); err != nil {
		t.Fatal(err)
	}

	_, err = Load(path)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("got %v, want LoadError", err)
	}
	if loadErr.Row != 4 || loadErr.Column != "cnt" || !errors.Is(err, ErrNegativeCount) {
		t.Errorf("got row %d column %q err %v, want row 4 column cnt", loadErr.Row, loadErr.Column, loadErr.Err)
	}
}

func TestExcelToTime(t *testing.T) {
	tests := []struct {
		serial float64
		want   string
	}{
		{1, "1900-01-01"},
		{59, "1900-02-28"},
		{61, "1900-03-01"},
		{40544, "2011-01-01"},
		{41274, "2012-12-31"},
	}
	for _, tt := range tests {
		if got := excelToTime(tt.serial).Format(dataset.DateLayout); got != tt.want {
			t.Errorf("excelToTime(%v): got %s, want %s", tt.serial, got, tt.want)
		}
	}
	if got := excelToTime(40544.5); got.Hour() != 12 {
		t.Errorf("fraction: got %s", got)
	}
}

func TestFileMonitor(t *testing.T) {
	path := writeFile(t, "day.csv", dayCSV)
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	m, err := NewFileMonitor(path)
	if err != nil {
		t.Fatalf("NewFileMonitor: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, func(name string) { changed <- name }) }()

	// 其他文件的变化不应触发
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.csv"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(dayCSV), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-changed:
		if name != m.Target() {
			t.Errorf("handler got %s, want %s", name, m.Target())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestFileMonitorBurstWrite(t *testing.T) {
	path := writeFile(t, "day.csv", dayCSV)
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	m, err := NewFileMonitor(path)
	if err != nil {
		t.Fatalf("NewFileMonitor: %v", err)
	}
	m.SetDebounce(300 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu         sync.Mutex
		running    int
		maxRunning int
		rows       []int
	)
	loaded := make(chan struct{}, 8)
	go m.Watch(ctx, func(name string) {
		mu.Lock()
		running++
		maxRunning = max(maxRunning, running)
		mu.Unlock()

		ds, err := Load(name)
		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		running--
		if err == nil {
			rows = append(rows, ds.Len())
		}
		mu.Unlock()
		loaded <- struct{}{}
	})

	// 标题和数据行分块写入, 每块之间都是一个合法的 csv
	lines := strings.SplitAfter(strings.TrimSuffix(dayCSV, "\n"), "\n")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range lines {
		if _, err := f.WriteString(line); err != nil {
			t.Fatal(err)
		}
		f.Sync()
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := f.WriteString("\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	select {
	case <-loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after burst")
	}
	// 再等一个 debounce 周期, 确认没有多余的重新加载
	time.Sleep(600 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if maxRunning != 1 {
		t.Errorf("concurrent handlers: got %d, want 1", maxRunning)
	}
	want := len(lines) - 1
	if len(rows) != 1 || rows[0] != want {
		t.Errorf("reloads saw row counts %v, want [%d]", rows, want)
	}
}
