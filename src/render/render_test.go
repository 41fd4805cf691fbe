package render

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"BikeSharing/src/dataset"
	"BikeSharing/src/processor"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func day(s string) time.Time {
	t, err := time.Parse(dataset.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleViews(t *testing.T) *processor.Views {
	t.Helper()
	set := dataset.NewFilteredSet([]dataset.Record{
		{Instant: 1, Date: day("2011-01-01"), Yr: 0, Mnth: 1, Season: 1, Weekday: 6, Cnt: 985},
		{Instant: 2, Date: day("2011-01-02"), Yr: 0, Mnth: 1, Season: 1, Weekday: 0, Cnt: 801},
		{Instant: 3, Date: day("2011-05-03"), Yr: 0, Mnth: 5, Season: 2, Weekday: 2, Cnt: 4451},
		{Instant: 4, Date: day("2011-08-04"), Yr: 0, Mnth: 8, Season: 3, Weekday: 4, Cnt: 5464},
		{Instant: 5, Date: day("2011-11-05"), Yr: 0, Mnth: 11, Season: 4, Weekday: 6, Cnt: 3520},
		{Instant: 6, Date: day("2012-01-01"), Yr: 1, Mnth: 1, Season: 1, Weekday: 0, Cnt: 2294},
	})
	v, err := processor.NewDataProcessor(set, nil).CalculateMetrics()
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestRenderAll(t *testing.T) {
	r := New(640, 320, nil)
	images, err := r.All(sampleViews(t))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(images) != len(ChartNames) {
		t.Fatalf("got %d images", len(images))
	}
	for i, img := range images {
		if img.Name != ChartNames[i] {
			t.Errorf("image %d: got name %s", i, img.Name)
		}
		if !bytes.HasPrefix(img.PNG, pngMagic) {
			t.Errorf("%s: not a PNG", img.Name)
		}
	}
}

func TestRenderIndonesian(t *testing.T) {
	r := New(640, 320, processor.Indonesian())
	if _, err := r.Chart(ChartMonth, sampleViews(t)); err != nil {
		t.Fatalf("Month: %v", err)
	}
}

func TestRenderSingleDay(t *testing.T) {
	r := New(0, 0, nil)
	if r.Width != 1280 || r.Height != 640 {
		t.Errorf("default size: %dx%d", r.Width, r.Height)
	}
	png, err := r.Daily([]processor.DailyTotal{{Date: day("2011-01-01"), Records: 1, Cnt: 0}})
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Errorf("not a PNG")
	}

	// 单日只画一个点, 轴范围在点的两侧展开
	xs, ys, xRange, _ := dailyPoints([]processor.DailyTotal{{Date: day("2011-01-01"), Records: 1, Cnt: 985}})
	if len(xs) != 1 || len(ys) != 1 || ys[0] != 985 {
		t.Fatalf("points: got xs=%v ys=%v, want one point", xs, ys)
	}
	if !(xRange.Min < xs[0] && xs[0] < xRange.Max) {
		t.Errorf("range %v..%v does not surround %v", xRange.Min, xRange.Max, xs[0])
	}

	xs, _, xRange, maxY := dailyPoints([]processor.DailyTotal{
		{Date: day("2011-01-01"), Records: 1, Cnt: 985},
		{Date: day("2011-01-02"), Records: 1, Cnt: 801},
	})
	if len(xs) != 2 || xRange.Min != xs[0] || xRange.Max != xs[1] || maxY != 985 {
		t.Errorf("two days: xs=%v range=%v..%v max=%v", xs, xRange.Min, xRange.Max, maxY)
	}
}

func TestRenderEmpty(t *testing.T) {
	r := New(640, 320, nil)
	empty := &processor.Views{}
	for _, name := range ChartNames {
		if _, err := r.Chart(name, empty); !errors.Is(err, ErrEmptyView) {
			t.Errorf("%s: got %v, want ErrEmptyView", name, err)
		}
	}
	if _, err := r.All(empty); !errors.Is(err, ErrEmptyView) {
		t.Errorf("All: got %v, want ErrEmptyView", err)
	}
	if _, err := r.Chart("pie", sampleViews(t)); !errors.Is(err, ErrUnknownChart) {
		t.Errorf("got %v, want ErrUnknownChart", err)
	}
}

func TestNiceCeil(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{1, 1},
		{3, 5},
		{985, 1000},
		{1349, 2000},
		{4515, 5000},
		{6000, 10000},
		{2000, 2000},
	}
	for _, tt := range tests {
		if got := niceCeil(tt.in); got != tt.want {
			t.Errorf("niceCeil(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}
