package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"BikeSharing/src/processor"
)

// 图表名称, 也用作 URL 和导出文件名
const (
	ChartDaily   = "daily"
	ChartYear    = "year"
	ChartMonth   = "month"
	ChartSeason  = "season"
	ChartWeekday = "weekday"
)

// ChartNames 看板上的图表顺序
var ChartNames = []string{ChartDaily, ChartYear, ChartMonth, ChartSeason, ChartWeekday}

var (
	ErrEmptyView    = errors.New("no data in the selected range")
	ErrUnknownChart = errors.New("unknown chart")
)

var (
	dailyColor    = drawing.ColorFromHex("90CAF9")
	yearColors    = [2]drawing.Color{drawing.ColorFromHex("D3D3D3"), drawing.ColorFromHex("72BCD4")}
	seasonColors  = [4]drawing.Color{drawing.ColorFromHex("72BCD4"), drawing.ColorFromHex("F08080"), drawing.ColorFromHex("32CD32"), drawing.ColorFromHex("4682B4")}
	fallbackColor = drawing.ColorFromHex("808080")
)

// Renderer 把视图渲染为 PNG
type Renderer struct {
	Width  int
	Height int
	labels *processor.Labels
}

func New(width, height int, labels *processor.Labels) *Renderer {
	if labels == nil {
		labels = processor.English()
	}
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 640
	}
	return &Renderer{Width: width, Height: height, labels: labels}
}

// Image 一个渲染好的图表
type Image struct {
	Name string
	PNG  []byte
}

// Chart 按名称渲染一个图表
func (r *Renderer) Chart(name string, v *processor.Views) ([]byte, error) {
	switch name {
	case ChartDaily:
		return r.Daily(v.Daily)
	case ChartYear:
		return r.Year(v.Years)
	case ChartMonth:
		return r.Month(v.Months)
	case ChartSeason:
		return r.Season(v.Seasons)
	case ChartWeekday:
		return r.SeasonWeekday(v.Weekdays)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
}

// All 渲染全部图表, 范围内没有数据时返回 ErrEmptyView
func (r *Renderer) All(v *processor.Views) ([]Image, error) {
	images := make([]Image, 0, len(ChartNames))
	for _, name := range ChartNames {
		png, err := r.Chart(name, v)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		images = append(images, Image{Name: name, PNG: png})
	}
	return images, nil
}

// Daily 每日租赁数折线图
func (r *Renderer) Daily(rows []processor.DailyTotal) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyView
	}
	xs, ys, xRange, maxY := dailyPoints(rows)

	ch := chart.Chart{
		Title:      "Daily Bike Sharing",
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
			Range:          xRange,
		},
		YAxis: r.countAxis(maxY),
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "cnt",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: dailyColor, StrokeWidth: 2, DotColor: dailyColor, DotWidth: 3},
			},
		},
	}
	return renderChart(&ch)
}

// dailyPoints 每天一个点; 只有一天时在该点两侧各留半天, 保证 X 轴范围不为零
func dailyPoints(rows []processor.DailyTotal) (xs, ys []float64, xRange *chart.ContinuousRange, maxY float64) {
	xs = make([]float64, len(rows))
	ys = make([]float64, len(rows))
	for i, row := range rows {
		xs[i] = chart.TimeToFloat64(row.Date)
		ys[i] = float64(row.Cnt)
		maxY = math.Max(maxY, ys[i])
	}
	xRange = &chart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]}
	if xRange.Max <= xRange.Min {
		day := rows[0].Date
		xRange.Min = chart.TimeToFloat64(day.Add(-12 * time.Hour))
		xRange.Max = chart.TimeToFloat64(day.Add(12 * time.Hour))
	}
	return xs, ys, xRange, maxY
}

// Year 年度租赁数柱状图, 年份降序
func (r *Renderer) Year(rows []processor.YearTotal) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyView
	}
	bars := make([]chart.Value, 0, len(rows))
	maxY := 0.0
	for _, row := range processor.YearsForDisplay(rows) {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%d", row.Year),
			Value: float64(row.Cnt),
			Style: barStyle(pick(yearColors[:], row.Yr)),
		})
		maxY = math.Max(maxY, float64(row.Cnt))
	}
	return r.barChart("Number of Bike Sharing (Year)", bars, maxY)
}

// Season 季节租赁数柱状图, 季节代码升序
func (r *Renderer) Season(rows []processor.SeasonTotal) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyView
	}
	bars := make([]chart.Value, 0, len(rows))
	maxY := 0.0
	for _, row := range processor.SeasonsForDisplay(rows) {
		bars = append(bars, chart.Value{
			Label: row.Label,
			Value: float64(row.Cnt),
			Style: barStyle(pick(seasonColors[:], row.Season-1)),
		})
		maxY = math.Max(maxY, float64(row.Cnt))
	}
	return r.barChart("Number of Bike Sharing by Season", bars, maxY)
}

// Month 月度趋势, 每年一条折线
func (r *Renderer) Month(rows []processor.MonthTotal) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyView
	}
	byYear := make(map[int][]processor.MonthTotal)
	var years []int
	maxY := 0.0
	for _, row := range rows {
		if _, ok := byYear[row.Yr]; !ok {
			years = append(years, row.Yr)
		}
		byYear[row.Yr] = append(byYear[row.Yr], row)
		maxY = math.Max(maxY, float64(row.Cnt))
	}
	sort.Ints(years)

	series := make([]chart.Series, 0, len(years))
	for _, yr := range years {
		points := byYear[yr]
		sort.Slice(points, func(i, j int) bool { return points[i].Mnth < points[j].Mnth })
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			xs[i] = float64(p.Mnth)
			ys[i] = float64(p.Cnt)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%d", points[0].Year),
			XValues: xs,
			YValues: ys,
			Style:   lineStyle(pick(yearColors[:], yr)),
		})
	}

	ticks := make([]chart.Tick, 0, len(r.labels.Months))
	for i, name := range r.labels.Months {
		ticks = append(ticks, chart.Tick{Value: float64(i + 1), Label: abbreviate(name)})
	}
	ch := chart.Chart{
		Title:      "Bike Sharing Trend (Month)",
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}},
		XAxis:      chart.XAxis{Ticks: ticks, Range: &chart.ContinuousRange{Min: 1, Max: 12}},
		YAxis:      r.countAxis(maxY),
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return renderChart(&ch)
}

// SeasonWeekday 各季节按星期的平均租赁数, 每个季节一条折线
func (r *Renderer) SeasonWeekday(rows []processor.SeasonWeekdayAverage) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyView
	}
	bySeason := make(map[int][]processor.SeasonWeekdayAverage)
	var seasons []int
	maxY := 0.0
	for _, row := range rows {
		if _, ok := bySeason[row.Season]; !ok {
			seasons = append(seasons, row.Season)
		}
		bySeason[row.Season] = append(bySeason[row.Season], row)
		maxY = math.Max(maxY, row.Avg)
	}
	sort.Ints(seasons)

	series := make([]chart.Series, 0, len(seasons))
	for _, season := range seasons {
		points := bySeason[season]
		sort.Slice(points, func(i, j int) bool { return points[i].Weekday < points[j].Weekday })
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			xs[i] = float64(p.Weekday)
			ys[i] = p.Avg
		}
		series = append(series, chart.ContinuousSeries{
			Name:    points[0].SeasonLabel,
			XValues: xs,
			YValues: ys,
			Style:   lineStyle(pick(seasonColors[:], season-1)),
		})
	}

	ticks := make([]chart.Tick, 0, len(r.labels.Weekdays))
	for i, name := range r.labels.Weekdays {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: name})
	}
	ch := chart.Chart{
		Title:      "Daily Trends of Bike Sharing by Season",
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}},
		XAxis:      chart.XAxis{Ticks: ticks, Range: &chart.ContinuousRange{Min: 0, Max: 6}},
		YAxis:      r.countAxis(maxY),
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return renderChart(&ch)
}

func (r *Renderer) barChart(title string, bars []chart.Value, maxY float64) ([]byte, error) {
	bc := chart.BarChart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   r.Width / (2*len(bars) + 2),
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}},
		YAxis:      r.countAxis(maxY),
		Bars:       bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// countAxis 从 0 开始的 Y 轴, 刻度按语言格式化
func (r *Renderer) countAxis(maxY float64) chart.YAxis {
	return chart.YAxis{
		Range: &chart.ContinuousRange{Min: 0, Max: niceCeil(maxY)},
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return r.labels.FormatCount(int(math.Round(f)))
			}
			return ""
		},
	}
}

func renderChart(ch *chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func barStyle(c drawing.Color) chart.Style {
	return chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

func lineStyle(c drawing.Color) chart.Style {
	return chart.Style{StrokeColor: c, StrokeWidth: 2, DotColor: c, DotWidth: 4}
}

func pick(colors []drawing.Color, idx int) drawing.Color {
	if idx < 0 || idx >= len(colors) {
		return fallbackColor
	}
	return colors[idx]
}

func abbreviate(name string) string {
	runes := []rune(name)
	if len(runes) <= 3 {
		return name
	}
	return string(runes[:3])
}

// niceCeil 向上取整到 1/2/5 × 10^n, 至少为 1
func niceCeil(v float64) float64 {
	if v <= 1 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}
