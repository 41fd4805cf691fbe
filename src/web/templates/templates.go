package templates

import (
	"embed"
	"html/template"
	"io"
)

//go:embed *.template
var fs embed.FS

var templates = template.Must(template.ParseFS(fs, "_layout.html.template"))

var indexTemplate = template.Must(template.Must(templates.Clone()).ParseFS(fs, "index.html.template"))

// ChartLink 页面上的一个图表
type ChartLink struct {
	Name string
	URL  string
}

type IndexData struct {
	Lang      string
	Source    string
	LoadedAt  string
	Min, Max  string
	Start     string
	End       string
	ExportURL string
	Error     string

	TotalRecords string
	TotalCount   string
	Empty        bool
	Charts       []ChartLink
}

func Index(w io.Writer, data IndexData) error {
	return indexTemplate.Execute(w, data)
}
