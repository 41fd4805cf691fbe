package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"BikeSharing/src/dataset"
	"BikeSharing/src/render"
	"BikeSharing/src/report"
	"BikeSharing/src/storage"
	"BikeSharing/src/utils"
	"BikeSharing/src/web/templates"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler 看板的全部路由
func Handler(
	logger *storage.Logger,
	holder *report.Holder,
	renderer *render.Renderer,
) http.HandlerFunc {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex(logger, holder))
	mux.HandleFunc("GET /charts/{file}", handleChart(logger, holder, renderer))
	mux.HandleFunc("GET /export.xlsx", handleExport(logger, holder, renderer))
	mux.HandleFunc("GET /logs", handleLogs(logger))

	return WithAccessLogs(logger)(mux.ServeHTTP)
}

func handleIndex(logger *storage.Logger, holder *report.Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := holder.Dataset()
		data := templates.IndexData{
			Lang:     holder.Labels().Locale.String(),
			Source:   ds.Source(),
			LoadedAt: ds.LoadedAt().Format(time.DateTime),
			Min:      ds.Min().Format(dataset.DateLayout),
			Max:      ds.Max().Format(dataset.DateLayout),
			Start:    r.URL.Query().Get("start"),
			End:      r.URL.Query().Get("end"),
		}

		status := http.StatusOK
		rep, err := buildReport(holder, r)
		if err != nil {
			status = errorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Errorf("build report: %s", err)
			}
			data.Error = err.Error()
		} else {
			data.Start = rep.Range.Start.Format(dataset.DateLayout)
			data.End = rep.Range.End.Format(dataset.DateLayout)
			data.TotalRecords = rep.TotalRecords
			data.TotalCount = rep.TotalCount
			data.Empty = rep.Empty()
			query := rangeQuery(rep.Range)
			for _, name := range render.ChartNames {
				data.Charts = append(data.Charts, templates.ChartLink{
					Name: name,
					URL:  "/charts/" + name + ".png?" + query,
				})
			}
			data.ExportURL = "/export.xlsx?" + query
		}
		if data.ExportURL == "" {
			data.ExportURL = "/export.xlsx"
		}

		var buf bytes.Buffer
		if err := templates.Index(&buf, data); err != nil {
			logger.Errorf("render index: %s", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write(buf.Bytes())
	}
}

func handleChart(logger *storage.Logger, holder *report.Holder, renderer *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
		if !ok {
			http.NotFound(w, r)
			return
		}

		rep, err := buildReport(holder, r)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		png, err := renderer.Chart(name, rep.Views)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(png)
	}
}

func handleExport(logger *storage.Logger, holder *report.Holder, renderer *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := buildReport(holder, r)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		charts, err := renderer.All(rep.Views)
		if err != nil && !errors.Is(err, render.ErrEmptyView) {
			writeError(logger, w, err)
			return
		}

		var buf bytes.Buffer
		if err := utils.WriteReport(&buf, rep, charts); err != nil {
			writeError(logger, w, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", utils.ReportFileName(rep)))
		w.Write(buf.Bytes())
	}
}

// handleLogs 以分块传输的方式实时输出日志
func handleLogs(logger *storage.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// 创建日志订阅通道
		logChan := logger.Subscribe()
		defer logger.Unsubscribe(logChan)

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		for {
			select {
			case msg, ok := <-logChan:
				if !ok {
					return
				}
				if _, err := fmt.Fprint(w, msg); err != nil {
					// 客户端断开连接
					return
				}
				// 刷新响应缓冲区，确保消息立即发送到客户端
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}

// buildReport 读取 start/end 参数并生成报表, 缺省时使用数据集的完整范围
func buildReport(holder *report.Holder, r *http.Request) (*report.Report, error) {
	q := r.URL.Query()
	start, end, err := dataset.ParseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		return nil, &badRequestError{err: err}
	}
	return holder.Build(start, end)
}

func rangeQuery(dr dataset.DateRange) string {
	return url.Values{
		"start": {dr.Start.Format(dataset.DateLayout)},
		"end":   {dr.End.Format(dataset.DateLayout)},
	}.Encode()
}

type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func errorStatus(err error) int {
	var (
		badRequest *badRequestError
		rangeErr   *dataset.RangeError
	)
	switch {
	case errors.As(err, &badRequest), errors.As(err, &rangeErr):
		return http.StatusBadRequest
	case errors.Is(err, render.ErrEmptyView), errors.Is(err, render.ErrUnknownChart):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(logger *storage.Logger, w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("request failed: %s", err)
	}
	http.Error(w, err.Error(), status)
}
