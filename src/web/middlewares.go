package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"BikeSharing/src/storage"
)

type Middleware func(http.HandlerFunc) http.HandlerFunc

// WithAccessLogs 记录每个请求的方法、路径、状态码和耗时
func WithAccessLogs(logger *storage.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next(rec, r)
			logger.Infof("%s %s %d %s", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Millisecond))
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush /logs 需要逐条刷新
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Server 看板 HTTP 服务
type Server struct {
	srv    *http.Server
	logger *storage.Logger
}

func NewServer(addr string, handler http.Handler, logger *storage.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run 阻塞直到 ctx 结束, 然后在超时内优雅关闭
func (s *Server) Run(ctx context.Context) error {
	// 请求的 context 随 ctx 结束, /logs 这类长连接才能退出
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("dashboard listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down dashboard")
	return s.srv.Shutdown(shutdownCtx)
}
