// monitor.go
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 最后一次写入后等待的时间, 分块写入的文件只触发一次
const DefaultDebounce = 500 * time.Millisecond

// FileMonitor 监控数据文件, 文件被改写或替换时通知调用方
// 监听的是文件所在目录, 编辑器常以"写临时文件再改名"的方式保存
type FileMonitor struct {
	watchDir string
	target   string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	lastMod  time.Time
}

func NewFileMonitor(path string) (*FileMonitor, error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(target)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	m := &FileMonitor{
		watchDir: dir,
		target:   target,
		watcher:  watcher,
		debounce: DefaultDebounce,
	}
	if info, err := os.Stat(target); err == nil {
		m.lastMod = info.ModTime()
	}
	return m, nil
}

// SetDebounce 在 Watch 之前调用
func (m *FileMonitor) SetDebounce(d time.Duration) {
	if d > 0 {
		m.debounce = d
	}
}

// Target 被监控文件的绝对路径
func (m *FileMonitor) Target() string { return m.target }

// Watch 阻塞直到 ctx 结束或监听出错
// 每次写入都重新计时, 写入停止 debounce 后文件仍比上次新才调用 handler;
// handler 在本 goroutine 中执行, 不会并发
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	defer m.watcher.Close()

	timer := time.NewTimer(m.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != m.target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			pending = true
			timer.Reset(m.debounce)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			info, err := os.Stat(m.target)
			if err != nil || !info.ModTime().After(m.lastMod) {
				continue
			}
			m.lastMod = info.ModTime()
			handler(m.target)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// Close 未调用 Watch 时释放监听
func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
