package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"BikeSharing/src/config"
	"BikeSharing/src/datapush"
	"BikeSharing/src/dataset"
	"BikeSharing/src/datasource/file"
	"BikeSharing/src/processor"
	"BikeSharing/src/render"
	"BikeSharing/src/report"
	"BikeSharing/src/storage"
	"BikeSharing/src/utils"
	"BikeSharing/src/web"
)

func main() {
	var (
		jsonFolder = flag.String("config", "./config", "配置目录")
		dataFile   = flag.String("data", "", "数据文件, 覆盖配置中的 data_file")
		addr       = flag.String("addr", "", "看板监听地址, 覆盖配置中的 addr")
		locale     = flag.String("locale", "", "标签语言(en/id)")
		start      = flag.String("start", "", "导出起始日期 YYYY-MM-DD")
		end        = flag.String("end", "", "导出结束日期 YYYY-MM-DD")
		export     = flag.String("export", "", "只导出一次报表到该路径后退出")
	)
	flag.Parse()

	cfg, dcfg, err := config.LoadConfig(*jsonFolder, "config.json", "dataconfig.json")
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	if *dataFile != "" {
		cfg.DataFile = *dataFile
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *locale != "" {
		cfg.Locale = *locale
	}

	// 初始化日志系统
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Close()

	a, err := newApp(cfg, dcfg, logger)
	if err != nil {
		logger.Fatal(err.Error())
		logger.Close()
		os.Exit(1)
	}

	if *export != "" {
		s, e, err := dataset.ParseRange(*start, *end)
		if err == nil {
			err = a.export(*export, s, e)
		}
		if err != nil {
			logger.Error("导出失败: " + err.Error())
			logger.Close()
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx); err != nil {
		logger.Error(err.Error())
		logger.Close()
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*storage.Logger, error) {
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(storage.ParseLevel(cfg.LogLevel))
	logger.SetEcho(os.Stderr)
	if err := logger.SetMaxSize(cfg.LogMaxSize); err != nil {
		logger.Close()
		return nil, fmt.Errorf("log_max_size: %w", err)
	}
	return logger, nil
}

// app 把加载器、当前数据集和渲染器串起来
type app struct {
	cfg      *config.Config
	logger   *storage.Logger
	loader   *file.Loader
	holder   *report.Holder
	renderer *render.Renderer
}

// newApp 选择标签表并加载数据文件; 加载失败直接返回 LoadError
func newApp(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) (*app, error) {
	if err := processor.ValidateLabels(); err != nil {
		return nil, err
	}
	labels, err := processor.LabelsFor(cfg.Locale)
	if err != nil {
		return nil, err
	}

	loader := file.NewLoader(dcfg)
	t1 := time.Now()
	ds, err := loader.Load(cfg.DataFile)
	if err != nil {
		return nil, err
	}
	logger.Infof("已加载 %s: %d 条记录, %s ~ %s, 耗时 %v",
		cfg.DataFile, ds.Len(),
		ds.Min().Format(dataset.DateLayout), ds.Max().Format(dataset.DateLayout),
		time.Since(t1).Round(time.Millisecond))

	return &app{
		cfg:      cfg,
		logger:   logger,
		loader:   loader,
		holder:   report.NewHolder(ds, labels),
		renderer: render.New(cfg.Chart.Width, cfg.Chart.Height, labels),
	}, nil
}

// run 启动看板、定时报表和文件监控, 直到 ctx 结束
func (a *app) run(ctx context.Context) error {
	if a.cfg.PidFile != "" {
		if err := writePidFile(a.cfg.PidFile); err != nil {
			return err
		}
		defer os.Remove(a.cfg.PidFile)
	}

	// SIGHUP 重新打开日志文件, 配合外部的日志切割
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				if err := a.logger.Reopen(); err != nil {
					a.logger.Error("重新打开日志失败: " + err.Error())
				} else {
					a.logger.Info("收到 SIGHUP, 日志文件已重新打开")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if spec := a.cfg.ReportSpec(); spec != "" {
		c := cron.New()
		if err := c.AddFunc(spec, a.scheduledReport); err != nil {
			return fmt.Errorf("创建定时任务失败 %q: %w", spec, err)
		}
		c.Start()
		defer c.Stop()
		a.logger.Infof("定时报表已启动(%s), 输出目录 %s", spec, a.cfg.Report.Dir)
	}

	if a.cfg.Watch {
		monitor, err := file.NewFileMonitor(a.cfg.DataFile)
		if err != nil {
			return err
		}
		defer monitor.Close()
		go func() {
			if err := monitor.Watch(ctx, a.reload); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("文件监控出错: " + err.Error())
			}
		}()
		a.logger.Info("正在监控数据文件: " + monitor.Target())
	}

	srv := web.NewServer(a.cfg.Addr, web.Handler(a.logger, a.holder, a.renderer), a.logger)
	return srv.Run(ctx)
}

// reload 数据文件变化后重新加载, 失败时继续使用旧数据
func (a *app) reload(path string) {
	ds, err := a.holder.Reload(func() (*dataset.Dataset, error) {
		return a.loader.Load(path)
	})
	if err != nil {
		a.logger.Error(err.Error())
		return
	}
	a.logger.Infof("数据已重新加载: %d 条记录", ds.Len())
}

// export 生成指定范围的报表并写入 path
func (a *app) export(path string, start, end time.Time) error {
	rep, err := a.holder.Build(start, end)
	if err != nil {
		return err
	}
	charts, err := a.charts(rep)
	if err != nil {
		return err
	}
	if err := utils.SaveReport(path, rep, charts); err != nil {
		return err
	}
	a.logger.Infof("报表已保存: %s (%s 条记录, 租赁总数 %s)", path, rep.TotalRecords, rep.TotalCount)
	return nil
}

// scheduledReport 定时任务: 导出完整范围的报表, 配置了邮箱时再发送
func (a *app) scheduledReport() {
	t1 := time.Now()
	rep, err := a.holder.Build(time.Time{}, time.Time{})
	if err != nil {
		a.logger.Error("定时报表生成失败: " + err.Error())
		return
	}
	path := filepath.Join(a.cfg.Report.Dir, utils.ReportFileName(rep))
	charts, err := a.charts(rep)
	if err == nil {
		err = utils.SaveReport(path, rep, charts)
	}
	if err != nil {
		a.logger.Error("定时报表保存失败: " + err.Error())
		return
	}
	a.logger.Infof("定时报表已保存: %s, 耗时 %v", path, time.Since(t1).Round(time.Millisecond))

	if !a.cfg.MailEnabled() {
		return
	}
	if err := datapush.NewMailer(a.cfg).PushReport(rep, path); err != nil {
		a.logger.Error("报表邮件发送失败: " + err.Error())
		return
	}
	a.logger.Infof("报表邮件已发送给 %v", a.cfg.SendEmail.To)
}

// charts 按配置渲染图表; 没有记录时不附带图表
func (a *app) charts(rep *report.Report) ([]render.Image, error) {
	if !a.cfg.Report.Charts || rep.Empty() {
		return nil, nil
	}
	return a.renderer.All(rep.Views)
}

func writePidFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return fmt.Errorf("写入进程号文件失败: %w", err)
	}
	return nil
}
