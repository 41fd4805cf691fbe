package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"BikeSharing/src/dataset"

	"github.com/joho/godotenv"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataFile   string `json:"data_file"`    // 共享单车日数据文件(csv/xlsx)
	Addr       string `json:"addr"`         // 看板监听地址
	Locale     string `json:"locale"`       // 标签与数字格式的语言(en/id)
	Watch      bool   `json:"watch"`        // 数据文件变化时是否重新加载
	LogName    string `json:"log_name"`     // 日志文件路径
	LogMaxSize string `json:"log_max_size"` // 日志轮转大小, 例如 "10 * 1024 * 1024"
	LogLevel   string `json:"log_level"`    // 最低日志级别
	PidFile    string `json:"pid_file"`     // 进程号文件, 供 SIGHUP 工具使用

	Chart struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"chart"`

	Report struct {
		Dir      string   `json:"dir"`      // 定时报表输出目录
		Schedule string   `json:"schedule"` // cron 表达式, 例如 "0 0 7 * * *"
		Interval Duration `json:"interval"` // 未配置 schedule 时按间隔执行, 0 表示关闭
		Charts   bool     `json:"charts"`   // 报表中是否嵌入图表
	} `json:"report"`

	SendEmail struct {
		Server   string   `json:"server"`   // SMTP服务器地址
		Username string   `json:"username"` // 发件邮箱
		Password string   `json:"password"` // 邮箱密码/授权码
		To       []string `json:"to"`       // 收件人
		Subject  string   `json:"subject"`  // 邮件主题
	} `json:"send_email"`
}

// DataConfig 数据列映射: 逻辑字段名 -> 源文件中的列名
type DataConfig struct {
	Columns map[string]string `json:"columns"`
	Sheet   string            `json:"sheet"` // xlsx 工作表名, 为空时读取第一个
	mu      sync.RWMutex
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	loadErr            error
)

// LoadConfig 只加载一次配置, 之后返回同一实例
// 参数:
//
//	jsonFolder: 配置目录
//	jsonFile: 主配置文件名
//	dataJsonFile: 数据列映射文件名
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	once.Do(func() {
		instance, dataConfigInstance, loadErr = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, loadErr
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	// .env 文件可选, 不存在时只读取系统环境变量
	_ = godotenv.Load(filepath.Join(jsonFolder, ".env"))
	cfg.ApplyEnv()
	cfg.SetDefaults()
	dcfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// ApplyEnv 使用 BIKE_* 环境变量覆盖配置文件中的值
func (c *Config) ApplyEnv() {
	c.DataFile = getEnv("BIKE_DATA_FILE", c.DataFile)
	c.Addr = getEnv("BIKE_ADDR", c.Addr)
	c.Locale = getEnv("BIKE_LOCALE", c.Locale)
	c.LogName = getEnv("BIKE_LOG_NAME", c.LogName)
	c.LogLevel = getEnv("BIKE_LOG_LEVEL", c.LogLevel)
	c.Report.Dir = getEnv("BIKE_REPORT_DIR", c.Report.Dir)
	c.Report.Schedule = getEnv("BIKE_REPORT_SCHEDULE", c.Report.Schedule)
	c.SendEmail.Password = getEnv("BIKE_SMTP_PASSWORD", c.SendEmail.Password)
	c.Watch = getEnvBool("BIKE_WATCH", c.Watch)
	if v := os.Getenv("BIKE_REPORT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Report.Interval = Duration(d)
		}
	}
}

// SetDefaults 为未配置的字段填充默认值
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Chart.Width <= 0 {
		c.Chart.Width = 1280
	}
	if c.Chart.Height <= 0 {
		c.Chart.Height = 640
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
}

// Validate 检查必填项
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataFile) == "" {
		return fmt.Errorf("配置缺少 data_file")
	}
	if c.Report.Interval < 0 {
		return fmt.Errorf("report.interval 不能为负数: %s", time.Duration(c.Report.Interval))
	}
	if c.MailEnabled() && len(c.SendEmail.To) == 0 {
		return fmt.Errorf("send_email 已配置服务器但没有收件人")
	}
	return nil
}

// ReportSpec 定时报表的 cron 表达式, 空字符串表示不启用
func (c *Config) ReportSpec() string {
	if c.Report.Schedule != "" {
		return c.Report.Schedule
	}
	if c.Report.Interval > 0 {
		return "@every " + time.Duration(c.Report.Interval).String()
	}
	return ""
}

// MailEnabled 是否配置了报表邮件推送
func (c *Config) MailEnabled() bool {
	return c.SendEmail.Server != "" && c.SendEmail.Username != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// SetDefaults 未映射的字段使用同名列
func (dc *DataConfig) SetDefaults() {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.Columns == nil {
		dc.Columns = make(map[string]string)
	}
	for _, name := range dataset.RequiredColumns {
		if dc.Columns[name] == "" {
			dc.Columns[name] = name
		}
	}
}

// GetColumn 返回逻辑字段对应的源列名
func (dc *DataConfig) GetColumn(name string) string {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	if col, ok := dc.Columns[name]; ok && col != "" {
		return col
	}
	return name
}

// SetColumn 设置逻辑字段对应的源列名
func (dc *DataConfig) SetColumn(name, column string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.Columns == nil {
		dc.Columns = make(map[string]string)
	}
	dc.Columns[name] = column
}

// DefaultDataConfig 所有字段与源列同名
func DefaultDataConfig() *DataConfig {
	dc := &DataConfig{}
	dc.SetDefaults()
	return dc
}
