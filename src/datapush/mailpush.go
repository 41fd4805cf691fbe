package datapush

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"path/filepath"
	"strings"
	"time"

	"github.com/jordan-wright/email"

	"BikeSharing/src/config"
	"BikeSharing/src/report"
)

const (
	RETRY_TIMES    = 3
	RETRY_INTERVAL = 5 * time.Second
	defaultPort    = "465" // 默认 SSL 端口
)

type sendFunc func(e *email.Email, addr string, a smtp.Auth, t *tls.Config) error

// Mailer 把导出的报表作为附件发送给收件人
type Mailer struct {
	server   string
	username string
	password string
	to       []string
	subject  string

	retries  int
	interval time.Duration
	send     sendFunc
}

func NewMailer(c *config.Config) *Mailer {
	return &Mailer{
		server:   c.SendEmail.Server,
		username: c.SendEmail.Username,
		password: c.SendEmail.Password,
		to:       c.SendEmail.To,
		subject:  c.SendEmail.Subject,
		retries:  RETRY_TIMES,
		interval: RETRY_INTERVAL,
		send: func(e *email.Email, addr string, a smtp.Auth, t *tls.Config) error {
			return e.SendWithTLS(addr, a, t)
		},
	}
}

// Message 构建邮件, 正文为两个汇总指标
func (m *Mailer) Message(rep *report.Report, attachmentPath string) (*email.Email, error) {
	e := email.NewEmail()
	e.From = fmt.Sprintf("Bike Sharing <%s>", m.username)
	e.To = m.to
	e.Subject = m.subject
	if e.Subject == "" {
		e.Subject = rep.Title()
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "%s\n\n", rep.Title())
	fmt.Fprintf(&body, "Total records: %s\n", rep.TotalRecords)
	fmt.Fprintf(&body, "Total rentals: %s\n", rep.TotalCount)
	fmt.Fprintf(&body, "Source: %s\n", rep.Source)
	e.Text = body.Bytes()

	if attachmentPath != "" {
		if _, err := e.AttachFile(attachmentPath); err != nil {
			return nil, fmt.Errorf("附件添加失败 %s: %w", filepath.Base(attachmentPath), err)
		}
	}
	return e, nil
}

// PushReport 发送报表, 失败时按固定间隔重试
func (m *Mailer) PushReport(rep *report.Report, attachmentPath string) error {
	if len(m.to) == 0 {
		return fmt.Errorf("没有配置收件人")
	}
	e, err := m.Message(rep, attachmentPath)
	if err != nil {
		return err
	}

	// 确保服务器地址包含端口
	addr := m.server
	if !strings.Contains(addr, ":") {
		addr += ":" + defaultPort
	}
	host := strings.Split(addr, ":")[0]
	auth := smtp.PlainAuth("", m.username, m.password, host)

	return retry(func() error {
		return m.send(e, addr, auth, &tls.Config{ServerName: host})
	}, m.retries, m.interval)
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	if times < 1 {
		times = 1
	}
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}
