package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

type mailTemplate struct {
	subject string
	html    *template.Template
	data    func() any
}

var mailTemplateFiles = map[string]struct {
	file    string
	subject string
	data    func() any
}{
	domain.MailAbsenceSubmittedManager: {"absence_submitted_manager.html", "HR Office - 新的请假申请", func() any { return &domain.AbsenceMailData{} }},
	domain.MailAbsenceSubmittedForUser: {"absence_submitted_for_user.html", "HR Office - 已为你提交请假", func() any { return &domain.AbsenceMailData{} }},
	domain.MailAbsenceUpdated:          {"absence_updated.html", "HR Office - 请假状态更新", func() any { return &domain.AbsenceMailData{} }},
	domain.MailGeneralAbsencePublished: {"general_absence_published.html", "HR Office - 新的公告", func() any { return &domain.GeneralAbsenceMailData{} }},
	domain.MailCollectPreferences:      {"collect_preferences.html", "HR Office - 请提交排班偏好", func() any { return &domain.ScheduleMailData{} }},
	domain.MailSchedulePublished:       {"schedule_published.html", "HR Office - 排班已发布", func() any { return &domain.ScheduleMailData{} }},
	domain.MailEmployeeCreated:         {"employee_created.html", "HR Office - 账户信息", func() any { return &domain.EmployeeCreatedMailData{} }},
}

// loadTemplates 启动时解析全部模板，缺少任何一个都直接退出
func loadTemplates(dir string) (map[string]*mailTemplate, error) {
	templates := make(map[string]*mailTemplate, len(mailTemplateFiles))
	for mailType, f := range mailTemplateFiles {
		tmpl, err := template.ParseFiles(filepath.Join(dir, f.file))
		if err != nil {
			return nil, err
		}
		templates[mailType] = &mailTemplate{subject: f.subject, html: tmpl, data: f.data}
	}
	return templates, nil
}

// envelope 与 domain.MailMessage 对应，data 延迟到确定邮件类型后再解析
type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

type sender interface {
	DialAndSend(messages ...*mail.Msg) error
}

type mailer struct {
	from      string
	templates map[string]*mailTemplate
	client    sender
	logger    *slog.Logger
}

// render 返回收件人、主题和 HTML 正文
func (m *mailer) render(body []byte) (string, string, string, error) {
	env := envelope{}
	if err := json.Unmarshal(body, &env); err != nil {
		return "", "", "", fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	tmpl, ok := m.templates[env.Type]
	if !ok {
		return "", "", "", fmt.Errorf("不支持的邮件类型: %s", env.Type)
	}

	data := tmpl.data()
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return "", "", "", fmt.Errorf("邮件数据反序列化失败: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.html.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	return env.To, tmpl.subject, buf.String(), nil
}

func (m *mailer) build(body []byte) (*mail.Msg, error) {
	to, subject, html, err := m.render(body)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	return msg, nil
}

// handle 无法构建的消息直接丢弃，发送失败的重新入队
func (m *mailer) handle(d amqp.Delivery) {
	msg, err := m.build(d.Body)
	if err != nil {
		m.logger.Error("无法构建邮件", slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}

	if err := m.client.DialAndSend(msg); err != nil {
		m.logger.Error("邮件发送失败", slog.String("error", err.Error()))
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}
