package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

func newTestMailer(t *testing.T) *mailer {
	t.Helper()

	templates, err := loadTemplates("../../templates")
	require.NoError(t, err)
	return &mailer{from: "hr@example.com", templates: templates}
}

func encode(t *testing.T, msg *domain.MailMessage) []byte {
	t.Helper()

	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func TestLoadTemplates(t *testing.T) {
	m := newTestMailer(t)
	assert.Len(t, m.templates, len(mailTemplateFiles))

	_, err := loadTemplates("./missing")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	m := newTestMailer(t)

	t.Run("absence", func(t *testing.T) {
		to, subject, html, err := m.render(encode(t, &domain.MailMessage{
			Type: domain.MailAbsenceUpdated,
			To:   "fang@example.com",
			Data: domain.AbsenceMailData{
				FullName:     "芳 王",
				SubmittedBy:  "强 李",
				SubmittedFor: "芳 王",
				Subject:      "年假",
				Start:        "2024-05-06",
				End:          "2024-05-07",
				Status:       "APPROVED",
				Comment:      "好的",
				Link:         "https://hr.example.com/absences/1",
			},
		}))
		require.NoError(t, err)

		assert.Equal(t, "fang@example.com", to)
		assert.Equal(t, "HR Office - 请假状态更新", subject)
		assert.Contains(t, html, "芳 王")
		assert.Contains(t, html, "APPROVED")
		assert.Contains(t, html, "备注：好的")
		assert.NotContains(t, html, "<no value>")
	})

	t.Run("employee created", func(t *testing.T) {
		_, _, html, err := m.render(encode(t, &domain.MailMessage{
			Type: domain.MailEmployeeCreated,
			To:   "fang@example.com",
			Data: domain.EmployeeCreatedMailData{FullName: "芳 王", Username: "fang01", Password: "s3cret", Link: "https://hr.example.com/login"},
		}))
		require.NoError(t, err)
		assert.Contains(t, html, "fang01")
		assert.Contains(t, html, "s3cret")
	})

	t.Run("schedule without deadline", func(t *testing.T) {
		_, _, html, err := m.render(encode(t, &domain.MailMessage{
			Type: domain.MailCollectPreferences,
			To:   "fang@example.com",
			Data: domain.ScheduleMailData{FullName: "芳 王", Department: "客服部", Start: "2024-06-03", End: "2024-06-09"},
		}))
		require.NoError(t, err)
		assert.Contains(t, html, "客服部")
		assert.NotContains(t, html, "<no value>")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, _, _, err := m.render(encode(t, &domain.MailMessage{Type: "reset_password", To: "fang@example.com"}))
		assert.ErrorContains(t, err, "不支持的邮件类型")
	})

	t.Run("bad body", func(t *testing.T) {
		_, _, _, err := m.render([]byte("{"))
		assert.Error(t, err)
	})
}

func TestBuild(t *testing.T) {
	m := newTestMailer(t)

	msg, err := m.build(encode(t, &domain.MailMessage{
		Type: domain.MailSchedulePublished,
		To:   "fang@example.com",
		Data: domain.ScheduleMailData{FullName: "芳 王", Department: "客服部"},
	}))
	require.NoError(t, err)
	assert.NotNil(t, msg)

	_, err = m.build(encode(t, &domain.MailMessage{
		Type: domain.MailSchedulePublished,
		To:   "not an address",
	}))
	assert.ErrorContains(t, err, "无法设置邮件收件人")
}
