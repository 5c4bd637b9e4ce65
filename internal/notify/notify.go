package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/config"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/leave"
)

type Publisher interface {
	PublishMail(msg *domain.MailMessage) error
	PublishNotification(n *domain.Notification) error
}

// Notifier 负责组装邮件和推送消息，实际发送由 cmd/mail 和外部推送服务完成
type Notifier struct {
	cfg       *config.Config
	publisher Publisher
}

func New(cfg *config.Config, publisher Publisher) *Notifier {
	return &Notifier{
		cfg:       cfg,
		publisher: publisher,
	}
}

func (n *Notifier) link(format string, args ...any) string {
	return strings.TrimRight(n.cfg.Frontend.BaseURL, "/") + fmt.Sprintf(format, args...)
}

func ids(employees ...*domain.Employee) []uuid.UUID {
	res := make([]uuid.UUID, 0, len(employees))
	for _, e := range employees {
		res = append(res, e.ID)
	}
	return res
}

func (n *Notifier) absenceMailData(a *domain.Absence, recipient, by, target *domain.Employee, comment string) domain.AbsenceMailData {
	data := domain.AbsenceMailData{
		FullName:     recipient.FullName(),
		SubmittedBy:  by.FullName(),
		SubmittedFor: target.FullName(),
		Subject:      a.Subject,
		Status:       string(a.Status),
		Comment:      comment,
		Link:         n.link("/absences/%s", a.ID),
	}

	if a.AbsenceType != nil {
		data.AbsenceType = a.AbsenceType.Name
		if a.AbsenceType.Hourly() {
			data.Start = a.Start.Format(leave.DateTimeLayout)
			data.End = a.End.Format(leave.DateTimeLayout)
		} else {
			data.Start = a.Start.Format(leave.DateLayout)
			data.End = leave.DisplayEnd(a.AbsenceType, a.End).Format(leave.DateLayout)
		}
	}
	return data
}

// AbsenceSubmitted 本人提交时通知审批人，代他人提交时通知请假对象
func (n *Notifier) AbsenceSubmitted(a *domain.Absence, by, target, approver *domain.Employee) error {
	if approver == nil || approver.ID == target.ID {
		return nil
	}

	var recipient *domain.Employee
	var mailType, verb string
	switch {
	case by.ID == target.ID:
		recipient, mailType, verb = approver, domain.MailAbsenceSubmittedManager, domain.VerbAbsenceSubmitted
	case by.ID == approver.ID:
		recipient, mailType, verb = target, domain.MailAbsenceSubmittedForUser, domain.VerbAbsenceSubmittedForYou
	default:
		return nil
	}

	return errors.Join(
		n.publisher.PublishNotification(&domain.Notification{
			Verb:       verb,
			ActorID:    by.ID,
			Recipients: ids(recipient),
			ObjectType: "absence",
			ObjectID:   a.ID,
		}),
		n.publisher.PublishMail(&domain.MailMessage{
			Type: mailType,
			To:   recipient.Email,
			Data: n.absenceMailData(a, recipient, by, target, ""),
		}),
	)
}

// AbsenceUpdated 通知除操作人以外的请假对象和审批人
func (n *Notifier) AbsenceUpdated(a *domain.Absence, actor, target, approver *domain.Employee, comment string) error {
	recipients := make([]*domain.Employee, 0, 2)
	for _, e := range []*domain.Employee{target, approver} {
		if e == nil || e.ID == actor.ID {
			continue
		}
		if len(recipients) > 0 && recipients[0].ID == e.ID {
			continue
		}
		recipients = append(recipients, e)
	}
	if len(recipients) == 0 {
		return nil
	}

	errs := []error{
		n.publisher.PublishNotification(&domain.Notification{
			Verb:       domain.VerbAbsenceUpdated,
			ActorID:    actor.ID,
			Recipients: ids(recipients...),
			ObjectType: "absence",
			ObjectID:   a.ID,
			Data:       map[string]string{"status": string(a.Status)},
		}),
	}
	for _, recipient := range recipients {
		errs = append(errs, n.publisher.PublishMail(&domain.MailMessage{
			Type: domain.MailAbsenceUpdated,
			To:   recipient.Email,
			Data: n.absenceMailData(a, recipient, actor, target, comment),
		}))
	}
	return errors.Join(errs...)
}

func (n *Notifier) GeneralAbsencePublished(g *domain.GeneralAbsence, actor *domain.Employee, audience []*domain.Employee) error {
	errs := []error{
		n.publisher.PublishNotification(&domain.Notification{
			Verb:       domain.VerbGeneralAbsenceCreated,
			ActorID:    actor.ID,
			Recipients: ids(audience...),
			ObjectType: "general_absence",
			ObjectID:   g.ID,
		}),
	}

	for _, e := range audience {
		errs = append(errs, n.publisher.PublishMail(&domain.MailMessage{
			Type: domain.MailGeneralAbsencePublished,
			To:   e.Email,
			Data: domain.GeneralAbsenceMailData{
				FullName: e.FullName(),
				Subject:  g.Subject,
				Body:     g.Body,
				Start:    g.Start.Format(leave.DateLayout),
				End:      g.DisplayEnd().Format(leave.DateLayout),
				Duration: int(g.End.Sub(g.Start).Hours() / 24),
				Link:     n.link("/general-absences/%s", g.ID),
			},
		}))
	}
	return errors.Join(errs...)
}

func (n *Notifier) scheduleMails(mailType string, s *domain.Schedule, employees []*domain.Employee) []error {
	deadline := ""
	if s.PreferencesDeadline != nil {
		deadline = s.PreferencesDeadline.Format(leave.DateLayout)
	}

	errs := make([]error, 0, len(employees))
	for _, e := range employees {
		errs = append(errs, n.publisher.PublishMail(&domain.MailMessage{
			Type: mailType,
			To:   e.Email,
			Data: domain.ScheduleMailData{
				FullName:   e.FullName(),
				Department: s.DepartmentName,
				Start:      s.Start.Format(leave.DateLayout),
				End:        s.End.Format(leave.DateLayout),
				Deadline:   deadline,
				Link:       n.link("/schedules/%s", s.ID),
			},
		}))
	}
	return errs
}

// CollectPreferences 邮件发给尚未激活账号的受训员工，推送发给已激活的受训员工
func (n *Notifier) CollectPreferences(s *domain.Schedule, mailTo, pushTo []*domain.Employee) error {
	errs := n.scheduleMails(domain.MailCollectPreferences, s, mailTo)
	errs = append(errs, n.publisher.PublishNotification(&domain.Notification{
		Verb:       domain.VerbScheduleCollecting,
		Recipients: ids(pushTo...),
		ObjectType: "schedule",
		ObjectID:   s.ID,
	}))
	return errors.Join(errs...)
}

// SchedulePublished 推送发给被分配了班次的员工
func (n *Notifier) SchedulePublished(s *domain.Schedule, mailTo, pushTo []*domain.Employee) error {
	errs := n.scheduleMails(domain.MailSchedulePublished, s, mailTo)
	errs = append(errs, n.publisher.PublishNotification(&domain.Notification{
		Verb:       domain.VerbSchedulePublished,
		Recipients: ids(pushTo...),
		ObjectType: "schedule",
		ObjectID:   s.ID,
	}))
	return errors.Join(errs...)
}

// EmployeeCreated 把初始密码发到新员工的邮箱
func (n *Notifier) EmployeeCreated(e *domain.Employee, password string) error {
	return n.publisher.PublishMail(&domain.MailMessage{
		Type: domain.MailEmployeeCreated,
		To:   e.Email,
		Data: domain.EmployeeCreatedMailData{
			FullName: e.FullName(),
			Username: e.Username,
			Password: password,
			Link:     n.link("/login"),
		},
	})
}
