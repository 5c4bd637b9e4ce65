package handler

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/config"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/leave"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/notify"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/permission"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/repository"
)

// Repository 是 handler 用到的仓储方法，由 *repository.Repository 实现
type Repository interface {
	leave.AbsenceFinder
	leave.ShiftChecker

	GetEmployeeByID(id uuid.UUID) (*domain.Employee, error)
	GetEmployeeByUsername(username string) (*domain.Employee, error)
	GetEmployeesByCompany(companyID uuid.UUID) ([]*domain.Employee, error)
	GetEmployeesByIDs(ids []uuid.UUID) ([]*domain.Employee, error)
	GetAudience(companyID uuid.UUID, departmentIDs []uuid.UUID) ([]*domain.Employee, error)
	CreateEmployee(e *domain.Employee) error
	ActivateEmployee(id uuid.UUID) error
	UpdateActiveDepartment(e *domain.Employee) error
	GetDepartmentByID(id uuid.UUID) (*domain.Department, error)
	GetDepartmentsByCompany(companyID uuid.UUID) ([]*domain.Department, error)

	GetAbsenceTypes(companyID uuid.UUID, archived bool) ([]*domain.AbsenceType, error)
	GetAbsenceTypeByID(id uuid.UUID) (*domain.AbsenceType, error)
	FindAbsenceTypeByName(companyID uuid.UUID, name string, excludeID uuid.UUID) (*domain.AbsenceType, error)
	CreateAbsenceType(t *domain.AbsenceType) error
	UpdateAbsenceType(t *domain.AbsenceType) error

	ListAbsences(filter *repository.AbsenceFilter) ([]*domain.Absence, error)
	GetAbsenceByID(id uuid.UUID) (*domain.Absence, error)
	CreateAbsence(a *domain.Absence, comment *domain.AbsenceComment) error
	UpdateAbsenceStatus(a *domain.Absence, comment *domain.AbsenceComment) error
	DeleteAbsence(id uuid.UUID) error
	GetApprovedAbsences(companyID, employeeID uuid.UUID, absenceTypeID *uuid.UUID, start, end time.Time) ([]*domain.Absence, error)

	GetGeneralAbsences(companyID uuid.UUID, archived bool) ([]*domain.GeneralAbsence, error)
	GetGeneralAbsenceByID(id uuid.UUID) (*domain.GeneralAbsence, error)
	CreateGeneralAbsence(g *domain.GeneralAbsence) error
	UpdateGeneralAbsence(g *domain.GeneralAbsence) error

	ListSchedules(companyID uuid.UUID, employeeID uuid.UUID) ([]*domain.Schedule, map[uuid.UUID]bool, error)
	GetScheduleByID(id uuid.UUID) (*domain.Schedule, error)
	IsAllocated(scheduleID, employeeID uuid.UUID) (bool, error)
	HasOverlappingSchedule(departmentID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error)
	CreateSchedule(s *domain.Schedule, shiftTypes []*domain.ShiftType, now time.Time) error
	UpdateSchedule(s *domain.Schedule) error
	TransitionSchedule(s *domain.Schedule, ts *domain.ScheduleTimestamp) error
	RevertTransition(s *domain.Schedule, previous domain.ScheduleStatus, ts *domain.ScheduleTimestamp) error
	SaveAllocations(s *domain.Schedule, allocations map[uuid.UUID][]uuid.UUID, ts *domain.ScheduleTimestamp) error
	DeleteSchedule(id uuid.UUID) error
	GetScheduleTimestamps(scheduleID uuid.UUID) ([]*domain.ScheduleTimestamp, error)

	GetShiftTypesByIDs(companyID uuid.UUID, ids []uuid.UUID) ([]*domain.ShiftType, error)
	GetShiftTypesByCompany(companyID uuid.UUID) ([]*domain.ShiftType, error)
	GetShiftTypesBySchedule(scheduleID uuid.UUID) ([]*domain.ShiftType, error)
	CreateShiftType(st *domain.ShiftType) error
	GetShifts(scheduleID uuid.UUID, start, end *time.Time) ([]*domain.Shift, error)

	CreateScheduleFeedback(f *domain.ScheduleFeedback) error
	GetScheduleFeedbacks(scheduleID uuid.UUID, sharedOnly bool) ([]*domain.ScheduleFeedback, error)
	ScheduleFeedbackExists(scheduleID, employeeID uuid.UUID) (bool, error)
}

// Publisher 由 *queue.Publisher 实现
type Publisher interface {
	notify.Publisher
	PublishOptimization(req *domain.OptimizationRequest) error
}

// Dispatcher 由 *tasks.Dispatcher 实现
type Dispatcher interface {
	Delay(name string, payload any) (uuid.UUID, error)
	Get(id uuid.UUID) (*domain.TaskState, error)
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository Repository
	translator ut.Translator
	publisher  Publisher
	dispatcher Dispatcher
	checker    *leave.Checker
	notifier   *notify.Notifier
	now        func() time.Time

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo Repository, publisher Publisher, dispatcher Dispatcher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// 校验错误中使用 json 字段名
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	h := &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		publisher:  publisher,
		dispatcher: dispatcher,
		notifier:   notify.New(cfg, publisher),
		now:        time.Now,

		Mux: chi.NewRouter(),
	}
	if repo != nil {
		h.checker = leave.NewChecker(repo, repo)
	}

	return h, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 外部优化服务回调，使用单独的令牌而不是登录态
	h.Mux.With(h.optimizationToken).Post("/schedule-optimization", h.ReceiveOptimization)

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Patch("/active-department", h.UpdateMyActiveDepartment)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.GetEmployees)
			r.With(h.RequirePermission(permission.PermEmployeeWrite)).Post("/", h.CreateEmployee)
		})

		r.Route("/absence-types", func(r chi.Router) {
			r.With(h.RequirePermission(permission.PermAbsenceTypeRead)).Get("/", h.GetAbsenceTypes)
			r.With(h.RequirePermission(permission.PermAbsenceTypeWrite)).Post("/", h.CreateAbsenceType)
			r.With(h.RequirePermission(permission.PermAbsenceTypeRead)).Get("/archived", h.GetArchivedAbsenceTypes)
			r.With(h.RequirePermission(permission.PermAbsenceTypeRead)).Get("/export", h.ExportAbsenceTypes)
			r.With(h.RequirePermission(permission.PermAbsenceTypeRead)).Get("/export-archived", h.ExportArchivedAbsenceTypes)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.absenceType)
				r.With(h.RequirePermission(permission.PermAbsenceTypeRead)).Get("/", h.GetAbsenceType)
				r.With(h.RequirePermission(permission.PermAbsenceTypeWrite)).Put("/", h.UpdateAbsenceType)
				r.With(h.RequirePermission(permission.PermAbsenceTypeWrite)).Delete("/", h.ArchiveAbsenceType)
				r.With(h.RequirePermission(permission.PermAbsenceTypeWrite)).Post("/restore", h.RestoreAbsenceType)
			})
		})

		r.Route("/absences", func(r chi.Router) {
			r.Use(h.RequirePermission(permission.PermAbsenceRead))
			r.Get("/", h.GetAbsences)
			r.With(h.RequirePermission(permission.PermAbsenceWrite)).Post("/", h.CreateAbsence)
			r.Get("/requests", h.GetAbsenceRequests)
			r.With(h.RequirePermission(permission.PermAbsenceApprove)).Get("/approvals", h.GetAbsenceApprovals)
			r.Get("/user-absences", h.GetUserAbsences)
			r.Get("/detail-history", h.GetAbsenceDetailHistory)
			r.Get("/events", h.GetAbsenceEvents)
			r.With(h.RequirePermission(permission.PermAbsenceExport)).Get("/export", h.ExportAbsences)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.absence)
				r.Get("/", h.GetAbsence)
				r.With(h.RequirePermission(permission.PermAbsenceDelete)).Delete("/", h.DeleteAbsence)
				r.Put("/status", h.UpdateAbsenceStatus)
			})
		})

		r.Route("/general-absences", func(r chi.Router) {
			r.Use(h.RequirePermission(permission.PermGeneralAbsenceRead))
			r.Get("/", h.GetGeneralAbsences)
			r.With(h.RequirePermission(permission.PermGeneralAbsenceWrite)).Post("/", h.CreateGeneralAbsence)
			r.With(h.RequirePermission(permission.PermGeneralAbsenceWrite)).Get("/archived", h.GetArchivedGeneralAbsences)
			r.Get("/export", h.ExportGeneralAbsences)
			r.With(h.RequirePermission(permission.PermGeneralAbsenceWrite)).Get("/export-archived", h.ExportArchivedGeneralAbsences)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.generalAbsence)
				r.Get("/", h.GetGeneralAbsence)
				r.With(h.RequirePermission(permission.PermGeneralAbsenceWrite)).Put("/", h.UpdateGeneralAbsence)
				r.With(h.RequirePermission(permission.PermGeneralAbsenceWrite)).Delete("/", h.ArchiveGeneralAbsence)
				r.With(h.RequirePermission(permission.PermGeneralAbsenceWrite)).Post("/restore", h.RestoreGeneralAbsence)
			})
		})

		r.Route("/shift-types", func(r chi.Router) {
			r.With(h.RequirePermission(permission.PermScheduleRead)).Get("/", h.GetShiftTypes)
			r.With(h.RequirePermission(permission.PermScheduleWrite)).Post("/", h.CreateShiftType)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Use(h.RequirePermission(permission.PermScheduleRead))
			r.Get("/", h.GetSchedules)
			r.With(h.RequirePermission(permission.PermScheduleWrite)).Post("/", h.CreateSchedule)
			r.With(h.RequirePermission(permission.PermScheduleWrite)).Get("/export", h.ExportSchedules)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.schedule)
				r.Get("/", h.GetSchedule)
				r.Get("/events", h.GetScheduleEvents)
				r.Group(func(r chi.Router) {
					r.Use(h.RequirePermission(permission.PermScheduleWrite))
					r.Patch("/", h.UpdateSchedule)
					r.Delete("/", h.DeleteSchedule)
					r.Get("/history", h.GetScheduleHistory)
					r.Post("/collect-preferences", h.CollectPreferences)
					r.Post("/request-schedule", h.RequestSchedule)
					r.Post("/stop-collecting-preferences", h.StopCollectingPreferences)
					r.Post("/publish", h.PublishSchedule)
				})
			})
		})

		r.Route("/schedule-feedback", func(r chi.Router) {
			r.With(h.RequirePermission(permission.PermScheduleRead)).Get("/", h.GetScheduleFeedbacks)
			r.With(h.RequirePermission(permission.PermScheduleFeedbackWrite)).Post("/", h.CreateScheduleFeedback)
			r.With(h.RequirePermission(permission.PermScheduleFeedbackRead)).Get("/stats", h.GetScheduleFeedbackStats)
			r.With(h.RequirePermission(permission.PermScheduleRead)).Get("/given", h.GetScheduleFeedbackGiven)
		})

		r.Get("/tasks/{id}", h.GetTask)
	})
}
