package handler

type ContextKey string

var (
	RoleCtxKey        ContextKey = "role"
	SubCtxKey         ContextKey = "sub"
	MyInfoCtx         ContextKey = "myInfo"
	AbsenceTypeCtx    ContextKey = "absenceType"
	AbsenceCtx        ContextKey = "absence"
	GeneralAbsenceCtx ContextKey = "generalAbsence"
	ScheduleCtx       ContextKey = "schedule"
)
