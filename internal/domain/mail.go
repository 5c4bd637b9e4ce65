package domain

const (
	MailAbsenceSubmittedManager = "absence_submitted_manager"
	MailAbsenceSubmittedForUser = "absence_submitted_for_user"
	MailAbsenceUpdated          = "absence_updated"
	MailGeneralAbsencePublished = "general_absence_published"
	MailCollectPreferences      = "collect_preferences"
	MailSchedulePublished       = "schedule_published"
	MailEmployeeCreated         = "employee_created"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type AbsenceMailData struct {
	FullName     string `json:"fullName"`
	SubmittedBy  string `json:"submittedBy"`
	SubmittedFor string `json:"submittedFor"`
	Subject      string `json:"subject"`
	AbsenceType  string `json:"absenceType"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Status       string `json:"status"`
	Comment      string `json:"comment"`
	Link         string `json:"link"`
}

type GeneralAbsenceMailData struct {
	FullName string `json:"fullName"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration int    `json:"duration"`
	Link     string `json:"link"`
}

type ScheduleMailData struct {
	FullName   string `json:"fullName"`
	Department string `json:"department"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Deadline   string `json:"deadline"`
	Link       string `json:"link"`
}

type EmployeeCreatedMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
	Link     string `json:"link"`
}
