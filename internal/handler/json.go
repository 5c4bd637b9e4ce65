package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/lifecycle"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
		http.Error(w, "服务器内部错误", http.StatusInternalServerError)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string, data any) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Message: msg,
		Data:    data,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.errorResponse(w, r, http.StatusBadRequest, validationErrors[0].Translate(h.translator), map[string]string{
			"field": validationErrors[0].Field(),
		})
		return
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		h.errorResponse(w, r, http.StatusBadRequest, verr.Key, verr)
		return
	}

	h.errorResponse(w, r, http.StatusBadRequest, err.Error(), nil)
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusUnauthorized, msg, nil)
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, http.StatusForbidden, "PERMISSION_DENIED", nil)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, key string) {
	h.errorResponse(w, r, http.StatusNotFound, key, nil)
}

// editConflict 对应乐观锁更新失败
func (h *Handler) editConflict(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, http.StatusConflict, "EDIT_CONFLICT", nil)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

func (h *Handler) createdResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusCreated, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// acceptedResponse 用于已经投递到任务队列的请求
func (h *Handler) acceptedResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusAccepted, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// 数据库约束名到错误信息的映射
var constraintMessages = map[string]string{
	"employees_username_key":                         "USERNAME_ALREADY_EXISTS",
	"absences_absence_type_id_fkey":                  "ABSENCE_TYPE_NOT_FOUND",
	"absences_submitted_for_id_fkey":                 "EMPLOYEE_NOT_FOUND",
	"absences_submitted_to_id_fkey":                  "EMPLOYEE_TO_SUBMIT_ABSENCE_NOT_FOUND",
	"general_absence_departments_department_id_fkey": "DEPARTMENT_NOT_FOUND",
	"schedules_department_id_fkey":                   "DEPARTMENT_NOT_FOUND",
	"shift_employees_employee_id_fkey":               "EMPLOYEE_NOT_FOUND",
	"schedule_feedbacks_schedule_id_employee_id_key": "SCHEDULE_FEEDBACK_ALREADY_GIVEN",
}

// handleError 把仓储层和业务规则返回的错误转换成响应，notFoundKey 用于 sql.ErrNoRows
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error, notFoundKey string) {
	var verr *domain.ValidationError
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &verr):
		h.badRequest(w, r, err)
	case errors.Is(err, lifecycle.ErrTransitionNotAllowed):
		h.errorResponse(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, sql.ErrNoRows):
		h.notFound(w, r, notFoundKey)
	case errors.As(err, &pgErr):
		msg, ok := constraintMessages[pgErr.ConstraintName]
		if !ok {
			h.internalServerError(w, r, err)
			return
		}
		h.errorResponse(w, r, http.StatusBadRequest, msg, nil)
	default:
		h.internalServerError(w, r, err)
	}
}
