package handler

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/permission"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 从 cookie 中获取 token
		cookie, err := r.Cookie(h.config.JWT.CookieName)
		if err != nil {
			switch {
			case errors.Is(err, http.ErrNoCookie):
				h.unauthorized(w, r, "NOT_AUTHENTICATED")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		// 验证 token
		claims := &AuthClaims{}
		_, err = jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWT.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			h.unauthorized(w, r, "INVALID_TOKEN")
			return
		}

		// 将 claims 中的 role 和 sub 附在 context 中
		ctx := r.Context()
		ctx = context.WithValue(ctx, RoleCtxKey, claims.Role)
		ctx = context.WithValue(ctx, SubCtxKey, claims.Subject)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) myInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subString := r.Context().Value(SubCtxKey).(string)

		sub, err := uuid.Parse(subString)
		if err != nil {
			h.unauthorized(w, r, "INVALID_TOKEN")
			return
		}

		myInfo, err := h.repository.GetEmployeeByID(sub)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.unauthorized(w, r, "EMPLOYEE_NOT_FOUND")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		if myInfo.Resigned {
			h.forbidden(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), MyInfoCtx, myInfo)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission 根据令牌中的角色检查权限，对象级别的检查在各个 handler 中进行
func (h *Handler) RequirePermission(perm permission.Permission) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleCtx, _ := r.Context().Value(RoleCtxKey).(string)
			if !permission.Has(domain.Role(roleCtx), perm) {
				h.forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) optimizationToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := h.config.Optimization.CallbackToken
		if expected == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Optimization-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			h.forbidden(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// urlID 解析路径中的 id，失败时直接返回 404
func (h *Handler) urlID(w http.ResponseWriter, r *http.Request, notFoundKey string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.notFound(w, r, notFoundKey)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) absenceType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.urlID(w, r, "ABSENCE_TYPE_NOT_FOUND")
		if !ok {
			return
		}

		t, err := h.repository.GetAbsenceTypeByID(id)
		if err != nil {
			h.handleError(w, r, err, "ABSENCE_TYPE_NOT_FOUND")
			return
		}

		myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
		if !permission.CanViewAbsenceType(myInfo, t) {
			h.notFound(w, r, "ABSENCE_TYPE_NOT_FOUND")
			return
		}

		ctx := context.WithValue(r.Context(), AbsenceTypeCtx, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) absence(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.urlID(w, r, "ABSENCE_NOT_FOUND")
		if !ok {
			return
		}

		a, err := h.repository.GetAbsenceByID(id)
		if err != nil {
			h.handleError(w, r, err, "ABSENCE_NOT_FOUND")
			return
		}

		ctx := context.WithValue(r.Context(), AbsenceCtx, a)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) generalAbsence(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.urlID(w, r, "GENERAL_ABSENCE_NOT_FOUND")
		if !ok {
			return
		}

		g, err := h.repository.GetGeneralAbsenceByID(id)
		if err != nil {
			h.handleError(w, r, err, "GENERAL_ABSENCE_NOT_FOUND")
			return
		}

		myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
		if !permission.CanRetrieveGeneralAbsence(myInfo, g) {
			h.notFound(w, r, "GENERAL_ABSENCE_NOT_FOUND")
			return
		}

		ctx := context.WithValue(r.Context(), GeneralAbsenceCtx, g)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) schedule(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.urlID(w, r, "SCHEDULE_NOT_FOUND")
		if !ok {
			return
		}

		myInfo := r.Context().Value(MyInfoCtx).(*domain.Employee)
		s, _, err := h.loadSchedule(id, myInfo)
		if err != nil {
			h.handleError(w, r, err, "SCHEDULE_NOT_FOUND")
			return
		}

		ctx := context.WithValue(r.Context(), ScheduleCtx, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
