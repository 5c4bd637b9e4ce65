package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError 是业务规则校验失败，Key 为前端本地化使用的消息键
type ValidationError struct {
	Field  string         `json:"field,omitempty"`
	Key    string         `json:"key"`
	Params map[string]any `json:"params,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Params) == 0 {
		return e.Key
	}

	keys := make([]string, 0, len(e.Params))
	for k := range e.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Params[k]))
	}
	return e.Key + " (" + strings.Join(parts, ", ") + ")"
}

func NewValidationError(field, key string) *ValidationError {
	return &ValidationError{Field: field, Key: key}
}

func (e *ValidationError) With(name string, value any) *ValidationError {
	if e.Params == nil {
		e.Params = make(map[string]any)
	}
	e.Params[name] = value
	return e
}
