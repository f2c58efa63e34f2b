package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	// Detail is the "detail" field of the JSON error body, or the raw body.
	Detail string
	// ModelStatus is the lower-cased x-model-status header (booting, paused).
	ModelStatus string
	Method      string
	Path        string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// HTTPStatus exposes the status to packages that must not import api.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// StatusOf returns the HTTP status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// IsStatus reports whether err carries one of codes.
func IsStatus(err error, codes ...int) bool {
	status, ok := StatusOf(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if c == status {
			return true
		}
	}
	return false
}

// DetailOf returns the backend's detail message, or "" for other errors.
func DetailOf(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Detail
	}
	return ""
}

// ModelStatusOf returns the x-model-status carried by err, or "".
func ModelStatusOf(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.ModelStatus
	}
	return ""
}

const maxDetail = 2048

// parseDetail reads FastAPI error bodies: {"detail": "..."} or a validation
// list {"detail": [{"msg": "..."}]}. Anything else is returned raw.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Detail) > 0 {
		var s string
		if err := json.Unmarshal(env.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(env.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxDetail {
		s = s[:maxDetail]
	}
	return s
}
