package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/roach88/pulsegrid/internal/store"
	"github.com/roach88/pulsegrid/internal/tableapi"
)

var (
	errRouteNotFound    = errors.New("route not found")
	errMethodNotAllowed = errors.New("method not allowed")
	errUnauthorized     = errors.New("missing or invalid bearer token")
)

// statusOf maps repository errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound
	case store.IsInvalid(err):
		return http.StatusBadRequest
	case store.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func codeOf(status int) string {
	switch {
	case status == http.StatusNotFound:
		return tableapi.CodeNotFound
	case status == http.StatusConflict:
		return tableapi.CodeConflict
	case status >= 500:
		return tableapi.CodeInternal
	default:
		return tableapi.CodeBadRequest
	}
}

// writeError writes the JSON error envelope. Internal errors hide their
// cause from the client.
func writeError(c *gin.Context, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		c.Error(err) //nolint:errcheck
		msg = "internal error"
	}
	writeJSON(c, status, tableapi.ErrorBody{Error: tableapi.ErrorDetail{
		Code:    codeOf(status),
		Message: msg,
	}})
}

// writeRepoError maps a repository error and writes it.
func writeRepoError(c *gin.Context, err error) {
	writeError(c, statusOf(err), err)
}

func writeJSON(c *gin.Context, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Error(err) //nolint:errcheck
		c.Data(http.StatusInternalServerError, "application/json",
			[]byte(`{"error":{"code":"INTERNAL","message":"encode response"}}`))
		return
	}
	c.Data(status, "application/json", data)
}
