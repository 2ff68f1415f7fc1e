// Package httpx provides HTTP response utilities.
package httpx

import (
	"net/http"

	"github.com/odyssey-erp/pulse/internal/shared"
)

// StatusFor maps an error onto an HTTP status code. Errors outside the
// shared taxonomy are treated as server faults.
func StatusFor(err error) int {
	e := shared.AsError(err)
	if e == nil {
		return http.StatusOK
	}
	if e.Status >= 400 {
		return e.Status
	}
	switch e.Kind {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as an ErrorBody with the mapped status.
func RespondError(w http.ResponseWriter, err error) {
	e := shared.AsError(err)
	if e == nil {
		e = shared.Server("Internal Server Error")
	}
	JSON(w, StatusFor(e), ErrorBody{Error: e.Message})
}
