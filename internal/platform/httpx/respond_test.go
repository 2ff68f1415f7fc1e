package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pulse/internal/shared"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{shared.Server("Internal Server Error"), http.StatusInternalServerError, `{"error":"Internal Server Error"}`},
		{shared.Validation("Email is required"), http.StatusBadRequest, `{"error":"Email is required"}`},
		{errors.New("boom"), http.StatusInternalServerError, `{"error":"boom"}`},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code)
		assert.JSONEq(t, tc.body, rr.Body.String())
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	}
}

func TestStatusForHonoursExplicitStatus(t *testing.T) {
	e := shared.Network("API error: 404 Not Found")
	e.Status = http.StatusNotFound
	assert.Equal(t, http.StatusNotFound, StatusFor(e))
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Token string `json:"token"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"abc"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "abc", target.Token)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.Error(t, DecodeJSON(req, &target))
}
