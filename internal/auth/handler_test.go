package auth_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pulse/internal/auth"
	"github.com/odyssey-erp/pulse/internal/shared"
	_ "github.com/odyssey-erp/pulse/testing"
)

func newServer(t *testing.T, roll float64) *httptest.Server {
	t.Helper()
	svc := auth.NewService(auth.Config{
		Rand:   func() float64 { return roll },
		Faults: auth.DefaultFaultRates,
	})
	r := chi.NewRouter()
	r.Route("/api", auth.NewHandler(nil, svc).MountRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.String()
}

func TestHandlerVerifyPaths(t *testing.T) {
	srv := newServer(t, 0.9)

	resp, body := post(t, srv.URL+"/api/auth/verify", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"message":"Token is required"}`, body)

	resp, body = post(t, srv.URL+"/api/auth/verify", `{"token":"valid-token-123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"message":"Your email has been verified successfully!"}`, body)

	resp, body = post(t, srv.URL+"/api/auth/verify", `{not json`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"message":"An unexpected error occurred"}`, body)
}

func TestHandlerInjectedFault(t *testing.T) {
	srv := newServer(t, 0.01)
	resp, body := post(t, srv.URL+"/api/auth/password-reset-confirm", `{"token":"valid-token-123","newPassword":"longenough"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, auth.MsgResetFailed)
}

func TestClientRoundTrip(t *testing.T) {
	srv := newServer(t, 0.9)
	client := auth.NewClient(srv.URL+"/api", nil)
	ctx := context.Background()

	resp, err := client.RequestReset(ctx, auth.ResetRequest{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	_, err = client.ConfirmReset(ctx, auth.ResetConfirmRequest{Token: "valid-token-123", NewPassword: "short"})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindValidation))
	assert.Equal(t, auth.MsgPasswordTooShort, err.Error())
}

func TestClientServerErrorKeepsMessage(t *testing.T) {
	srv := newServer(t, 0.01)
	_, err := auth.NewClient(srv.URL+"/api", nil).Verify(context.Background(), auth.VerifyRequest{Token: "valid-token-123"})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindServer))
	assert.Equal(t, auth.MsgVerifyUnavailable, err.Error())
}

func TestClientWithoutBaseURL(t *testing.T) {
	_, err := auth.NewClient("", nil).Verify(context.Background(), auth.VerifyRequest{Token: "x"})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindConfiguration))
}

func TestFlowValidatesBeforeLoading(t *testing.T) {
	srv := newServer(t, 0.9)
	client := auth.NewClient(srv.URL+"/api", nil)
	flow := auth.NewFlow(client.ConfirmReset, time.Second)
	defer flow.Close()

	err := flow.Submit(auth.ResetConfirmRequest{Token: "valid-token-123", NewPassword: "longenough", Confirm: "different"})
	require.Error(t, err)
	assert.Equal(t, "Passwords do not match", err.Error())

	err = flow.Submit(auth.ResetConfirmRequest{Token: "valid-token-123", NewPassword: "short", Confirm: "short"})
	require.Error(t, err)
	assert.Equal(t, "Password must be at least 8 characters long", err.Error())

	require.NoError(t, flow.Submit(auth.ResetConfirmRequest{Token: "valid-token-123", NewPassword: "longenough", Confirm: "longenough"}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := flow.Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, state.Err)
	assert.Equal(t, auth.MsgPasswordReset, state.Value.Message)
}

func TestFlowEmailFormat(t *testing.T) {
	flow := auth.NewFlow(func(ctx context.Context, req auth.ResetRequest) (auth.Response, error) {
		return auth.Response{Success: true}, nil
	}, 0)
	defer flow.Close()

	err := flow.Submit(auth.ResetRequest{Email: "nope"})
	require.Error(t, err)
	assert.Equal(t, auth.MsgInvalidEmail, err.Error())
}
