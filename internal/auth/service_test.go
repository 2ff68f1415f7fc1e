package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pulse/internal/shared"
)

type recordingMailer struct {
	mu     sync.Mutex
	emails []string
	tokens []string
	err    error
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.emails = append(m.emails, email)
	m.tokens = append(m.tokens, token)
	return nil
}

func newService(store Store, mailer Mailer, roll float64) *Service {
	return NewService(Config{
		Store:  store,
		Mailer: mailer,
		Rand:   func() float64 { return roll },
		Faults: DefaultFaultRates,
	})
}

func assertRejected(t *testing.T, err error, status int, msg string) {
	t.Helper()
	var e *shared.Error
	require.True(t, errors.As(err, &e), "expected *shared.Error, got %v", err)
	assert.Equal(t, status, e.Status)
	assert.Equal(t, msg, e.Message)
}

func TestVerify(t *testing.T) {
	svc := newService(nil, nil, 0.9)
	ctx := context.Background()

	_, err := svc.Verify(ctx, VerifyRequest{})
	assertRejected(t, err, 400, MsgTokenRequired)

	_, err = svc.Verify(ctx, VerifyRequest{Token: "invalid"})
	assertRejected(t, err, 400, MsgInvalidVerifyToken)

	_, err = svc.Verify(ctx, VerifyRequest{Token: "short"})
	assertRejected(t, err, 400, MsgInvalidVerifyToken)

	resp, err := svc.Verify(ctx, VerifyRequest{Token: "valid-token-123"})
	require.NoError(t, err)
	assert.Equal(t, Response{Success: true, Message: MsgVerified}, resp)

	_, err = newService(nil, nil, 0.1).Verify(ctx, VerifyRequest{Token: "valid-token-123"})
	assertRejected(t, err, 500, MsgVerifyUnavailable)
}

func TestRequestResetIssuesTokenAndMails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mailer := &recordingMailer{}
	svc := newService(NewRedisStore(client), mailer, 0.9)
	ctx := context.Background()

	_, err := svc.RequestReset(ctx, ResetRequest{})
	assertRejected(t, err, 400, MsgEmailRequired)
	_, err = svc.RequestReset(ctx, ResetRequest{Email: "not-an-email"})
	assertRejected(t, err, 400, MsgInvalidEmail)

	resp, err := svc.RequestReset(ctx, ResetRequest{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, MsgResetSent, resp.Message)
	require.Len(t, mailer.tokens, 1)
	assert.True(t, mr.Exists(resetTokenPrefix+mailer.tokens[0]))

	resp, err = svc.ConfirmReset(ctx, ResetConfirmRequest{Token: mailer.tokens[0], NewPassword: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, MsgPasswordReset, resp.Message)
	assert.False(t, mr.Exists(resetTokenPrefix+mailer.tokens[0]), "token is single use")

	ok, err := svc.CheckPassword(ctx, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRequestResetFaultAndMailerFailure(t *testing.T) {
	ctx := context.Background()
	_, err := newService(nil, &recordingMailer{}, 0.1).RequestReset(ctx, ResetRequest{Email: "ana@example.com"})
	assertRejected(t, err, 500, MsgResetUnavailable)

	_, err = newService(nil, &recordingMailer{err: errors.New("queue down")}, 0.9).RequestReset(ctx, ResetRequest{Email: "ana@example.com"})
	assertRejected(t, err, 500, MsgResetUnavailable)
}

func TestConfirmResetValidation(t *testing.T) {
	svc := newService(nil, nil, 0.9)
	ctx := context.Background()

	_, err := svc.ConfirmReset(ctx, ResetConfirmRequest{Token: "valid-token-123"})
	assertRejected(t, err, 400, MsgTokenPasswordRequired)
	_, err = svc.ConfirmReset(ctx, ResetConfirmRequest{Token: "invalid", NewPassword: "longenough"})
	assertRejected(t, err, 400, MsgInvalidResetToken)
	_, err = svc.ConfirmReset(ctx, ResetConfirmRequest{Token: "valid-token-123", NewPassword: "short"})
	assertRejected(t, err, 400, MsgPasswordTooShort)
	_, err = newService(nil, nil, 0.05).ConfirmReset(ctx, ResetConfirmRequest{Token: "valid-token-123", NewPassword: "longenough"})
	assertRejected(t, err, 500, MsgResetFailed)

	_, err = svc.ConfirmReset(ctx, ResetConfirmRequest{Token: "valid-token-123", NewPassword: "longenough"})
	require.NoError(t, err)
	ok, err := svc.CheckPassword(ctx, "token:valid-token-123", "longenough")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServiceDelayUsesClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewService(Config{Clock: clock, Delays: DefaultDelays})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Verify(context.Background(), VerifyRequest{Token: "valid-token-123"})
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultDelays.Verify)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("verify did not complete")
	}
}
