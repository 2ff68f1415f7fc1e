package auth

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/pulse/internal/shared"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Delays simulate backend latency per endpoint.
type Delays struct {
	Verify       time.Duration
	ResetRequest time.Duration
	ResetConfirm time.Duration
}

// FaultRates are the probabilities of an injected 500 per endpoint.
type FaultRates struct {
	Verify       float64
	ResetRequest float64
	ResetConfirm float64
}

// Defaults mirror the simulated backend.
var (
	DefaultDelays     = Delays{Verify: 1500 * time.Millisecond, ResetRequest: time.Second, ResetConfirm: 1200 * time.Millisecond}
	DefaultFaultRates = FaultRates{Verify: 0.20, ResetRequest: 0.15, ResetConfirm: 0.15}
)

// DefaultResetTokenTTL bounds how long an emailed reset link is honoured.
const DefaultResetTokenTTL = time.Hour

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Config wires a Service.
type Config struct {
	Store    Store
	Mailer   Mailer
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Rand     func() float64
	Delays   Delays
	Faults   FaultRates
	TokenTTL time.Duration
}

// Service implements the token-based auth flows.
type Service struct {
	store    Store
	mailer   Mailer
	logger   *slog.Logger
	clock    clockwork.Clock
	rand     func() float64
	delays   Delays
	faults   FaultRates
	tokenTTL time.Duration
}

// NewService constructs a Service. Zero Delays and FaultRates disable
// simulation; callers pass DefaultDelays and DefaultFaultRates explicitly.
func NewService(cfg Config) *Service {
	s := &Service{
		store:    cfg.Store,
		mailer:   cfg.Mailer,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		rand:     cfg.Rand,
		delays:   cfg.Delays,
		faults:   cfg.Faults,
		tokenTTL: cfg.TokenTTL,
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.rand == nil {
		s.rand = rand.Float64
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = DefaultResetTokenTTL
	}
	return s
}

// Verify confirms an email verification token.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (Response, error) {
	if err := s.sleep(ctx, s.delays.Verify); err != nil {
		return Response{}, err
	}
	if req.Token == "" {
		return Response{}, badRequest(MsgTokenRequired)
	}
	if !wellFormedToken(req.Token) {
		return Response{}, badRequest(MsgInvalidVerifyToken)
	}
	if s.fault(s.faults.Verify) {
		return Response{}, unavailable(MsgVerifyUnavailable)
	}
	return Response{Success: true, Message: MsgVerified}, nil
}

// RequestReset issues a reset token and mails it.
func (s *Service) RequestReset(ctx context.Context, req ResetRequest) (Response, error) {
	if err := s.sleep(ctx, s.delays.ResetRequest); err != nil {
		return Response{}, err
	}
	if req.Email == "" {
		return Response{}, badRequest(MsgEmailRequired)
	}
	if !emailPattern.MatchString(req.Email) {
		return Response{}, badRequest(MsgInvalidEmail)
	}
	if s.fault(s.faults.ResetRequest) {
		return Response{}, unavailable(MsgResetUnavailable)
	}

	token := uuid.NewString()
	if err := s.store.IssueResetToken(ctx, token, req.Email, s.tokenTTL); err != nil {
		s.logger.Error("issue reset token", slog.Any("error", err))
		return Response{}, unavailable(MsgResetUnavailable).WithCause(err)
	}
	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, req.Email, token); err != nil {
			s.logger.Error("enqueue reset mail", slog.Any("error", err))
			return Response{}, unavailable(MsgResetUnavailable).WithCause(err)
		}
	}
	return Response{Success: true, Message: MsgResetSent}, nil
}

// ConfirmReset stores a new password for the holder of a reset token. Tokens
// that pass the format check but were never issued by this instance still
// succeed; the hash is then filed under the token itself.
func (s *Service) ConfirmReset(ctx context.Context, req ResetConfirmRequest) (Response, error) {
	if err := s.sleep(ctx, s.delays.ResetConfirm); err != nil {
		return Response{}, err
	}
	if req.Token == "" || req.NewPassword == "" {
		return Response{}, badRequest(MsgTokenPasswordRequired)
	}
	if !wellFormedToken(req.Token) {
		return Response{}, badRequest(MsgInvalidResetToken)
	}
	if len(req.NewPassword) < MinPasswordLength {
		return Response{}, badRequest(MsgPasswordTooShort)
	}
	if s.fault(s.faults.ResetConfirm) {
		return Response{}, unavailable(MsgResetFailed)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return Response{}, unavailable(MsgResetFailed).WithCause(err)
	}
	subject, ok, err := s.store.ConsumeResetToken(ctx, req.Token)
	if err != nil {
		s.logger.Error("consume reset token", slog.Any("error", err))
		return Response{}, unavailable(MsgResetFailed).WithCause(err)
	}
	if !ok {
		subject = "token:" + req.Token
	}
	if err := s.store.SetPasswordHash(ctx, subject, hash); err != nil {
		s.logger.Error("store password hash", slog.Any("error", err))
		return Response{}, unavailable(MsgResetFailed).WithCause(err)
	}
	return Response{Success: true, Message: MsgPasswordReset}, nil
}

// CheckPassword reports whether password matches the stored hash for subject.
func (s *Service) CheckPassword(ctx context.Context, subject, password string) (bool, error) {
	hash, err := s.store.PasswordHash(ctx, subject)
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil, nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return shared.AsError(err)
		}
		return nil
	}
	select {
	case <-ctx.Done():
		return shared.AsError(ctx.Err())
	case <-s.clock.After(d):
		return nil
	}
}

func (s *Service) fault(rate float64) bool {
	return rate > 0 && s.rand() < rate
}

func wellFormedToken(token string) bool {
	return token != "invalid" && len(token) >= minTokenLength
}

func badRequest(msg string) *shared.Error {
	e := shared.Validation("%s", msg)
	e.Status = http.StatusBadRequest
	return e
}

func unavailable(msg string) *shared.Error {
	e := shared.Server("%s", msg)
	e.Status = http.StatusInternalServerError
	return e
}
