// Package otp issues and checks one-time verification codes for signup, password reset and
// profile edits. Codes live in an external cache with a TTL so any instance can verify them.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/notify"
)

// Purpose scopes a code to one flow.
type Purpose string

const (
	PurposeSignup        Purpose = "signup"
	PurposePasswordReset Purpose = "password_reset"
	PurposeProfileEdit   Purpose = "profile_edit"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeSignup || p == PurposePasswordReset || p == PurposeProfileEdit
}

const codeDigits = 6

// Service issues and verifies codes.
type Service struct {
	cache    Cache
	notifier notify.Dispatcher
	ttl      time.Duration
	log      *zap.Logger
	nowFunc  func() time.Time
	codeFunc func() (string, error)
}

// NewService returns a Service whose codes expire after ttl.
func NewService(cache Cache, notifier notify.Dispatcher, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{
		cache:    cache,
		notifier: notifier,
		ttl:      ttl,
		log:      log,
		nowFunc:  time.Now,
		codeFunc: randomCode,
	}
}

func key(purpose Purpose, email string) string {
	return "otp:" + string(purpose) + ":" + strings.ToLower(strings.TrimSpace(email))
}

// Issue stores a fresh code for email, replacing any earlier one, and sends it. It returns the
// code's expiry.
func (s *Service) Issue(ctx context.Context, purpose Purpose, email string) (time.Time, error) {
	if !purpose.Valid() {
		return time.Time{}, domain.NewError(domain.CodeInvalidInput, "unknown purpose %q", purpose)
	}
	if !strings.Contains(email, "@") {
		return time.Time{}, domain.NewError(domain.CodeInvalidInput, "a valid email is required")
	}

	code, err := s.codeFunc()
	if err != nil {
		return time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	if err := s.cache.Set(ctx, key(purpose, email), code, s.ttl); err != nil {
		return time.Time{}, fmt.Errorf("store otp: %w", err)
	}

	s.notifier.Notify(ctx, notify.New(notify.ChannelEmail, email, notify.RoleUser, notify.TypeOTP,
		fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes())), string(purpose)))
	s.log.Info("otp issued", zap.String("purpose", string(purpose)))
	return s.nowFunc().Add(s.ttl), nil
}

// Verify consumes the code for email. A code is usable once; a wrong guess also burns it.
func (s *Service) Verify(ctx context.Context, purpose Purpose, email, code string) error {
	if !purpose.Valid() {
		return domain.NewError(domain.CodeInvalidInput, "unknown purpose %q", purpose)
	}
	stored, ok, err := s.cache.GetDel(ctx, key(purpose, email))
	if err != nil {
		return fmt.Errorf("read otp: %w", err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		return domain.NewError(domain.CodeOTPInvalid, "verification code is invalid or expired")
	}
	return nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
