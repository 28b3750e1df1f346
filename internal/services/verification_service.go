package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"homeserve/internal/cache"
	apperrors "homeserve/internal/errors"
	"homeserve/internal/logger"
	"homeserve/internal/mail"
	"homeserve/internal/metrics"
	"homeserve/internal/validator"
)

const codeDigits = 6

// Identity names who a verification code belongs to.
type Identity struct {
	Username string
	Email    string
}

// IssuedCode is the result of Generate. Code is never serialized.
type IssuedCode struct {
	Code      string    `json:"-"`
	ExpiresIn int       `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
}

// codeRecord is the value stored under a code key.
type codeRecord struct {
	Code          string    `json:"code"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Purpose       string    `json:"purpose"`
	SourceAddress string    `json:"source_address,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
}

// verificationService issues and checks single-use numeric codes. Codes and
// send throttles are separate TTL records so a code outlives its throttle.
type verificationService struct {
	store        cache.TTLStore
	mailer       mail.Sender
	codeTTL      time.Duration
	sendInterval time.Duration
	now          func() time.Time
}

// NewVerificationService creates a new VerificationServicer.
func NewVerificationService(store cache.TTLStore, mailer mail.Sender, codeTTL, sendInterval time.Duration) VerificationServicer {
	return &verificationService{
		store:        store,
		mailer:       mailer,
		codeTTL:      codeTTL,
		sendInterval: sendInterval,
		now:          time.Now,
	}
}

func codeKey(id Identity, purpose string) string {
	return fmt.Sprintf("code:%s:%s:%s", purpose, id.Username, id.Email)
}

func limitKey(id Identity, purpose string) string {
	return fmt.Sprintf("limit:%s:%s:%s", purpose, id.Username, id.Email)
}

func checkPurpose(purpose string) error {
	if !validator.IsCodePurpose(purpose) {
		return apperrors.WithDetails(
			apperrors.WithMessage(apperrors.ErrInvalidInput, "purpose must be one of: login, reset_password"),
			[]apperrors.FieldError{{Field: "purpose", Message: "purpose must be one of: login, reset_password"}},
		)
	}
	return nil
}

// Generate issues a new code, replacing any previous one, and starts the
// send throttle.
func (s *verificationService) Generate(ctx context.Context, id Identity, purpose, sourceAddress string) (*IssuedCode, error) {
	if err := checkPurpose(purpose); err != nil {
		return nil, err
	}

	code, err := randomCode(codeDigits)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	issuedAt := s.now().UTC()
	data, err := json.Marshal(codeRecord{
		Code:          code,
		Username:      id.Username,
		Email:         id.Email,
		Purpose:       purpose,
		SourceAddress: sourceAddress,
		IssuedAt:      issuedAt,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.store.SetWithExpiry(ctx, codeKey(id, purpose), string(data), s.codeTTL); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	if err := s.store.SetWithExpiry(ctx, limitKey(id, purpose), "1", s.sendInterval); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}

	metrics.VerificationCodesIssuedTotal.WithLabelValues(purpose).Inc()
	logger.Get().Infow("verification code issued",
		"username", id.Username,
		"purpose", purpose,
		"source_address", sourceAddress,
	)

	return &IssuedCode{
		Code:      code,
		ExpiresIn: int(s.codeTTL / time.Second),
		IssuedAt:  issuedAt,
	}, nil
}

// CanSendNew reports whether no send throttle is live.
func (s *verificationService) CanSendNew(ctx context.Context, id Identity, purpose string) (bool, error) {
	if err := checkPurpose(purpose); err != nil {
		return false, err
	}
	exists, err := s.store.Exists(ctx, limitKey(id, purpose))
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return !exists, nil
}

// Verify checks candidate against the live code and consumes it on a match.
// A mismatch leaves both the code and the throttle untouched.
func (s *verificationService) Verify(ctx context.Context, id Identity, purpose, candidate string) (bool, error) {
	if err := checkPurpose(purpose); err != nil {
		return false, err
	}

	key := codeKey(id, purpose)
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	if !ok {
		metrics.VerificationCodeChecksTotal.WithLabelValues(purpose, "absent").Inc()
		return false, nil
	}

	var record codeRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		logger.Get().Errorw("corrupt verification code record", "key", key, "error", err)
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(candidate)) != 1 {
		metrics.VerificationCodeChecksTotal.WithLabelValues(purpose, "mismatch").Inc()
		return false, nil
	}

	// Only the caller that removes this exact record wins.
	deleted, err := s.store.CompareAndDelete(ctx, key, raw)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	if !deleted {
		metrics.VerificationCodeChecksTotal.WithLabelValues(purpose, "consumed").Inc()
		return false, nil
	}

	metrics.VerificationCodeChecksTotal.WithLabelValues(purpose, "ok").Inc()
	return true, nil
}

// TimeToLive returns the seconds left on the live code.
func (s *verificationService) TimeToLive(ctx context.Context, id Identity, purpose string) (int, bool, error) {
	return s.ttl(ctx, codeKey(id, purpose), purpose)
}

// SendLimitTimeToLive returns the seconds left on the send throttle.
func (s *verificationService) SendLimitTimeToLive(ctx context.Context, id Identity, purpose string) (int, bool, error) {
	return s.ttl(ctx, limitKey(id, purpose), purpose)
}

func (s *verificationService) ttl(ctx context.Context, key, purpose string) (int, bool, error) {
	if err := checkPurpose(purpose); err != nil {
		return 0, false, err
	}
	d, ok, err := s.store.TTL(ctx, key)
	if err != nil {
		return 0, false, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	if !ok {
		return 0, false, nil
	}
	secs := int((d + time.Second - 1) / time.Second)
	return secs, true, nil
}

// Clear removes the code and the throttle. It reports whether either existed.
func (s *verificationService) Clear(ctx context.Context, id Identity, purpose string) (bool, error) {
	if err := checkPurpose(purpose); err != nil {
		return false, err
	}
	n, err := s.store.Delete(ctx, codeKey(id, purpose), limitKey(id, purpose))
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return n > 0, nil
}

// RequestCode issues a code unless the throttle is live and mails it to the
// identity's email address.
func (s *verificationService) RequestCode(ctx context.Context, id Identity, purpose, sourceAddress string) (*IssuedCode, error) {
	ok, err := s.CanSendNew(ctx, id, purpose)
	if err != nil {
		return nil, err
	}
	if !ok {
		wait, _, err := s.SendLimitTimeToLive(ctx, id, purpose)
		if err != nil {
			return nil, err
		}
		if wait < 1 {
			wait = 1
		}
		return nil, apperrors.WithRetryAfter(apperrors.ErrRateLimited,
			fmt.Sprintf("Please wait %d seconds before requesting a new code", wait), wait)
	}

	issued, err := s.Generate(ctx, id, purpose, sourceAddress)
	if err != nil {
		return nil, err
	}

	msg := mail.VerificationMessage(id.Email, issued.Code, purpose, s.codeTTL)
	if err := s.mailer.Send(ctx, msg); err != nil {
		// Undelivered codes must not hold the throttle.
		if _, derr := s.store.Delete(ctx, codeKey(id, purpose), limitKey(id, purpose)); derr != nil {
			logger.Get().Errorw("failed to clear undelivered code", "username", id.Username, "error", derr)
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, err)
	}
	return issued, nil
}

// randomCode returns a uniformly random zero-padded numeric string.
func randomCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
