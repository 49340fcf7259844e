package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/kafka"
	"github.com/fathima-sithara/conversation-service/internal/ratelimit"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/twilio"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const otpLength = 6

var (
	ErrInvalidCode      = fmt.Errorf("%w: invalid verification code", domain.ErrValidation)
	ErrCodeExpired      = fmt.Errorf("%w: verification code has expired", domain.ErrValidation)
	ErrTooManyAttempts  = fmt.Errorf("%w: too many attempts, request a new code", domain.ErrValidation)
	ErrOTPRateLimited   = fmt.Errorf("%w: too many verification requests, please try again later", domain.ErrRateLimited)
	ErrSMSUndeliverable = fmt.Errorf("%w: could not deliver verification sms", domain.ErrNetworkFailure)
)

type VerificationDeps struct {
	Repo        repository.VerificationRepository
	Limiter     ratelimit.Limiter
	SMS         twilio.Client
	Events      EventPublisher
	Validate    *validator.Validate
	TTL         time.Duration
	MaxAttempts int
	Clock       *utils.Clock
	Logger      *zap.SugaredLogger
}

// VerificationService runs phone number verification by SMS code.
type VerificationService struct {
	repo        repository.VerificationRepository
	limiter     ratelimit.Limiter
	sms         twilio.Client
	events      EventPublisher
	validate    *validator.Validate
	ttl         time.Duration
	maxAttempts int
	hashCost    int
	clock       *utils.Clock
	logger      *zap.SugaredLogger
}

func NewVerificationService(d VerificationDeps) *VerificationService {
	if d.Events == nil {
		d.Events = noopPublisher{}
	}
	if d.Clock == nil {
		d.Clock = utils.NewClock()
	}
	if d.Validate == nil {
		d.Validate = utils.NewValidator()
	}
	return &VerificationService{
		repo:        d.Repo,
		limiter:     d.Limiter,
		sms:         d.SMS,
		events:      d.Events,
		validate:    d.Validate,
		ttl:         d.TTL,
		maxAttempts: d.MaxAttempts,
		hashCost:    bcrypt.DefaultCost,
		clock:       d.Clock,
		logger:      d.Logger,
	}
}

type phoneInput struct {
	UserID string `validate:"required"`
	Phone  string `validate:"required,e164"`
}

type codeInput struct {
	UserID string `validate:"required"`
	Phone  string `validate:"required,e164"`
	Code   string `validate:"required,len=6,numeric"`
}

func verificationID(userID, phone string) string {
	return userID + ":" + phone
}

// RequestCode sends a fresh code to phone, replacing any earlier pending one.
func (s *VerificationService) RequestCode(ctx context.Context, userID, phone string) (time.Time, error) {
	if err := s.validate.Struct(phoneInput{UserID: userID, Phone: phone}); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	allowed, err := s.limiter.Allow(ctx, "otp:"+phone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: rate limiter: %v", domain.ErrNetworkFailure, err)
	}
	if !allowed {
		return time.Time{}, ErrOTPRateLimited
	}

	code, err := utils.GenerateOTP(otpLength)
	if err != nil {
		return time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return time.Time{}, fmt.Errorf("hash otp: %w", err)
	}

	now := s.clock.Now()
	v := &domain.PhoneVerification{
		ID:          verificationID(userID, phone),
		UserID:      userID,
		PhoneNumber: phone,
		CodeHash:    string(hash),
		Attempts:    0,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, v); err != nil {
		return time.Time{}, err
	}

	msg := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes()))
	if err := s.sms.SendSMS(ctx, phone, msg); err != nil {
		s.logger.Errorw("send verification sms failed", "user_id", userID, "error", err)
		return time.Time{}, fmt.Errorf("%w: %v", ErrSMSUndeliverable, err)
	}
	s.logger.Infow("verification code sent", "user_id", userID)
	return v.ExpiresAt, nil
}

// VerifyCode checks code against the pending verification for phone. A
// successful check consumes the verification.
func (s *VerificationService) VerifyCode(ctx context.Context, userID, phone, code string) error {
	if err := s.validate.Struct(codeInput{UserID: userID, Phone: phone, Code: code}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	id := verificationID(userID, phone)

	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if v.Expired(s.clock.Now()) {
		if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warnw("drop expired verification failed", "id", id, "error", err)
		}
		return ErrCodeExpired
	}
	if s.maxAttempts > 0 && v.Attempts >= s.maxAttempts {
		return ErrTooManyAttempts
	}

	if err := bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(code)); err != nil {
		if err := s.repo.IncrementAttempts(ctx, id); err != nil {
			return err
		}
		return ErrInvalidCode
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Publish(ctx, kafka.Event{Type: kafka.EventPhoneVerified, ActorID: userID})
	s.logger.Infow("phone verified", "user_id", userID)
	return nil
}
