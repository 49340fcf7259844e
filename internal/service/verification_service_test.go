package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/kafka"
	"github.com/fathima-sithara/conversation-service/internal/ratelimit"
	"github.com/fathima-sithara/conversation-service/internal/repository/memory"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, _ string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, message)
	return nil
}

func (f *fakeSMS) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	code := codePattern.FindString(f.sent[len(f.sent)-1])
	require.NotEmpty(t, code)
	return code
}

type verificationFixture struct {
	store  *memory.Store
	sms    *fakeSMS
	events *recordingPublisher
	clock  *fakeTime
	svc    *VerificationService
}

func newVerificationFixture(t *testing.T, perHour int) *verificationFixture {
	t.Helper()
	f := &verificationFixture{
		store:  memory.New(),
		sms:    &fakeSMS{},
		events: &recordingPublisher{},
		clock:  &fakeTime{now: testEpoch},
	}
	f.svc = NewVerificationService(VerificationDeps{
		Repo:        f.store.Verifications,
		Limiter:     ratelimit.NewMemoryLimiter(perHour, time.Hour),
		SMS:         f.sms,
		Events:      f.events,
		TTL:         5 * time.Minute,
		MaxAttempts: 3,
		Clock:       utils.NewClockFunc(f.clock.Now),
		Logger:      zap.NewNop().Sugar(),
	})
	f.svc.hashCost = bcrypt.MinCost
	return f
}

const phone = "+14155550123"

func TestVerification_HappyPath(t *testing.T) {
	f := newVerificationFixture(t, 5)
	ctx := context.Background()

	expires, err := f.svc.RequestCode(ctx, "u1", phone)
	require.NoError(t, err)
	assert.True(t, expires.Equal(testEpoch.Add(5*time.Minute)))

	stored, err := f.store.Verifications.Get(ctx, "u1:"+phone)
	require.NoError(t, err)
	code := f.sms.lastCode(t)
	assert.NotEqual(t, code, stored.CodeHash)

	require.NoError(t, f.svc.VerifyCode(ctx, "u1", phone, code))
	assert.Equal(t, []string{kafka.EventPhoneVerified}, f.events.Types())

	// The code is single use.
	assert.ErrorIs(t, f.svc.VerifyCode(ctx, "u1", phone, code), domain.ErrNotFound)
}

func TestVerification_WrongCodeCountsAttempts(t *testing.T) {
	f := newVerificationFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.RequestCode(ctx, "u1", phone)
	require.NoError(t, err)
	code := f.sms.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, f.svc.VerifyCode(ctx, "u1", phone, wrong), ErrInvalidCode)
	}
	err = f.svc.VerifyCode(ctx, "u1", phone, code)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVerification_Expired(t *testing.T) {
	f := newVerificationFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.RequestCode(ctx, "u1", phone)
	require.NoError(t, err)
	code := f.sms.lastCode(t)

	f.clock.Advance(6 * time.Minute)
	assert.ErrorIs(t, f.svc.VerifyCode(ctx, "u1", phone, code), ErrCodeExpired)
	_, err = f.store.Verifications.Get(ctx, "u1:"+phone)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerification_NewRequestReplacesOldCode(t *testing.T) {
	f := newVerificationFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.RequestCode(ctx, "u1", phone)
	require.NoError(t, err)
	first := f.sms.lastCode(t)
	_, err = f.svc.RequestCode(ctx, "u1", phone)
	require.NoError(t, err)
	second := f.sms.lastCode(t)

	if first != second {
		assert.ErrorIs(t, f.svc.VerifyCode(ctx, "u1", phone, first), ErrInvalidCode)
	}
	require.NoError(t, f.svc.VerifyCode(ctx, "u1", phone, second))
}

func TestVerification_RateLimited(t *testing.T) {
	f := newVerificationFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.RequestCode(ctx, "u1", phone)
	require.NoError(t, err)
	_, err = f.svc.RequestCode(ctx, "u1", phone)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestVerification_InputAndDeliveryErrors(t *testing.T) {
	f := newVerificationFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.RequestCode(ctx, "u1", "0123")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, f.svc.VerifyCode(ctx, "u1", phone, "12ab56"), domain.ErrValidation)

	f.sms.err = errors.New("twilio down")
	_, err = f.svc.RequestCode(ctx, "u1", phone)
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}
