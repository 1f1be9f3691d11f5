package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aliasttt/bonusweb-sub000/internal/customers"
	"github.com/aliasttt/bonusweb-sub000/pkg/config"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
	"github.com/aliasttt/bonusweb-sub000/pkg/redis"
)

const (
	sendLimit  = 5
	sendWindow = time.Hour
)

// Sender delivers a verification code to a phone number. The SMS integration
// lives behind this interface; the default implementation only logs.
type Sender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// Service manages phone verification. Codes are held only in Redis under a
// TTL; nothing is persisted until the check succeeds and the phone lands on
// the customer row.
type Service interface {
	Send(ctx context.Context, subject, phone string) error
	Check(ctx context.Context, subject, phone, code string) error
}

type limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type service struct {
	store     redis.VerificationStore
	limiter   limiter
	customers customers.Repository
	sender    Sender
	cfg       config.VerificationConfig
	logg      *logger.Logger
}

// NewService builds the verification service. Sender may be nil, in which
// case codes are only logged (dev behavior).
func NewService(client *redis.Client, repo customers.Repository, sender Sender, cfg config.VerificationConfig, logg *logger.Logger) Service {
	s := &service{
		store:     client,
		limiter:   client,
		customers: repo,
		cfg:       cfg,
		logg:      logg,
	}
	if sender != nil {
		s.sender = sender
	} else {
		s.sender = &logSender{logg: logg}
	}
	return s
}

func (s *service) Send(ctx context.Context, subject, phone string) error {
	if subject == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	phone = normalizePhone(phone)
	if phone == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "verification:"+phone, sendLimit, sendWindow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit check")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many verification attempts")
	}

	customer, err := s.customers.GetOrCreateBySubject(ctx, subject)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve customer")
	}

	code, err := generateCode(s.cfg.CodeLength)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
	}

	key := s.store.VerificationKey(customer.ID.String(), phone)
	if err := s.store.Set(ctx, key, code, s.cfg.CodeTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store code")
	}

	if err := s.sender.SendCode(ctx, phone, code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send code")
	}
	return nil
}

func (s *service) Check(ctx context.Context, subject, phone, code string) error {
	if subject == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	phone = normalizePhone(phone)
	if phone == "" || code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone and code are required")
	}

	customer, err := s.customers.GetOrCreateBySubject(ctx, subject)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve customer")
	}

	key := s.store.VerificationKey(customer.ID.String(), phone)
	stored, err := s.store.Get(ctx, key)
	if err != nil {
		if err == goredis.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "code expired or not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid verification code")
	}

	now := time.Now().UTC()
	if err := s.customers.SetPhone(ctx, customer.ID, phone, &now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store verified phone")
	}

	// One-shot codes: delete after a successful check. Failure here only
	// means the key lingers until its TTL.
	if err := s.store.Del(ctx, key); err != nil {
		s.logg.Warn(ctx, "deleting consumed verification code failed")
	}
	return nil
}

func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	if b.Len() < 7 {
		return ""
	}
	return b.String()
}

type logSender struct {
	logg *logger.Logger
}

func (l *logSender) SendCode(ctx context.Context, phone, code string) error {
	if l.logg != nil {
		ctx = l.logg.WithFields(ctx, map[string]any{"phone": phone, "code": code})
		l.logg.Info(ctx, "verification code issued")
	}
	return nil
}
