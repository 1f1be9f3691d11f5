package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/internal/customers"
	"github.com/aliasttt/bonusweb-sub000/pkg/config"
	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
)

type fakeStore struct {
	values map[string]string
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeStore) VerificationKey(customerID, phone string) string {
	return "verify:" + customerID + ":" + phone
}

type fakeLimiter struct {
	calls   int
	allowed bool
}

func (f *fakeLimiter) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	f.calls++
	return f.allowed, int64(f.calls), nil
}

type capturingSender struct {
	phone string
	code  string
}

func (c *capturingSender) SendCode(_ context.Context, phone, code string) error {
	c.phone = phone
	c.code = code
	return nil
}

func setupVerificationTest(t *testing.T, allowed bool) (*service, *fakeStore, *capturingSender, *gorm.DB) {
	t.Helper()

	dsn := "file:verification_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Customer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := &fakeStore{values: map[string]string{}}
	sender := &capturingSender{}
	svc := &service{
		store:     store,
		limiter:   &fakeLimiter{allowed: allowed},
		customers: customers.NewRepository(conn),
		sender:    sender,
		cfg:       config.VerificationConfig{CodeLength: 6, CodeTTL: 5 * time.Minute},
		logg:      logger.New(logger.Options{ServiceName: "test"}),
	}
	return svc, store, sender, conn
}

func TestSendAndCheckVerifiesPhone(t *testing.T) {
	svc, store, sender, conn := setupVerificationTest(t, true)
	subject := uuid.NewString()

	if err := svc.Send(context.Background(), subject, "+1 (555) 010-2030"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if sender.phone != "+15550102030" {
		t.Fatalf("expected normalized phone, got %q", sender.phone)
	}
	if len(sender.code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", sender.code)
	}

	if err := svc.Check(context.Background(), subject, "+15550102030", sender.code); err != nil {
		t.Fatalf("check: %v", err)
	}

	var customer models.Customer
	if err := conn.First(&customer, "subject = ?", subject).Error; err != nil {
		t.Fatalf("load customer: %v", err)
	}
	if customer.Phone == nil || *customer.Phone != "+15550102030" {
		t.Fatalf("expected verified phone on customer, got %v", customer.Phone)
	}
	if customer.PhoneVerifiedAt == nil {
		t.Fatal("expected verification timestamp")
	}
	if len(store.values) != 0 {
		t.Fatal("expected consumed code to be deleted")
	}
}

func TestCheckRejectsWrongOrMissingCode(t *testing.T) {
	svc, _, sender, _ := setupVerificationTest(t, true)
	subject := uuid.NewString()

	if err := svc.Send(context.Background(), subject, "+15550102030"); err != nil {
		t.Fatalf("send: %v", err)
	}

	err := svc.Check(context.Background(), subject, "+15550102030", "000000"+sender.code)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for wrong code, got %v", err)
	}

	err = svc.Check(context.Background(), subject, "+15550109999", sender.code)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for unknown phone, got %v", err)
	}
}

func TestSendHonorsRateLimit(t *testing.T) {
	svc, _, _, _ := setupVerificationTest(t, false)

	err := svc.Send(context.Background(), uuid.NewString(), "+15550102030")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %v", err)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+1 (555) 010-2030", "+15550102030"},
		{"  5550102030  ", "5550102030"},
		{"12345", ""},
		{"call me", ""},
	}
	for _, tc := range cases {
		if got := normalizePhone(tc.in); got != tc.want {
			t.Fatalf("normalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
