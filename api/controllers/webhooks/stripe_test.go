package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const testSecret = "whsec_test"

type fakeStripeWebhookService struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeStripeWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (f *fakeSigningClient) SigningSecret() string {
	return f.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]string{}}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func newHandler(t *testing.T, svc *fakeStripeWebhookService) http.HandlerFunc {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, stripewebhook.IdempotencyScope)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return StripeWebhook(svc, &fakeSigningClient{secret: testSecret}, guard, 0, nil)
}

func deliver(h http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set(signatureHeader, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhook_SuccessAndIdempotent(t *testing.T) {
	svc := &fakeStripeWebhookService{}
	handler := newHandler(t, svc)
	payload, header := buildSignedEvent(t, "evt_"+uuid.NewString())

	rec := deliver(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = deliver(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected duplicate not processed, call count %d", svc.calls)
	}
}

func TestStripeWebhook_SignatureRejected(t *testing.T) {
	payload, _ := buildSignedEvent(t, "evt_sig")
	cases := map[string]string{
		"missing":   "",
		"invalid":   "t=1,v1=invalid",
		"wrong key": signPayload(payload, "whsec_other", time.Now()),
		"stale":     signPayload(payload, testSecret, time.Now().Add(-time.Hour)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeStripeWebhookService{}
			rec := deliver(newHandler(t, svc), payload, header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if svc.calls != 0 {
				t.Fatalf("service should not be invoked on invalid signature")
			}
		})
	}
}

func TestStripeWebhook_FailureReleasesMark(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"transient":     {err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("stripe timeout"), "list line items"), status: http.StatusServiceUnavailable},
		"irrecoverable": {err: pkgerrors.New(pkgerrors.CodeReconciliation, "line item count mismatch"), status: http.StatusUnprocessableEntity},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeStripeWebhookService{err: tc.err}
			handler := newHandler(t, svc)
			payload, header := buildSignedEvent(t, "evt_"+name)

			rec := deliver(handler, payload, header)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}

			svc.err = nil
			rec = deliver(handler, payload, header)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected redelivery to succeed, got %d", rec.Code)
			}
			if svc.calls != 2 {
				t.Fatalf("expected redelivery processed, calls %d", svc.calls)
			}
		})
	}
}

func TestStripeWebhook_BodyTooLarge(t *testing.T) {
	svc := &fakeStripeWebhookService{}
	guard, _ := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, stripewebhook.IdempotencyScope)
	handler := StripeWebhook(svc, &fakeSigningClient{secret: testSecret}, guard, 128, nil)

	payload := []byte(`{"id":"evt_big","pad":"` + strings.Repeat("x", 512) + `"}`)
	rec := deliver(handler, payload, signPayload(payload, testSecret, time.Now()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("oversized body must not be processed")
	}
}

func buildSignedEvent(t *testing.T, eventID string) ([]byte, string) {
	t.Helper()
	session := map[string]any{
		"id":             "cs_test_" + uuid.NewString(),
		"object":         "checkout.session",
		"status":         "complete",
		"payment_status": "paid",
		"amount_total":   5000,
		"currency":       "usd",
	}
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	event := map[string]any{
		"id":          eventID,
		"object":      "event",
		"type":        string(stripe.EventTypeCheckoutSessionCompleted),
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data":        map[string]json.RawMessage{"object": raw},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, signPayload(payload, testSecret, time.Now())
}

func signPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
