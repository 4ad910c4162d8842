package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCheckout struct {
	got   *checkoutsvc.Request
	err   error
	calls int
}

func (s *stubCheckout) Initiate(ctx context.Context, req checkoutsvc.Request) (*checkoutsvc.Session, error) {
	s.calls++
	s.got = &req
	if s.err != nil {
		return nil, s.err
	}
	return &checkoutsvc.Session{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

type stubCarts struct {
	cartsvc.Service
	snapshot *cartsvc.Snapshot
	cleared  string
}

func (s *stubCarts) Get(ctx context.Context, buyerID string) (*cartsvc.Snapshot, error) {
	return s.snapshot, nil
}

func (s *stubCarts) Clear(ctx context.Context, buyerID string) error {
	if buyerID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	s.cleared = buyerID
	return nil
}

func post(h http.Handler, buyerID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if buyerID != "" {
		req = req.WithContext(middleware.WithBuyer(req.Context(), buyerID, buyerID+"@example.com"))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInitiateWithBodyItems(t *testing.T) {
	svc := &stubCheckout{}
	h := Initiate(svc, &stubCarts{}, nil)

	rec := post(h, "", `{"email":"guest@example.com","items":[{"product_ref":"p1","name":"Lamp","price":"25.00","quantity":2}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data checkoutsvc.Session `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.URL == "" || envelope.Data.ID != "cs_test_1" {
		t.Fatalf("unexpected session %+v", envelope.Data)
	}
	if svc.got.BuyerID != "" || svc.got.Email != "guest@example.com" {
		t.Fatalf("unexpected request %+v", svc.got)
	}
	if len(svc.got.Items) != 1 || svc.got.Items[0].UnitPriceCents != 2500 || svc.got.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", svc.got.Items)
	}
}

func TestInitiateFallsBackToStoredCart(t *testing.T) {
	svc := &stubCheckout{}
	carts := &stubCarts{snapshot: &cartsvc.Snapshot{Items: []cartsvc.Item{{ProductRef: "p9", Name: "Vase", UnitPriceCents: 1200, Quantity: 1}}}}

	rec := post(Initiate(svc, carts, nil), "user_1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.got.BuyerID != "user_1" || svc.got.Email != "user_1@example.com" {
		t.Fatalf("unexpected identity %+v", svc.got)
	}
	if len(svc.got.Items) != 1 || svc.got.Items[0].ProductRef != "p9" {
		t.Fatalf("expected stored cart items, got %+v", svc.got.Items)
	}
}

func TestInitiatePropagatesErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"empty cart":           {err: pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items"), status: http.StatusBadRequest},
		"provider unavailable": {err: pkgerrors.New(pkgerrors.CodeDependency, "payment provider unavailable"), status: http.StatusServiceUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := post(Initiate(&stubCheckout{err: tc.err}, &stubCarts{}, nil), "", "")
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestInitiateRejectsBadItems(t *testing.T) {
	svc := &stubCheckout{}
	rec := post(Initiate(svc, &stubCarts{}, nil), "", `{"items":[{"product_ref":"p1","name":"Lamp","price":"1.00","quantity":0}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("checkout should not be attempted")
	}
}

func TestSuccessClearsCartOnly(t *testing.T) {
	carts := &stubCarts{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/success?session_id=cs_1", nil)
	req = req.WithContext(middleware.WithBuyer(req.Context(), "user_1", ""))
	rec := httptest.NewRecorder()
	Success(carts, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if carts.cleared != "user_1" {
		t.Fatalf("expected cart cleared for user_1")
	}

	rec = httptest.NewRecorder()
	Success(carts, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/success", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for guest, got %d", rec.Code)
	}
}
