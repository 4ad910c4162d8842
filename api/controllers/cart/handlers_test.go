package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
)

type memoryPersister struct {
	items map[string][]cartsvc.Item
}

func (m *memoryPersister) Load(ctx context.Context, buyerID string) ([]cartsvc.Item, error) {
	return append([]cartsvc.Item(nil), m.items[buyerID]...), nil
}

func (m *memoryPersister) Save(ctx context.Context, buyerID string, items []cartsvc.Item) error {
	m.items[buyerID] = append([]cartsvc.Item(nil), items...)
	return nil
}

func (m *memoryPersister) Delete(ctx context.Context, buyerID string) error {
	delete(m.items, buyerID)
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *memoryPersister) {
	t.Helper()
	persister := &memoryPersister{items: map[string][]cartsvc.Item{}}
	svc, err := cartsvc.NewService(persister)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if buyer := req.Header.Get("X-Test-Buyer"); buyer != "" {
				req = req.WithContext(middleware.WithBuyer(req.Context(), buyer, ""))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/cart", CartFetch(svc, nil))
	r.Post("/cart/items", CartAddItem(svc, nil))
	r.Patch("/cart/items/{productRef}", CartSetQuantity(svc, nil))
	r.Delete("/cart/items/{productRef}", CartRemoveItem(svc, nil))
	r.Delete("/cart", CartClear(svc, nil))
	return r, persister
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, cartResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Test-Buyer", "user_1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, envelope.Data
}

func TestCartLifecycle(t *testing.T) {
	h, persister := newTestRouter(t)

	_, got := do(t, h, http.MethodPost, "/cart/items", `{"product_ref":"p1","name":"Lamp","price":"25.00"}`)
	_, got = do(t, h, http.MethodPost, "/cart/items", `{"product_ref":"p1","name":"Lamp","price":"25.00"}`)
	_, got = do(t, h, http.MethodPost, "/cart/items", `{"product_ref":"p2","name":"Rug","price":10.5}`)
	if got.TotalItems != 3 || got.TotalPriceCents != 6050 || got.TotalPrice != "60.50" {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.Items[0].Quantity != 2 || got.Items[0].LineTotal != "50.00" {
		t.Fatalf("unexpected first line %+v", got.Items[0])
	}

	_, got = do(t, h, http.MethodPatch, "/cart/items/p1", `{"quantity":5}`)
	if got.TotalItems != 6 {
		t.Fatalf("expected 6 items, got %d", got.TotalItems)
	}

	_, got = do(t, h, http.MethodPatch, "/cart/items/p2", `{"quantity":0}`)
	if len(got.Items) != 1 || got.TotalPriceCents != 12500 {
		t.Fatalf("expected p2 removed, got %+v", got)
	}

	_, got = do(t, h, http.MethodDelete, "/cart/items/p1", "")
	if len(got.Items) != 0 || got.TotalItems != 0 {
		t.Fatalf("expected empty cart, got %+v", got)
	}

	do(t, h, http.MethodPost, "/cart/items", `{"product_ref":"p3","name":"Mug","price":"4.00"}`)
	rec, _ := do(t, h, http.MethodDelete, "/cart", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, ok := persister.items["user_1"]; ok {
		t.Fatalf("expected persisted cart deleted")
	}
}

func TestCartAddItemValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	cases := map[string]string{
		"comma in ref":     `{"product_ref":"a,b","name":"Lamp","price":"1.00"}`,
		"missing name":     `{"product_ref":"p1","price":"1.00"}`,
		"negative price":   `{"product_ref":"p1","name":"Lamp","price":"-1.00"}`,
		"sub-cent price":   `{"product_ref":"p1","name":"Lamp","price":"1.005"}`,
		"oversized price":  `{"product_ref":"p1","name":"Lamp","price":"100000000000000000000"}`,
		"price over limit": `{"product_ref":"p1","name":"Lamp","price":"1000000.00"}`,
		"unknown field":    `{"product_ref":"p1","name":"Lamp","price":"1.00","stock":3}`,
		"bad image url":    `{"product_ref":"p1","name":"Lamp","price":"1.00","image_url":"not a url"}`,
		"empty body":       ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec, _ := do(t, h, http.MethodPost, "/cart/items", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCartRequiresBuyer(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
