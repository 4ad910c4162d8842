package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandlerExposesRegisteredCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPipelineMetrics(reg).IncCheckoutSession("created")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `checkout_sessions_total{outcome="created"} 1`) {
		t.Fatalf("unexpected metrics body:\n%s", body)
	}
}

func TestServeWithoutAddrIsNoop(t *testing.T) {
	if err := Serve(context.Background(), "", prometheus.NewRegistry(), nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
