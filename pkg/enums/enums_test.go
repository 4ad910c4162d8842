package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusFailed, true},
		{OrderStatusPaid, OrderStatusFailed, false},
		{OrderStatusFailed, OrderStatusPaid, false},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Fatalf("%s -> %s: got %v want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("paid")
	if err != nil || status != OrderStatusPaid {
		t.Fatalf("unexpected parse result %q err=%v", status, err)
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestOrderStatusScanAndValue(t *testing.T) {
	var status OrderStatus
	if err := status.Scan([]byte("pending")); err != nil || status != OrderStatusPending {
		t.Fatalf("unexpected scan result %q err=%v", status, err)
	}
	if err := status.Scan("refunded"); err == nil {
		t.Fatal("expected error scanning unknown status")
	}
	if err := status.Scan(42); err == nil {
		t.Fatal("expected error scanning non-string status")
	}

	value, err := OrderStatusPaid.Value()
	if err != nil || value != "paid" {
		t.Fatalf("unexpected value %v err=%v", value, err)
	}
	if _, err := OrderStatus("").Value(); err == nil {
		t.Fatal("expected error for empty status")
	}
}

func TestParseOutboxTypes(t *testing.T) {
	if _, err := ParseOutboxEventType("order_paid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatal("expected error for unsupported event type")
	}
	if !AggregateOrder.IsValid() {
		t.Fatal("expected order aggregate to be valid")
	}
}
