package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

func TestPublishBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			orderPaidRow(t, 0),
			orderPaidRow(t, 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{id: "msg-2"},
		},
	}
	service := newTestService(t, repo, pub, nil, &fakeDLQRepo{}, nil)

	processed, err := service.publishBatch(context.Background())
	if err != nil {
		t.Fatalf("publish batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows %v", repo.published)
	}
}

func TestPublishBatchSetsMessageAttributes(t *testing.T) {
	row := orderPaidRow(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{id: "msg-1"}}}
	service := newTestService(t, repo, pub, nil, &fakeDLQRepo{}, nil)

	var topics []string
	service.publisherFactory = func(topic string) publisher {
		topics = append(topics, topic)
		return pub
	}

	if _, err := service.publishBatch(context.Background()); err != nil {
		t.Fatalf("publish batch returned error: %v", err)
	}
	if len(topics) != 1 || topics[0] != "orders-topic" {
		t.Fatalf("unexpected topics %v", topics)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.sent))
	}
	msg := pub.sent[0]
	if !bytes.Equal(msg.Data, row.Payload) {
		t.Fatalf("message data should be the stored envelope")
	}
	if msg.Attributes["event_type"] != string(enums.EventOrderPaid) {
		t.Fatalf("unexpected event_type %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != row.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id %q", msg.Attributes["aggregate_id"])
	}
	if msg.Attributes["event_id"] == "" {
		t.Fatalf("expected event_id attribute")
	}
}

func TestPublishBatchWritesDLQOnUnknownEvent(t *testing.T) {
	row := orderPaidRow(t, 0)
	row.EventType = enums.OutboxEventType("order_refunded")
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakePublisher{}, nil, dlqRepo, nil)

	processed, err := service.publishBatch(context.Background())
	if err != nil {
		t.Fatalf("publish batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(dlqRepo.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlqRepo.entries))
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != row.ID || !bytes.Equal(entry.Payload, row.Payload) {
		t.Fatalf("dlq entry does not match row")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected row marked terminal")
	}
}

func TestPublishBatchWritesDLQOnMaxAttempts(t *testing.T) {
	row := orderPaidRow(t, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	dlqRepo := &fakeDLQRepo{}
	reg := prometheus.NewRegistry()
	service := newTestService(t, repo, pub, nil, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})
	service.metrics = metrics.NewOutboxMetrics(reg)

	if _, err := service.publishBatch(context.Background()); err != nil {
		t.Fatalf("publish batch returned error: %v", err)
	}
	if len(dlqRepo.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlqRepo.entries))
	}
	if dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", dlqRepo.entries[0].ErrorReason)
	}
	if !strings.Contains(*dlqRepo.entries[0].ErrorMessage, "transient") {
		t.Fatalf("expected cause in dlq message, got %q", *dlqRepo.entries[0].ErrorMessage)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("terminal rows should not be marked failed")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 1 || mfs[0].GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one dead-lettered publish recorded")
	}
}

func TestPublishBatchMissingPublisherIsTerminal(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{orderPaidRow(t, 0)}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, nil, nil, dlqRepo, nil)
	service.publisherFactory = func(string) publisher { return nil }

	if _, err := service.publishBatch(context.Background()); err != nil {
		t.Fatalf("publish batch returned error: %v", err)
	}
	if len(dlqRepo.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlqRepo.entries))
	}
}

func TestPublishBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, nil, &fakeDLQRepo{}, nil)
	processed, err := service.publishBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got processed=%v err=%v", processed, err)
	}
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	if got := nextBackoff(0, base, maxBackoff); got != time.Second {
		t.Fatalf("unexpected first backoff %s", got)
	}
	if got := nextBackoff(8*time.Second, base, maxBackoff); got != maxBackoff {
		t.Fatalf("expected cap, got %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, resolver registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	if resolver == nil {
		eventRegistry, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
		if err != nil {
			t.Fatalf("build registry: %v", err)
		}
		resolver = eventRegistry
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logg,
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         resolver,
		PublisherFactory: func(_ string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func orderPaidRow(tb testing.TB, attempts int) models.OutboxEvent {
	tb.Helper()
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderPaidEvent{
		OrderID:         orderID,
		OrderNumber:     "SF-TEST",
		StripeSessionID: "cs_" + orderID.String(),
		Status:          enums.OrderStatusPaid,
		Currency:        "usd",
		TotalCents:      4000,
	})
	if err != nil {
		tb.Fatalf("marshal payload: %v", err)
	}
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       env,
		AttemptCount:  attempts,
		CreatedAt:     time.Now(),
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error {
	return nil
}

func (f *fakePubSubClient) Publisher(name string) *gcppubsub.Publisher {
	return nil
}

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	id  string
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return f.id, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
