package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/testdb"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

func TestPublishBatchDeadLettersAgainstSchema(t *testing.T) {
	conn := testdb.Open(t)

	poison := orderPaidRow(t, 0)
	poison.EventType = enums.OutboxEventType("order_refunded")
	good := orderPaidRow(t, 0)
	good.CreatedAt = poison.CreatedAt.Add(time.Second)
	if err := conn.Create(&[]models.OutboxEvent{poison, good}).Error; err != nil {
		t.Fatalf("seed outbox: %v", err)
	}

	eventRegistry, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{id: "msg-1"}}}
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 100, MaxAttempts: 5}},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               db.Wrap(conn),
		PubSub:           &fakePubSubClient{},
		Repository:       outbox.NewRepository(conn),
		Registry:         eventRegistry,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    outbox.NewDLQRepository(conn),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	processed, err := service.publishBatch(context.Background())
	if err != nil {
		t.Fatalf("publish batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}

	var dead []models.OutboxDLQ
	if err := conn.Find(&dead).Error; err != nil {
		t.Fatalf("read dlq: %v", err)
	}
	if len(dead) != 1 || dead[0].EventID != poison.ID || dead[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected dlq rows %+v", dead)
	}

	var published models.OutboxEvent
	if err := conn.First(&published, "id = ?", good.ID).Error; err != nil {
		t.Fatalf("read published row: %v", err)
	}
	if published.PublishedAt == nil {
		t.Fatalf("expected good row to be published alongside the dead letter")
	}

	var terminal models.OutboxEvent
	if err := conn.First(&terminal, "id = ?", poison.ID).Error; err != nil {
		t.Fatalf("read terminal row: %v", err)
	}
	if terminal.AttemptCount != 5 || terminal.PublishedAt != nil {
		t.Fatalf("expected poison row parked at max attempts, got %+v", terminal)
	}

	processed, err = service.publishBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle follow-up batch, got processed=%v err=%v", processed, err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected a single publish, got %d", len(pub.sent))
	}
}
