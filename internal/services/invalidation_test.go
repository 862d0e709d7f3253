package services

import (
	"context"
	"testing"

	"contas/internal/amqp"
	"contas/internal/core"
)

func TestInvalidationCommitEvictsOnlyTheTenant(t *testing.T) {
	hub := NewInvalidation(nil)
	hub.SaveSummary("summary:t1", "t1", core.Summary{IncomeCount: 1})
	hub.SaveSummary("summary:t2", "t2", core.Summary{IncomeCount: 2})

	hub.Commit(context.Background(), "t1")

	if _, ok := hub.Summary("summary:t1"); ok {
		t.Error("t1 summary survived its own commit")
	}
	if _, ok := hub.Summary("summary:t2"); !ok {
		t.Error("t2 summary evicted by an unrelated tenant's commit")
	}
}

func TestInvalidationCommitPublishesRemoteTags(t *testing.T) {
	rec := &recordingInvalidator{}
	hub := NewInvalidation(rec)

	hub.Commit(context.Background(), "t1")

	if rec.count() != 1 {
		t.Fatalf("publishes = %d, want 1", rec.count())
	}
}

func TestInvalidationApplyEvictsRemoteCommits(t *testing.T) {
	hub := NewInvalidation(nil)
	hub.SaveSummary("summary:t1", "t1", core.Summary{IncomeCount: 1})

	// A message from another process names the same tags a local commit
	// would have evicted.
	err := hub.Apply(&amqp.InvalidationMessage{
		TenantID: "t1",
		Tags:     []string{amqp.TagDashboard, amqp.TagReports},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, ok := hub.Summary("summary:t1"); ok {
		t.Error("summary survived a remote invalidation for its tenant")
	}
}

func TestInvalidationApplyIgnoresOtherTenants(t *testing.T) {
	hub := NewInvalidation(nil)
	hub.SaveSummary("summary:t1", "t1", core.Summary{IncomeCount: 1})

	err := hub.Apply(&amqp.InvalidationMessage{
		TenantID: "t2",
		Tags:     []string{amqp.TagDashboard, amqp.TagReports},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, ok := hub.Summary("summary:t1"); !ok {
		t.Error("summary evicted by another tenant's message")
	}
}

// replayConsumer hands a fixed batch of messages to the handler, standing in
// for a broker subscription.
type replayConsumer struct {
	messages []*amqp.InvalidationMessage
}

func (c *replayConsumer) Consume(_ context.Context, handler func(*amqp.InvalidationMessage) error) error {
	for _, msg := range c.messages {
		if err := handler(msg); err != nil {
			return err
		}
	}
	return nil
}

func TestInvalidationListenFeedsApply(t *testing.T) {
	hub := NewInvalidation(nil)
	hub.SaveSummary("summary:t1", "t1", core.Summary{IncomeCount: 1})

	consumer := &replayConsumer{messages: []*amqp.InvalidationMessage{
		{TenantID: "t1", Tags: []string{amqp.TagDashboard}},
	}}
	if err := hub.Listen(context.Background(), consumer); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	if _, ok := hub.Summary("summary:t1"); ok {
		t.Error("summary survived a consumed invalidation")
	}
}
