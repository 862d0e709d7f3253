package services

import (
	"context"
	"log/slog"
	"time"

	"contas/internal/amqp"
	"contas/internal/cache"
	"contas/internal/core"
)

// Invalidator signals downstream caches that tag namespaces went stale.
// A nil Invalidator disables remote signaling entirely.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string, tags []string) error
}

// Consumer delivers remote invalidation messages, one per commit elsewhere.
type Consumer interface {
	Consume(ctx context.Context, handler func(*amqp.InvalidationMessage) error) error
}

// invalidationTags is what every successful commit invalidates.
var invalidationTags = []string{
	amqp.TagDashboard,
	amqp.TagReports,
	amqp.TagTransactions,
	amqp.TagAccounts,
}

// summaryTTL bounds staleness when a writer bypasses the invalidation path
// entirely (a process without AMQP writing the same database).
const summaryTTL = 5 * time.Minute

// Invalidation fans a committed change out to every cache that might hold
// stale aggregates: the in-process summary cache shared by the services of
// one process, and, when a publisher is configured, the AMQP fanout for
// other processes. One Invalidation is shared by every service that commits
// or reads summaries, so a transfer evicts what the ledger cached.
type Invalidation struct {
	summaries *cache.TagCache[core.Summary]
	publisher Invalidator
}

func NewInvalidation(publisher Invalidator) *Invalidation {
	return &Invalidation{
		summaries: cache.NewTagCache[core.Summary](summaryTTL),
		publisher: publisher,
	}
}

// Commit evicts the tenant's local cache entries and publishes the stale
// tags. The publish is fire-and-forget: the commit already happened and a
// failed publish must not undo or fail it.
func (n *Invalidation) Commit(ctx context.Context, tenantID string) {
	n.summaries.Invalidate(scopedTags(tenantID)...)

	if n.publisher == nil {
		return
	}
	if err := n.publisher.Invalidate(ctx, tenantID, invalidationTags); err != nil {
		slog.ErrorContext(ctx, "Failed to publish cache invalidation",
			"tenant_id", tenantID, "error", err)
	}
}

// Summary reads a cached summary.
func (n *Invalidation) Summary(key string) (core.Summary, bool) {
	return n.summaries.Get(key)
}

// SaveSummary caches a summary under the tenant's summary tags.
func (n *Invalidation) SaveSummary(key, tenantID string, s core.Summary) {
	n.summaries.Set(key, s,
		tenantID+":"+amqp.TagDashboard,
		tenantID+":"+amqp.TagReports)
}

// Apply evicts the local entries named by a remote invalidation message.
func (n *Invalidation) Apply(msg *amqp.InvalidationMessage) error {
	tags := make([]string, len(msg.Tags))
	for i, tag := range msg.Tags {
		tags[i] = msg.TenantID + ":" + tag
	}
	n.summaries.Invalidate(tags...)
	return nil
}

// Listen consumes remote invalidation messages until ctx is cancelled,
// keeping this process's cache coherent with commits made elsewhere.
func (n *Invalidation) Listen(ctx context.Context, consumer Consumer) error {
	return consumer.Consume(ctx, n.Apply)
}

func scopedTags(tenantID string) []string {
	tags := make([]string, len(invalidationTags))
	for i, tag := range invalidationTags {
		tags[i] = tenantID + ":" + tag
	}
	return tags
}
