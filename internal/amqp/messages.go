package amqp

import (
	"encoding/json"
	"time"
)

// Cache tags a commit can invalidate. Downstream cache processes drop every
// key under a tag they receive.
const (
	TagDashboard    = "dashboard"
	TagReports      = "reports"
	TagTransactions = "transactions"
	TagAccounts     = "accounts"
)

// InvalidationMessage tells downstream caches which tag namespaces went stale
// for a tenant. It carries no payload data; consumers re-read from storage.
type InvalidationMessage struct {
	TenantID  string    `json:"tenant_id"`
	Tags      []string  `json:"tags"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInvalidationMessage creates an invalidation message stamped with the
// current time.
func NewInvalidationMessage(tenantID string, tags []string) *InvalidationMessage {
	return &InvalidationMessage{
		TenantID:  tenantID,
		Tags:      tags,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *InvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvalidationMessageFromJSON creates a message from JSON bytes
func InvalidationMessageFromJSON(data []byte) (*InvalidationMessage, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
