// Package queue wraps the NATS connection the gateway uses to broadcast
// sync progress and cache invalidation across horizontally-scaled hosting
// process instances (SPEC_FULL.md §5 items 2-3). Adapted from the teacher's
// internal/queue/nats.go: same Manager shape, same Publish/Subscribe/
// QueueSubscribe surface and GetXSubject(id) helper idiom, rescoped to the
// gateway's own subjects.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Manager handles the NATS connection and gateway messaging.
type Manager struct {
	conn *nats.Conn
	log  *zap.Logger
}

// NewManager connects to NATS at natsURL.
func NewManager(natsURL string, log *zap.Logger) (*Manager, error) {
	m := &Manager{log: log}
	options := []nats.Option{
		nats.Name("mto-gateway"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("nats connection closed")
		}),
	}

	conn, err := nats.Connect(natsURL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", natsURL, err)
	}
	m.conn = conn
	log.Info("nats connection established", zap.String("url", natsURL))
	return m, nil
}

// Close closes the NATS connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// Conn returns the raw NATS connection.
func (m *Manager) Conn() *nats.Conn { return m.conn }

// Publish publishes a raw payload to subject.
func (m *Manager) Publish(subject string, data []byte) error {
	return m.conn.Publish(subject, data)
}

// Subscribe subscribes to subject with handler.
func (m *Manager) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return m.conn.Subscribe(subject, handler)
}

// QueueSubscribe creates a load-balanced queue subscriber.
func (m *Manager) QueueSubscribe(subject, queueGroup string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return m.conn.QueueSubscribe(subject, queueGroup, handler)
}

// Gateway subject patterns (SPEC_FULL.md §5 items 2-3).
const (
	SubjectSyncProgress    = "sync.progress.%s" // sync.progress.<run_id>
	SubjectCacheInvalidate = "cache.invalidate"
	SubjectCacheClear      = "cache.clear"

	QueueGroupCacheInvalidation = "cache-invalidation-workers"
)

// GetSyncProgressSubject returns the subject a given sync run's progress is
// published on.
func GetSyncProgressSubject(runID string) string {
	return fmt.Sprintf(SubjectSyncProgress, runID)
}

// SyncProgressEvent is the payload published on GetSyncProgressSubject,
// allowing an HTTP replica or CLI to observe a run's progress without
// polling the persistent store.
type SyncProgressEvent struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishSyncProgress broadcasts one progress event for runID.
func (m *Manager) PublishSyncProgress(runID, status, message string) error {
	payload, err := json.Marshal(SyncProgressEvent{
		RunID:     runID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode sync progress event: %w", err)
	}
	return m.Publish(GetSyncProgressSubject(runID), payload)
}

// CacheInvalidateEvent is the payload published on SubjectCacheInvalidate
// (SPEC_FULL.md §5 item 3). PublishCacheClear sends no payload on
// SubjectCacheClear. No code in this repository subscribes to either
// subject.
type CacheInvalidateEvent struct {
	MTO string `json:"mto,omitempty"`
}

// PublishCacheInvalidate broadcasts that mto's memory-cache entry should be
// dropped on every subscribed instance.
func (m *Manager) PublishCacheInvalidate(mto string) error {
	payload, err := json.Marshal(CacheInvalidateEvent{MTO: mto})
	if err != nil {
		return fmt.Errorf("failed to encode cache invalidate event: %w", err)
	}
	return m.Publish(SubjectCacheInvalidate, payload)
}

// PublishCacheClear broadcasts that every instance's memory cache should be
// dropped in full.
func (m *Manager) PublishCacheClear() error {
	return m.Publish(SubjectCacheClear, nil)
}
