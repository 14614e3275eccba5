package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/eventops/os-indexer/internal/core/domain"
	"github.com/eventops/os-indexer/internal/infrastructure/resilience"
)

// Event is the wire envelope published for every indexing lifecycle
// event. Type is one of scan_started, scan_progress, scan_completed,
// order_indexed.
type Event struct {
	Type      string               `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	Total     int                  `json:"total,omitempty"`
	Processed int                  `json:"processed,omitempty"`
	Filename  string               `json:"filename,omitempty"`
	Summary   *domain.ScanSummary  `json:"summary,omitempty"`
	Order     *domain.ServiceOrder `json:"order,omitempty"`
}

// Notifier publishes indexing events to a NATS subject. All publishes
// are fire-and-forget: failures are logged and swallowed so a broken
// broker never stalls a scan pass.
type Notifier struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger

	// progressLimiter caps scan_progress publishes; large directories
	// would otherwise flood the subject with one event per file.
	progressLimiter *rate.Limiter
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ProgressRate       rate.Limit
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url, subject string) (*Notifier, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Notifier, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	progressRate := options.ProgressRate
	if progressRate <= 0 {
		progressRate = rate.Limit(2)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("os-indexer"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Notifier{
		conn:            conn,
		subject:         subject,
		executor:        options.ResilienceExecutor,
		logger:          logger,
		progressLimiter: rate.NewLimiter(progressRate, 1),
	}, nil
}

func (n *Notifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

func (n *Notifier) ScanStarted(ctx context.Context, total int) {
	n.publish(ctx, Event{Type: "scan_started", Total: total})
}

func (n *Notifier) ScanProgress(ctx context.Context, processed, total int, filename string) {
	if !n.progressLimiter.Allow() {
		return
	}
	n.publish(ctx, Event{Type: "scan_progress", Processed: processed, Total: total, Filename: filename})
}

func (n *Notifier) ScanCompleted(ctx context.Context, summary domain.ScanSummary) {
	n.publish(ctx, Event{Type: "scan_completed", Summary: &summary})
}

func (n *Notifier) OrderIndexed(ctx context.Context, order *domain.ServiceOrder) {
	n.publish(ctx, Event{Type: "order_indexed", Order: order})
}

func (n *Notifier) publish(ctx context.Context, event Event) {
	event.Timestamp = time.Now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("notifier_marshal_failed", "event", event.Type, "error", err)
		return
	}

	call := func(_ context.Context) error {
		if err := n.conn.Publish(n.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if n.executor != nil {
		err = n.executor.Execute(ctx, "nats.publish", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		n.logger.Warn("notifier_publish_failed", "event", event.Type, "error", err)
	}
}
