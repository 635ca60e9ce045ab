// Package notify announces that a newly reported item has matches.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
)

type Publisher interface {
	PublishMatch(ctx context.Context, ev MatchEvent) error
}

// MatchEvent is the JSON payload published per matched report.
type MatchEvent struct {
	ItemID    string          `json:"item_id"`
	Label     string          `json:"label"`
	Type      domain.ItemType `json:"type"`
	MatchIDs  []string        `json:"match_ids"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewMatchEvent summarizes rec and its matches.
func NewMatchEvent(rec domain.ItemRecord, matches []domain.ItemRecord) MatchEvent {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return MatchEvent{
		ItemID:    rec.ID,
		Label:     rec.Label,
		Type:      rec.Type,
		MatchIDs:  ids,
		CreatedAt: rec.CreatedAt,
	}
}

// Nop drops events. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishMatch(context.Context, MatchEvent) error { return nil }

type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATS(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(
		url,
		nats.Name("fundgrube-api"),
		nats.Timeout(2*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
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
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) PublishMatch(ctx context.Context, ev MatchEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish match event: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
