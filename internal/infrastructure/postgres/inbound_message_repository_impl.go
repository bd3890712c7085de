package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/internal/domain/repository"
)

type InboundMessageRepository struct {
	db *DB
}

func NewInboundMessageRepository(db *DB) *InboundMessageRepository {
	return &InboundMessageRepository{db: db}
}

const (
	qInboundSave = `
INSERT INTO inbound_messages (message_sid, channel, from_number, to_number, message_text, num_media, received_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (message_sid) DO NOTHING
RETURNING id::text;`

	qInboundList = `
SELECT id::text, message_sid, channel, from_number, to_number, message_text, num_media,
       received_at, processed, processed_at
FROM inbound_messages
WHERE ($1::boolean IS NULL OR processed = $1)
ORDER BY received_at DESC
LIMIT $2 OFFSET $3;`

	qInboundMarkProcessed = `
UPDATE inbound_messages
SET processed = TRUE, processed_at = COALESCE(processed_at, now())
WHERE id::text = $1;`
)

func (r *InboundMessageRepository) Save(ctx context.Context, msg *entity.InboundMessage) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.Pool.QueryRow(ctx, qInboundSave,
		msg.MessageSid, string(msg.Channel), msg.From, msg.To, msg.Text, msg.NumMedia, msg.ReceivedAt,
	).Scan(&msg.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// provider retry of a message already stored
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inbound message save: %w", err)
	}
	return true, nil
}

func (r *InboundMessageRepository) List(ctx context.Context, f repository.InboundFilter) ([]entity.InboundMessage, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qInboundList, f.Processed, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("inbound message list: %w", err)
	}
	defer rows.Close()

	out := []entity.InboundMessage{}
	for rows.Next() {
		var (
			m       entity.InboundMessage
			channel string
		)
		if err := rows.Scan(&m.ID, &m.MessageSid, &channel, &m.From, &m.To, &m.Text, &m.NumMedia,
			&m.ReceivedAt, &m.Processed, &m.ProcessedAt); err != nil {
			return nil, fmt.Errorf("inbound message list scan: %w", err)
		}
		m.Channel = entity.TemplateType(channel)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *InboundMessageRepository) MarkProcessed(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.Pool.Exec(ctx, qInboundMarkProcessed, id)
	if err != nil {
		return fmt.Errorf("inbound message mark processed: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.InboundMessageRepository = (*InboundMessageRepository)(nil)
