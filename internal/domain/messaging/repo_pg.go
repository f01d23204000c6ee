package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const convCols = `c.id, c.user_a_id, c.user_b_id, c.created_at, c.last_message_at,
	ua.first_name || ' ' || ua.last_name AS user_a_name,
	ub.first_name || ' ' || ub.last_name AS user_b_name`

const convFrom = ` FROM conversations c
	JOIN users ua ON ua.id = c.user_a_id
	JOIN users ub ON ub.id = c.user_b_id`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.UserAID, &c.UserBID, &c.CreatedAt, &c.LastMessageAt,
		&c.UserAName, &c.UserBName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) GetOrCreateConversation(ctx context.Context, a, b uuid.UUID) (*Conversation, error) {
	low, high := orderPair(a, b)

	// ON CONFLICT DO NOTHING keeps the operation idempotent under
	// concurrent first messages; the follow-up select always finds the row.
	if _, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO conversations (id, user_a_id, user_b_id)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_a_id, user_b_id) DO NOTHING`,
		uuid.New(), low, high); err != nil {
		return nil, err
	}
	return scanConversation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+convCols+convFrom+` WHERE c.user_a_id = $1 AND c.user_b_id = $2`, low, high))
}

func (r *repoPG) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return scanConversation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+convCols+convFrom+` WHERE c.id = $1`, id))
}

func (r *repoPG) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM conversations c WHERE c.user_a_id = $1 OR c.user_b_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+convCols+convFrom+`
		WHERE c.user_a_id = $1 OR c.user_b_id = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, c := range items {
		n, err := r.UnreadCountInConversation(ctx, c.ID, userID)
		if err != nil {
			return nil, 0, err
		}
		c.UnreadCount = n
	}
	return items, total, nil
}

const msgCols = `m.id, m.conversation_id, m.sender_id, m.body, m.created_at, m.read_at,
	u.first_name || ' ' || u.last_name AS sender_name`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt, &m.ReadAt, &m.SenderName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &m, err
}

func (r *repoPG) CreateMessage(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	if _, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body)
		VALUES ($1,$2,$3,$4)`,
		m.ID, m.ConversationID, m.SenderID, m.Body); err != nil {
		return err
	}
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE conversations SET last_message_at = NOW() WHERE id = $1`, m.ConversationID)
	return err
}

func (r *repoPG) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+msgCols+` FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC
		LIMIT $2 OFFSET $3`, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE messages SET read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`,
		conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *repoPG) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.user_a_id = $1 OR c.user_b_id = $1)
		  AND m.sender_id <> $1 AND m.read_at IS NULL`, userID).Scan(&n)
	return n, err
}

func (r *repoPG) UnreadCountInConversation(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`,
		conversationID, userID).Scan(&n)
	return n, err
}
