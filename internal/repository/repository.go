package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Errors returned by the repository
var (
	ErrNotFound = errors.New("not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	workflow_id TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS resumptions (
	id BIGSERIAL PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	interrupt_id TEXT NOT NULL,
	widget TEXT NOT NULL,
	messages JSONB NOT NULL,
	frozen_value JSONB,
	user_id TEXT NOT NULL DEFAULT '',
	resumed_at TIMESTAMPTZ NOT NULL,
	UNIQUE (conversation_id, interrupt_id)
);
`

// Repository persists conversations and their resumption transcript
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Init creates the tables if they do not exist
func (r *Repository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateConversation inserts a new conversation
func (r *Repository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations (id, user_id, workflow_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, conv.ID, conv.UserID, conv.WorkflowID, conv.Status, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversation returns a conversation by id
func (r *Repository) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, workflow_id, status, created_at, updated_at
		FROM conversations WHERE id = $1
	`, id).Scan(&conv.ID, &conv.UserID, &conv.WorkflowID, &conv.Status, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// UpdateConversationStatus updates the status of a conversation
func (r *Repository) UpdateConversationStatus(ctx context.Context, id string, status models.ConversationStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations SET status = $1, updated_at = $2 WHERE id = $3
	`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveResumption appends an answered interrupt to the transcript. Saving the
// same interrupt twice is a no-op so activity retries are safe.
func (r *Repository) SaveResumption(ctx context.Context, conversationID string, entry models.TranscriptEntry) error {
	messages, err := json.Marshal(entry.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}
	var frozen []byte
	if entry.FrozenValue != nil {
		if frozen, err = json.Marshal(entry.FrozenValue); err != nil {
			return fmt.Errorf("failed to encode frozen value: %w", err)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO resumptions (conversation_id, interrupt_id, widget, messages, frozen_value, user_id, resumed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (conversation_id, interrupt_id) DO NOTHING
	`, conversationID, entry.Interrupt.ID, entry.Interrupt.Widget, messages, frozen, entry.UserID, entry.ResumedAt)
	if err != nil {
		return fmt.Errorf("failed to save resumption: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE conversations SET updated_at = $1 WHERE id = $2
	`, entry.ResumedAt, conversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	return tx.Commit(ctx)
}

// ListResumptions returns the transcript of a conversation in resume order
func (r *Repository) ListResumptions(ctx context.Context, conversationID string) ([]models.TranscriptEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT interrupt_id, widget, messages, frozen_value, user_id, resumed_at
		FROM resumptions WHERE conversation_id = $1
		ORDER BY id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumptions: %w", err)
	}
	defer rows.Close()

	entries := []models.TranscriptEntry{}
	for rows.Next() {
		var (
			entry    models.TranscriptEntry
			messages []byte
			frozen   []byte
		)
		if err := rows.Scan(&entry.Interrupt.ID, &entry.Interrupt.Widget, &messages, &frozen, &entry.UserID, &entry.ResumedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resumption: %w", err)
		}
		if err := json.Unmarshal(messages, &entry.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode messages: %w", err)
		}
		if len(frozen) > 0 {
			entry.FrozenValue = &models.FrozenValue{}
			if err := json.Unmarshal(frozen, entry.FrozenValue); err != nil {
				return nil, fmt.Errorf("failed to decode frozen value: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
