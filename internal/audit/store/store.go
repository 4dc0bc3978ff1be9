package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jvillar/tienda/internal/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateEvent(ctx context.Context, e *audit.Event) error {
	query := `
		INSERT INTO audit_events (actor_id, action, entity, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		e.ActorID,
		e.Action,
		e.Entity,
		e.EntityID,
		e.Detail,
	).Scan(&e.ID, &e.At)
	if err != nil {
		return fmt.Errorf("creating audit event: %w", err)
	}

	return nil
}

func (s *Store) ListEvents(ctx context.Context, entity string, entityID uuid.UUID) ([]*audit.Event, error) {
	query := `
		SELECT id, actor_id, action, entity, entity_id, detail, created_at
		FROM audit_events
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var events []*audit.Event

	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}

	return events, nil
}
