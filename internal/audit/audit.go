package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one immutable row in the audit trail.
type Event struct {
	ID       uuid.UUID
	ActorID  uuid.UUID
	Action   string
	Entity   string
	EntityID uuid.UUID
	Detail   string
	At       time.Time
}

type Repository interface {
	CreateEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, entity string, entityID uuid.UUID) ([]*Event, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Record(ctx context.Context, e Event) error {
	return s.repo.CreateEvent(ctx, &e)
}

// Trail returns the recorded events for one entity, oldest first.
func (s *Service) Trail(ctx context.Context, entity string, entityID uuid.UUID) ([]*Event, error) {
	return s.repo.ListEvents(ctx, entity, entityID)
}
