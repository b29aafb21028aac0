package api

import (
	"context"

	"founder-dashboard/domain"
)

// TaskStore persists the checklist as a whole.
type TaskStore interface {
	LoadTasks(ctx context.Context) ([]domain.Task, error)
	SaveTasks(ctx context.Context, tasks []domain.Task) error
}

// SessionStore keeps per-session dashboard state between requests.
// LoadSession returns storage.ErrSessionNotFound for unknown ids.
type SessionStore interface {
	LoadSession(ctx context.Context, id string) (*domain.Session, error)
	SaveSession(ctx context.Context, sess *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
}

// WeatherSource looks up current conditions for a city.
type WeatherSource interface {
	Current(ctx context.Context, city string) (domain.WeatherReport, error)
}

// QuoteSource returns a random quote.
type QuoteSource interface {
	Random(ctx context.Context) (domain.Quote, error)
}

// Deduper prevents processing of replayed form submissions.
type Deduper interface {
	// Add records the form token and returns true if it was newly added.
	Add(ctx context.Context, sessionID, token string) (bool, error)
}
