// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/dsa-drill/internal/domain"
)

var (
	// ErrUnavailable wraps every failure of the underlying database.
	ErrUnavailable = errors.New("store unavailable")
	// ErrAgentNotFound is returned when a mutation targets an unknown agent.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrNegativeDelta is returned when an XP delta would subtract XP.
	ErrNegativeDelta = errors.New("xp delta must be non-negative")
	// ErrEmptyMission is returned when an empty mission text is stored.
	ErrEmptyMission = errors.New("mission text is empty")
	// ErrMissionChanged is returned by RecordGrade when the open mission is
	// no longer the one that was graded.
	ErrMissionChanged = errors.New("open mission changed")
)

// Repository defines the interface for persisting agent progress.
type Repository interface {
	// GetOrCreateAgent returns the agent for id, creating it with default
	// progress on first contact. The display name is refreshed on every call.
	GetOrCreateAgent(ctx context.Context, id int64, displayName string) (*domain.Agent, error)

	// GetAgent retrieves an agent by id. Returns nil, nil if it does not exist.
	GetAgent(ctx context.Context, id int64) (*domain.Agent, error)

	// AddXP adds delta to the agent's XP and recomputes its rank.
	AddXP(ctx context.Context, id int64, delta int) (int, domain.Rank, error)

	// SetMission stores text as the agent's open mission, replacing any
	// previous one.
	SetMission(ctx context.Context, id int64, text string) error

	// ClearMission removes the agent's open mission.
	ClearMission(ctx context.Context, id int64) error

	// RecordGrade adds delta XP, recomputes rank and clears the open mission
	// in a single transaction. If expectedMission is non-empty, the grade is
	// only recorded while that exact mission is still open.
	RecordGrade(ctx context.Context, id int64, delta int, expectedMission string) (int, domain.Rank, error)

	// RecomputeRanks re-derives every stored rank from its XP and returns the
	// number of rows that changed.
	RecomputeRanks(ctx context.Context) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
