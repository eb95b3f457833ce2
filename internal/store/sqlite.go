package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/dsa-drill/internal/domain"
	"github.com/ashureev/dsa-drill/internal/shared"
	_ "modernc.org/sqlite"
)

const agentColumns = `id, display_name, xp, rank, current_mission, created_at, updated_at`

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Immediate transactions take the write lock up front so a
	// read-then-update never fails halfway on lock upgrade.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy()}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var agent domain.Agent
	var rank string
	var mission sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(
		&agent.ID, &agent.DisplayName, &agent.XP, &rank,
		&mission, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	agent.Rank = domain.Rank(rank)
	if mission.Valid {
		agent.Mission = &mission.String
	}
	agent.CreatedAt = time.Unix(createdAt, 0)
	agent.UpdatedAt = time.Unix(updatedAt, 0)
	return &agent, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrAgentNotFound) ||
		errors.Is(err, ErrNegativeDelta) ||
		errors.Is(err, ErrEmptyMission) ||
		errors.Is(err, ErrMissionChanged)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// withTx runs fn inside a transaction, retrying on SQLite lock conflicts.
// Domain errors returned by fn pass through; anything else is reported as
// ErrUnavailable.
func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	err := shared.RetryOnConflict(ctx, s.retry, op, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if err == nil || isDomainError(err) {
		return err
	}
	return unavailable(op, err)
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetOrCreateAgent returns the agent for id, creating it on first contact.
func (s *SQLiteStore) GetOrCreateAgent(ctx context.Context, id int64, displayName string) (*domain.Agent, error) {
	var agent *domain.Agent
	err := s.withTx(ctx, "get or create agent", func(tx *sql.Tx) error {
		now := time.Now().Unix()
		// The primary key makes concurrent first contacts converge on one row.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO agents (id, display_name, xp, rank, current_mission, created_at, updated_at)
			VALUES (?, ?, 0, ?, NULL, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				display_name = excluded.display_name,
				updated_at = excluded.updated_at
			WHERE agents.display_name <> excluded.display_name`,
			id, displayName, string(domain.RankFor(0)), now, now,
		); err != nil {
			return fmt.Errorf("upsert agent: %w", err)
		}

		row := tx.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
		a, err := scanAgent(row)
		if err != nil {
			return fmt.Errorf("scan agent row: %w", err)
		}
		agent = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// GetAgent retrieves an agent by id.
func (s *SQLiteStore) GetAgent(ctx context.Context, id int64) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	agent, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get agent", err)
	}
	return agent, nil
}

// AddXP adds delta to the agent's XP and recomputes its rank.
func (s *SQLiteStore) AddXP(ctx context.Context, id int64, delta int) (int, domain.Rank, error) {
	return s.applyXP(ctx, "add xp", id, delta, false, "")
}

// RecordGrade adds delta XP and clears the open mission atomically.
func (s *SQLiteStore) RecordGrade(ctx context.Context, id int64, delta int, expectedMission string) (int, domain.Rank, error) {
	return s.applyXP(ctx, "record grade", id, delta, true, expectedMission)
}

func (s *SQLiteStore) applyXP(ctx context.Context, op string, id int64, delta int, clearMission bool, expectedMission string) (int, domain.Rank, error) {
	if delta < 0 {
		return 0, "", ErrNegativeDelta
	}

	var newXP int
	var newRank domain.Rank
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		var currentXP int
		var mission sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT xp, current_mission FROM agents WHERE id = ?`, id,
		).Scan(&currentXP, &mission)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAgentNotFound
		}
		if err != nil {
			return fmt.Errorf("read xp: %w", err)
		}

		if clearMission && expectedMission != "" && (!mission.Valid || mission.String != expectedMission) {
			return ErrMissionChanged
		}

		newXP = currentXP + delta
		newRank = domain.RankFor(newXP)

		query := `UPDATE agents SET xp = ?, rank = ?, updated_at = ? WHERE id = ?`
		if clearMission {
			query = `UPDATE agents SET xp = ?, rank = ?, current_mission = NULL, updated_at = ? WHERE id = ?`
		}
		if _, err := tx.ExecContext(ctx, query, newXP, string(newRank), time.Now().Unix(), id); err != nil {
			return fmt.Errorf("update xp: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, "", err
	}
	return newXP, newRank, nil
}

// SetMission stores text as the agent's open mission.
func (s *SQLiteStore) SetMission(ctx context.Context, id int64, text string) error {
	if text == "" {
		return ErrEmptyMission
	}
	return s.updateMission(ctx, "set mission", id, text)
}

// ClearMission removes the agent's open mission.
func (s *SQLiteStore) ClearMission(ctx context.Context, id int64) error {
	return s.updateMission(ctx, "clear mission", id, nil)
}

func (s *SQLiteStore) updateMission(ctx context.Context, op string, id int64, mission any) error {
	return s.withTx(ctx, op, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE agents SET current_mission = ?, updated_at = ? WHERE id = ?`,
			mission, time.Now().Unix(), id,
		)
		if err != nil {
			return fmt.Errorf("update mission: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			slog.Warn("Mission update affected 0 rows", "op", op, "user_id", id)
			return ErrAgentNotFound
		}
		return nil
	})
}

// RecomputeRanks re-derives every stored rank from its XP.
func (s *SQLiteStore) RecomputeRanks(ctx context.Context) (int64, error) {
	var changed int64
	err := s.withTx(ctx, "recompute ranks", func(tx *sql.Tx) error {
		changed = 0

		rows, err := tx.QueryContext(ctx, `SELECT id, xp, rank FROM agents`)
		if err != nil {
			return fmt.Errorf("query agents: %w", err)
		}

		type stale struct {
			id   int64
			rank domain.Rank
		}
		var pending []stale
		for rows.Next() {
			var id int64
			var xp int
			var rank string
			if err := rows.Scan(&id, &xp, &rank); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan agent rank: %w", err)
			}
			if want := domain.RankFor(xp); want != domain.Rank(rank) {
				pending = append(pending, stale{id: id, rank: want})
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return fmt.Errorf("iterate agents: %w", err)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("close agent rows: %w", err)
		}

		now := time.Now().Unix()
		for _, p := range pending {
			if _, err := tx.ExecContext(ctx,
				`UPDATE agents SET rank = ?, updated_at = ? WHERE id = ?`,
				string(p.rank), now, p.id,
			); err != nil {
				return fmt.Errorf("update rank: %w", err)
			}
		}
		changed = int64(len(pending))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

var _ Repository = (*SQLiteStore)(nil)
