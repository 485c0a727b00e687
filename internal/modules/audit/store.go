// README: Append-only ride event log in Postgres.
package audit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

//go:embed schema.sql
var schema string

// DB is the subset of pgxpool.Pool the log needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create ride_events: %w", err)
	}
	return nil
}

// Record implements ride.EventSink.
func (s *Store) Record(ctx context.Context, e ride.TransitionEvent) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ride_events (
			ride_id, event, from_status, to_status, actor_id, actor_role, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.RideID),
		string(e.Event),
		toStatusPtr(e.From),
		string(e.To),
		string(e.ActorID),
		string(e.ActorRole),
		e.At,
	)
	return err
}

// ForRide returns a ride's events in the order they were recorded.
func (s *Store) ForRide(ctx context.Context, rideID types.ID) ([]ride.TransitionEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ride_id, event, COALESCE(from_status, ''), to_status, actor_id, actor_role, created_at
		FROM ride_events
		WHERE ride_id = $1
		ORDER BY created_at, id`, string(rideID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ride.TransitionEvent
	for rows.Next() {
		var e ride.TransitionEvent
		var id, ev, from, to, actor, role string
		if err := rows.Scan(&id, &ev, &from, &to, &actor, &role, &e.At); err != nil {
			return nil, err
		}
		e.RideID = types.ID(id)
		e.Event = ride.Event(ev)
		e.From = ride.Status(from)
		e.To = ride.Status(to)
		e.ActorID = types.ID(actor)
		e.ActorRole = types.Role(role)
		out = append(out, e)
	}
	return out, rows.Err()
}

// creation events have no prior status
func toStatusPtr(s ride.Status) *string {
	if s == "" {
		return nil
	}
	v := string(s)
	return &v
}
