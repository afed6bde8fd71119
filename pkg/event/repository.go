package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Repository stores events. Every method is scoped to the owner id it receives;
// events of other owners are invisible and reported as ErrEventNotFound.
type Repository interface {
	// ListEvents returns all events of the owner ordered by date, then time.
	ListEvents(ctx context.Context, ownerId int) ([]Event, error)
	// ListEventsBetween returns events dated within [from, to], ordered by date, then time.
	ListEventsBetween(ctx context.Context, ownerId int, from, to civil.Date) ([]Event, error)
	GetEvent(ctx context.Context, ownerId int, id string) (Event, error)
	StoreEvent(ctx context.Context, ownerId int, event Event) (Event, error)
	UpdateEvent(ctx context.Context, ownerId int, event Event) (Event, error)
	DeleteEvent(ctx context.Context, ownerId int, id string) error
}

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectEvent = `SELECT id::text, user_id, name, event_date, event_time, venue, location, description, created_at, updated_at
				FROM event`

func (r *PostgresRepository) ListEvents(ctx context.Context, ownerId int) ([]Event, error) {
	query := selectEvent + ` WHERE user_id = $1 ORDER BY event_date, event_time, seq`
	rows, err := r.db.Query(ctx, query, ownerId)
	if err != nil {
		err := fmt.Errorf("could not query events: %w", err)
		log.Error(err)
		return nil, err
	}
	return collectEvents(rows)
}

func (r *PostgresRepository) ListEventsBetween(ctx context.Context, ownerId int, from, to civil.Date) ([]Event, error) {
	query := selectEvent + ` WHERE user_id = $1 AND event_date >= $2 AND event_date <= $3
				ORDER BY event_date, event_time, seq`
	rows, err := r.db.Query(ctx, query, ownerId, from.In(time.UTC), to.In(time.UTC))
	if err != nil {
		err := fmt.Errorf("could not query events: %w", err)
		log.Error(err)
		return nil, err
	}
	return collectEvents(rows)
}

func (r *PostgresRepository) GetEvent(ctx context.Context, ownerId int, id string) (Event, error) {
	eventId, err := uuid.Parse(id)
	if err != nil {
		return Event{}, ErrEventNotFound
	}
	query := selectEvent + ` WHERE user_id = $1 AND id = $2`
	rows, err := r.db.Query(ctx, query, ownerId, eventId)
	if err != nil {
		err := fmt.Errorf("could not query event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	events, err := collectEvents(rows)
	if err != nil {
		return Event{}, err
	}
	if len(events) == 0 {
		return Event{}, ErrEventNotFound
	}
	return events[0], nil
}

func (r *PostgresRepository) StoreEvent(ctx context.Context, ownerId int, event Event) (Event, error) {
	query := `INSERT INTO event (
                    id,
                    user_id,
                    name,
                    event_date,
                    event_time,
                    venue,
                    location,
                    description
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`

	id := uuid.New()
	err := r.db.QueryRow(ctx, query,
		id,
		ownerId,
		event.Name,
		event.Date.In(time.UTC),
		event.Time,
		event.Venue,
		event.Location,
		event.Description,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return Event{}, err
	}

	event.Id = id.String()
	event.OwnerId = ownerId
	return event, nil
}

func (r *PostgresRepository) UpdateEvent(ctx context.Context, ownerId int, event Event) (Event, error) {
	eventId, err := uuid.Parse(event.Id)
	if err != nil {
		return Event{}, ErrEventNotFound
	}
	query := `UPDATE event
				SET name = $1, event_date = $2, event_time = $3, venue = $4, location = $5, description = $6, updated_at = now()
				WHERE id = $7 AND user_id = $8
				RETURNING created_at, updated_at`
	err = r.db.QueryRow(ctx, query,
		event.Name,
		event.Date.In(time.UTC),
		event.Time,
		event.Venue,
		event.Location,
		event.Description,
		eventId,
		ownerId,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("event %s of user %d not found for update", event.Id, ownerId)
		return Event{}, ErrEventNotFound
	} else if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return Event{}, err
	}
	event.OwnerId = ownerId
	return event, nil
}

func (r *PostgresRepository) DeleteEvent(ctx context.Context, ownerId int, id string) error {
	eventId, err := uuid.Parse(id)
	if err != nil {
		return ErrEventNotFound
	}
	result, err := r.db.Exec(ctx, `DELETE FROM event WHERE id = $1 AND user_id = $2`, eventId, ownerId)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func collectEvents(rows pgx.Rows) ([]Event, error) {
	defer rows.Close()

	events := make([]Event, 0, 10)
	for rows.Next() {
		var e Event
		var date time.Time
		err := rows.Scan(&e.Id, &e.OwnerId, &e.Name, &date, &e.Time, &e.Venue, &e.Location, &e.Description, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		e.Date = civil.DateOf(date)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return events, nil
}
