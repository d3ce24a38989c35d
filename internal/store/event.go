package store

import (
	"context"
	"fmt"
	"time"

	"communityhub/internal/utils"
	"communityhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventTableName = "communityhub.events"

var eventColumns = utils.StructTagValues(types.Event{})

var EventCollection = Collection{
	Table:   eventTableName,
	Columns: eventColumns,
	Identifiers: map[string]struct{}{
		"id": {},
	},
}

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) List(ctx context.Context, params ListParams) (*ListResult[types.Event], error) {
	return List[types.Event](ctx, r.pool, EventCollection, params, ListOptions{})
}

func (r *EventRepository) Event(ctx context.Context, eventID string) (*types.Event, error) {
	query, args, err := psql().
		Select(eventColumns...).
		From(eventTableName).
		Where(sq.Eq{"id": eventID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate event query: %w", err)
	}

	var event types.Event
	err = pgxscan.Get(ctx, r.pool, &event, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}

	return &event, nil
}

func (r *EventRepository) CreateEvent(ctx context.Context, event *types.Event) error {
	now := time.Now()
	if event.ID == "" {
		event.ID = utils.NanoID()
	}
	event.CreatedAt = now
	event.UpdatedAt = now

	query, args, err := psql().
		Insert(eventTableName).
		SetMap(utils.StructToMap(event)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert event query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create event")
}

func (r *EventRepository) UpdateEvent(ctx context.Context, eventID string, event *types.Event) error {
	event.ID = eventID
	event.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(eventTableName).
		SetMap(utils.StructToMap(event)).
		Where(sq.Eq{"id": eventID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update event query for event %s: %w", eventID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to update event")
}

func (r *EventRepository) DeleteEvent(ctx context.Context, eventID string) error {
	query, args, err := psql().
		Delete(eventTableName).
		Where(sq.Eq{"id": eventID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete event query for event %s: %w", eventID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete event")
}
