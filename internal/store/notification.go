package store

import (
	"context"
	"fmt"
	"time"

	"communityhub/internal/utils"
	"communityhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationTableName = "communityhub.notifications"

var notificationColumns = utils.StructTagValues(types.Notification{})

var NotificationCollection = Collection{
	Table:   notificationTableName,
	Columns: notificationColumns,
	Identifiers: map[string]struct{}{
		"id":       {},
		"user_id":  {},
		"model_id": {},
	},
}

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// List returns the given user's notifications; the recipient scope is an
// extra filter, so clients cannot list someone else's.
func (r *NotificationRepository) List(ctx context.Context, userID string, params ListParams) (*ListResult[types.Notification], error) {
	return List[types.Notification](ctx, r.pool, NotificationCollection, params, ListOptions{
		Extra: map[string]any{"user_id": userID},
	})
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, notification *types.Notification) error {
	now := time.Now()
	if notification.ID == "" {
		notification.ID = utils.NanoID()
	}
	if notification.Status == "" {
		notification.Status = types.NotificationStatusUnread
	}
	notification.CreatedAt = now
	notification.UpdatedAt = now

	query, args, err := psql().
		Insert(notificationTableName).
		SetMap(utils.StructToMap(notification)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert notification query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create notification")
}

// MarkAllRead flips every unread notification for the user to read in one
// statement. Re-running it is a no-op.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	query, args, err := psql().
		Update(notificationTableName).
		Set("status", types.NotificationStatusRead).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"user_id": userID, "status": types.NotificationStatusUnread}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark-all-read query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to mark notifications read")
}
