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

const userTableName = "communityhub.users"

var (
	userColumns = utils.StructTagValues(types.User{})

	// userPublicColumns is the projection handed to list queries; the
	// password hash never leaves the store.
	userPublicColumns = utils.FilterSliceString(userColumns, "password")
)

// UserCollection drives list queries against users.
var UserCollection = Collection{
	Table:   userTableName,
	Columns: userColumns,
	Identifiers: map[string]struct{}{
		"id":           {},
		"photo_id":     {},
		"community_id": {},
		"deleted_by":   {},
	},
}

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NotDeleted is the caller-imposed filter excluding soft-deleted users from
// listings. It is merged over client filters, so it cannot be overridden.
func NotDeleted() sq.Sqlizer {
	return sq.Eq{"deleted_at": nil}
}

func (r *UserRepository) List(ctx context.Context, params ListParams) (*ListResult[types.User], error) {
	return List[types.User](ctx, r.pool, UserCollection, params, ListOptions{
		Extra:   map[string]any{"deleted_at": NotDeleted()},
		Columns: userPublicColumns,
	})
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user-by-email query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) UserByResetToken(ctx context.Context, token string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"reset_token": token}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user-by-reset-token query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user by reset token: %w", err)
	}

	return &user, nil
}

// UsersForCommunity returns every non-deleted staff user plus the members of
// the given community, excluding one user id. Used to pick chat fan-out
// recipients.
func (r *UserRepository) UsersForCommunity(ctx context.Context, communityID, excludeUserID string) ([]*types.User, error) {
	query, args, err := psql().
		Select(userPublicColumns...).
		From(userTableName).
		Where(sq.And{
			sq.NotEq{"id": excludeUserID},
			sq.Eq{"deleted_at": nil},
			sq.Or{
				sq.Eq{"type": []types.UserType{types.UserTypeAdmin, types.UserTypeSubAdmin}},
				sq.Eq{"community_id": communityID},
			},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate community users query: %w", err)
	}

	var users []*types.User
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch community users: %w", err)
	}

	return users, nil
}

// Staff returns every non-deleted admin and sub-admin.
func (r *UserRepository) Staff(ctx context.Context) ([]*types.User, error) {
	query, args, err := psql().
		Select(userPublicColumns...).
		From(userTableName).
		Where(sq.And{
			sq.Eq{"deleted_at": nil},
			sq.Eq{"type": []types.UserType{types.UserTypeAdmin, types.UserTypeSubAdmin}},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate staff query: %w", err)
	}

	var users []*types.User
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staff users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) UsersByIDs(ctx context.Context, userIDs []string) ([]*types.User, error) {
	if len(userIDs) == 0 {
		return []*types.User{}, nil
	}

	query, args, err := psql().
		Select(userPublicColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate users-by-ids query: %w", err)
	}

	var users []*types.User
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users by ids: %w", err)
	}

	return users, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *types.User) error {
	now := time.Now()
	if user.ID == "" {
		user.ID = utils.NanoID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().
		Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create user")
}

func (r *UserRepository) UpdateUser(ctx context.Context, userID string, user *types.User) error {
	user.ID = userID
	user.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(userTableName).
		SetMap(utils.StructToMap(user)).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update user query for user %s: %w", userID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to update user")
}

// DeleteUser marks the user deleted without removing the row, so messages and
// tickets keep their author.
func (r *UserRepository) DeleteUser(ctx context.Context, userID, deletedBy string) error {
	query, args, err := psql().
		Update(userTableName).
		Set("deleted_at", time.Now()).
		Set("deleted_by", deletedBy).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete user query for user %s: %w", userID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete user")
}
