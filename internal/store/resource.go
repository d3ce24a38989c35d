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

const (
	resourceTableName     = "communityhub.resources"
	resourceFileTableName = "communityhub.resource_files"
)

var resourceColumns = utils.StructTagValues(types.Resource{})

var ResourceCollection = Collection{
	Table:   resourceTableName,
	Columns: resourceColumns,
	Identifiers: map[string]struct{}{
		"id": {},
	},
}

type ResourceRepository struct {
	pool *pgxpool.Pool
}

func NewResourceRepository(pool *pgxpool.Pool) *ResourceRepository {
	return &ResourceRepository{pool: pool}
}

func (r *ResourceRepository) List(ctx context.Context, params ListParams) (*ListResult[types.Resource], error) {
	result, err := List[types.Resource](ctx, r.pool, ResourceCollection, params, ListOptions{})
	if err != nil {
		return nil, err
	}

	for i := range result.Results {
		fileIDs, err := r.resourceFileIDs(ctx, result.Results[i].ID)
		if err != nil {
			return nil, err
		}
		result.Results[i].FileIDs = fileIDs
	}

	return result, nil
}

func (r *ResourceRepository) Resource(ctx context.Context, resourceID string) (*types.Resource, error) {
	query, args, err := psql().
		Select(resourceColumns...).
		From(resourceTableName).
		Where(sq.Eq{"id": resourceID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate resource query: %w", err)
	}

	var resource types.Resource
	err = pgxscan.Get(ctx, r.pool, &resource, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to fetch resource: %w", err)
	}

	resource.FileIDs, err = r.resourceFileIDs(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	return &resource, nil
}

func (r *ResourceRepository) CreateResource(ctx context.Context, resource *types.Resource) error {
	now := time.Now()
	if resource.ID == "" {
		resource.ID = utils.NanoID()
	}
	resource.CreatedAt = now
	resource.UpdatedAt = now

	query, args, err := psql().
		Insert(resourceTableName).
		SetMap(utils.StructToMap(resource)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert resource query: %w", err)
	}

	if _, err = r.pool.Exec(ctx, query, args...); err != nil {
		return utils.ErrorWrapOrNil(err, "failed to create resource")
	}

	return r.ReplaceFiles(ctx, resource.ID, resource.FileIDs)
}

func (r *ResourceRepository) UpdateResource(ctx context.Context, resourceID string, resource *types.Resource) error {
	resource.ID = resourceID
	resource.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(resourceTableName).
		SetMap(utils.StructToMap(resource)).
		Where(sq.Eq{"id": resourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update resource query for resource %s: %w", resourceID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to update resource")
}

func (r *ResourceRepository) DeleteResource(ctx context.Context, resourceID string) error {
	query, args, err := psql().
		Delete(resourceTableName).
		Where(sq.Eq{"id": resourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete resource query for resource %s: %w", resourceID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete resource")
}

// ReplaceFiles rewrites the resource's file references. Removing the prior
// FileRecords themselves is the attachment manager's job and happens before
// this is called.
func (r *ResourceRepository) ReplaceFiles(ctx context.Context, resourceID string, fileIDs []string) error {
	query, args, err := psql().
		Delete(resourceFileTableName).
		Where(sq.Eq{"resource_id": resourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete resource files query: %w", err)
	}

	if _, err = r.pool.Exec(ctx, query, args...); err != nil {
		return utils.ErrorWrapOrNil(err, "failed to clear resource files")
	}

	if len(fileIDs) == 0 {
		return nil
	}

	builder := psql().Insert(resourceFileTableName).Columns("resource_id", "file_id")
	for _, fileID := range fileIDs {
		builder = builder.Values(resourceID, fileID)
	}

	query, args, err = builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert resource files query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to link resource files")
}

func (r *ResourceRepository) resourceFileIDs(ctx context.Context, resourceID string) ([]string, error) {
	query, args, err := psql().
		Select("file_id").
		From(resourceFileTableName).
		Where(sq.Eq{"resource_id": resourceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate resource files query: %w", err)
	}

	var fileIDs = make([]string, 0)
	err = pgxscan.Select(ctx, r.pool, &fileIDs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resource files: %w", err)
	}

	return fileIDs, nil
}
