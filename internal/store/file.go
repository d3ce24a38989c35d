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

const fileTableName = "communityhub.files"

var fileColumns = utils.StructTagValues(types.File{})

type FileRepository struct {
	pool *pgxpool.Pool
}

func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

func (r *FileRepository) File(ctx context.Context, fileID string) (*types.File, error) {
	query, args, err := psql().
		Select(fileColumns...).
		From(fileTableName).
		Where(sq.Eq{"id": fileID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate file query: %w", err)
	}

	var file types.File
	err = pgxscan.Get(ctx, r.pool, &file, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) FilesByIDs(ctx context.Context, fileIDs []string) ([]*types.File, error) {
	if len(fileIDs) == 0 {
		return []*types.File{}, nil
	}

	query, args, err := psql().
		Select(fileColumns...).
		From(fileTableName).
		Where(sq.Eq{"id": fileIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate files-by-ids query: %w", err)
	}

	var files []*types.File
	err = pgxscan.Select(ctx, r.pool, &files, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch files by ids: %w", err)
	}

	return files, nil
}

func (r *FileRepository) CreateFile(ctx context.Context, file *types.File) error {
	now := time.Now()
	if file.ID == "" {
		file.ID = utils.NanoID()
	}
	file.CreatedAt = now
	file.UpdatedAt = now

	query, args, err := psql().
		Insert(fileTableName).
		SetMap(utils.StructToMap(file)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert file query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create file")
}

func (r *FileRepository) DeleteFile(ctx context.Context, fileID string) error {
	query, args, err := psql().
		Delete(fileTableName).
		Where(sq.Eq{"id": fileID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete file query for file %s: %w", fileID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete file")
}
