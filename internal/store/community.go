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
	communityTableName        = "communityhub.communities"
	communityMessageTableName = "communityhub.community_messages"
)

var (
	communityColumns   = utils.StructTagValues(types.Community{})
	chatMessageColumns = utils.StructTagValues(types.ChatMessage{})
)

var CommunityCollection = Collection{
	Table:   communityTableName,
	Columns: communityColumns,
	Identifiers: map[string]struct{}{
		"id": {},
	},
}

type CommunityRepository struct {
	pool *pgxpool.Pool
}

func NewCommunityRepository(pool *pgxpool.Pool) *CommunityRepository {
	return &CommunityRepository{pool: pool}
}

func (r *CommunityRepository) List(ctx context.Context, params ListParams) (*ListResult[types.Community], error) {
	return List[types.Community](ctx, r.pool, CommunityCollection, params, ListOptions{})
}

func (r *CommunityRepository) Community(ctx context.Context, communityID string) (*types.Community, error) {
	query, args, err := psql().
		Select(communityColumns...).
		From(communityTableName).
		Where(sq.Eq{"id": communityID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate community query: %w", err)
	}

	var community types.Community
	err = pgxscan.Get(ctx, r.pool, &community, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrCommunityNotFound
		}
		return nil, fmt.Errorf("failed to fetch community: %w", err)
	}

	return &community, nil
}

func (r *CommunityRepository) CreateCommunity(ctx context.Context, community *types.Community) error {
	now := time.Now()
	if community.ID == "" {
		community.ID = utils.NanoID()
	}
	community.CreatedAt = now
	community.UpdatedAt = now

	query, args, err := psql().
		Insert(communityTableName).
		SetMap(utils.StructToMap(community)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert community query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create community")
}

func (r *CommunityRepository) UpdateCommunity(ctx context.Context, communityID string, community *types.Community) error {
	community.ID = communityID
	community.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(communityTableName).
		SetMap(utils.StructToMap(community)).
		Where(sq.Eq{"id": communityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update community query for community %s: %w", communityID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to update community")
}

func (r *CommunityRepository) DeleteCommunity(ctx context.Context, communityID string) error {
	query, args, err := psql().
		Delete(communityTableName).
		Where(sq.Eq{"id": communityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete community query for community %s: %w", communityID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete community")
}

// Messages returns a community's chat in chronological order.
func (r *CommunityRepository) Messages(ctx context.Context, communityID string) ([]*types.ChatMessage, error) {
	return chatMessages(ctx, r.pool, communityMessageTableName, communityID)
}

func (r *CommunityRepository) Message(ctx context.Context, communityID, messageID string) (*types.ChatMessage, error) {
	return chatMessage(ctx, r.pool, communityMessageTableName, communityID, messageID)
}

func (r *CommunityRepository) AddMessage(ctx context.Context, message *types.ChatMessage) error {
	return addChatMessage(ctx, r.pool, communityMessageTableName, message)
}

func (r *CommunityRepository) DeleteMessage(ctx context.Context, communityID, messageID string) error {
	return deleteChatMessage(ctx, r.pool, communityMessageTableName, communityID, messageID)
}

// Shared chat-message queries; community and support-ticket chats share one
// row shape with the parent id pointing at the owning document.

func chatMessages(ctx context.Context, pool *pgxpool.Pool, table, parentID string) ([]*types.ChatMessage, error) {
	query, args, err := psql().
		Select(chatMessageColumns...).
		From(table).
		Where(sq.Eq{"parent_id": parentID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chat messages query: %w", err)
	}

	var messages []*types.ChatMessage
	err = pgxscan.Select(ctx, pool, &messages, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat messages: %w", err)
	}

	return messages, nil
}

func chatMessage(ctx context.Context, pool *pgxpool.Pool, table, parentID, messageID string) (*types.ChatMessage, error) {
	query, args, err := psql().
		Select(chatMessageColumns...).
		From(table).
		Where(sq.Eq{"id": messageID, "parent_id": parentID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chat message query: %w", err)
	}

	var message types.ChatMessage
	err = pgxscan.Get(ctx, pool, &message, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to fetch chat message: %w", err)
	}

	return &message, nil
}

func addChatMessage(ctx context.Context, pool *pgxpool.Pool, table string, message *types.ChatMessage) error {
	now := time.Now()
	if message.ID == "" {
		message.ID = utils.NanoID()
	}
	message.CreatedAt = now
	message.UpdatedAt = now

	query, args, err := psql().
		Insert(table).
		SetMap(utils.StructToMap(message)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert chat message query: %w", err)
	}

	_, err = pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create chat message")
}

func deleteChatMessage(ctx context.Context, pool *pgxpool.Pool, table, parentID, messageID string) error {
	query, args, err := psql().
		Delete(table).
		Where(sq.Eq{"id": messageID, "parent_id": parentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete chat message query: %w", err)
	}

	_, err = pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete chat message")
}
