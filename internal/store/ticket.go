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
	ticketTableName        = "communityhub.support_tickets"
	ticketFileTableName    = "communityhub.ticket_files"
	ticketMessageTableName = "communityhub.ticket_messages"
)

var ticketColumns = utils.StructTagValues(types.SupportTicket{})

var TicketCollection = Collection{
	Table:   ticketTableName,
	Columns: ticketColumns,
	Identifiers: map[string]struct{}{
		"id":         {},
		"created_by": {},
	},
}

type TicketRepository struct {
	pool  *pgxpool.Pool
	users *UserRepository
}

func NewTicketRepository(pool *pgxpool.Pool, users *UserRepository) *TicketRepository {
	return &TicketRepository{pool: pool, users: users}
}

// List runs the generic list query and then populates each ticket's creator.
// Population happens after the query executes, so it cannot perturb the
// filter or the count.
func (r *TicketRepository) List(ctx context.Context, params ListParams, extra map[string]any) (*ListResult[types.SupportTicket], error) {
	result, err := List[types.SupportTicket](ctx, r.pool, TicketCollection, params, ListOptions{Extra: extra})
	if err != nil {
		return nil, err
	}

	if err := r.populateCreators(ctx, result.Results); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *TicketRepository) Ticket(ctx context.Context, ticketID string) (*types.SupportTicket, error) {
	query, args, err := psql().
		Select(ticketColumns...).
		From(ticketTableName).
		Where(sq.Eq{"id": ticketID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ticket query: %w", err)
	}

	var ticket types.SupportTicket
	err = pgxscan.Get(ctx, r.pool, &ticket, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to fetch ticket: %w", err)
	}

	ticket.FileIDs, err = r.ticketFileIDs(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	return &ticket, nil
}

func (r *TicketRepository) CreateTicket(ctx context.Context, ticket *types.SupportTicket) error {
	now := time.Now()
	if ticket.ID == "" {
		ticket.ID = utils.NanoID()
	}
	if ticket.Status == "" {
		ticket.Status = types.TicketStatusPending
	}
	if ticket.Priority == "" {
		ticket.Priority = types.TicketPriorityNormal
	}
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	query, args, err := psql().
		Insert(ticketTableName).
		SetMap(utils.StructToMap(ticket)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert ticket query: %w", err)
	}

	if _, err = r.pool.Exec(ctx, query, args...); err != nil {
		return utils.ErrorWrapOrNil(err, "failed to create ticket")
	}

	return r.ReplaceFiles(ctx, ticket.ID, ticket.FileIDs)
}

func (r *TicketRepository) UpdateTicket(ctx context.Context, ticketID string, ticket *types.SupportTicket) error {
	ticket.ID = ticketID
	ticket.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(ticketTableName).
		SetMap(utils.StructToMap(ticket)).
		Where(sq.Eq{"id": ticketID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update ticket query for ticket %s: %w", ticketID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to update ticket")
}

func (r *TicketRepository) DeleteTicket(ctx context.Context, ticketID string) error {
	query, args, err := psql().
		Delete(ticketTableName).
		Where(sq.Eq{"id": ticketID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete ticket query for ticket %s: %w", ticketID, err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete ticket")
}

// ReplaceFiles rewrites the ticket's file references; the FileRecords
// themselves are managed by the attachment manager.
func (r *TicketRepository) ReplaceFiles(ctx context.Context, ticketID string, fileIDs []string) error {
	query, args, err := psql().
		Delete(ticketFileTableName).
		Where(sq.Eq{"ticket_id": ticketID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete ticket files query: %w", err)
	}

	if _, err = r.pool.Exec(ctx, query, args...); err != nil {
		return utils.ErrorWrapOrNil(err, "failed to clear ticket files")
	}

	if len(fileIDs) == 0 {
		return nil
	}

	builder := psql().Insert(ticketFileTableName).Columns("ticket_id", "file_id")
	for _, fileID := range fileIDs {
		builder = builder.Values(ticketID, fileID)
	}

	query, args, err = builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert ticket files query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to link ticket files")
}

func (r *TicketRepository) Messages(ctx context.Context, ticketID string) ([]*types.ChatMessage, error) {
	return chatMessages(ctx, r.pool, ticketMessageTableName, ticketID)
}

func (r *TicketRepository) Message(ctx context.Context, ticketID, messageID string) (*types.ChatMessage, error) {
	return chatMessage(ctx, r.pool, ticketMessageTableName, ticketID, messageID)
}

func (r *TicketRepository) AddMessage(ctx context.Context, message *types.ChatMessage) error {
	return addChatMessage(ctx, r.pool, ticketMessageTableName, message)
}

func (r *TicketRepository) DeleteMessage(ctx context.Context, ticketID, messageID string) error {
	return deleteChatMessage(ctx, r.pool, ticketMessageTableName, ticketID, messageID)
}

func (r *TicketRepository) ticketFileIDs(ctx context.Context, ticketID string) ([]string, error) {
	query, args, err := psql().
		Select("file_id").
		From(ticketFileTableName).
		Where(sq.Eq{"ticket_id": ticketID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ticket files query: %w", err)
	}

	var fileIDs = make([]string, 0)
	err = pgxscan.Select(ctx, r.pool, &fileIDs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket files: %w", err)
	}

	return fileIDs, nil
}

func (r *TicketRepository) populateCreators(ctx context.Context, tickets []types.SupportTicket) error {
	if len(tickets) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tickets))
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		if _, ok := seen[t.CreatedBy]; ok {
			continue
		}
		seen[t.CreatedBy] = struct{}{}
		ids = append(ids, t.CreatedBy)
	}

	users, err := r.users.UsersByIDs(ctx, ids)
	if err != nil {
		return err
	}

	byID := make(map[string]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for i := range tickets {
		tickets[i].Creator = byID[tickets[i].CreatedBy]
	}

	return nil
}
