package server

import (
	"errors"
	"fmt"
	"net/http"

	"communityhub/internal/store"
	"communityhub/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleListTickets(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())

	params, err := store.ParseListParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list parameters")
		return
	}

	// Plain users only ever see their own tickets, regardless of what the
	// client asked to filter on.
	var extra map[string]any
	if !actor.IsStaff() {
		extra = map[string]any{"created_by": actor.ID}
	}

	result, err := s.tickets.List(r.Context(), params, extra)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// loadTicket fetches the ticket and enforces that the actor may see it.
func (s *Service) loadTicket(w http.ResponseWriter, r *http.Request) (*types.SupportTicket, bool) {
	actor := s.currentUser(r.Context())

	ticket, err := s.tickets.Ticket(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		if errors.Is(err, types.ErrTicketNotFound) {
			s.respondError(w, http.StatusNotFound, "support ticket not found")
			return nil, false
		}

		s.internalServerError(w, err)
		return nil, false
	}

	if !actor.IsStaff() && ticket.CreatedBy != actor.ID {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return nil, false
	}

	return ticket, true
}

func (s *Service) handleShowTicket(w http.ResponseWriter, r *http.Request) {
	ticket, ok := s.loadTicket(w, r)
	if !ok {
		return
	}

	files, err := s.files.FilesByIDs(r.Context(), ticket.FileIDs)
	if err != nil {
		s.internalServerError(w, err)
		return
	}
	ticket.Files = files

	creator, err := s.users.User(r.Context(), ticket.CreatedBy)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", ticket.CreatedBy).Warn("failed to load ticket creator")
	} else {
		ticket.Creator = creator
	}

	s.respondJSON(w, http.StatusOK, ticket)
}

type ticketInput struct {
	Name        string `form:"name" validate:"required"`
	Description string `form:"description" validate:"required"`
	Priority    string `form:"priority" validate:"omitempty,oneof=normal urgent"`
}

func (s *Service) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())

	var input ticketInput
	if err := decodeForm(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	ticket := &types.SupportTicket{
		Name:        input.Name,
		Description: input.Description,
		Priority:    types.TicketPriority(input.Priority),
		CreatedBy:   actor.ID,
	}

	for _, header := range uploadsHeaders(r, "files") {
		file, err := s.uploads.Store(r.Context(), header, "tickets", actor.ID)
		if err != nil {
			s.uploads.RemoveAll(r.Context(), ticket.FileIDs)
			s.internalServerError(w, err)
			return
		}

		ticket.FileIDs = append(ticket.FileIDs, file.ID)
		ticket.Files = append(ticket.Files, file)
	}

	if err := s.tickets.CreateTicket(r.Context(), ticket); err != nil {
		s.uploads.RemoveAll(r.Context(), ticket.FileIDs)
		s.internalServerError(w, err)
		return
	}

	s.notifyStaff(r, fmt.Sprintf("%s opened a support ticket: %s", actor.Name, ticket.Name), ticket.ID)

	s.respondJSON(w, http.StatusCreated, ticket)
}

type ticketUpdateInput struct {
	Name        string `form:"name" validate:"required"`
	Description string `form:"description" validate:"required"`
	Status      string `form:"status" validate:"omitempty,oneof=pending resolved"`
	Priority    string `form:"priority" validate:"omitempty,oneof=normal urgent"`
}

func (s *Service) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	ticket, ok := s.loadTicket(w, r)
	if !ok {
		return
	}

	var input ticketUpdateInput
	if err := decodeForm(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	wasResolved := ticket.Status == types.TicketStatusResolved

	ticket.Name = input.Name
	ticket.Description = input.Description
	if input.Status != "" {
		ticket.Status = types.TicketStatus(input.Status)
	}
	if input.Priority != "" {
		ticket.Priority = types.TicketPriority(input.Priority)
	}

	if headers := uploadsHeaders(r, "files"); len(headers) > 0 {
		oldFileIDs := ticket.FileIDs

		var newFileIDs []string
		for _, header := range headers {
			file, err := s.uploads.Store(r.Context(), header, "tickets", actor.ID)
			if err != nil {
				s.uploads.RemoveAll(r.Context(), newFileIDs)
				s.internalServerError(w, err)
				return
			}

			newFileIDs = append(newFileIDs, file.ID)
		}

		if err := s.tickets.ReplaceFiles(r.Context(), ticket.ID, newFileIDs); err != nil {
			s.uploads.RemoveAll(r.Context(), newFileIDs)
			s.internalServerError(w, err)
			return
		}

		s.uploads.RemoveAll(r.Context(), oldFileIDs)
		ticket.FileIDs = newFileIDs
	}

	if err := s.tickets.UpdateTicket(r.Context(), ticket.ID, ticket); err != nil {
		s.internalServerError(w, err)
		return
	}

	if !wasResolved && ticket.Status == types.TicketStatusResolved {
		if _, err := s.notifier.Notify(
			r.Context(),
			ticket.CreatedBy,
			"Support ticket resolved",
			fmt.Sprintf("Your ticket %q has been resolved", ticket.Name),
			"support_ticket",
			ticket.ID,
		); err != nil {
			s.logger.WithError(err).WithField("ticket_id", ticket.ID).
				Warn("failed to notify ticket creator")
		}
	}

	s.respondJSON(w, http.StatusOK, ticket)
}

func (s *Service) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	ticket, ok := s.loadTicket(w, r)
	if !ok {
		return
	}

	s.uploads.RemoveAll(r.Context(), ticket.FileIDs)

	if err := s.tickets.DeleteTicket(r.Context(), ticket.ID); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "support ticket deleted"})
}

func (s *Service) handleTicketChat(w http.ResponseWriter, r *http.Request) {
	ticket, ok := s.loadTicket(w, r)
	if !ok {
		return
	}

	messages, err := s.tickets.Messages(r.Context(), ticket.ID)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	if err := s.populateMessages(r.Context(), messages); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, messages)
}

func (s *Service) handleTicketAddMessage(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())

	ticket, ok := s.loadTicket(w, r)
	if !ok {
		return
	}

	message, ok := s.buildChatMessage(w, r, ticket.ID, actor, "chat/tickets")
	if !ok {
		return
	}

	if err := s.tickets.AddMessage(r.Context(), message); err != nil {
		s.internalServerError(w, err)
		return
	}

	// A staff reply pings the ticket creator; a creator reply pings staff.
	if actor.IsStaff() {
		if ticket.CreatedBy != actor.ID {
			if _, err := s.notifier.Notify(
				r.Context(),
				ticket.CreatedBy,
				"New reply on your support ticket",
				fmt.Sprintf("%s replied to %q", actor.Name, ticket.Name),
				"support_ticket",
				ticket.ID,
			); err != nil {
				s.logger.WithError(err).WithField("ticket_id", ticket.ID).
					Warn("failed to notify ticket creator")
			}
		}
	} else {
		s.notifyStaff(r, fmt.Sprintf("%s replied to %q", actor.Name, ticket.Name), ticket.ID)
	}

	message.Author = actor
	s.respondJSON(w, http.StatusCreated, message)
}

func (s *Service) handleTicketDeleteMessage(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())

	ticket, ok := s.loadTicket(w, r)
	if !ok {
		return
	}

	messageID := flow.Param(r.Context(), "messageID")

	message, err := s.tickets.Message(r.Context(), ticket.ID, messageID)
	if err != nil {
		if errors.Is(err, types.ErrMessageNotFound) {
			s.respondError(w, http.StatusNotFound, "message not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	if !actor.IsStaff() && message.CreatedBy != actor.ID {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	s.removeAttachment(r.Context(), message)

	if err := s.tickets.DeleteMessage(r.Context(), ticket.ID, messageID); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "message deleted"})
}

func (s *Service) notifyStaff(r *http.Request, message, ticketID string) {
	staff, err := s.users.Staff(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve staff recipients")
		return
	}

	s.notifier.Broadcast(
		r.Context(),
		userIDs(staff),
		"Support ticket activity",
		message,
		"support_ticket",
		ticketID,
	)
}
