package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"communityhub/internal/store"
	"communityhub/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleListCommunities(w http.ResponseWriter, r *http.Request) {
	params, err := store.ParseListParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list parameters")
		return
	}

	result, err := s.communities.List(r.Context(), params)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Service) handleShowCommunity(w http.ResponseWriter, r *http.Request) {
	community, err := s.communities.Community(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		if errors.Is(err, types.ErrCommunityNotFound) {
			s.respondError(w, http.StatusNotFound, "community not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, community)
}

type communityInput struct {
	Name        string `form:"name" json:"name" validate:"required"`
	Description string `form:"description" json:"description"`
}

func (s *Service) handleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var input communityInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	community := &types.Community{
		Name:        input.Name,
		Description: input.Description,
	}

	if err := s.communities.CreateCommunity(r.Context(), community); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, community)
}

func (s *Service) handleUpdateCommunity(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	communityID := flow.Param(r.Context(), "id")

	community, err := s.communities.Community(r.Context(), communityID)
	if err != nil {
		if errors.Is(err, types.ErrCommunityNotFound) {
			s.respondError(w, http.StatusNotFound, "community not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	var input communityInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	community.Name = input.Name
	community.Description = input.Description

	if err := s.communities.UpdateCommunity(r.Context(), communityID, community); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, community)
}

func (s *Service) handleDeleteCommunity(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	communityID := flow.Param(r.Context(), "id")

	if _, err := s.communities.Community(r.Context(), communityID); err != nil {
		if errors.Is(err, types.ErrCommunityNotFound) {
			s.respondError(w, http.StatusNotFound, "community not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	if err := s.communities.DeleteCommunity(r.Context(), communityID); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "community deleted"})
}

func (s *Service) handleCommunityChat(w http.ResponseWriter, r *http.Request) {
	communityID := flow.Param(r.Context(), "id")

	if _, err := s.communities.Community(r.Context(), communityID); err != nil {
		if errors.Is(err, types.ErrCommunityNotFound) {
			s.respondError(w, http.StatusNotFound, "community not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	messages, err := s.communities.Messages(r.Context(), communityID)
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

func (s *Service) handleCommunityAddMessage(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	communityID := flow.Param(r.Context(), "id")

	community, err := s.communities.Community(r.Context(), communityID)
	if err != nil {
		if errors.Is(err, types.ErrCommunityNotFound) {
			s.respondError(w, http.StatusNotFound, "community not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	message, ok := s.buildChatMessage(w, r, communityID, actor, "chat/communities")
	if !ok {
		return
	}

	if err := s.communities.AddMessage(r.Context(), message); err != nil {
		s.internalServerError(w, err)
		return
	}

	// Everyone else in the community hears about the message. Notification
	// failures are recorded per recipient and never undo the message itself.
	recipients, err := s.users.UsersForCommunity(r.Context(), communityID, actor.ID)
	if err != nil {
		s.logger.WithError(err).WithField("community_id", communityID).
			Error("failed to resolve chat recipients")
	} else {
		s.notifier.Broadcast(
			r.Context(),
			userIDs(recipients),
			"New community message",
			fmt.Sprintf("%s posted in %s", actor.Name, community.Name),
			"community",
			communityID,
		)
	}

	message.Author = actor
	s.respondJSON(w, http.StatusCreated, message)
}

func (s *Service) handleCommunityDeleteMessage(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	communityID := flow.Param(r.Context(), "id")
	messageID := flow.Param(r.Context(), "messageID")

	message, err := s.communities.Message(r.Context(), communityID, messageID)
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

	if err := s.communities.DeleteMessage(r.Context(), communityID, messageID); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "message deleted"})
}

// buildChatMessage parses a chat post and stores its attachment, if any. A
// post carries text, a file, or both; an empty post is rejected before any
// bytes are written.
func (s *Service) buildChatMessage(w http.ResponseWriter, r *http.Request, parentID string, actor *types.User, folder string) (*types.ChatMessage, bool) {
	var input struct {
		Message string `form:"message"`
	}
	if err := decodeForm(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	header := uploadsHeader(r, "attachment")
	if input.Message == "" && header == nil {
		s.respondError(w, http.StatusBadRequest, "message text or attachment is required")
		return nil, false
	}

	message := &types.ChatMessage{
		ParentID:  parentID,
		CreatedBy: actor.ID,
	}
	if input.Message != "" {
		message.Message = &input.Message
	}

	attachment, err := s.uploads.Store(r.Context(), header, folder, actor.ID)
	if err != nil {
		s.internalServerError(w, err)
		return nil, false
	}
	if attachment != nil {
		message.AttachmentID = &attachment.ID
		message.Attachment = attachment
	}

	return message, true
}

// removeAttachment best-effort deletes a message's attachment. The message
// delete proceeds regardless; a stale file is logged, not fatal.
func (s *Service) removeAttachment(ctx context.Context, message *types.ChatMessage) {
	if message.AttachmentID == nil {
		return
	}

	if result := s.uploads.Remove(ctx, *message.AttachmentID); !result.OK() {
		s.logger.WithError(result.Err).WithField("file_id", result.FileID).
			Warn("failed to remove message attachment")
	}
}

// populateMessages attaches files and authors to chat messages in two batch
// lookups rather than per row.
func (s *Service) populateMessages(ctx context.Context, messages []*types.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	var fileIDs, authorIDs []string
	for _, m := range messages {
		if m.AttachmentID != nil {
			fileIDs = append(fileIDs, *m.AttachmentID)
		}
		authorIDs = append(authorIDs, m.CreatedBy)
	}

	authors, err := s.users.UsersByIDs(ctx, authorIDs)
	if err != nil {
		return err
	}

	authorsByID := make(map[string]*types.User, len(authors))
	for _, a := range authors {
		authorsByID[a.ID] = a
		if a.PhotoID != nil {
			fileIDs = append(fileIDs, *a.PhotoID)
		}
	}

	files, err := s.files.FilesByIDs(ctx, fileIDs)
	if err != nil {
		return err
	}

	filesByID := make(map[string]*types.File, len(files))
	for _, f := range files {
		filesByID[f.ID] = f
	}

	for _, a := range authorsByID {
		if a.PhotoID != nil {
			a.Photo = filesByID[*a.PhotoID]
		}
	}

	for _, m := range messages {
		if m.AttachmentID != nil {
			m.Attachment = filesByID[*m.AttachmentID]
		}
		m.Author = authorsByID[m.CreatedBy]
	}

	return nil
}

func userIDs(users []*types.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	return ids
}
