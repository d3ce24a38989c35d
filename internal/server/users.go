package server

import (
	"context"
	"errors"
	"net/http"

	"communityhub/internal/store"
	"communityhub/pkg/types"

	"github.com/alexedwards/flow"
	"golang.org/x/crypto/bcrypt"
)

func (s *Service) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r.Context())
	if user.Type != types.UserTypeAdmin {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	params, err := store.ParseListParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list parameters")
		return
	}

	result, err := s.users.List(r.Context(), params)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r.Context())
	s.populatePhoto(r.Context(), user)

	s.respondJSON(w, http.StatusOK, user)
}

func (s *Service) handleMyNotifications(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r.Context())

	params, err := store.ParseListParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list parameters")
		return
	}

	result, err := s.notifications.List(r.Context(), user.ID, params)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Service) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r.Context())

	if err := s.notifier.MarkAllRead(r.Context(), user.ID); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "notifications marked as read"})
}

func (s *Service) handleShowUser(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	userID := flow.Param(r.Context(), "id")

	if !actor.IsStaff() && actor.ID != userID {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	user, err := s.users.User(r.Context(), userID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	s.populatePhoto(r.Context(), user)

	s.respondJSON(w, http.StatusOK, user)
}

type userInput struct {
	Name        string `form:"name" validate:"required"`
	Email       string `form:"email" validate:"required,email"`
	Password    string `form:"password" validate:"required,min=6"`
	Phone       string `form:"phone"`
	Address     string `form:"address"`
	Type        string `form:"type" validate:"required,oneof=admin sub_admin user"`
	CommunityID string `form:"community_id"`
}

func (s *Service) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if actor.Type != types.UserTypeAdmin {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var input userInput
	if err := decodeForm(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	if _, err := s.users.UserByEmail(r.Context(), input.Email); err == nil {
		s.respondError(w, http.StatusConflict, "email is already registered")
		return
	} else if !errors.Is(err, types.ErrUserNotFound) {
		s.internalServerError(w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	user := &types.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashed),
		Phone:    input.Phone,
		Address:  input.Address,
		Type:     types.UserType(input.Type),
	}
	if input.CommunityID != "" {
		user.CommunityID = &input.CommunityID
	}

	photo, err := s.uploads.Store(r.Context(), uploadsHeader(r, "photo"), "users", actor.ID)
	if err != nil {
		s.internalServerError(w, err)
		return
	}
	if photo != nil {
		user.PhotoID = &photo.ID
	}

	if err := s.users.CreateUser(r.Context(), user); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, user)
}

type userUpdateInput struct {
	Name        string `form:"name" validate:"required"`
	Email       string `form:"email" validate:"required,email"`
	Password    string `form:"password" validate:"omitempty,min=6"`
	Phone       string `form:"phone"`
	Address     string `form:"address"`
	Type        string `form:"type" validate:"omitempty,oneof=admin sub_admin user"`
	CommunityID string `form:"community_id"`
}

func (s *Service) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	userID := flow.Param(r.Context(), "id")

	if !actor.IsStaff() && actor.ID != userID {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	user, err := s.users.User(r.Context(), userID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	var input userUpdateInput
	if err := decodeForm(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	if input.Email != user.Email {
		if _, err := s.users.UserByEmail(r.Context(), input.Email); err == nil {
			s.respondError(w, http.StatusConflict, "email is already registered")
			return
		} else if !errors.Is(err, types.ErrUserNotFound) {
			s.internalServerError(w, err)
			return
		}
	}

	user.Name = input.Name
	user.Email = input.Email
	user.Phone = input.Phone
	user.Address = input.Address

	// Only staff may reassign roles or community membership.
	if actor.IsStaff() {
		if input.Type != "" {
			user.Type = types.UserType(input.Type)
		}
		if input.CommunityID != "" {
			user.CommunityID = &input.CommunityID
		}
	}

	if input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
		if err != nil {
			s.internalServerError(w, err)
			return
		}
		user.Password = string(hashed)
	}

	photo, err := s.uploads.Store(r.Context(), uploadsHeader(r, "photo"), "users", actor.ID)
	if err != nil {
		s.internalServerError(w, err)
		return
	}
	if photo != nil {
		if user.PhotoID != nil {
			if result := s.uploads.Remove(r.Context(), *user.PhotoID); !result.OK() {
				s.logger.WithError(result.Err).WithField("file_id", result.FileID).
					Warn("failed to remove replaced photo")
			}
		}
		user.PhotoID = &photo.ID
	}

	if err := s.users.UpdateUser(r.Context(), userID, user); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

func (s *Service) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	userID := flow.Param(r.Context(), "id")

	if actor.Type != types.UserTypeAdmin {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	if actor.ID == userID {
		s.respondError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if _, err := s.users.User(r.Context(), userID); err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	if err := s.users.DeleteUser(r.Context(), userID, actor.ID); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (s *Service) populatePhoto(ctx context.Context, user *types.User) {
	if user.PhotoID == nil {
		return
	}

	photo, err := s.files.File(ctx, *user.PhotoID)
	if err != nil {
		s.logger.WithError(err).WithField("file_id", *user.PhotoID).Warn("failed to load user photo")
		return
	}

	user.Photo = photo
}
