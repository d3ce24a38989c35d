package server

import (
	"errors"
	"net/http"

	"communityhub/internal/mail"
	"communityhub/internal/utils"
	"communityhub/pkg/types"

	"github.com/alexedwards/flow"
	"golang.org/x/crypto/bcrypt"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	user, err := s.users.UserByEmail(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		s.internalServerError(w, err)
		return
	}

	if user.DeletedAt != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"user":       user,
		"auth_token": token,
	})
}

type registerInput struct {
	Name        string `form:"name" validate:"required"`
	Email       string `form:"email" validate:"required,email"`
	Password    string `form:"password" validate:"required,min=6"`
	Phone       string `form:"phone"`
	Address     string `form:"address"`
	CommunityID string `form:"community_id"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input registerInput
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
		Type:     types.UserTypeUser,
	}
	if input.CommunityID != "" {
		user.CommunityID = &input.CommunityID
	}

	if r.MultipartForm != nil {
		photo, err := s.uploads.Store(r.Context(), uploadsHeader(r, "photo"), "users", "")
		if err != nil {
			s.internalServerError(w, err)
			return
		}
		if photo != nil {
			user.PhotoID = &photo.ID
		}
	}

	if err := s.users.CreateUser(r.Context(), user); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, user)
}

type forgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

func (s *Service) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input forgotPasswordInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	user, err := s.users.UserByEmail(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondError(w, http.StatusNotFound, "no account registered with that email")
			return
		}

		s.internalServerError(w, err)
		return
	}

	token := utils.NanoID()
	user.ResetToken = &token
	if err := s.users.UpdateUser(r.Context(), user.ID, user); err != nil {
		s.internalServerError(w, err)
		return
	}

	err = s.mailer.SendForgotPassword(r.Context(), user.Email, mail.ForgotPasswordValues{
		Name:        user.Name,
		Email:       user.Email,
		FrontEndURL: s.config.FrontEndURL,
		Token:       token,
	})
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "password reset instructions sent"})
}

type resetPasswordInput struct {
	Password string `json:"password" validate:"required,min=6"`
}

func (s *Service) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := flow.Param(r.Context(), "token")

	var input resetPasswordInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	user, err := s.users.UserByResetToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondError(w, http.StatusBadRequest, "invalid reset token")
			return
		}

		s.internalServerError(w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	user.Password = string(hashed)
	user.ResetToken = nil
	if err := s.users.UpdateUser(r.Context(), user.ID, user); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
