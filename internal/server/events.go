package server

import (
	"errors"
	"net/http"
	"time"

	"communityhub/internal/store"
	"communityhub/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleListEvents(w http.ResponseWriter, r *http.Request) {
	params, err := store.ParseListParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list parameters")
		return
	}

	result, err := s.events.List(r.Context(), params)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Service) handleShowEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.Event(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		if errors.Is(err, types.ErrEventNotFound) {
			s.respondError(w, http.StatusNotFound, "event not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, event)
}

type eventInput struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
}

func (s *Service) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var input eventInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	event := &types.Event{
		Name:        input.Name,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}

	if err := s.events.CreateEvent(r.Context(), event); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, event)
}

func (s *Service) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	eventID := flow.Param(r.Context(), "id")

	event, err := s.events.Event(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, types.ErrEventNotFound) {
			s.respondError(w, http.StatusNotFound, "event not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	var input eventInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	event.Name = input.Name
	event.Description = input.Description
	event.StartDate = input.StartDate
	event.EndDate = input.EndDate

	if err := s.events.UpdateEvent(r.Context(), eventID, event); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, event)
}

func (s *Service) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	eventID := flow.Param(r.Context(), "id")

	if _, err := s.events.Event(r.Context(), eventID); err != nil {
		if errors.Is(err, types.ErrEventNotFound) {
			s.respondError(w, http.StatusNotFound, "event not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	if err := s.events.DeleteEvent(r.Context(), eventID); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}
