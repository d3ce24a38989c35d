package server

import (
	"errors"
	"net/http"

	"communityhub/internal/store"
	"communityhub/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleListResources(w http.ResponseWriter, r *http.Request) {
	params, err := store.ParseListParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list parameters")
		return
	}

	result, err := s.resources.List(r.Context(), params)
	if err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Service) handleShowResource(w http.ResponseWriter, r *http.Request) {
	resource, err := s.resources.Resource(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		if errors.Is(err, types.ErrResourceNotFound) {
			s.respondError(w, http.StatusNotFound, "resource not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	files, err := s.files.FilesByIDs(r.Context(), resource.FileIDs)
	if err != nil {
		s.internalServerError(w, err)
		return
	}
	resource.Files = files

	s.respondJSON(w, http.StatusOK, resource)
}

type resourceInput struct {
	Name        string `form:"name" validate:"required"`
	Description string `form:"description"`
}

func (s *Service) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var input resourceInput
	if err := decodeForm(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	headers := uploadsHeaders(r, "files")
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one file is required")
		return
	}

	resource := &types.Resource{
		Name:        input.Name,
		Description: input.Description,
	}

	for _, header := range headers {
		file, err := s.uploads.Store(r.Context(), header, "resources", actor.ID)
		if err != nil {
			// Files already stored stay behind their records; the resource
			// itself was never created.
			s.uploads.RemoveAll(r.Context(), resource.FileIDs)
			s.internalServerError(w, err)
			return
		}

		resource.FileIDs = append(resource.FileIDs, file.ID)
		resource.Files = append(resource.Files, file)
	}

	if err := s.resources.CreateResource(r.Context(), resource); err != nil {
		s.uploads.RemoveAll(r.Context(), resource.FileIDs)
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, resource)
}

func (s *Service) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	resourceID := flow.Param(r.Context(), "id")

	resource, err := s.resources.Resource(r.Context(), resourceID)
	if err != nil {
		if errors.Is(err, types.ErrResourceNotFound) {
			s.respondError(w, http.StatusNotFound, "resource not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	var input resourceInput
	if err := decodeForm(r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		s.respondInputErrors(w, err)
		return
	}

	resource.Name = input.Name
	resource.Description = input.Description

	// A new file set replaces the old one wholesale. The old files are
	// removed best-effort once the new set is stored.
	if headers := uploadsHeaders(r, "files"); len(headers) > 0 {
		oldFileIDs := resource.FileIDs

		var newFileIDs []string
		for _, header := range headers {
			file, err := s.uploads.Store(r.Context(), header, "resources", actor.ID)
			if err != nil {
				s.uploads.RemoveAll(r.Context(), newFileIDs)
				s.internalServerError(w, err)
				return
			}

			newFileIDs = append(newFileIDs, file.ID)
		}

		if err := s.resources.ReplaceFiles(r.Context(), resourceID, newFileIDs); err != nil {
			s.uploads.RemoveAll(r.Context(), newFileIDs)
			s.internalServerError(w, err)
			return
		}

		s.uploads.RemoveAll(r.Context(), oldFileIDs)
		resource.FileIDs = newFileIDs
	}

	if err := s.resources.UpdateResource(r.Context(), resourceID, resource); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, resource)
}

func (s *Service) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	actor := s.currentUser(r.Context())
	if !actor.IsStaff() {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	resourceID := flow.Param(r.Context(), "id")

	resource, err := s.resources.Resource(r.Context(), resourceID)
	if err != nil {
		if errors.Is(err, types.ErrResourceNotFound) {
			s.respondError(w, http.StatusNotFound, "resource not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	s.uploads.RemoveAll(r.Context(), resource.FileIDs)

	if err := s.resources.DeleteResource(r.Context(), resourceID); err != nil {
		s.internalServerError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "resource deleted"})
}
