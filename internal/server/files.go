package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"communityhub/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleShowFile(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, false)
}

func (s *Service) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, true)
}

// serveFile streams a stored file's bytes. The record is authoritative for
// where the bytes live; a record whose bytes are gone is a 404, not a 500.
func (s *Service) serveFile(w http.ResponseWriter, r *http.Request, download bool) {
	file, err := s.files.File(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		if errors.Is(err, types.ErrFileNotFound) {
			s.respondError(w, http.StatusNotFound, "file not found")
			return
		}

		s.internalServerError(w, err)
		return
	}

	body, err := s.blobs.Open(r.Context(), file.Path)
	if err != nil {
		s.logger.WithError(err).WithField("path", file.Path).Warn("file record has no bytes")
		s.respondError(w, http.StatusNotFound, "file not found")
		return
	}
	defer body.Close()

	if file.Mimetype != "" {
		w.Header().Set("Content-Type", file.Mimetype)
	}
	if download {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	}

	if _, err := io.Copy(w, body); err != nil {
		s.logger.WithError(err).WithField("file_id", file.ID).Warn("failed to stream file")
	}
}
