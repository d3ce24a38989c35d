package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

func (s *Service) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode response body")
	}
}

func (s *Service) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"message": message})
}

func (s *Service) internalServerError(w http.ResponseWriter, err error) {
	s.logger.WithError(err).Error("request failed")
	s.respondError(w, http.StatusInternalServerError, "something went wrong")
}

// respondInputErrors maps validator failures onto a field -> message body.
// Any other error is treated as a malformed request.
func (s *Service) respondInputErrors(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = validationMessage(fe)
	}

	s.respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": "validation failed",
		"errors":  fields,
	})
}

func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}

	return nil
}

// decodeForm parses a multipart or urlencoded body and decodes its values
// into dst. Multipart is the norm here since most write endpoints accept
// file uploads alongside their fields.
func decodeForm(r *http.Request, dst any) error {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return fmt.Errorf("failed to parse multipart form: %w", err)
		}

		return decoder.Decode(dst, r.MultipartForm.Value)
	}

	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}

	return decoder.Decode(dst, r.PostForm)
}
