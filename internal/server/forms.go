package server

import (
	"mime/multipart"
	"net/http"

	"communityhub/internal/uploads"
)

func uploadsHeader(r *http.Request, key string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}

	return uploads.HeaderFromForm(r.MultipartForm, key)
}

func uploadsHeaders(r *http.Request, key string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}

	return r.MultipartForm.File[key]
}
