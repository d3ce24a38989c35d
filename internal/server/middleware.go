package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"communityhub/pkg/types"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const contextKeyUser contextKey = "user"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// RequireAuth middleware checks for a valid bearer token and adds the user to context
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Get the bearer token
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			s.logger.Debug("no bearer token on request")
			s.respondError(w, http.StatusUnauthorized, "missing access token")
			return
		}

		// 2. Verify signature and expiration
		userID, err := s.tokens.Verify(raw)
		if err != nil {
			s.logger.WithError(err).Debug("failed to verify access token")
			s.respondError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		// 3. Load the user behind the token
		user, err := s.users.User(r.Context(), userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("token subject does not resolve to a user")
			s.respondError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		if user.DeletedAt != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		// 4. Continue with the user on the context
		ctx := context.WithValue(r.Context(), contextKeyUser, user)

		s.logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"email":   user.Email,
		}).Debug("authenticated user")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user placed on the context by RequireAuth.
func (s *Service) currentUser(ctx context.Context) *types.User {
	user, _ := ctx.Value(contextKeyUser).(*types.User)
	return user
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}
