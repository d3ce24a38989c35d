package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"communityhub/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newBareService() *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Service{logger: logger}
}

func requestAs(method, target string, user *types.User) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	return r.WithContext(context.WithValue(r.Context(), contextKeyUser, user))
}

func TestHandleListUsers_AdminOnly(t *testing.T) {
	s := newBareService()

	for _, role := range []types.UserType{types.UserTypeSubAdmin, types.UserTypeUser} {
		t.Run(string(role), func(t *testing.T) {
			w := httptest.NewRecorder()
			s.handleListUsers(w, requestAs(http.MethodGet, "/users", &types.User{ID: "u1", Type: role}))

			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestHandleCreateUser_AdminOnly(t *testing.T) {
	s := newBareService()

	for _, role := range []types.UserType{types.UserTypeSubAdmin, types.UserTypeUser} {
		t.Run(string(role), func(t *testing.T) {
			w := httptest.NewRecorder()
			s.handleCreateUser(w, requestAs(http.MethodPost, "/users", &types.User{ID: "u1", Type: role}))

			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}
