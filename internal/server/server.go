package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"communityhub/internal/mail"
	"communityhub/internal/notify"
	"communityhub/internal/storage"
	"communityhub/internal/store"
	"communityhub/internal/uploads"
	"communityhub/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	decoder  = form.NewDecoder()
	validate = validator.New()
)

type Service struct {
	logger *logrus.Logger
	config *types.Config

	users         *store.UserRepository
	communities   *store.CommunityRepository
	events        *store.EventRepository
	resources     *store.ResourceRepository
	tickets       *store.TicketRepository
	files         *store.FileRepository
	notifications *store.NotificationRepository

	uploads  *uploads.Manager
	notifier *notify.Notifier
	mailer   *mail.Mailer
	blobs    storage.Blob
	tokens   *TokenIssuer

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	users *store.UserRepository,
	communities *store.CommunityRepository,
	events *store.EventRepository,
	resources *store.ResourceRepository,
	tickets *store.TicketRepository,
	files *store.FileRepository,
	notifications *store.NotificationRepository,
	uploadManager *uploads.Manager,
	notifier *notify.Notifier,
	mailer *mail.Mailer,
	blobs storage.Blob,
) (*Service, error) {
	mux := flow.New()

	tokens, err := NewTokenIssuer(config.JWTSecret, time.Duration(config.TokenTTLHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	s := &Service{
		logger: logger,
		config: config,

		users:         users,
		communities:   communities,
		events:        events,
		resources:     resources,
		tickets:       tickets,
		files:         files,
		notifications: notifications,

		uploads:  uploadManager,
		notifier: notifier,
		mailer:   mailer,
		blobs:    blobs,
		tokens:   tokens,

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)
	r.Use(s.MetricsMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.Handler(), http.MethodGet)

	r.HandleFunc("/auth/login", s.handleLogin, http.MethodPost)
	r.HandleFunc("/auth/register", s.handleRegister, http.MethodPost)
	r.HandleFunc("/auth/forgot-password", s.handleForgotPassword, http.MethodPost)
	r.HandleFunc("/auth/reset-password/:token", s.handleResetPassword, http.MethodPost)

	r.HandleFunc("/files/:id", s.handleShowFile, http.MethodGet)
	r.HandleFunc("/files/:id/download", s.handleDownloadFile, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/users", s.handleListUsers, http.MethodGet)
		r.HandleFunc("/users", s.handleCreateUser, http.MethodPost)
		r.HandleFunc("/users/me", s.handleMe, http.MethodGet)
		r.HandleFunc("/users/me/notifications", s.handleMyNotifications, http.MethodGet)
		r.HandleFunc("/users/me/notifications/read", s.handleMarkNotificationsRead, http.MethodPost)
		r.HandleFunc("/users/:id", s.handleShowUser, http.MethodGet)
		r.HandleFunc("/users/:id", s.handleUpdateUser, http.MethodPut)
		r.HandleFunc("/users/:id", s.handleDeleteUser, http.MethodDelete)

		r.HandleFunc("/communities", s.handleListCommunities, http.MethodGet)
		r.HandleFunc("/communities", s.handleCreateCommunity, http.MethodPost)
		r.HandleFunc("/communities/:id", s.handleShowCommunity, http.MethodGet)
		r.HandleFunc("/communities/:id", s.handleUpdateCommunity, http.MethodPut)
		r.HandleFunc("/communities/:id", s.handleDeleteCommunity, http.MethodDelete)
		r.HandleFunc("/communities/:id/chat", s.handleCommunityChat, http.MethodGet)
		r.HandleFunc("/communities/:id/chat", s.handleCommunityAddMessage, http.MethodPost)
		r.HandleFunc("/communities/:id/chat/:messageID", s.handleCommunityDeleteMessage, http.MethodDelete)

		r.HandleFunc("/events", s.handleListEvents, http.MethodGet)
		r.HandleFunc("/events", s.handleCreateEvent, http.MethodPost)
		r.HandleFunc("/events/:id", s.handleShowEvent, http.MethodGet)
		r.HandleFunc("/events/:id", s.handleUpdateEvent, http.MethodPut)
		r.HandleFunc("/events/:id", s.handleDeleteEvent, http.MethodDelete)

		r.HandleFunc("/resources", s.handleListResources, http.MethodGet)
		r.HandleFunc("/resources", s.handleCreateResource, http.MethodPost)
		r.HandleFunc("/resources/:id", s.handleShowResource, http.MethodGet)
		r.HandleFunc("/resources/:id", s.handleUpdateResource, http.MethodPut)
		r.HandleFunc("/resources/:id", s.handleDeleteResource, http.MethodDelete)

		r.HandleFunc("/support-tickets", s.handleListTickets, http.MethodGet)
		r.HandleFunc("/support-tickets", s.handleCreateTicket, http.MethodPost)
		r.HandleFunc("/support-tickets/:id", s.handleShowTicket, http.MethodGet)
		r.HandleFunc("/support-tickets/:id", s.handleUpdateTicket, http.MethodPut)
		r.HandleFunc("/support-tickets/:id", s.handleDeleteTicket, http.MethodDelete)
		r.HandleFunc("/support-tickets/:id/chat", s.handleTicketChat, http.MethodGet)
		r.HandleFunc("/support-tickets/:id/chat", s.handleTicketAddMessage, http.MethodPost)
		r.HandleFunc("/support-tickets/:id/chat/:messageID", s.handleTicketDeleteMessage, http.MethodDelete)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
