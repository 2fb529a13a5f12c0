package handlers

import (
	"github.com/counseldesk/backend/internal/auth"
	"github.com/counseldesk/backend/internal/chat"
	"github.com/counseldesk/backend/internal/clio"
	"github.com/counseldesk/backend/internal/config"
	"github.com/counseldesk/backend/internal/dashboard"
	"github.com/counseldesk/backend/internal/feed"
	"github.com/counseldesk/backend/internal/google"
	"github.com/counseldesk/backend/internal/session"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	cfg       *config.Config
	sessions  *session.Manager
	auth      *auth.Service
	google    *google.Client
	clio      *clio.Client
	feed      *feed.Service
	dashboard *dashboard.Service
	chat      *chat.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	cfg *config.Config,
	sessions *session.Manager,
	authService *auth.Service,
	googleClient *google.Client,
	clioClient *clio.Client,
	feedService *feed.Service,
	dashboardService *dashboard.Service,
	chatService *chat.Service,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		sessions:  sessions,
		auth:      authService,
		google:    googleClient,
		clio:      clioClient,
		feed:      feedService,
		dashboard: dashboardService,
		chat:      chatService,
	}
}
