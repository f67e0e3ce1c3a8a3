package handler

import (
	"context"

	"tickerpulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Searcher interface {
	RunSearch(ctx context.Context, symbol, window string, sources []string) (domain.Outcome, error)
}

type Accounts interface {
	Register(ctx context.Context, username, password string) (domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword, confirm string) error
	Delete(ctx context.Context, sessionUser, username, password string) error
	TokenParser
}

type SnapshotReader interface {
	Snapshot(ctx context.Context, symbol string) (domain.Outcome, bool, error)
}

type Handler struct {
	tracer         trace.Tracer
	searcher       Searcher
	defaultSources []string
	accounts       Accounts
	snapshots      SnapshotReader
}

func New(tracer trace.Tracer, searcher Searcher, defaultSources []string) *Handler {
	return &Handler{
		tracer:         tracer,
		searcher:       searcher,
		defaultSources: defaultSources,
	}
}

// SetAccounts enables the account routes and token checks on search.
func (h *Handler) SetAccounts(accounts Accounts) {
	h.accounts = accounts
}

func (h *Handler) SetSnapshotReader(reader SnapshotReader) {
	h.snapshots = reader
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.POST("/accounts/register", h.Register)
	api.POST("/accounts/login", h.Login)

	var parser TokenParser
	if h.accounts != nil {
		parser = h.accounts
	}
	authed := api.Group("", JWTAuth(parser))
	authed.POST("/accounts/password", h.ChangePassword)
	authed.POST("/accounts/delete", h.DeleteAccount)
	authed.POST("/search", h.Search)
	authed.GET("/series/:symbol", h.Series)
	authed.GET("/snapshots/:symbol", h.GetSnapshot)
}
