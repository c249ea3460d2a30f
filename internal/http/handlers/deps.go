package handlers

import (
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"

	"libdesk/internal/config"
	"libdesk/internal/repos"
	"libdesk/internal/services"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler     *AuthHandler
	CatalogHandler  *CatalogHandler
	OverviewHandler *OverviewHandler
	BookHandler     *BookHandler
	ReaderHandler   *ReaderHandler
	CategoryHandler *CategoryHandler
	BorrowHandler   *BorrowHandler
	AdminHandler    *AdminHandler
}

// NewDeps wires repos, services and handlers against one backend client.
// tp may be nil for the global tracer provider.
func NewDeps(db *sqlx.DB, cfg config.Config, tp trace.TracerProvider) *Deps {
	opts := []repos.Option{repos.WithTimeout(cfg.APITimeout)}
	if tp != nil {
		opts = append(opts, repos.WithTracerProvider(tp))
	}
	client := repos.NewClient(cfg.APIBaseURL, opts...)

	bookRepo := repos.NewBookRepo(client)
	memberRepo := repos.NewMemberRepo(client)
	txRepo := repos.NewTransactionRepo(client)
	catRepo := repos.NewCategoryRepo(client)
	libRepo := repos.NewLibrarianRepo(client)
	sessions := repos.NewSessionRepo(db, cfg.SessionTTL)

	authSvc := services.NewAuthService(libRepo, sessions)
	bookSvc := services.NewBookService(bookRepo)
	memberSvc := services.NewMemberService(memberRepo)
	txSvc := services.NewTransactionService(txRepo, memberSvc)
	catSvc := services.NewCategoryService(catRepo)

	books := &BookHandler{Books: bookSvc, Cats: catSvc}
	readers := &ReaderHandler{Members: memberSvc}
	borrows := &BorrowHandler{Txs: txSvc}

	return &Deps{
		Auth:            authSvc,
		AuthHandler:     &AuthHandler{Auth: authSvc, CookieSecure: cfg.CookieSecure},
		CatalogHandler:  &CatalogHandler{Catalog: services.NewCatalogService(bookRepo)},
		OverviewHandler: &OverviewHandler{Stats: services.NewStatsService(bookRepo, memberRepo, txRepo)},
		BookHandler:     books,
		ReaderHandler:   readers,
		CategoryHandler: &CategoryHandler{Cats: catSvc},
		BorrowHandler:   borrows,
		AdminHandler:    NewAdminHandler(books, readers, borrows),
	}
}
