package api

import (
	"github.com/shelfnotes/shelfnotes-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Auth    *service.AuthService
	Catalog *service.CatalogService
	Book    *service.BookService
	Review  *service.ReviewService
}
