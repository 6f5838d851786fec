package router

import (
	"net/http"

	"github.com/deppfellow/bookshelf/internal/handler"
	"github.com/deppfellow/bookshelf/internal/middleware"
	"github.com/labstack/echo/v4"
)

// registerBookRoutes mounts the book API. Reads are public; writes go
// through auth.AdminOnly.
func registerBookRoutes(g *echo.Group, h *handler.Handlers, auth *middleware.AuthMiddleware) {
	books := g.Group("/books")

	books.GET("", handler.Handle(h.Book.ListBooks, http.StatusOK, &handler.ListBooksRequest{}))
	books.GET("/count", handler.Handle(h.Book.CountBooks, http.StatusOK, &handler.CountBooksRequest{}))
	books.GET("/lookup", handler.Handle(h.Book.LookupBook, http.StatusOK, &handler.LookupBookRequest{}))
	books.GET("/:id", handler.Handle(h.Book.GetBook, http.StatusOK, &handler.BookIDRequest{})).Name = handler.RouteGetBook

	admin := auth.AdminOnly()

	books.POST("", handler.Handle(h.Book.CreateBook, http.StatusCreated, &handler.CreateBookRequest{}), admin...)
	books.PUT("/:id", handler.Handle(h.Book.ReplaceBook, http.StatusOK, &handler.ReplaceBookRequest{}), admin...)
	books.PATCH("/:id", handler.Handle(h.Book.PatchBook, http.StatusOK, &handler.PatchBookRequest{}), admin...)
	books.DELETE("/:id", handler.HandleNoContent(h.Book.DeleteBook, http.StatusNoContent, &handler.BookIDRequest{}), admin...)
}
