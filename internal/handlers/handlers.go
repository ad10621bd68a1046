// Package handlers exposes the HTTP surface. Every response uses the
// {success, message, data} envelope; domain sentinel errors are mapped to
// status codes here and nowhere else.
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"biblioteca/internal/auth"
	"biblioteca/internal/services"
)

type Handlers struct {
	loans         services.LoanService
	reservations  services.ReservationService
	notifications services.NotificationService
	catalog       services.CatalogService
	users         services.UserService
	stats         services.StatsService
	tokens        *auth.Manager
}

func New(
	loans services.LoanService,
	reservations services.ReservationService,
	notifications services.NotificationService,
	catalog services.CatalogService,
	users services.UserService,
	stats services.StatsService,
	tokens *auth.Manager,
) *Handlers {
	return &Handlers{
		loans:         loans,
		reservations:  reservations,
		notifications: notifications,
		catalog:       catalog,
		users:         users,
		stats:         stats,
		tokens:        tokens,
	}
}

// RegisterRoutes wires the full route table. Staff endpoints sit behind the
// Bibliotecario role; everything else only needs a valid token.
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")

	usuarios := api.Group("/usuarios")
	{
		usuarios.POST("/registro", h.register)
		usuarios.POST("/login", h.login)
		usuarios.GET("/activos", auth.RequireAuth(h.tokens), auth.RequireRole(auth.RoleStaff), h.listActiveUsers)
	}

	authed := api.Group("")
	authed.Use(auth.RequireAuth(h.tokens))

	staff := authed.Group("")
	staff.Use(auth.RequireRole(auth.RoleStaff))

	prestamos := staff.Group("/prestamos")
	{
		prestamos.POST("", h.createLoan)
		prestamos.GET("", h.listLoans)
		prestamos.GET("/activos", h.listActiveLoans)
		prestamos.GET("/ultimo", h.latestLoan)
		prestamos.GET("/buscar", h.searchLoans)
		prestamos.GET("/estadisticas", h.loanStats)
		prestamos.PUT("/devolucion/:id", h.returnLoan)
		prestamos.PUT("/fecha-vencimiento/:id", h.renewLoan)
	}

	reservas := authed.Group("/reservas")
	{
		reservas.POST("", h.createReservation)
		reservas.GET("", h.listReservations)
		reservas.DELETE("/:id", h.cancelReservation)
	}

	libros := api.Group("/libros")
	{
		libros.GET("", h.listBooks)
		libros.GET("/disponibles", h.listAvailableBooks)
		libros.GET("/:id", h.getBook)
		libros.POST("", auth.RequireAuth(h.tokens), auth.RequireRole(auth.RoleStaff), h.createBook)
		libros.PUT("/:id", auth.RequireAuth(h.tokens), auth.RequireRole(auth.RoleStaff), h.updateBook)
		libros.DELETE("/:id", auth.RequireAuth(h.tokens), auth.RequireRole(auth.RoleStaff), h.deleteBook)
	}

	catalogo := staff.Group("/catalogo")
	{
		catalogo.POST("/autores", h.createAuthor)
		catalogo.POST("/generos", h.createGenre)
		catalogo.POST("/editoriales", h.createEditorial)
		catalogo.POST("/secciones", h.createSection)
	}
	catalogoRead := api.Group("/catalogo")
	{
		catalogoRead.GET("/autores", h.listAuthors)
		catalogoRead.GET("/generos", h.listGenres)
		catalogoRead.GET("/editoriales", h.listEditorials)
		catalogoRead.GET("/secciones", h.listSections)
	}

	notificaciones := authed.Group("/notificaciones")
	{
		notificaciones.GET("", h.listNotifications)
		notificaciones.PUT("/:id/leida", h.markNotificationRead)
		notificaciones.PUT("/leidas", h.markAllNotificationsRead)
	}
}

// envelope is the uniform response shape.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: status < 400, Message: message, Data: data})
}

func respondBadRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, message, nil)
}

// respondError maps a domain error to its HTTP status. Infrastructure errors
// are logged and surfaced as an opaque 500.
func respondError(c *gin.Context, err error) {
	switch {
	case isNotFound(err):
		respond(c, http.StatusNotFound, err.Error(), nil)
	case isConflict(err):
		respond(c, http.StatusConflict, err.Error(), nil)
	case isValidation(err):
		respond(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		respond(c, http.StatusUnauthorized, err.Error(), nil)
	default:
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		respond(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

func isNotFound(err error) bool {
	for _, target := range []error{
		services.ErrBookNotFound,
		services.ErrUserNotFound,
		services.ErrLoanNotFound,
		services.ErrReservationNotFound,
		services.ErrNotificationNotFound,
		services.ErrEditorialNotFound,
		services.ErrSectionNotFound,
		services.ErrAuthorNotFound,
		services.ErrGenreNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isConflict(err error) bool {
	for _, target := range []error{
		services.ErrBookConflict,
		services.ErrBookNotAvailable,
		services.ErrBookInUse,
		services.ErrLoanNotActive,
		services.ErrReservationNotActive,
		services.ErrReservationCapExceeded,
		services.ErrDuplicateReservation,
		services.ErrISBNTaken,
		services.ErrEmailTaken,
		services.ErrNationalIDTaken,
		services.ErrUserInactive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isValidation(err error) bool {
	for _, target := range []error{
		services.ErrInvalidDueDate,
		services.ErrInvalidRenewalDate,
		services.ErrRoleNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
