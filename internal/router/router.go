package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/middleware"
)

// CustomerRole is the JWT role allowed to book seats.
const CustomerRole = "CUSTOMER"

// Deps carries everything the routes need.  Redis may be nil, which
// disables rate limiting and response caching.
type Deps struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Log       logrus.FieldLogger
	DB        handler.Pinger
	Bookings  *handler.BookingHandler
	Public    *handler.PublicHandler
}

// New builds the Echo instance with shared middleware and every route
// registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))

	RegisterRoutes(e, d.DB)
	RegisterPublic(e, d.Public, d.Bookings, middleware.NewRedisCache(d.Cache, d.Redis))
	RegisterCustomer(e, d.Bookings, d.JWTSecret, middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	return e
}

// RegisterRoutes registers routes that do not require authentication and
// are not part of the API, currently the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers unauthenticated browse endpoints.  Theatre
// and show listings go through the response cache; the seat map does not, because
// it must reflect the latest committed bookings.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, b *handler.BookingHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/theatres", p.ListTheatres, cache)
	e.GET("/v1/theatres/:id/screens", p.ListScreens, cache)
	e.GET("/v1/shows", p.ListShows, cache)
	e.GET("/v1/shows/:id", p.GetShow, cache)
	e.GET("/v1/search/shows", p.SearchShows, cache)
	e.GET("/v1/shows/:id/seats", b.ShowSeats)
}

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT and the CUSTOMER role, and are rate limited
// per user.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(CustomerRole),
		limiter,
	)
	g.POST("/bookings", h.Reserve)
	g.POST("/bookings/:id/cancel", h.Cancel)
	g.GET("/bookings/:id", h.Get)
	g.GET("/my-bookings", h.ListMine)
}
