package handler

// This file defines handlers for the public browsing API.  These routes
// let unauthenticated users list theatres, their screens and shows.

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// ShowReader is the read side of the show repository.
type ShowReader interface {
	GetShow(ctx context.Context, id uint64) (*model.Show, error)
	List(ctx context.Context, theatreID uint64) ([]model.Show, error)
	Search(ctx context.Context, q repository.ShowSearchQuery) ([]repository.ShowSearchRow, int64, error)
}

// TheatreReader is the read side of the theatre repository.
type TheatreReader interface {
	List(ctx context.Context) ([]model.Theatre, error)
	GetByID(ctx context.Context, id uint64) (*model.Theatre, error)
	ListScreens(ctx context.Context, theatreID uint64) ([]model.Screen, error)
}

// PublicHandler serves unauthenticated theatre and show browsing.
type PublicHandler struct {
	Theatres TheatreReader
	Shows    ShowReader
	Log      logrus.FieldLogger
}

// PublicTheatre is a theatre as exposed by the public API.
type PublicTheatre struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// PublicScreen is a screen and its seating grid.
type PublicScreen struct {
	Number int `json:"number"`
	Rows   int `json:"rows"`
	Cols   int `json:"cols"`
}

// ListTheatres handles GET /v1/theatres.  Response JSON contains an
// "items" array of PublicTheatre.
func (h *PublicHandler) ListTheatres(c echo.Context) error {
	list, err := h.Theatres.List(c.Request().Context())
	if err != nil {
		h.Log.WithError(err).Error("list theatres")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicTheatre, 0, len(list))
	for _, t := range list {
		out = append(out, PublicTheatre{ID: t.ID, Name: t.Name, Location: t.Location})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListScreens handles GET /v1/theatres/:id/screens.  An unknown theatre
// is a 404; a theatre without screens yields an empty list.
func (h *PublicHandler) ListScreens(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theatre id"})
	}
	ctx := c.Request().Context()
	th, err := h.Theatres.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTheatreNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "theatre not found"})
		}
		h.Log.WithError(err).WithField("theatre_id", id).Error("get theatre")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	screens, err := h.Theatres.ListScreens(ctx, th.ID)
	if err != nil {
		h.Log.WithError(err).WithField("theatre_id", id).Error("list screens")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicScreen, 0, len(screens))
	for _, s := range screens {
		out = append(out, PublicScreen{Number: s.Number, Rows: s.Rows, Cols: s.Cols})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"theatre": PublicTheatre{ID: th.ID, Name: th.Name, Location: th.Location},
		"items":   out,
	})
}

// PublicShow represents a show exposed via the public API.
type PublicShow struct {
	ID           uint64 `json:"id"`
	TheatreID    uint64 `json:"theatre_id"`
	ScreenNumber int    `json:"screen_number"`
	MovieName    string `json:"movie_name"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

func toPublicShow(s model.Show) PublicShow {
	return PublicShow{
		ID:           s.ID,
		TheatreID:    s.TheatreID,
		ScreenNumber: s.ScreenNumber,
		MovieName:    s.MovieName,
		Date:         s.Date.Format("2006-01-02"),
		Time:         s.Time,
	}
}

// ListShows handles GET /v1/shows.  The optional theatre_id query
// parameter limits the result to one theatre.  Response JSON contains an
// "items" array of PublicShow.
func (h *PublicHandler) ListShows(c echo.Context) error {
	var theatreID uint64
	if raw := c.QueryParam("theatre_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theatre_id"})
		}
		theatreID = id
	}
	shows, err := h.Shows.List(c.Request().Context(), theatreID)
	if err != nil {
		h.Log.WithError(err).Error("list shows")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicShow, 0, len(shows))
	for _, s := range shows {
		out = append(out, toPublicShow(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetShow handles GET /v1/shows/:id.
func (h *PublicHandler) GetShow(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	s, err := h.Shows.GetShow(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		h.Log.WithError(err).WithField("show_id", id).Error("get show")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toPublicShow(*s))
}

// maxSearchPage keeps (page-1)*page_size far from overflowing.
const maxSearchPage = 10000

// SearchShows handles GET /v1/search/shows.  Query parameters: movie and
// theatre (substring, case-insensitive), date (YYYY-MM-DD), time_filter
// ("upcoming" by default, or "any"), page (max maxSearchPage) and
// page_size (max 100).
func (h *PublicHandler) SearchShows(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date != "" && !repository.ValidShowDate(date) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	timeFilter := strings.ToLower(strings.TrimSpace(c.QueryParam("time_filter")))
	if timeFilter == "" {
		timeFilter = "upcoming"
	}
	if timeFilter != "upcoming" && timeFilter != "any" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "time_filter must be upcoming or any"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	if page > maxSearchPage {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "page must be at most " + strconv.Itoa(maxSearchPage)})
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}

	items, total, err := h.Shows.Search(c.Request().Context(), repository.ShowSearchQuery{
		Movie:      strings.TrimSpace(c.QueryParam("movie")),
		Theatre:    strings.TrimSpace(c.QueryParam("theatre")),
		Date:       date,
		TimeFilter: timeFilter,
		Page:       page,
		PageSize:   ps,
	})
	if err != nil {
		h.Log.WithError(err).Error("search shows")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}
