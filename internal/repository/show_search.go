package repository

import (
	"context"
	"strings"
	"time"
)

// ShowSearchQuery defines filters & pagination for searching shows.
// Movie and Theatre are case-insensitive substring matches.  TimeFilter is
// "upcoming" (default: shows dated today or later, UTC) or "any".
type ShowSearchQuery struct {
	Movie      string
	Theatre    string
	Date       string // exact show date, YYYY-MM-DD
	TimeFilter string
	Page       int
	PageSize   int
}

// ShowSearchRow is one search hit with its theatre name.
type ShowSearchRow struct {
	ID           uint64 `json:"id"`
	MovieName    string `json:"movie_name"`
	TheatreID    uint64 `json:"theatre_id"`
	Theatre      string `json:"theatre"`
	ScreenNumber int    `json:"screen_number"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// Search returns one page of shows matching q, ordered by date and time,
// together with the total number of matches.
func (r *ShowRepo) Search(ctx context.Context, q ShowSearchQuery) ([]ShowSearchRow, int64, error) {
	where := []string{}
	args := []any{}

	if !strings.EqualFold(q.TimeFilter, "any") {
		where = append(where, "s.show_date >= ?")
		args = append(args, r.now().UTC().Format(showDateLayout))
	}
	if q.Movie != "" {
		where = append(where, "LOWER(s.movie_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Movie)+"%")
	}
	if q.Theatre != "" {
		where = append(where, "LOWER(t.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Theatre)+"%")
	}
	if q.Date != "" {
		where = append(where, "s.show_date = ?")
		args = append(args, q.Date)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM shows s
		JOIN theatres t ON t.id = s.theatre_id
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	if limit < 1 {
		limit = 20
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	dataSQL := `SELECT s.id, s.movie_name, s.theatre_id, t.name, s.screen_number, s.show_date, s.show_time
		FROM shows s
		JOIN theatres t ON t.id = s.theatre_id
		WHERE ` + cond + `
		ORDER BY s.show_date ASC, s.show_time ASC, s.id ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]ShowSearchRow, 0, limit)
	for rows.Next() {
		var d ShowSearchRow
		if err := rows.Scan(&d.ID, &d.MovieName, &d.TheatreID, &d.Theatre, &d.ScreenNumber, &d.Date, &d.Time); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ValidShowDate reports whether s is a YYYY-MM-DD date.
func ValidShowDate(s string) bool {
	_, err := time.Parse(showDateLayout, s)
	return err == nil
}
