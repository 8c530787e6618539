package model

import "time"

// Show represents a scheduled screening of a movie on one screen of a
// theatre.  The screen is referenced by its number within the theatre, so
// the valid seat set of a show is fully determined by that screen's grid.
//
// Fields:
//  ID           – primary key identifier.
//  TheatreID    – theatre hosting the show.
//  ScreenNumber – screen number within the theatre.
//  MovieName    – title of the movie.
//  Date         – calendar date of the screening (UTC midnight).
//  Time         – time of day, "HH:MM".
//  CreatedAt    – creation timestamp.
type Show struct {
	ID           uint64    `json:"id"`            // shows.id
	TheatreID    uint64    `json:"theatre_id"`    // shows.theatre_id
	ScreenNumber int       `json:"screen_number"` // shows.screen_number
	MovieName    string    `json:"movie_name"`    // shows.movie_name
	Date         time.Time `json:"date"`          // shows.show_date
	Time         string    `json:"time"`          // shows.show_time
	CreatedAt    time.Time `json:"created_at"`    // shows.created_at
}
