package library

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ryanm101/gameshelf/internal/catalog"
)

// Status is where a game stands in the player's library.
type Status string

const (
	StatusPlayed  Status = "played"
	StatusPlaying Status = "playing"
	StatusBacklog Status = "backlog"
	StatusDropped Status = "dropped"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPlayed, StatusPlaying, StatusBacklog, StatusDropped}

// MaxRating is the top of the personal rating scale.
const MaxRating = 10.0

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArg, s)
}

// Details are the fields a player sets when adding or editing an entry.
type Details struct {
	Status  Status
	Rating  *float64 // nil when unrated
	Comment string
}

// Validate checks the status and the rating range.
func (d Details) Validate() error {
	if _, err := ParseStatus(string(d.Status)); err != nil {
		return err
	}
	if d.Rating != nil {
		r := *d.Rating
		if math.IsNaN(r) || r < 0 || r > MaxRating {
			return fmt.Errorf("%w: rating %v outside 0-%v", ErrInvalidArg, r, MaxRating)
		}
	}
	return nil
}

// Entry is one game in the library. Game is the catalog snapshot taken when
// the entry was added and DateAdded never changes.
type Entry struct {
	Game      catalog.Item `json:"game"`
	Status    Status       `json:"status"`
	Rating    *float64     `json:"rating,omitempty"`
	Comment   string       `json:"comment,omitempty"`
	DateAdded time.Time    `json:"dateAdded"`
}

// Details returns the editable part of the entry.
func (e Entry) Details() Details {
	return Details{Status: e.Status, Rating: cloneRating(e.Rating), Comment: e.Comment}
}

func (e Entry) clone() Entry {
	e.Rating = cloneRating(e.Rating)
	return e
}

func (e Entry) with(d Details) Entry {
	st, _ := ParseStatus(string(d.Status))
	e.Status = st
	e.Rating = cloneRating(d.Rating)
	e.Comment = strings.TrimSpace(d.Comment)
	return e
}

func cloneRating(r *float64) *float64 {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

// Rating is a convenience for building Details.
func Rating(v float64) *float64 {
	return &v
}
