package services

import (
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

// ReviewInterval previews when a brand-new flashcard would come due for each
// possible first rating.
type ReviewInterval struct {
	Rating        string `json:"rating"`
	ScheduledDays int    `json:"scheduledDays"`
	Due           string `json:"due"`
}

var ratingNames = []struct {
	rating fsrs.Rating
	name   string
}{
	{fsrs.Again, "again"},
	{fsrs.Hard, "hard"},
	{fsrs.Good, "good"},
	{fsrs.Easy, "easy"},
}

// ReviewPlan computes first-review intervals for a fresh card with the
// default scheduler parameters. Purely informational: cards are returned to
// the caller, never stored.
func ReviewPlan(now time.Time) []ReviewInterval {
	params := fsrs.DefaultParam()
	card := fsrs.Card{State: fsrs.New, Due: now}
	scheduling := params.Repeat(card, now)

	plan := make([]ReviewInterval, 0, len(ratingNames))
	for _, entry := range ratingNames {
		info, ok := scheduling[entry.rating]
		if !ok {
			continue
		}
		plan = append(plan, ReviewInterval{
			Rating:        entry.name,
			ScheduledDays: int(info.Card.ScheduledDays),
			Due:           info.Card.Due.UTC().Format(time.RFC3339),
		})
	}
	return plan
}
