package services

import (
	"fmt"
	"time"

	"studyforge/internal/models"
)

const (
	minScheduleDays = 3
	maxScheduleDays = 14
)

// ScheduleSynthesizer deterministically derives a minimally valid study
// schedule from the request parameters alone, with no model involvement.
// It is the last resort when a completion was produced but could not be
// recovered as a schedule object.
type ScheduleSynthesizer struct {
	now func() time.Time
}

func NewScheduleSynthesizer() *ScheduleSynthesizer {
	return &ScheduleSynthesizer{now: time.Now}
}

// NewScheduleSynthesizerAt pins the synthesizer's clock.
func NewScheduleSynthesizerAt(now func() time.Time) *ScheduleSynthesizer {
	return &ScheduleSynthesizer{now: now}
}

// Synthesize produces a schedule whose day count is the number of days until
// the exam, clamped to [3, 14]. An exam date in the past or today still yields
// the clamped minimum rather than an empty schedule.
func (s *ScheduleSynthesizer) Synthesize(spec models.ScheduleSpec) models.Schedule {
	today := truncateToDay(s.now().UTC())
	exam := truncateToDay(spec.ExamDate)

	dayCount := int(exam.Sub(today).Hours() / 24)
	if dayCount < minScheduleDays {
		dayCount = minScheduleDays
	}
	if dayCount > maxScheduleDays {
		dayCount = maxScheduleDays
	}

	days := make([]models.Day, 0, dayCount)
	for i := 0; i < dayCount; i++ {
		date := today.AddDate(0, 0, i)
		topicType := models.TopicTheory
		if i >= 3 {
			topicType = models.TopicReview
		}
		days = append(days, models.Day{
			DayNumber: i + 1,
			Date:      date.Format("2006-01-02"),
			Topics: []models.Topic{
				{
					TimeRange:       "09:00 - 11:00",
					TopicName:       fmt.Sprintf("Study session %d", i+1),
					Description:     "Work through your source material and consolidate the key points.",
					Type:            topicType,
					BackgroundAudio: models.AudioLofi,
				},
			},
			Goals: []string{
				"Cover the planned material for the day",
				"Write a short recap of what you learned",
				"Note anything unclear to revisit tomorrow",
			},
		})
	}

	return models.Schedule{
		Title:       "Study Plan",
		TotalTopics: dayCount,
		ExamDate:    exam.Format("2006-01-02"),
		DailyHours:  spec.DailyHours,
		Days:        days,
		CheatSheet: []string{
			"Review your notes daily and focus on the topics you find hardest.",
		},
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
