package models

import (
	"strings"
	"time"
)

// FeatureKind identifies one of the study-material generation features.
type FeatureKind string

const (
	FeatureSchedule      FeatureKind = "schedule"
	FeatureFlashcards    FeatureKind = "flashcards"
	FeatureSlides        FeatureKind = "slides"
	FeatureCheatsheet    FeatureKind = "cheatsheet"
	FeaturePodcastScript FeatureKind = "podcast_script"
	FeatureResearchPaper FeatureKind = "research_paper"
	FeatureChatAnswer    FeatureKind = "chat_answer"
)

// TopicType classifies a study topic within a day.
type TopicType string

const (
	TopicTheory   TopicType = "theory"
	TopicPractice TopicType = "practice"
	TopicReview   TopicType = "review"
)

// NormalizeTopicType maps arbitrary model output onto the closed enum,
// defaulting to theory.
func NormalizeTopicType(raw string) TopicType {
	switch TopicType(strings.ToLower(strings.TrimSpace(raw))) {
	case TopicTheory:
		return TopicTheory
	case TopicPractice:
		return TopicPractice
	case TopicReview:
		return TopicReview
	default:
		return TopicTheory
	}
}

// BackgroundAudio is the ambient-sound suggestion attached to a topic.
type BackgroundAudio string

const (
	AudioLofi         BackgroundAudio = "lofi"
	AudioClassical    BackgroundAudio = "classical"
	AudioNature       BackgroundAudio = "nature"
	AudioInstrumental BackgroundAudio = "instrumental"
	AudioFocus        BackgroundAudio = "focus"
)

// NormalizeBackgroundAudio maps arbitrary model output onto the closed enum,
// defaulting to lofi.
func NormalizeBackgroundAudio(raw string) BackgroundAudio {
	switch BackgroundAudio(strings.ToLower(strings.TrimSpace(raw))) {
	case AudioLofi:
		return AudioLofi
	case AudioClassical:
		return AudioClassical
	case AudioNature:
		return AudioNature
	case AudioInstrumental:
		return AudioInstrumental
	case AudioFocus:
		return AudioFocus
	default:
		return AudioLofi
	}
}

// StudyPreference weights a schedule toward theory or practice.
type StudyPreference string

const (
	PreferenceTheoryHeavy   StudyPreference = "theory-heavy"
	PreferencePracticeHeavy StudyPreference = "practice-heavy"
	PreferenceBalanced      StudyPreference = "balanced"
)

func NormalizeStudyPreference(raw string) StudyPreference {
	switch StudyPreference(strings.ToLower(strings.TrimSpace(raw))) {
	case PreferenceTheoryHeavy:
		return PreferenceTheoryHeavy
	case PreferencePracticeHeavy:
		return PreferencePracticeHeavy
	default:
		return PreferenceBalanced
	}
}

// ScheduleSpec carries the user parameters every schedule is derived from,
// whether by the model or by the deterministic synthesizer.
type ScheduleSpec struct {
	ExamDate   time.Time
	DailyHours float64
	Preference StudyPreference
}

type Topic struct {
	TimeRange       string          `json:"timeRange"`
	TopicName       string          `json:"topicName"`
	Description     string          `json:"description"`
	Type            TopicType       `json:"type"`
	BackgroundAudio BackgroundAudio `json:"backgroundAudio"`
}

type Day struct {
	DayNumber int      `json:"dayNumber"`
	Date      string   `json:"date"`
	Topics    []Topic  `json:"topics"`
	Goals     []string `json:"goals"`
}

type Schedule struct {
	Title       string   `json:"title"`
	TotalTopics int      `json:"totalTopics"`
	ExamDate    string   `json:"examDate"`
	DailyHours  float64  `json:"dailyHours"`
	Days        []Day    `json:"days"`
	CheatSheet  []string `json:"cheatSheet"`
}

// TTSRequest is a single speech synthesis request.
type TTSRequest struct {
	Script  string
	VoiceID string
	Model   string
}

// TTSProvider tags which synthesis backend served a request.
type TTSProvider string

const (
	TTSPrimary   TTSProvider = "primary"
	TTSSecondary TTSProvider = "secondary"
)

// TTSResult references synthesized audio written to disk.
type TTSResult struct {
	Filename string
	Path     string
	Provider TTSProvider
	Engine   string
}
