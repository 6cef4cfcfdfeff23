package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"studyforge/internal/models"
	"studyforge/internal/websearch"
)

type scriptedBackend struct {
	id       string
	response string
	err      error
	prompts  []string
}

func (b *scriptedBackend) ID() string { return b.id }

func (b *scriptedBackend) Complete(_ context.Context, req CompletionRequest) (string, error) {
	b.prompts = append(b.prompts, req.UserPrompt)
	return b.response, b.err
}

func testOrchestrator(backend Backend) *Orchestrator {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	synth := NewScheduleSynthesizerAt(func() time.Time { return now })
	return NewOrchestrator([]Backend{backend}, synth, nil)
}

func TestGenerateScheduleValidation(t *testing.T) {
	o := testOrchestrator(&scriptedBackend{id: "m", response: "{}"})

	_, err := o.GenerateSchedule(context.Background(), ScheduleParams{})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("missing examDate: expected *InputError, got %v", err)
	}

	_, err = o.GenerateSchedule(context.Background(), ScheduleParams{ExamDate: "next tuesday"})
	if !errors.As(err, &inputErr) {
		t.Fatalf("malformed examDate: expected *InputError, got %v", err)
	}
}

func TestGenerateScheduleFromModel(t *testing.T) {
	backend := &scriptedBackend{id: "m", response: "```json\n" + `{"schedule": {"title": "AI Plan", "days": [{"dayNumber": 1, "topics": [{"topicName": "Sets", "type": "DRILLING", "backgroundAudio": "dubstep"}]}]}}` + "\n```"}
	o := testOrchestrator(backend)

	result, err := o.GenerateSchedule(context.Background(), ScheduleParams{
		ExamDate:    "2026-03-10",
		DailyHours:  2,
		SummaryText: "set theory basics",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	schedule, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("result type %T, want map", result)
	}
	if schedule["title"] != "AI Plan" {
		t.Fatalf("title = %v", schedule["title"])
	}

	topic := schedule["days"].([]any)[0].(map[string]any)["topics"].([]any)[0].(map[string]any)
	if topic["type"] != "theory" {
		t.Fatalf("unknown topic type should normalize to theory, got %v", topic["type"])
	}
	if topic["backgroundAudio"] != "lofi" {
		t.Fatalf("unknown audio should normalize to lofi, got %v", topic["backgroundAudio"])
	}
}

func TestGenerateScheduleParseFailureFallsBack(t *testing.T) {
	backend := &scriptedBackend{id: "m", response: "Here is your plan: study hard every day!"}
	o := testOrchestrator(backend)

	result, err := o.GenerateSchedule(context.Background(), ScheduleParams{
		ExamDate: "2026-03-08",
	})
	if err != nil {
		t.Fatalf("parse failure must fall back, not error: %v", err)
	}

	schedule, ok := result.(models.Schedule)
	if !ok {
		t.Fatalf("fallback result type %T, want models.Schedule", result)
	}
	if len(schedule.Days) != 7 {
		t.Fatalf("fallback days = %d, want 7", len(schedule.Days))
	}
	if schedule.DailyHours != 2 {
		t.Fatalf("default dailyHours = %v, want 2", schedule.DailyHours)
	}
}

func TestGenerateScheduleMissingKeyFallsBack(t *testing.T) {
	backend := &scriptedBackend{id: "m", response: `{"plan": {"days": []}}`}
	o := testOrchestrator(backend)

	result, err := o.GenerateSchedule(context.Background(), ScheduleParams{ExamDate: "2026-03-05"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.(models.Schedule); !ok {
		t.Fatalf("result type %T, want synthesized models.Schedule", result)
	}
}

func TestGenerateScheduleBackendFailureIsError(t *testing.T) {
	backend := &scriptedBackend{id: "m", err: errors.New("service down")}
	o := testOrchestrator(backend)

	_, err := o.GenerateSchedule(context.Background(), ScheduleParams{ExamDate: "2026-03-05"})
	var exhausted *BackendExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("backend failure must surface, got %v", err)
	}
}

func TestGenerateFlashcardsParseFailureIsError(t *testing.T) {
	backend := &scriptedBackend{id: "m", response: "not json at all"}
	o := testOrchestrator(backend)

	_, err := o.GenerateFlashcards(context.Background(), FlashcardParams{SummaryText: "material"})
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("flashcard parse failure must surface, got %v", err)
	}
}

func TestGenerateFlashcardsDefaults(t *testing.T) {
	backend := &scriptedBackend{id: "m", response: `{"flashcards": [{"front": "Q", "back": "A"}]}`}
	o := testOrchestrator(backend)

	result, err := o.GenerateFlashcards(context.Background(), FlashcardParams{SummaryText: "material"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meta := result["metadata"].(map[string]any)
	if meta["difficulty"] != "medium" {
		t.Fatalf("default difficulty = %v", meta["difficulty"])
	}
	if meta["count"] != 10 {
		t.Fatalf("default count = %v", meta["count"])
	}
	plan, ok := meta["reviewPlan"].([]ReviewInterval)
	if !ok || len(plan) != 4 {
		t.Fatalf("reviewPlan = %v", meta["reviewPlan"])
	}
	if len(backend.prompts) != 1 || !strings.Contains(backend.prompts[0], "10 flashcards") {
		t.Fatal("prompt should carry the defaulted count")
	}
}

func TestGenerateFlashcardsRequiresContent(t *testing.T) {
	o := testOrchestrator(&scriptedBackend{id: "m"})
	_, err := o.GenerateFlashcards(context.Background(), FlashcardParams{})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected *InputError, got %v", err)
	}
}

func TestGenerateSlides(t *testing.T) {
	backend := &scriptedBackend{id: "m", response: `{"slides": [{"title": "Intro", "bullets": ["a"]}]}`}
	o := testOrchestrator(backend)

	result, err := o.GenerateSlides(context.Background(), SlideParams{SummaryText: "material"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result["slides"]; !ok {
		t.Fatal("expected slides key")
	}
}

func TestGenerateCheatsheetStats(t *testing.T) {
	backend := &scriptedBackend{id: "m", response: `{"content": "one two three four"}`}
	o := testOrchestrator(backend)

	result, err := o.GenerateCheatsheet(context.Background(), CheatsheetParams{
		SummaryText: "material",
		DetailLevel: "brief",
		PageCount:   2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats := result["stats"].(map[string]any)
	if stats["wordCount"] != 4 {
		t.Fatalf("wordCount = %v, want 4", stats["wordCount"])
	}
	if stats["detailLevel"] != "brief" || stats["pageCount"] != 2 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestGeneratePodcastScript(t *testing.T) {
	words := strings.Repeat("listen carefully now please ", 120)
	backend := &scriptedBackend{id: "m", response: "```\n" + words + "\n```"}
	o := testOrchestrator(backend)

	result, err := o.GeneratePodcastScript(context.Background(), PodcastParams{SourceText: "material"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	script := result["script"].(string)
	if strings.Contains(script, "```") {
		t.Fatal("script should be fence-stripped")
	}
	if result["wordCount"] != 480 {
		t.Fatalf("wordCount = %v, want 480", result["wordCount"])
	}
	if result["estimatedDuration"] != "3 min" {
		t.Fatalf("estimatedDuration = %v, want 3 min", result["estimatedDuration"])
	}
	settings := result["settings"].(map[string]string)
	if settings["duration"] != "10 minutes" || settings["language"] != "en" {
		t.Fatalf("default settings = %v", settings)
	}
}

func TestEstimateSpokenDurationFloor(t *testing.T) {
	if got := estimateSpokenDuration(20); got != "1 min" {
		t.Fatalf("short scripts should round up to 1 min, got %q", got)
	}
}

type fakeSearcher struct {
	result *websearch.SearchResult
	err    error
	query  string
}

func (f *fakeSearcher) Search(_ context.Context, query string) (*websearch.SearchResult, error) {
	f.query = query
	return f.result, f.err
}

func TestGenerateResearchPaperAttachesSources(t *testing.T) {
	backend := &scriptedBackend{id: "m", response: `{"paper": {"title": "T"}}`}
	search := &fakeSearcher{result: &websearch.SearchResult{
		Results: []websearch.SearchItem{{Title: "Ref", URL: "https://example.com", Snippet: "context"}},
	}}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	o := NewOrchestrator([]Backend{backend},
		NewScheduleSynthesizerAt(func() time.Time { return now }), search)

	result, err := o.GenerateResearchPaper(context.Background(), ResearchPaperParams{Topic: "group theory"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if search.query != "group theory" {
		t.Fatalf("search query = %q", search.query)
	}
	sources, ok := result["sources"].([]websearch.SearchItem)
	if !ok || len(sources) != 1 {
		t.Fatalf("sources = %v", result["sources"])
	}
	if !strings.Contains(backend.prompts[0], "https://example.com") {
		t.Fatal("prompt should include the web reference")
	}
}

func TestGenerateResearchPaperSearchFailureIsNonFatal(t *testing.T) {
	backend := &scriptedBackend{id: "m", response: `{"paper": {"title": "T"}}`}
	search := &fakeSearcher{err: errors.New("network down")}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	o := NewOrchestrator([]Backend{backend},
		NewScheduleSynthesizerAt(func() time.Time { return now }), search)

	result, err := o.GenerateResearchPaper(context.Background(), ResearchPaperParams{Topic: "topology"})
	if err != nil {
		t.Fatalf("search failure must not fail the paper: %v", err)
	}
	if _, ok := result["sources"]; ok {
		t.Fatal("no sources should be attached when search fails")
	}
}

func TestChatStripsMarkdownAndTruncates(t *testing.T) {
	long := "## Answer\n\n**Bold** point with a [link](https://example.com) and `code`.\n" +
		strings.Repeat("More detail sentence here. ", 40)
	backend := &scriptedBackend{id: "m", response: long}
	o := testOrchestrator(backend)

	answer, err := o.Chat(context.Background(), ChatParams{Question: "why?", Mode: "professor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len([]rune(answer)) > chatResponseLimit {
		t.Fatalf("answer length %d exceeds %d", len([]rune(answer)), chatResponseLimit)
	}
	if !strings.HasSuffix(answer, "...") {
		t.Fatal("truncated answer should end with ellipsis")
	}
	for _, marker := range []string{"**", "#", "`", "]("} {
		if strings.Contains(answer, marker) {
			t.Fatalf("answer still carries markdown marker %q", marker)
		}
	}
	if !strings.Contains(answer, "link") {
		t.Fatal("link text should survive markdown stripping")
	}
}

func TestChatRequiresQuestion(t *testing.T) {
	o := testOrchestrator(&scriptedBackend{id: "m"})
	_, err := o.Chat(context.Background(), ChatParams{})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected *InputError, got %v", err)
	}
}

func TestProcessDocumentRequiresText(t *testing.T) {
	o := testOrchestrator(&scriptedBackend{id: "m"})
	_, err := o.ProcessDocument(context.Background(), "   ")
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected *InputError, got %v", err)
	}
}

func TestTruncateContent(t *testing.T) {
	long := strings.Repeat("a", maxContentChars+100)
	got := truncateContent(long)
	if !strings.HasSuffix(got, "...[truncated]") {
		t.Fatal("long content should be marked truncated")
	}
	short := "short text"
	if truncateContent(short) != short {
		t.Fatal("short content must pass through unchanged")
	}
}
