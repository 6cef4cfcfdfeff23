package services

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"studyforge/internal/models"
	"studyforge/internal/websearch"
)

// maxContentChars bounds how much extracted document text is interpolated
// into a prompt, to respect backend token limits.
const maxContentChars = 20000

// chatResponseLimit is the hard ceiling on chat answers, in characters.
const chatResponseLimit = 500

// Searcher retrieves web snippets for the research paper feature.
type Searcher interface {
	Search(ctx context.Context, query string) (*websearch.SearchResult, error)
}

// Orchestrator is the per-feature entry point: it builds the generation
// request, runs the backend chain, recovers the structured payload, and
// applies the schedule synthesizer when extraction fails for that feature.
type Orchestrator struct {
	backends []Backend
	synth    *ScheduleSynthesizer
	search   Searcher
	now      func() time.Time
}

func NewOrchestrator(backends []Backend, synth *ScheduleSynthesizer, search Searcher) *Orchestrator {
	if synth == nil {
		synth = NewScheduleSynthesizer()
	}
	return &Orchestrator{
		backends: backends,
		synth:    synth,
		search:   search,
		now:      time.Now,
	}
}

func (o *Orchestrator) request(feature models.FeatureKind, system, user string, maxTokens int, temperature float32) GenerationRequest {
	return GenerationRequest{
		Feature:      feature,
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		Backends:     o.backends,
	}
}

// truncateContent trims document text to the prompt character budget.
func truncateContent(text string) string {
	runes := []rune(text)
	if len(runes) <= maxContentChars {
		return text
	}
	return string(runes[:maxContentChars]) + "\n\n...[truncated]"
}

func pickContent(summaryText, sourceText string) string {
	if strings.TrimSpace(summaryText) != "" {
		return summaryText
	}
	return sourceText
}

// ProcessDocument turns extracted document text into the combined study
// overview shown after upload.
func (o *Orchestrator) ProcessDocument(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &InputError{Message: "no extractable text found in PDFs"}
	}

	user := fmt.Sprintf(`Take the following text and generate:

1. A concise structured summary (with headings and bullet points)
2. 5 flashcards in Q&A format
3. 5 multiple-choice quiz questions with answers
4. A short 2-minute presentation script

Text:
%s

Output each section clearly labeled.`, truncateContent(text))

	raw, _, err := RunChain(ctx, o.request(models.FeatureChatAnswer,
		"You are an expert educator who turns documents into study material.",
		user, 4096, 0.7))
	if err != nil {
		return "", err
	}
	return stripCodeFences(raw), nil
}

// ScheduleParams are the inputs to schedule generation.
type ScheduleParams struct {
	ExamDate    string
	DailyHours  float64
	Preference  string
	SummaryText string
	SourceText  string
}

// GenerateSchedule produces a study schedule. A backend chain failure is
// surfaced as an error; a parse failure after a successful completion falls
// back to the deterministic synthesizer instead.
func (o *Orchestrator) GenerateSchedule(ctx context.Context, params ScheduleParams) (any, error) {
	if strings.TrimSpace(params.ExamDate) == "" {
		return nil, &InputError{Message: "examDate is required"}
	}
	examDate, err := parseExamDate(params.ExamDate)
	if err != nil {
		return nil, &InputError{Message: "examDate must be formatted as YYYY-MM-DD"}
	}
	dailyHours := params.DailyHours
	if dailyHours <= 0 {
		dailyHours = 2
	}
	spec := models.ScheduleSpec{
		ExamDate:   examDate,
		DailyHours: dailyHours,
		Preference: models.NormalizeStudyPreference(params.Preference),
	}

	content := pickContent(params.SummaryText, params.SourceText)
	user := fmt.Sprintf(`Create a day-by-day study schedule as JSON.

Exam date: %s
Daily study hours: %.1f
Preference: %s

Respond with JSON {"schedule": {"title": "", "totalTopics": 0, "examDate": "", "dailyHours": 0, "days": [{"dayNumber": 1, "date": "YYYY-MM-DD", "topics": [{"timeRange": "", "topicName": "", "description": "", "type": "theory|practice|review", "backgroundAudio": "lofi|classical|nature|instrumental|focus"}], "goals": ["", "", ""]}], "cheatSheet": [""]}}.
Each day needs 3-5 goals. Base the plan on this material:

%s`,
		spec.ExamDate.Format("2006-01-02"), spec.DailyHours, spec.Preference, truncateContent(content))

	raw, _, err := RunChain(ctx, o.request(models.FeatureSchedule,
		"You are a study coach who plans exam preparation schedules.",
		user, 4096, 0.4))
	if err != nil {
		return nil, err
	}

	obj, err := ExtractStructured(raw, []string{"schedule"})
	if err != nil {
		// The backend produced text it could not shape: degrade to a usable
		// plan rather than an error page.
		fmt.Fprintf(os.Stderr, "schedule response unusable, synthesizing fallback: %v\n", err)
		return o.synth.Synthesize(spec), nil
	}
	normalizeTopicEnums(obj)
	// Inner field types are intentionally not validated further; the object
	// is returned the way the model shaped it.
	return obj["schedule"], nil
}

func parseExamDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 10 {
		raw = raw[:10]
	}
	return time.Parse("2006-01-02", raw)
}

// normalizeTopicEnums walks the parsed object and forces every topic's type
// and backgroundAudio onto their closed enums, defaulting unknown values.
func normalizeTopicEnums(value any) {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v["backgroundAudio"]; ok {
			if t, ok := v["type"].(string); ok {
				v["type"] = string(models.NormalizeTopicType(t))
			}
			if a, ok := v["backgroundAudio"].(string); ok {
				v["backgroundAudio"] = string(models.NormalizeBackgroundAudio(a))
			}
		}
		for _, child := range v {
			normalizeTopicEnums(child)
		}
	case []any:
		for _, child := range v {
			normalizeTopicEnums(child)
		}
	}
}

// FlashcardParams are the inputs to flashcard generation.
type FlashcardParams struct {
	SummaryText string
	SourceText  string
	Difficulty  string
	Count       int
}

func (o *Orchestrator) GenerateFlashcards(ctx context.Context, params FlashcardParams) (map[string]any, error) {
	content := pickContent(params.SummaryText, params.SourceText)
	if strings.TrimSpace(content) == "" {
		return nil, &InputError{Message: "summaryText or sourceText is required"}
	}
	count := params.Count
	if count <= 0 {
		count = 10
	}
	difficulty := params.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}

	user := fmt.Sprintf(`Create %d flashcards at %s difficulty from this material.

Respond with JSON {"flashcards": [{"front": "", "back": ""}]}.
Ensure flashcards are atomic, unambiguous, and use active recall.

Material:
%s`, count, difficulty, truncateContent(content))

	raw, _, err := RunChain(ctx, o.request(models.FeatureFlashcards,
		"You are an expert educator who designs spaced repetition flashcards.",
		user, 4096, 0.4))
	if err != nil {
		return nil, err
	}

	obj, err := ExtractStructured(raw, []string{"flashcards"})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"flashcards": obj["flashcards"],
		"metadata": map[string]any{
			"difficulty": difficulty,
			"count":      count,
			"reviewPlan": ReviewPlan(o.now().UTC()),
		},
	}, nil
}

// SlideParams are the inputs to professor-slide generation.
type SlideParams struct {
	SummaryText   string
	SlideCount    int
	TeachingStyle string
}

func (o *Orchestrator) GenerateSlides(ctx context.Context, params SlideParams) (map[string]any, error) {
	if strings.TrimSpace(params.SummaryText) == "" {
		return nil, &InputError{Message: "summaryText is required"}
	}
	slideCount := params.SlideCount
	if slideCount <= 0 {
		slideCount = 10
	}
	style := params.TeachingStyle
	if style == "" {
		style = "engaging"
	}

	user := fmt.Sprintf(`Design %d lecture slides in a %s teaching style.

Respond with JSON {"slides": [{"title": "", "bullets": [""], "speakerNotes": ""}]}.

Material:
%s`, slideCount, style, truncateContent(params.SummaryText))

	raw, _, err := RunChain(ctx, o.request(models.FeatureSlides,
		"You are a university professor who prepares clear lecture slides.",
		user, 4096, 0.5))
	if err != nil {
		return nil, err
	}

	obj, err := ExtractStructured(raw, []string{"slides"})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// CheatsheetParams are the inputs to cheat sheet generation.
type CheatsheetParams struct {
	SummaryText     string
	SourceText      string
	DetailLevel     string
	PageCount       int
	IncludeSections []string
}

func (o *Orchestrator) GenerateCheatsheet(ctx context.Context, params CheatsheetParams) (map[string]any, error) {
	content := pickContent(params.SummaryText, params.SourceText)
	if strings.TrimSpace(content) == "" {
		return nil, &InputError{Message: "summaryText or sourceText is required"}
	}
	detail := params.DetailLevel
	if detail == "" {
		detail = "comprehensive"
	}
	pages := params.PageCount
	if pages <= 0 {
		pages = 1
	}
	sections := "key concepts, formulas, definitions"
	if len(params.IncludeSections) > 0 {
		sections = strings.Join(params.IncludeSections, ", ")
	}

	user := fmt.Sprintf(`Compress this material into a %d-page cheat sheet at %s detail covering: %s.

Respond with JSON {"content": "markdown cheat sheet text"}.

Material:
%s`, pages, detail, sections, truncateContent(content))

	raw, _, err := RunChain(ctx, o.request(models.FeatureCheatsheet,
		"You are an expert at compressing study material into dense reference sheets.",
		user, 6144, 0.4))
	if err != nil {
		return nil, err
	}

	obj, err := ExtractStructured(raw, []string{"content"})
	if err != nil {
		return nil, err
	}

	contentText, _ := obj["content"].(string)
	return map[string]any{
		"content": obj["content"],
		"stats": map[string]any{
			"wordCount":   len(strings.Fields(contentText)),
			"detailLevel": detail,
			"pageCount":   pages,
		},
	}, nil
}

// PodcastParams are the inputs to podcast script generation.
type PodcastParams struct {
	SummaryText string
	SourceText  string
	Duration    string
	Style       string
	Pace        string
	Tone        string
	Language    string
}

func (o *Orchestrator) GeneratePodcastScript(ctx context.Context, params PodcastParams) (map[string]any, error) {
	content := pickContent(params.SummaryText, params.SourceText)
	if strings.TrimSpace(content) == "" {
		return nil, &InputError{Message: "summaryText or sourceText is required"}
	}
	settings := map[string]string{
		"duration": defaultString(params.Duration, "10 minutes"),
		"style":    defaultString(params.Style, "conversational"),
		"pace":     defaultString(params.Pace, "moderate"),
		"tone":     defaultString(params.Tone, "friendly"),
		"language": defaultString(params.Language, "en"),
	}

	user := fmt.Sprintf(`Write a %s podcast script (%s style, %s pace, %s tone, language %q) teaching this material.
Write plain spoken prose only: no stage directions, no markdown, no labels.

Material:
%s`, settings["duration"], settings["style"], settings["pace"], settings["tone"], settings["language"],
		truncateContent(content))

	raw, _, err := RunChain(ctx, o.request(models.FeaturePodcastScript,
		"You are a podcast host who explains study material out loud.",
		user, 8192, 0.7))
	if err != nil {
		return nil, err
	}

	script := stripCodeFences(raw)
	wordCount := len(strings.Fields(script))
	return map[string]any{
		"script":            script,
		"wordCount":         wordCount,
		"estimatedDuration": estimateSpokenDuration(wordCount),
		"settings":          settings,
	}, nil
}

// estimateSpokenDuration assumes roughly 150 spoken words per minute.
func estimateSpokenDuration(wordCount int) string {
	minutes := wordCount / 150
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min", minutes)
}

// ResearchPaperParams are the inputs to research paper generation.
type ResearchPaperParams struct {
	Topic       string
	SummaryText string
	SourceText  string
}

func (o *Orchestrator) GenerateResearchPaper(ctx context.Context, params ResearchPaperParams) (map[string]any, error) {
	if strings.TrimSpace(params.Topic) == "" {
		return nil, &InputError{Message: "topic is required"}
	}

	var references strings.Builder
	var sources []websearch.SearchItem
	if o.search != nil {
		if result, err := o.search.Search(ctx, params.Topic); err == nil {
			sources = result.Results
			for _, item := range result.Results {
				fmt.Fprintf(&references, "- %s (%s): %s\n", item.Title, item.URL, item.Snippet)
			}
		}
	}

	content := pickContent(params.SummaryText, params.SourceText)
	user := fmt.Sprintf(`Write a short research paper on %q.

Respond with JSON {"paper": {"title": "", "abstract": "", "sections": [{"heading": "", "body": ""}], "references": [""]}}.

Web references:
%s
Supporting material:
%s`, params.Topic, references.String(), truncateContent(content))

	raw, _, err := RunChain(ctx, o.request(models.FeatureResearchPaper,
		"You are an academic writer who produces well-structured short papers.",
		user, 8192, 0.5))
	if err != nil {
		return nil, err
	}

	obj, err := ExtractStructured(raw, []string{"paper"})
	if err != nil {
		return nil, err
	}
	if len(sources) > 0 {
		obj["sources"] = sources
	}
	return obj, nil
}

// ChatParams are the inputs to the chat answer feature.
type ChatParams struct {
	Question    string
	SummaryText string
	SourceText  string
	Mode        string
}

// Chat answers a question about the studied material. The answer is stripped
// of markdown syntax and hard-truncated to the response ceiling.
func (o *Orchestrator) Chat(ctx context.Context, params ChatParams) (string, error) {
	if strings.TrimSpace(params.Question) == "" {
		return "", &InputError{Message: "question is required"}
	}

	persona := "You are a helpful study assistant. Answer briefly in plain sentences."
	if params.Mode == "professor" {
		persona = "You are a professor answering a student. Be precise and brief, in plain sentences."
	}

	content := pickContent(params.SummaryText, params.SourceText)
	user := fmt.Sprintf(`Question: %s

Context:
%s`, params.Question, truncateContent(content))

	raw, _, err := RunChain(ctx, o.request(models.FeatureChatAnswer, persona, user, 1024, 0.5))
	if err != nil {
		return "", err
	}

	answer := stripMarkdown(stripCodeFences(raw))
	runes := []rune(answer)
	if len(runes) > chatResponseLimit {
		answer = string(runes[:chatResponseLimit-3]) + "..."
	}
	return answer, nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

var (
	markdownLink       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownListMarker = regexp.MustCompile(`(?m)^\s*(?:[-+*]|\d+\.)\s+`)
	markdownHeading    = regexp.MustCompile(`(?m)^\s*#+\s*`)
	markdownQuote      = regexp.MustCompile(`(?m)^\s*>\s?`)
)

// stripMarkdown flattens emphasis, heading, list, quote, and link syntax into
// plain prose.
func stripMarkdown(text string) string {
	text = markdownLink.ReplaceAllString(text, "$1")
	text = markdownHeading.ReplaceAllString(text, "")
	text = markdownListMarker.ReplaceAllString(text, "")
	text = markdownQuote.ReplaceAllString(text, "")
	replacer := strings.NewReplacer("**", "", "__", "", "*", "", "_", "", "`", "", "#", "")
	text = replacer.Replace(text)
	return strings.TrimSpace(text)
}
