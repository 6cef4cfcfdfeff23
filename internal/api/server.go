package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"studyforge/internal/models"
	"studyforge/internal/services"
)

const maxMultipartMemory = 8 << 20 // 8 MB

const maxUploadFiles = 5

type Server struct {
	mux          *http.ServeMux
	orchestrator *services.Orchestrator
	pdf          *services.PDFService
	tts          *services.TTSService
	render       *services.RenderService
}

func NewServer(
	orchestrator *services.Orchestrator,
	pdf *services.PDFService,
	tts *services.TTSService,
	render *services.RenderService,
) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		orchestrator: orchestrator,
		pdf:          pdf,
		tts:          tts,
		render:       render,
	}
	s.routes()
	return s
}

// Handler wraps the routes in a recovery layer: a panic in any endpoint
// becomes a 500 JSON error instead of taking the process down.
func (s *Server) Handler() http.Handler {
	return recoverJSON(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/process", s.handleProcess)
	s.mux.HandleFunc("/api/generate-schedule", s.handleGenerateSchedule)
	s.mux.HandleFunc("/api/schedule", s.handleGenerateSchedule)
	s.mux.HandleFunc("/api/generate-flashcards", s.handleGenerateFlashcards)
	s.mux.HandleFunc("/api/generate-professor-slides", s.handleGenerateSlides)
	s.mux.HandleFunc("/api/generate-ultimate-cheatsheet", s.handleGenerateCheatsheet)
	s.mux.HandleFunc("/api/generate-podcast-script", s.handleGeneratePodcastScript)
	s.mux.HandleFunc("/api/generate-research-paper", s.handleGenerateResearchPaper)
	s.mux.HandleFunc("/api/text-to-speech", s.handleTextToSpeech)
	s.mux.HandleFunc("/api/save-podcast", s.handleSavePodcast)
	s.mux.HandleFunc("/api/chat", s.handleChat)
	s.mux.HandleFunc("/api/download-cheatsheet", s.handleDownload)
	s.mux.HandleFunc("/api/download-flashcards", s.handleDownloadFlashcards)
	s.mux.HandleFunc("/api/download-ultimate-cheatsheet", s.handleDownload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if form := r.MultipartForm; form != nil {
		defer form.RemoveAll()
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	if len(files) > maxUploadFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("maximum of %d files allowed", maxUploadFiles))
		return
	}

	var combined strings.Builder
	docTitle := ""
	for _, file := range files {
		if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("unsupported file type for %s: only PDF is allowed", file.Filename))
			return
		}
		if docTitle == "" {
			docTitle = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
		}

		src, err := file.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("open %s: %v", file.Filename, err))
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("read %s: %v", file.Filename, err))
			return
		}
		if len(data) == 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is empty", file.Filename))
			return
		}

		text, err := s.pdf.ExtractText(data)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("could not read %s: %v", file.Filename, err))
			return
		}
		combined.WriteString(text)
	}

	if strings.TrimSpace(combined.String()) == "" {
		writeError(w, http.StatusBadRequest, "no extractable text found in PDFs")
		return
	}

	result, err := s.orchestrator.ProcessDocument(r.Context(), combined.String())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result":      result,
		"source_text": combined.String(),
		"doc_title":   docTitle,
	})
}

type scheduleRequest struct {
	ExamDate        string  `json:"examDate"`
	DailyHours      float64 `json:"dailyHours"`
	StudyPreference string  `json:"studyPreference"`
	SummaryText     string  `json:"summaryText"`
	SourceText      string  `json:"sourceText"`
}

func (s *Server) handleGenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var payload scheduleRequest
	if !decodePost(w, r, &payload) {
		return
	}

	schedule, err := s.orchestrator.GenerateSchedule(r.Context(), services.ScheduleParams{
		ExamDate:    payload.ExamDate,
		DailyHours:  payload.DailyHours,
		Preference:  payload.StudyPreference,
		SummaryText: payload.SummaryText,
		SourceText:  payload.SourceText,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

type flashcardsRequest struct {
	SummaryText string `json:"summaryText"`
	SourceText  string `json:"sourceText"`
	Difficulty  string `json:"difficulty"`
	Count       int    `json:"count"`
}

func (s *Server) handleGenerateFlashcards(w http.ResponseWriter, r *http.Request) {
	var payload flashcardsRequest
	if !decodePost(w, r, &payload) {
		return
	}

	result, err := s.orchestrator.GenerateFlashcards(r.Context(), services.FlashcardParams{
		SummaryText: payload.SummaryText,
		SourceText:  payload.SourceText,
		Difficulty:  payload.Difficulty,
		Count:       payload.Count,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type slidesRequest struct {
	SummaryText   string `json:"summaryText"`
	SlideCount    int    `json:"slideCount"`
	TeachingStyle string `json:"teachingStyle"`
}

func (s *Server) handleGenerateSlides(w http.ResponseWriter, r *http.Request) {
	var payload slidesRequest
	if !decodePost(w, r, &payload) {
		return
	}

	result, err := s.orchestrator.GenerateSlides(r.Context(), services.SlideParams{
		SummaryText:   payload.SummaryText,
		SlideCount:    payload.SlideCount,
		TeachingStyle: payload.TeachingStyle,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type cheatsheetRequest struct {
	SummaryText     string   `json:"summaryText"`
	SourceText      string   `json:"sourceText"`
	DetailLevel     string   `json:"detailLevel"`
	PageCount       int      `json:"pageCount"`
	IncludeSections []string `json:"includeSections"`
}

func (s *Server) handleGenerateCheatsheet(w http.ResponseWriter, r *http.Request) {
	var payload cheatsheetRequest
	if !decodePost(w, r, &payload) {
		return
	}

	result, err := s.orchestrator.GenerateCheatsheet(r.Context(), services.CheatsheetParams{
		SummaryText:     payload.SummaryText,
		SourceText:      payload.SourceText,
		DetailLevel:     payload.DetailLevel,
		PageCount:       payload.PageCount,
		IncludeSections: payload.IncludeSections,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type podcastRequest struct {
	SummaryText string `json:"summaryText"`
	SourceText  string `json:"sourceText"`
	Duration    string `json:"duration"`
	Style       string `json:"style"`
	Pace        string `json:"pace"`
	Tone        string `json:"tone"`
	Language    string `json:"language"`
}

func (s *Server) handleGeneratePodcastScript(w http.ResponseWriter, r *http.Request) {
	var payload podcastRequest
	if !decodePost(w, r, &payload) {
		return
	}

	result, err := s.orchestrator.GeneratePodcastScript(r.Context(), services.PodcastParams{
		SummaryText: payload.SummaryText,
		SourceText:  payload.SourceText,
		Duration:    payload.Duration,
		Style:       payload.Style,
		Pace:        payload.Pace,
		Tone:        payload.Tone,
		Language:    payload.Language,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type researchPaperRequest struct {
	Topic       string `json:"topic"`
	SummaryText string `json:"summaryText"`
	SourceText  string `json:"sourceText"`
}

func (s *Server) handleGenerateResearchPaper(w http.ResponseWriter, r *http.Request) {
	var payload researchPaperRequest
	if !decodePost(w, r, &payload) {
		return
	}

	result, err := s.orchestrator.GenerateResearchPaper(r.Context(), services.ResearchPaperParams{
		Topic:       payload.Topic,
		SummaryText: payload.SummaryText,
		SourceText:  payload.SourceText,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type ttsRequest struct {
	Script  string `json:"script"`
	VoiceID string `json:"voiceId"`
	Model   string `json:"model"`
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var payload ttsRequest
	if !decodePost(w, r, &payload) {
		return
	}

	result, err := s.tts.Synthesize(r.Context(), models.TTSRequest{
		Script:  payload.Script,
		VoiceID: payload.VoiceID,
		Model:   payload.Model,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"audioUrl": "/static/audio/" + result.Filename,
		"filename": result.Filename,
		"provider": result.Provider,
		"engine":   result.Engine,
	})
}

// handleSavePodcast acknowledges without persisting anything; there is no
// store behind it.
func (s *Server) handleSavePodcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"saved":   false,
		"message": "podcast saving is not available yet",
	})
}

type chatRequest struct {
	Question    string `json:"question"`
	SummaryText string `json:"summary_text"`
	SourceText  string `json:"source_text"`
	Mode        string `json:"mode"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if !decodePost(w, r, &payload) {
		return
	}

	answer, err := s.orchestrator.Chat(r.Context(), services.ChatParams{
		Question:    payload.Question,
		SummaryText: payload.SummaryText,
		SourceText:  payload.SourceText,
		Mode:        payload.Mode,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

type downloadRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Flashcards []struct {
		Front string `json:"front"`
		Back  string `json:"back"`
	} `json:"flashcards"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var payload downloadRequest
	if !decodePost(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	s.servePDF(w, payload.Title, payload.Content)
}

func (s *Server) handleDownloadFlashcards(w http.ResponseWriter, r *http.Request) {
	var payload downloadRequest
	if !decodePost(w, r, &payload) {
		return
	}

	content := payload.Content
	if len(payload.Flashcards) > 0 {
		var builder strings.Builder
		for i, card := range payload.Flashcards {
			fmt.Fprintf(&builder, "## Card %d\n\n**Q:** %s\n\n**A:** %s\n\n", i+1, card.Front, card.Back)
		}
		content = builder.String()
	}
	if strings.TrimSpace(content) == "" {
		writeError(w, http.StatusBadRequest, "content or flashcards is required")
		return
	}
	s.servePDF(w, payload.Title, content)
}

func (s *Server) servePDF(w http.ResponseWriter, title, content string) {
	if title == "" {
		title = "Study Material"
	}
	data, err := s.render.RenderPDF(title, content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", sanitizeFilename(title)+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	if cleaned == "" {
		return "document"
	}
	return cleaned
}

// decodePost enforces the POST method and decodes the JSON body, writing the
// error response itself when either fails.
func decodePost(w http.ResponseWriter, r *http.Request, into any) bool {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

const maxDetailLen = 800

// writeServiceError maps the service error taxonomy onto HTTP responses:
// caller mistakes are 400, everything else 500 with bounded diagnostics.
func writeServiceError(w http.ResponseWriter, err error) {
	var inputErr *services.InputError
	if errors.As(err, &inputErr) {
		writeError(w, http.StatusBadRequest, inputErr.Message)
		return
	}

	var parseErr *services.ParseError
	if errors.As(err, &parseErr) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":        "the model response could not be parsed: " + parseErr.Reason,
			"raw_response": clampDetail(parseErr.Excerpt),
		})
		return
	}

	var exhausted *services.BackendExhaustedError
	if errors.As(err, &exhausted) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "all completion backends failed",
			"details": clampDetail(exhausted.Attempts.String()),
		})
		return
	}

	if errors.Is(err, services.ErrAIUnavailable) {
		writeError(w, http.StatusInternalServerError,
			"no AI backend is configured: set OPENAI_API_KEY or GEMINI_API_KEY")
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

func clampDetail(detail string) string {
	runes := []rune(detail)
	if len(runes) > maxDetailLen {
		return string(runes[:maxDetailLen])
	}
	return detail
}

func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
