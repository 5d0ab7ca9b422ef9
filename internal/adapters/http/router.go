package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/document-qa-assistant/internal/config"
	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
	"github.com/kirillkom/document-qa-assistant/internal/observability/metrics"
)

const (
	serviceName        = "api"
	multipartMemory    = 8 << 20
	defaultUploadLimit = 32 << 20
	defaultQuestionMax = 500
	invalidKeyMessage  = "Invalid API key format"
)

type Router struct {
	session     ports.SessionService
	credentials ports.CredentialManager
	metrics     *metrics.HTTPServerMetrics

	maxUploadBytes   int64
	questionMaxChars int
	credentialPrefix string
	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

func NewRouter(
	cfg config.Config,
	session ports.SessionService,
	credentials ports.CredentialManager,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	maxUpload := cfg.APIMaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultUploadLimit
	}
	questionMax := cfg.QuestionMaxChars
	if questionMax <= 0 {
		questionMax = defaultQuestionMax
	}
	return &Router{
		session:          session,
		credentials:      credentials,
		metrics:          httpMetrics,
		maxUploadBytes:   maxUpload,
		questionMaxChars: questionMax,
		credentialPrefix: cfg.CredentialPrefix,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: cfg.BackpressureWait(),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("GET /v1/session", rt.getSession)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	mux.HandleFunc("POST /v1/documents/{id}/select", rt.selectDocument)
	mux.HandleFunc("GET /v1/documents/{id}/history", rt.documentHistory)
	mux.HandleFunc("POST /v1/documents/{id}/questions", rt.askQuestion)
	mux.HandleFunc("GET /v1/history", rt.searchHistory)

	mux.HandleFunc("GET /v1/credential", rt.getCredential)
	mux.HandleFunc("PUT /v1/credential", rt.putCredential)
	mux.HandleFunc("DELETE /v1/credential", rt.deleteCredential)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait, rt.recordRejected)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.recordRejected)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// documentSummary hides the extracted text in list views.
type documentSummary struct {
	domain.Document
	Content    *string `json:"content,omitempty"`
	HasContent bool    `json:"has_content"`
}

func summarize(docs []domain.Document) []documentSummary {
	out := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentSummary{Document: doc, HasContent: doc.HasContent()})
	}
	return out
}

type sessionResponse struct {
	Documents       []documentSummary   `json:"documents"`
	CurrentDocument *domain.Document    `json:"current_document"`
	History         []domain.QAItem     `json:"history"`
	Loading         map[string]bool     `json:"loading"`
	Stats           domain.SessionStats `json:"stats"`
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := rt.session.Documents(ctx, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	current, err := rt.session.CurrentDocument(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	history := []domain.QAItem{}
	if current != nil {
		items, err := rt.session.DocumentHistory(ctx, current.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		history = append(history, items...)
	}
	stats, err := rt.session.Stats(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Documents:       summarize(docs),
		CurrentDocument: current,
		History:         history,
		Loading:         rt.session.Loading(),
		Stats:           stats,
	})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.session.Documents(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": summarize(docs)})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("file exceeds %d bytes", rt.maxUploadBytes),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
		return
	}

	source := domain.NewBytesFile(fileHeader.Filename, detectMimeType(fileHeader.Filename, fileHeader.Header.Get("Content-Type")), data)
	source.UploadedAt = time.Now().UTC()

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); r.URL.Query().Has("wait") && !wait {
		doc, _, err := rt.session.StartUpload(r.Context(), source)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, doc)
		return
	}

	doc, err := rt.session.Upload(r.Context(), source)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// detectMimeType keeps the client's declared type and falls back to the file extension.
func detectMimeType(filename, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.session.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.session.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) selectDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.session.Select(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) documentHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := rt.session.Document(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := rt.session.DocumentHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":   nonNil(items),
		"loading": rt.session.IsLoading(id),
	})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Question)) > rt.questionMaxChars {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("question must be at most %d characters", rt.questionMaxChars),
		})
		return
	}

	item, err := rt.session.Ask(r.Context(), req.Question, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (rt *Router) searchHistory(w http.ResponseWriter, r *http.Request) {
	items, err := rt.session.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (rt *Router) getCredential(w http.ResponseWriter, r *http.Request) {
	configured, err := rt.credentials.HasCredential(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"configured": configured})
}

func (rt *Router) putCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" || !strings.HasPrefix(key, rt.credentialPrefix) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": invalidKeyMessage})
		return
	}
	if err := rt.credentials.SaveCredential(r.Context(), key); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) deleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := rt.credentials.ClearCredential(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(items []domain.QAItem) []domain.QAItem {
	if items == nil {
		return []domain.QAItem{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
