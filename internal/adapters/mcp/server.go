package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
)

type Options struct {
	Name             string
	Version          string
	CredentialPrefix string
	QuestionMaxChars int
	// ReadFile loads files for upload_document; defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// Server exposes the session as MCP tools.
type Server struct {
	session     ports.SessionService
	credentials ports.CredentialManager
	opts        Options
	mcp         *server.MCPServer
}

func NewServer(session ports.SessionService, credentials ports.CredentialManager, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "document-qa-assistant"
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	if opts.QuestionMaxChars <= 0 {
		opts.QuestionMaxChars = 500
	}
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}

	s := &Server{
		session:     session,
		credentials: credentials,
		opts:        opts,
		mcp:         server.NewMCPServer(opts.Name, opts.Version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// Serve speaks MCP over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List uploaded documents with their status. Optionally filter by name."),
		mcp.WithString("query", mcp.Description("Case-insensitive name filter")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("upload_document",
		mcp.WithDescription("Upload a local file and wait until its text has been extracted."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to upload")),
		mcp.WithString("mime_type", mcp.Description("Declared MIME type; inferred from the extension when empty")),
	), s.uploadDocument)

	s.mcp.AddTool(mcp.NewTool("select_document",
		mcp.WithDescription("Make a document the current one."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
	), s.selectDocument)

	s.mcp.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Ask a question about a ready document. Uses the current document when no id is given."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question")),
		mcp.WithString("document_id", mcp.Description("Document id")),
	), s.askQuestion)

	s.mcp.AddTool(mcp.NewTool("search_history",
		mcp.WithDescription("Search previous questions and answers. An empty query returns everything."),
		mcp.WithString("query", mcp.Description("Case-insensitive text to look for")),
	), s.searchHistory)

	s.mcp.AddTool(mcp.NewTool("delete_document",
		mcp.WithDescription("Delete a document and its conversation history."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
	), s.deleteDocument)

	s.mcp.AddTool(mcp.NewTool("set_api_key",
		mcp.WithDescription("Store the answering-service API key."),
		mcp.WithString("api_key", mcp.Required(), mcp.Description("API key")),
	), s.setAPIKey)
}

type documentView struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Type       string                `json:"type"`
	Size       int64                 `json:"size"`
	Status     domain.DocumentStatus `json:"status"`
	Progress   float64               `json:"progress"`
	HasContent bool                  `json:"has_content"`
	Current    bool                  `json:"current,omitempty"`
	Error      string                `json:"error,omitempty"`
}

func viewOf(doc domain.Document, currentID string) documentView {
	return documentView{
		ID:         doc.ID,
		Name:       doc.Name,
		Type:       doc.Type,
		Size:       doc.Size,
		Status:     doc.Status,
		Progress:   doc.Progress,
		HasContent: doc.HasContent(),
		Current:    doc.ID == currentID,
		Error:      doc.Error,
	}
}

func (s *Server) listDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.session.Documents(ctx, request.GetString("query", ""))
	if err != nil {
		return toolError(err), nil
	}
	currentID := ""
	if current, err := s.session.CurrentDocument(ctx); err == nil && current != nil {
		currentID = current.ID
	}

	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, viewOf(doc, currentID))
	}
	return jsonResult(map[string]any{"documents": views})
}

func (s *Server) uploadDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.opts.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}

	name := filepath.Base(path)
	mimeType := strings.TrimSpace(request.GetString("mime_type", ""))
	if mimeType == "" {
		mimeType = mimeTypeFor(name)
	}
	file := domain.NewBytesFile(name, mimeType, data)
	file.UploadedAt = time.Now().UTC()

	doc, err := s.session.Upload(ctx, file)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(viewOf(*doc, ""))
}

func mimeTypeFor(name string) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}

func (s *Server) selectDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.session.Select(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(viewOf(*doc, doc.ID))
}

func (s *Server) askQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if utf8.RuneCountInString(strings.TrimSpace(question)) > s.opts.QuestionMaxChars {
		return mcp.NewToolResultError(fmt.Sprintf("question must be at most %d characters", s.opts.QuestionMaxChars)), nil
	}

	documentID := strings.TrimSpace(request.GetString("document_id", ""))
	if documentID == "" {
		current, err := s.session.CurrentDocument(ctx)
		if err != nil {
			return toolError(err), nil
		}
		if current == nil {
			return mcp.NewToolResultError("no document selected; pass document_id or call select_document"), nil
		}
		documentID = current.ID
	}

	item, err := s.session.Ask(ctx, question, documentID)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(item.Answer), nil
}

func (s *Server) searchHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.session.Search(ctx, request.GetString("query", ""))
	if err != nil {
		return toolError(err), nil
	}
	if items == nil {
		items = []domain.QAItem{}
	}
	return jsonResult(map[string]any{"items": items})
}

func (s *Server) deleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.session.Delete(ctx, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s", id)), nil
}

func (s *Server) setAPIKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("api_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key = strings.TrimSpace(key)
	if key == "" || !strings.HasPrefix(key, s.opts.CredentialPrefix) {
		return mcp.NewToolResultError("Invalid API key format"), nil
	}
	if err := s.credentials.SaveCredential(ctx, key); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("API key saved"), nil
}

// toolError reports domain failures to the client as tool results rather than protocol errors.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case domain.IsKind(err, domain.ErrMissingCredential):
		return mcp.NewToolResultError("no API key stored; call set_api_key first")
	case errors.Is(err, context.Canceled):
		return mcp.NewToolResultError("request cancelled")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
