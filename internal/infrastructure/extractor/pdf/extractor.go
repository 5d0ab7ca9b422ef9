package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/resilience"
)

const MimeType = "application/pdf"

// Supports matches on the declared MIME type only.
func Supports(file domain.SourceFile) bool {
	mimeType := strings.ToLower(strings.TrimSpace(strings.Split(file.MimeType, ";")[0]))
	return mimeType == MimeType
}

type Options struct {
	MaxPages         int
	Workers          int
	FallbackMinChars int
	FallbackMaxChars int
	// Attempts is how many times a failed parse is run before the byte-level fallback.
	Attempts int
}

func (o Options) normalize() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = 10
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.FallbackMinChars <= 0 {
		o.FallbackMinChars = 100
	}
	if o.FallbackMaxChars <= 0 {
		o.FallbackMaxChars = 2000
	}
	if o.Attempts <= 0 {
		o.Attempts = 2
	}
	return o
}

// Extractor never fails: every path resolves to text, possibly a diagnostic stub.
// Construct it once per process; the worker budget is shared by all parses.
type Extractor struct {
	opts  Options
	open  openFunc
	slots chan struct{}
	retry *resilience.Executor
}

func NewExtractor(opts Options) *Extractor {
	opts = opts.normalize()
	policy := resilience.RetryOncePolicy()
	policy.MaxAttempts = opts.Attempts
	return &Extractor{
		opts:  opts,
		open:  openLedongthuc,
		slots: make(chan struct{}, opts.Workers),
		retry: resilience.NewExecutor(policy),
	}
}

type parsed struct {
	text     string
	pages    int
	readable bool
}

type attempt struct {
	out parsed
	err error
}

func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile) (domain.Extraction, error) {
	raw, err := readAll(file)
	if err != nil {
		slog.Warn("pdf_read_failed", "file", file.Name, "error", err)
		return domain.Extraction{
			Text:     failureStub(file, err),
			Strategy: domain.StrategyPDFStub,
			Degraded: true,
		}, nil
	}

	var result parsed
	err = e.retry.Execute(ctx, "pdf.parse", func(ctx context.Context) error {
		out, parseErr := e.parse(ctx, raw)
		if parseErr != nil {
			slog.Warn("pdf_parse_attempt_failed", "file", file.Name, "error", parseErr)
			return parseErr
		}
		result = out
		return nil
	}, resilience.AnyFailure)

	if err == nil {
		if !result.readable {
			return domain.Extraction{
				Text:     unreadableStub(file),
				Strategy: domain.StrategyPDFStub,
				Degraded: true,
				Pages:    result.pages,
			}, nil
		}
		return domain.Extraction{
			Text:     result.text,
			Strategy: domain.StrategyPDF,
			Pages:    result.pages,
		}, nil
	}

	return e.fallback(file, raw, err), nil
}

// parse runs one attempt on a worker slot, isolated from panics inside the engine.
func (e *Extractor) parse(ctx context.Context, raw []byte) (parsed, error) {
	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return parsed{}, ctx.Err()
	}

	done := make(chan attempt, 1)
	go func() {
		defer func() { <-e.slots }()
		defer func() {
			if rec := recover(); rec != nil {
				done <- attempt{err: fmt.Errorf("pdf engine panic: %v", rec)}
			}
		}()
		out, err := e.extractPages(raw)
		done <- attempt{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return parsed{}, ctx.Err()
	}
}

func (e *Extractor) extractPages(raw []byte) (parsed, error) {
	doc, err := e.open(raw)
	if err != nil {
		return parsed{}, err
	}

	total := doc.NumPage()
	if total <= 0 {
		return parsed{}, errors.New("pdf has no pages")
	}
	limit := min(total, e.opts.MaxPages)

	var b strings.Builder
	readable := false
	for n := 1; n <= limit; n++ {
		text, err := doc.PageText(n)
		if err != nil {
			slog.Debug("pdf_page_failed", "page", n, "error", err)
			fmt.Fprintf(&b, "Page %d: [Error extracting text from this page]\n\n", n)
			continue
		}
		if strings.TrimSpace(text) != "" {
			readable = true
		}
		fmt.Fprintf(&b, "Page %d:\n%s\n\n", n, text)
	}
	if total > e.opts.MaxPages {
		fmt.Fprintf(&b, "\n[Note: Only first %d pages extracted. Full document has %d pages.]\n", e.opts.MaxPages, total)
	}

	return parsed{
		text:     strings.TrimSpace(b.String()),
		pages:    total,
		readable: readable,
	}, nil
}

func (e *Extractor) fallback(file domain.SourceFile, raw []byte, parseErr error) domain.Extraction {
	span := readableSpan(raw)
	if len(span) > e.opts.FallbackMinChars {
		return domain.Extraction{
			Text:     lowConfidenceText(file, span[:min(len(span), e.opts.FallbackMaxChars)]),
			Strategy: domain.StrategyPDFFallback,
			Degraded: true,
		}
	}
	return domain.Extraction{
		Text:     failureStub(file, parseErr),
		Strategy: domain.StrategyPDFStub,
		Degraded: true,
	}
}

// readableSpan keeps printable ASCII plus line breaks and tabs, then collapses whitespace.
func readableSpan(raw []byte) string {
	cleaned := make([]byte, len(raw))
	for i, c := range raw {
		switch {
		case c >= 0x20 && c <= 0x7E, c == '\n', c == '\r', c == '\t':
			cleaned[i] = c
		default:
			cleaned[i] = ' '
		}
	}
	return strings.Join(strings.Fields(string(cleaned)), " ")
}

func readAll(file domain.SourceFile) ([]byte, error) {
	if file.Open == nil {
		return nil, errors.New("no file handle")
	}
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
