package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	"golang.org/x/sync/errgroup"
	genai "google.golang.org/genai"

	"github.com/thywilljoshua/scholar-refine/internal/intake"
)

const DefaultModel = "gemini-2.5-flash"

// modelService is the slice of *genai.Models the refiner uses.
type modelService interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Options struct {
	Model       string
	Temperature float32
	Logger      *slog.Logger
}

// Gemini refines sentences with a Gemini model, sending the PDFs inline.
type Gemini struct {
	models      modelService
	model       string
	temperature float32
	log         *slog.Logger
}

func NewGemini(ctx context.Context, apiKey string, opts Options) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing API key (set API_KEY or GEMINI_API_KEY)")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(c.Models, opts), nil
}

func newGemini(models modelService, opts Options) *Gemini {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Gemini{
		models:      models,
		model:       opts.Model,
		temperature: opts.Temperature,
		log:         opts.Logger.With("component", "gemini", "model", opts.Model),
	}
}

// Refine sends one GenerateContent request carrying every document and the
// prompt, and parses the schema-constrained answer.
func (g *Gemini) Refine(ctx context.Context, docs []intake.Document, sentence, instruction string) (RefinementResult, error) {
	if len(docs) == 0 {
		return RefinementResult{}, &Error{Kind: KindRequest, Message: "at least one PDF is required"}
	}
	if strings.TrimSpace(sentence) == "" {
		return RefinementResult{}, &Error{Kind: KindRequest, Message: "draft sentence is empty"}
	}

	parts, err := readAttachments(ctx, docs)
	if err != nil {
		g.log.Warn("reading attachments failed", "error", err)
		var e *Error
		if errors.As(err, &e) {
			return RefinementResult{}, e
		}
		return RefinementResult{}, requestError(err)
	}
	parts = append(parts, &genai.Part{Text: BuildPrompt(sentence, instruction)})

	temperature := g.temperature
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   RefinementSchema(),
		Temperature:      &temperature,
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	g.log.Debug("sending refinement request", "attachments", len(docs))
	res, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.log.Warn("gemini request failed", "error", err)
		return RefinementResult{}, requestError(err)
	}
	text := ""
	if res != nil {
		text = res.Text()
	}
	g.log.Debug("gemini response", "bytes", len(text))

	out, err := ParseResult(text)
	if err != nil {
		g.log.Warn("gemini response rejected", "kind", KindOf(err), "error", errors.Unwrap(err))
		return RefinementResult{}, err
	}
	g.log.Debug("parsed refinement", "segments", len(out.Segments))
	return out, nil
}

// readAttachments reads every document concurrently; one failure fails all.
func readAttachments(ctx context.Context, docs []intake.Document) ([]*genai.Part, error) {
	parts := make([]*genai.Part, len(docs))
	eg, ctx := errgroup.WithContext(ctx)
	for i, d := range docs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rc, err := d.Open()
			if err != nil {
				return attachmentError(d, err)
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			if err != nil {
				return attachmentError(d, err)
			}
			if len(b) == 0 {
				return attachmentError(d, errors.New("file is empty"))
			}
			parts[i] = &genai.Part{InlineData: &genai.Blob{MIMEType: baseMediaType(d.MediaType), Data: b}}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// attachmentError keeps the file path out of the user-facing message.
func attachmentError(d intake.Document, err error) *Error {
	return &Error{Kind: KindRequest, Message: "Could not read " + d.Name, Err: err}
}

func baseMediaType(mt string) string {
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return intake.PDFMediaType
}
