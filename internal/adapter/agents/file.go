package agents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/domain/run"
	"github.com/tbellamy/maestro/internal/domain/task"
	"github.com/tbellamy/maestro/internal/port/taskhandler"
)

const (
	previewLimit       = 500
	extractConcurrency = 4
)

// FileHandler extracts text from request attachments. PDF attachments go
// through the pdf library; anything else is decoded as UTF-8 text. A file
// that cannot be decoded gets an error entry instead of failing the step.
type FileHandler struct{}

// NewFileHandler creates the file extraction handler.
func NewFileHandler() *FileHandler { return &FileHandler{} }

// Name implements taskhandler.Handler.
func (h *FileHandler) Name() string { return "file" }

// Capabilities implements taskhandler.Handler.
func (h *FileHandler) Capabilities() []plan.TaskType {
	return []plan.TaskType{plan.TypeFileProcessing, plan.TypePDFAnalysis, plan.TypeDocumentExtraction}
}

// CanHandle implements taskhandler.Handler.
func (h *FileHandler) CanHandle(taskType plan.TaskType) bool {
	return hasCapability(h.Capabilities(), taskType)
}

// Execute extracts text from every attachment, concurrently across files.
// Successful extractions are concatenated into the extracted_text field so
// a chained analysis step can consume them.
func (h *FileHandler) Execute(ctx context.Context, in *taskhandler.Input) (*run.StepResult, error) {
	atts := in.Attachments()

	docs := make([]map[string]any, len(atts))
	texts := make([]string, len(atts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(extractConcurrency)
	for i, att := range atts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, pages, err := extractText(att)
			if err != nil {
				docs[i] = map[string]any{
					"filename": att.Name,
					"error":    err.Error(),
				}
				return nil
			}
			docs[i] = map[string]any{
				"filename":     att.Name,
				"text_length":  len(text),
				"text_preview": preview(text),
				"page_count":   pages,
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var extracted []string
	for _, t := range texts {
		if t != "" {
			extracted = append(extracted, t)
		}
	}

	fields := map[string]any{"documents": docs}
	if len(extracted) > 0 {
		fields["extracted_text"] = strings.Join(extracted, "\n\n")
	}

	return &run.StepResult{
		Status:  run.StepOK,
		Summary: fmt.Sprintf("Processed %d documents", len(atts)),
		Fields:  fields,
	}, nil
}

func extractText(att task.Attachment) (text string, pages int, err error) {
	if isPDF(att) {
		return extractPDF(att.Data)
	}
	if !utf8.Valid(att.Data) {
		return "", 0, fmt.Errorf("%s: not valid UTF-8 text", att.Name)
	}
	return string(att.Data), 1, nil
}

func isPDF(att task.Attachment) bool {
	if att.ContentType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(att.Name), ".pdf")
}

func extractPDF(data []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("parse pdf: %w", err)
	}

	body, err := r.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("extract pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, body); err != nil {
		return "", 0, fmt.Errorf("read pdf text: %w", err)
	}
	return sb.String(), r.NumPage(), nil
}

// preview caps text at previewLimit bytes without splitting a rune.
func preview(text string) string {
	if len(text) <= previewLimit {
		return text
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
