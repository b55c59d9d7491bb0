// Package http exposes the orchestration facade over a small JSON API.
package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tbellamy/maestro/internal/config"
	"github.com/tbellamy/maestro/internal/domain/task"
	"github.com/tbellamy/maestro/internal/middleware"
	"github.com/tbellamy/maestro/internal/service"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MB, JSON bodies

	// multipartMemory is how much of a multipart body is held in memory
	// before spilling to disk.
	multipartMemory = 32 << 20
)

// Handlers holds the HTTP handler dependencies. RateLimiter and
// IdempotencyKV are optional; nil skips the corresponding middleware.
type Handlers struct {
	Orchestrator  *service.OrchestratorService
	Uploads       config.Uploads
	RateLimiter   *middleware.RateLimiter
	IdempotencyKV jetstream.KeyValue
}

// executeRequest is the JSON body for POST /api/v1/execute.
type executeRequest struct {
	Query    string            `json:"query"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Execute handles POST /api/v1/execute. The body is either JSON
// ({query, metadata}) or a multipart form with a query field and files
// parts. Domain failures come back as a normal result with an error
// status; only malformed requests map to HTTP errors.
func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req *task.Request
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var ok bool
		req, ok = h.parseMultipart(w, r)
		if !ok {
			return
		}
	} else {
		body, ok := readJSON[executeRequest](w, r, maxRequestBodySize)
		if !ok {
			return
		}
		req = &task.Request{Query: body.Query, Metadata: body.Metadata}
	}

	res, err := h.Orchestrator.RunOrchestration(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "invalid request")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseMultipart builds a task request from a multipart upload, enforcing
// the configured file count and per-file size caps.
func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) (*task.Request, bool) {
	maxFileBytes := h.Uploads.MaxFileMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.Uploads.MaxFiles)*maxFileBytes+maxRequestBodySize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
		}
		return nil, false
	}

	req := &task.Request{Query: r.FormValue("query")}

	files := r.MultipartForm.File["files"]
	if len(files) > h.Uploads.MaxFiles {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("too many files (max %d)", h.Uploads.MaxFiles))
		return nil, false
	}

	for _, fh := range files {
		if fh.Size > maxFileBytes {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file %s exceeds %d MB", fh.Filename, h.Uploads.MaxFileMB))
			return nil, false
		}
		f, err := fh.Open()
		if err != nil {
			writeInternalError(w, err)
			return nil, false
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeInternalError(w, err)
			return nil, false
		}
		req.Attachments = append(req.Attachments, task.Attachment{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Data:        data,
		})
	}

	return req, true
}

// Capabilities handles GET /api/v1/capabilities.
func (h *Handlers) Capabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agents":       h.Orchestrator.HandlerNames(),
		"capabilities": h.Orchestrator.GetCapabilities(),
	})
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"agents": h.Orchestrator.HandlerNames(),
	})
}
