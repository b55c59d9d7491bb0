// Package task defines the incoming request entity for one orchestration run.
package task

import "errors"

// Request is the immutable input to a single orchestration run: free text
// plus optional attachments. None of its fields are mutated after creation;
// chained state lives in the run context instead.
type Request struct {
	Query       string            `json:"query"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Attachment is an opaque uploaded file reference carried with a request.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// HasAttachments reports whether the request carries at least one attachment.
func (r *Request) HasAttachments() bool {
	return len(r.Attachments) > 0
}

// Validate checks that a Request is well-formed. An empty query is allowed
// when attachments are present; classification handles the rest.
func (r *Request) Validate() error {
	if r == nil {
		return errors.New("request is required")
	}
	for i := range r.Attachments {
		if r.Attachments[i].Name == "" {
			return errors.New("attachment name is required")
		}
	}
	return nil
}
