package task_test

import (
	"strings"
	"testing"

	"github.com/tbellamy/maestro/internal/domain/task"
)

func TestRequest_Validate_Valid(t *testing.T) {
	r := &task.Request{Query: "research the market"}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestRequest_Validate_EmptyQueryWithAttachment(t *testing.T) {
	r := &task.Request{
		Attachments: []task.Attachment{{Name: "doc1.pdf", Size: 42}},
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestRequest_Validate_UnnamedAttachment(t *testing.T) {
	r := &task.Request{
		Query:       "summarize this file",
		Attachments: []task.Attachment{{Size: 42}},
	}
	err := r.Validate()
	if err == nil || !strings.Contains(err.Error(), "name") {
		t.Fatalf("expected attachment name error, got: %v", err)
	}
}

func TestRequest_HasAttachments(t *testing.T) {
	r := &task.Request{Query: "hello"}
	if r.HasAttachments() {
		t.Fatal("expected no attachments")
	}
	r.Attachments = append(r.Attachments, task.Attachment{Name: "a.txt"})
	if !r.HasAttachments() {
		t.Fatal("expected attachments")
	}
}
