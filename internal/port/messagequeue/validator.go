package messagequeue

import (
	"encoding/json"
	"fmt"
)

// schemas maps subjects to constructors for their payload structs.
// Subjects missing from the map carry free-form JSON.
var schemas = map[string]func() any{
	SubjectRunStarted:   func() any { return &RunStartedPayload{} },
	SubjectRunCompleted: func() any { return &RunCompletedPayload{} },
	SubjectRunFailed:    func() any { return &RunFailedPayload{} },
	SubjectStepExecuted: func() any { return &StepExecutedPayload{} },
}

// Validate checks that data is well-formed JSON and, for subjects with
// a registered schema, that it unmarshals into the subject's payload
// struct.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	newPayload, ok := schemas[subject]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, newPayload()); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}
