// Package agents provides the built-in task handlers: file extraction,
// research, analysis, mail, and calendar. The file handler performs real
// text extraction; the others return structured placeholder payloads where
// a production deployment would call out to real backends.
package agents

import "github.com/tbellamy/maestro/internal/domain/plan"

func hasCapability(caps []plan.TaskType, taskType plan.TaskType) bool {
	for _, c := range caps {
		if c == taskType {
			return true
		}
	}
	return false
}
