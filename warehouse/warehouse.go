package warehouse

import (
	"context"
	"fmt"
)

// Status is the lifecycle state reported by the warehouse for a
// submitted statement.
type Status string

const (
	StatusSubmitted Status = "SUBMITTED"
	StatusPicked    Status = "PICKED"
	StatusStarted   Status = "STARTED"
	StatusFinished  Status = "FINISHED"
	StatusFailed    Status = "FAILED"
	StatusAborted   Status = "ABORTED"
)

// Terminal reports whether the statement reached a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusFailed, StatusAborted:
		return true
	}

	return false
}

// Handle identifies a statement submitted for asynchronous execution.
type Handle struct {
	ID      string
	Cluster string
}

// Description is a point-in-time view of a submitted statement.
type Description struct {
	Status       Status
	HasResultSet bool
	Error        string
}

// Row is a single result row, one text cell per column.
type Row []string

// Result holds the rows produced by a finished statement. Rows is nil
// for statements without a result set (DDL, UNLOAD, COPY, DELETE).
type Result struct {
	Rows []Row
}

// API is the narrow surface of the warehouse job-submission service.
type API interface {
	Submit(ctx context.Context, cluster, sql string) (Handle, error)
	Describe(ctx context.Context, handle Handle) (Description, error)
	FetchResult(ctx context.Context, handle Handle) ([]Row, error)
}

// Executor runs a statement against a cluster and blocks until it
// completes. Implemented by Runner.
type Executor interface {
	Run(ctx context.Context, cluster, sql string) (Result, error)
}

// StatementError reports a statement that reached a terminal state
// other than FINISHED.
type StatementError struct {
	ID     string
	Status Status
	Reason string
}

func (e *StatementError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("statement %s ended with status %s", e.ID, e.Status)
	}

	return fmt.Sprintf("statement %s ended with status %s: %s", e.ID, e.Status, e.Reason)
}
