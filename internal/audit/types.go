package audit

import "time"

// EventType labels one kind of audited engine operation.
type EventType string

const (
	// Training lifecycle
	EventTrainingCompleted EventType = "training.completed"
	EventTrainingRejected  EventType = "training.rejected"
	EventTrainingFailed    EventType = "training.failed"

	// Scoring lifecycle
	EventDetectionCompleted EventType = "detection.completed"
	EventDetectionFailed    EventType = "detection.failed"

	// Right-sizing lifecycle
	EventReportGenerated EventType = "recommendation.report_generated"

	// System events
	EventServerStarted  EventType = "system.server_started"
	EventServerShutdown EventType = "system.server_shutdown"
	EventConfigReloaded EventType = "system.config_reloaded"
)

// Result is the outcome of an audited operation.
type Result string

const (
	ResultSuccess  Result = "success"
	ResultFailure  Result = "failure"
	ResultRejected Result = "rejected"
)

// Event is one append-only audit record. The trail answers "which model
// scored what, when" after the fact; it is not an operational log.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`
	Result    Result    `json:"result"`

	TenantID   string `json:"tenant_id,omitempty"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Version    int    `json:"version,omitempty"`
	RunID      string `json:"run_id,omitempty"`

	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`

	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// NewEvent creates an event stamped now.
func NewEvent(eventType EventType) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Result:    ResultSuccess,
		Metadata:  make(map[string]interface{}),
	}
}

// WithTenant sets the tenant the operation ran for.
func (e *Event) WithTenant(tenantID string) *Event {
	e.TenantID = tenantID
	return e
}

// WithSnapshot sets the model snapshot involved.
func (e *Event) WithSnapshot(snapshotID string, version int) *Event {
	e.SnapshotID = snapshotID
	e.Version = version
	return e
}

// WithRun sets the scoring run identifier.
func (e *Event) WithRun(runID string) *Event {
	e.RunID = runID
	return e
}

// WithDescription sets a human-readable summary.
func (e *Event) WithDescription(desc string) *Event {
	e.Description = desc
	return e
}

// WithResult overrides the default success result.
func (e *Event) WithResult(result Result) *Event {
	e.Result = result
	return e
}

// WithError records the failure and flips the result.
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
		e.Result = ResultFailure
	}
	return e
}

// WithDuration records how long the operation took.
func (e *Event) WithDuration(duration time.Duration) *Event {
	e.DurationMs = duration.Milliseconds()
	return e
}

// WithMetadata attaches one extra key/value pair.
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	e.Metadata[key] = value
	return e
}
