package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action identifies the kind of operation performed against an authority.
// Stored as a smallint code in the samples table.
type Action int16

const (
	// ActionFetch is a single-term lookup against an authority.
	ActionFetch Action = 0
	// ActionSearch is a query for matching terms against an authority.
	ActionSearch Action = 1

	// ActionAll is a scope sentinel meaning "do not filter by action".
	// It is never stored.
	ActionAll Action = -1
)

// String returns the wire/display name of the action.
func (a Action) String() string {
	switch a {
	case ActionFetch:
		return "fetch"
	case ActionSearch:
		return "search"
	case ActionAll:
		return "all_actions"
	default:
		return fmt.Sprintf("action(%d)", int16(a))
	}
}

// Valid reports whether the action is a storable action code.
func (a Action) Valid() bool {
	return a == ActionFetch || a == ActionSearch
}

// ParseAction converts a wire name into an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "fetch":
		return ActionFetch, nil
	case "search":
		return ActionSearch, nil
	case "all_actions", "all":
		return ActionAll, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// MarshalJSON encodes the action as its wire name.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes an action from its wire name.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sample is one recorded, timed instance of an action against an authority.
// A row exists in the store only once its operation reached a terminal state;
// rows for failed or payload-less operations are deleted by the recorder.
type Sample struct {
	ID        string    `json:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Authority string    `json:"authority" db:"authority"`
	Action    Action    `json:"action" db:"action"`

	// Timing metrics, populated on success only.
	TotalTimeMs         float64 `json:"total_time_ms" db:"total_time_ms"`
	RetrieveParseTimeMs float64 `json:"retrieve_plus_parse_time_ms" db:"retrieve_plus_parse_time_ms"`
	NormalizationTimeMs float64 `json:"normalization_time_ms" db:"normalization_time_ms"`

	// SizeBytes is the raw fetched payload size. Fetch actions only;
	// zero for search.
	SizeBytes int64 `json:"size_bytes" db:"size_bytes"`
}

// SampleUpdate carries the success-path metrics applied to an existing sample.
type SampleUpdate struct {
	TotalTimeMs         float64
	RetrieveParseTimeMs float64
	NormalizationTimeMs float64
	SizeBytes           int64
}

// SampleFilter selects samples by authority and time range.
// An empty Authority matches all authorities. Zero Since/Until leave the
// corresponding bound open. Results are always ordered by timestamp ascending.
type SampleFilter struct {
	Authority string    `json:"authority,omitempty"`
	Since     time.Time `json:"since,omitempty"`
	Until     time.Time `json:"until,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// PerformancePayload is the structured timing report an authority operation
// attaches to its result. Durations are in seconds on the wire, matching
// what the remote leg reports.
type PerformancePayload struct {
	FetchedBytes      int64   `json:"fetched_bytes"`
	FetchTime         float64 `json:"fetch_time_s"`
	NormalizationTime float64 `json:"normalization_time_s"`
}

// OperationResult is what an authority operation returns to the recorder.
// Value is the caller-facing result; Performance is the optional raw
// performance payload, stripped before the value is handed back.
type OperationResult struct {
	Value       json.RawMessage `json:"value"`
	Performance json.RawMessage `json:"performance,omitempty"`
}
