package instrument

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jimfhahn/qa-server/monitor/types"
)

// performancePayloadSchema is the shape the authority operation boundary must
// report. Remote legs supply this blob verbatim, so it is validated before
// any value is trusted.
const performancePayloadSchema = `{
	"type": "object",
	"required": ["fetched_bytes", "fetch_time_s", "normalization_time_s"],
	"properties": {
		"fetched_bytes": {"type": "integer", "minimum": 0},
		"fetch_time_s": {"type": "number", "minimum": 0},
		"normalization_time_s": {"type": "number", "minimum": 0}
	},
	"additionalProperties": true
}`

var payloadSchema = gojsonschema.NewStringLoader(performancePayloadSchema)

// ParsePayload validates a raw performance payload against the boundary
// schema and unmarshals it. An invalid payload is reported as an error; the
// recorder treats that the same as a missing payload.
func ParsePayload(raw json.RawMessage) (*types.PerformancePayload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty performance payload")
	}

	result, err := gojsonschema.Validate(payloadSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to validate performance payload: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return nil, fmt.Errorf("invalid performance payload: %s", errs[0].String())
		}
		return nil, fmt.Errorf("invalid performance payload")
	}

	var payload types.PerformancePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal performance payload: %w", err)
	}
	return &payload, nil
}
