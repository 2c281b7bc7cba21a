package instrument

import "context"

type contextKey struct{}

// correlationKey carries the sample id through an operation's sub-phases.
var correlationKey contextKey

// WithCorrelationID returns a context carrying the sample's correlation
// token. Downstream legs (remote fetch, parsing) read it to attribute their
// timing back to the originating sample.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// CorrelationID extracts the correlation token from the context.
func CorrelationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationKey).(string)
	return id, ok && id != ""
}
