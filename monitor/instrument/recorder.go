// Package instrument wraps authority operations so each invocation leaves
// exactly one terminal trace in the sample store: a fully-populated row on
// success with timing data, or no row at all.
package instrument

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/storage"
	"github.com/jimfhahn/qa-server/monitor/types"
)

// Operation is the external "perform authority operation" boundary. The
// context carries the correlation token; the result may carry a raw
// performance payload alongside the caller-facing value.
type Operation func(ctx context.Context) (*types.OperationResult, error)

// Publisher receives sample lifecycle events, e.g. for a live dashboard feed.
type Publisher interface {
	SampleRecorded(sample types.Sample)
	SampleDiscarded(authority string, action types.Action, reason string)
}

// Recorder instruments authority operations. Concurrent Record calls are
// independent: each touches only the row it created.
type Recorder struct {
	store     storage.SampleStore
	loc       *time.Location
	now       func() time.Time
	publisher Publisher
	log       logrus.FieldLogger
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithPublisher attaches a lifecycle event publisher.
func WithPublisher(p Publisher) RecorderOption {
	return func(r *Recorder) { r.publisher = p }
}

// NewRecorder creates a recorder stamping samples in the given zone. A nil
// location means UTC.
func NewRecorder(store storage.SampleStore, loc *time.Location, log logrus.FieldLogger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store: store,
		loc:   loc,
		now:   time.Now,
		log:   log.WithField("component", "recorder"),
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record runs op under the sample lifecycle protocol:
//
//  1. Create a sample row before the work starts; its id is the correlation
//     token, threaded to op through the context.
//  2. On error from op: delete the row and return the error unchanged.
//  3. On success without a (valid) performance payload: delete the row
//     silently; the operation did no measurable work.
//  4. On success with a payload: update the row with total wall time and the
//     payload's phase metrics.
//
// The caller always gets op's value with the performance metadata stripped.
// Cleanup failures are logged, never raised, so they cannot mask op's own
// outcome.
func (r *Recorder) Record(ctx context.Context, authority string, action types.Action, op Operation) (json.RawMessage, error) {
	start := r.now()

	sample, err := r.store.CreateSample(ctx, authority, action, start.In(r.loc))
	if err != nil {
		// Monitoring must not break the lookup itself: run unrecorded.
		r.log.WithError(err).WithField("authority", authority).Error("Failed to create sample, running unrecorded")
		result, opErr := op(ctx)
		if opErr != nil || result == nil {
			return nil, opErr
		}
		return result.Value, nil
	}

	ctx = WithCorrelationID(ctx, sample.ID)

	result, opErr := op(ctx)
	if opErr != nil {
		r.discard(sample, discardReasonError)
		return nil, opErr
	}

	if result == nil || len(result.Performance) == 0 {
		r.discard(sample, discardReasonNoPayload)
		if result == nil {
			return nil, nil
		}
		return result.Value, nil
	}

	payload, perr := ParsePayload(result.Performance)
	if perr != nil {
		r.log.WithError(perr).WithFields(logrus.Fields{
			"sample_id": sample.ID,
			"authority": authority,
		}).Warn("Discarding sample with unusable performance payload")
		r.discard(sample, discardReasonInvalidPayload)
		return result.Value, nil
	}

	elapsed := r.now().Sub(start)
	upd := types.SampleUpdate{
		TotalTimeMs:         float64(elapsed) / float64(time.Millisecond),
		RetrieveParseTimeMs: payload.FetchTime * 1000,
		NormalizationTimeMs: payload.NormalizationTime * 1000,
		SizeBytes:           payload.FetchedBytes,
	}

	if err := r.store.UpdateSample(ctx, sample.ID, upd); err != nil {
		// A row without final data is not a usable data point; remove it.
		r.log.WithError(err).WithField("sample_id", sample.ID).Error("Failed to update sample")
		r.discard(sample, discardReasonUpdateFailed)
		return result.Value, nil
	}

	operationDuration.WithLabelValues(authority, action.String()).Observe(elapsed.Seconds())
	samplesRecorded.WithLabelValues(authority, action.String()).Inc()

	if r.publisher != nil {
		recorded := *sample
		recorded.TotalTimeMs = upd.TotalTimeMs
		recorded.RetrieveParseTimeMs = upd.RetrieveParseTimeMs
		recorded.NormalizationTimeMs = upd.NormalizationTimeMs
		recorded.SizeBytes = upd.SizeBytes
		r.publisher.SampleRecorded(recorded)
	}

	return result.Value, nil
}

// discard deletes a sample that never reached a usable state. Uses a
// background context so cleanup survives a cancelled request context.
func (r *Recorder) discard(sample *types.Sample, reason string) {
	samplesDiscarded.WithLabelValues(sample.Authority, sample.Action.String(), reason).Inc()

	if err := r.store.DeleteSample(context.Background(), sample.ID); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"sample_id": sample.ID,
			"reason":    reason,
		}).Error("Failed to delete in-flight sample")
	}

	if r.publisher != nil {
		r.publisher.SampleDiscarded(sample.Authority, sample.Action, reason)
	}
}
