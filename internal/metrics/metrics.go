package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MarlyH/CorpsAPI-sub000/pkg/telemetry"
)

var (
	// Booking counters
	BookingsCreated  metric.Int64Counter
	BookingsRejected metric.Int64Counter
	SeatsReleased    metric.Int64Counter

	// Waitlist counters
	WaitlistJoined  metric.Int64Counter
	WaitlistDrained metric.Int64Counter

	// Strike counters
	StrikesAdded       metric.Int64Counter
	SuspensionsCleared metric.Int64Counter

	// Background work
	SweepRuns        metric.Int64Counter
	SweepRowFailures metric.Int64Counter
	SweepDuration    metric.Float64Histogram
	OutboxDelivered  metric.Int64Counter
	OutboxFailed     metric.Int64Counter

	initOnce sync.Once
)

// Init creates all instruments on the global meter provider. Calling it
// more than once is harmless.
func Init() {
	initOnce.Do(func() {
		BookingsCreated = telemetry.NewCounter("booking_created_total", "Bookings granted a seat")
		BookingsRejected = telemetry.NewCounter("booking_rejected_total", "Booking attempts rejected, by reason")
		SeatsReleased = telemetry.NewCounter("booking_seats_released_total", "Seats freed by cancellation or strike")

		WaitlistJoined = telemetry.NewCounter("waitlist_joined_total", "Users added to a waitlist")
		WaitlistDrained = telemetry.NewCounter("waitlist_drained_entries_total", "Waitlist entries notified and removed")

		StrikesAdded = telemetry.NewCounter("strikes_added_total", "Attendance strikes recorded, by source")
		SuspensionsCleared = telemetry.NewCounter("suspensions_cleared_total", "Suspensions reset after the rolling window lapsed")

		SweepRuns = telemetry.NewCounter("scheduler_sweep_runs_total", "Scheduler sweep executions")
		SweepRowFailures = telemetry.NewCounter("scheduler_sweep_row_failures_total", "Rows a sweep failed to process")
		SweepDuration = telemetry.NewHistogram("scheduler_sweep_duration_seconds", "Sweep wall time", "s")
		OutboxDelivered = telemetry.NewCounter("outbox_delivered_total", "Outbox messages published to the broker")
		OutboxFailed = telemetry.NewCounter("outbox_failed_total", "Outbox publish attempts that failed")
	})
}

// RecordBookingCreated records a granted seat. kind is self, child or walk_in.
func RecordBookingCreated(ctx context.Context, eventID, kind string) {
	if BookingsCreated != nil {
		BookingsCreated.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event_id", eventID),
			attribute.String("kind", kind),
		))
	}
}

// RecordBookingRejected records a rejected booking attempt
func RecordBookingRejected(ctx context.Context, eventID, reason string) {
	if BookingsRejected != nil {
		BookingsRejected.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event_id", eventID),
			attribute.String("reason", reason),
		))
	}
}

// RecordSeatsReleased records freed seats
func RecordSeatsReleased(ctx context.Context, eventID, reason string, n int) {
	if SeatsReleased != nil && n > 0 {
		SeatsReleased.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("event_id", eventID),
			attribute.String("reason", reason),
		))
	}
}

// RecordWaitlistJoin records a waitlist join
func RecordWaitlistJoin(ctx context.Context, eventID string) {
	if WaitlistJoined != nil {
		WaitlistJoined.Add(ctx, 1, metric.WithAttributes(attribute.String("event_id", eventID)))
	}
}

// RecordWaitlistDrain records entries removed by a drain
func RecordWaitlistDrain(ctx context.Context, eventID string, n int) {
	if WaitlistDrained != nil && n > 0 {
		WaitlistDrained.Add(ctx, int64(n), metric.WithAttributes(attribute.String("event_id", eventID)))
	}
}

// RecordStrikes records added strikes. source is manual, status or no_show.
func RecordStrikes(ctx context.Context, source string, n int) {
	if StrikesAdded != nil && n > 0 {
		StrikesAdded.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
	}
}

// RecordSuspensionCleared records a lapsed suspension reset
func RecordSuspensionCleared(ctx context.Context) {
	if SuspensionsCleared != nil {
		SuspensionsCleared.Add(ctx, 1)
	}
}

// RecordSweep records one sweep execution
func RecordSweep(ctx context.Context, sweep string, failed int, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("sweep", sweep))
	if SweepRuns != nil {
		SweepRuns.Add(ctx, 1, attrs)
	}
	if SweepRowFailures != nil && failed > 0 {
		SweepRowFailures.Add(ctx, int64(failed), attrs)
	}
	if SweepDuration != nil {
		SweepDuration.Record(ctx, seconds, attrs)
	}
}

// RecordOutboxDelivery records a publish attempt
func RecordOutboxDelivery(ctx context.Context, topic string, ok bool) {
	attrs := metric.WithAttributes(attribute.String("topic", topic))
	if ok {
		if OutboxDelivered != nil {
			OutboxDelivered.Add(ctx, 1, attrs)
		}
		return
	}
	if OutboxFailed != nil {
		OutboxFailed.Add(ctx, 1, attrs)
	}
}
