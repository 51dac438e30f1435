package websocket

import (
	"context"
	"log/slog"

	"abrsqol/internal/qol"
	"abrsqol/pkg/contracts/domain"
	"abrsqol/pkg/contracts/events"
)

// ProgressObserver forwards solver progress to a Session. Iteration events
// are sampled every n-th pass and may be dropped under back-pressure;
// column completions are always delivered.
type ProgressObserver struct {
	session *Session
	every   int
}

// NewProgressObserver creates a ProgressObserver. every <= 0 forwards every
// iteration.
func NewProgressObserver(session *Session, every int) *ProgressObserver {
	if every <= 0 {
		every = 1
	}
	return &ProgressObserver{session: session, every: every}
}

func (o *ProgressObserver) OnIteration(ctx context.Context, p qol.Progress) {
	if p.Iteration%o.every != 0 && p.Iteration != 1 {
		return
	}
	o.session.Publish(ctx, events.NewMessage(events.MessageTypeProgress, o.session.TraceID(), events.ProgressEvent{
		Column:    p.Column,
		Iteration: p.Iteration,
		MaxIter:   p.MaxIter,
		Objective: p.Objective,
		Tolerance: p.Tolerance,
	}))
}

func (o *ProgressObserver) OnComplete(ctx context.Context, column int, res qol.ColumnResult) {
	msg := events.NewMessage(events.MessageTypeColumnComplete, o.session.TraceID(), events.ColumnCompleteEvent{
		Column: column,
		ColumnResult: domain.ColumnResult{
			QoL:        res.QoL,
			Iterations: res.Iterations,
			Objective:  res.Objective,
			Converged:  res.Converged,
		},
	})
	if err := o.session.Deliver(ctx, msg); err != nil {
		o.session.Logger().DebugContext(ctx, "column completion not delivered",
			slog.Int("column", column),
			slog.String("error", err.Error()))
	}
}
