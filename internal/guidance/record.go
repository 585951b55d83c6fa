package guidance

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/session"
	"github.com/abhisek/mathguide/internal/store"
)

func (o *Orchestrator) observe(sessionID string, in Intent, rec DecisionRecord, elapsed time.Duration) {
	o.metrics.TurnsTotal.WithLabelValues(string(in.Kind), string(rec.Kind)).Inc()
	o.metrics.TurnDuration.WithLabelValues(string(in.Kind)).Observe(elapsed.Seconds())
	if rec.Degraded != "" {
		o.metrics.DegradedTotal.WithLabelValues(rec.Degraded).Inc()
	}

	fields := []zap.Field{
		zap.String("session_id", sessionID),
		zap.String("intent", string(in.Kind)),
		zap.String("action", string(rec.Kind)),
		zap.Int("hint_level", rec.HintLevel),
		zap.String("problem_id", rec.Target.ProblemID),
		zap.Int("step", rec.Target.StepIndex),
		zap.Stringer("phase", rec.Phase),
		zap.Duration("elapsed", elapsed),
	}
	if rec.Verdict != nil {
		fields = append(fields, zap.Stringer("status", rec.Verdict.Status))
	}
	if rec.Degraded != "" {
		o.logger.Warn("degraded decision", append(fields, zap.String("degraded", rec.Degraded))...)
		return
	}
	o.logger.Debug("turn handled", fields...)
}

// record appends the turn to the journal. Failures are logged and never
// affect the decision.
func (o *Orchestrator) record(ctx context.Context, sessionID string, in Intent, rec DecisionRecord, a *session.Attempt, elapsed time.Duration) {
	if o.journal == nil {
		return
	}
	if a != nil {
		err := o.journal.AppendAttempt(ctx, store.AttemptEventData{
			SessionID:    sessionID,
			ProblemID:    a.ProblemID,
			AttemptIndex: a.Index,
			Input:        a.Input,
			Status:       a.Verdict.Status.String(),
			MatchedStep:  a.Verdict.MatchedStep,
			Category:     string(a.Verdict.Category),
			Normalized:   a.Verdict.Normalized,
			HintLevel:    a.HintLevel,
		})
		if err != nil {
			o.metrics.FailuresTotal.WithLabelValues("journal").Inc()
			o.logger.Warn("failed to journal attempt", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	err := o.journal.AppendDecision(ctx, store.DecisionEventData{
		SessionID: sessionID,
		Intent:    string(in.Kind),
		Action:    string(rec.Kind),
		HintLevel: rec.HintLevel,
		ProblemID: rec.Target.ProblemID,
		StepIndex: rec.Target.StepIndex,
		ConceptID: rec.Target.ConceptID,
		Reveal:    rec.Reveal,
		Phase:     rec.Phase.String(),
		Degraded:  rec.Degraded,
		LatencyMs: elapsed.Milliseconds(),
	})
	if err != nil {
		o.metrics.FailuresTotal.WithLabelValues("journal").Inc()
		o.logger.Warn("failed to journal decision", zap.String("session_id", sessionID), zap.Error(err))
	}
}
