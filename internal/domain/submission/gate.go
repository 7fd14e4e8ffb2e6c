// Package submission admits a judge's score for a participant, at most once
// per (judge, participant) pair and never into a locked event.
package submission

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

var tracer = otel.Tracer("github.com/okian/tally/internal/domain/submission")

// Store is the part of the record store the gate writes through.
type Store interface {
	GetEvent(ctx context.Context, id string) (model.Event, error)
	GetParticipant(ctx context.Context, id string) (model.Participant, error)
	FindScore(ctx context.Context, judgeID, participantID string) (model.Score, error)
	UpsertScore(ctx context.Context, s model.Score) (model.ScoreChange, error)
}

// View is the local score set updated after a successful write.
type View interface {
	ApplyScore(s model.Score)
}

// Publisher announces accepted changes.
type Publisher interface {
	Publish(ctx context.Context, change model.ScoreChange) error
}

// Request is one judge's submission for one participant.
type Request struct {
	JudgeID       string             `json:"judgeId"`
	ParticipantID string             `json:"participantId"`
	EventID       string             `json:"eventId"`
	Entries       map[string]float64 `json:"criteriaScores"`
	Deduction     float64            `json:"deductions"`
	Critique      string             `json:"critique,omitempty"`
}

// Result is an accepted submission.
type Result struct {
	Score    model.Score `json:"score"`
	Replaced bool        `json:"replaced"`
	ChangeID string      `json:"changeId"`
}

// Gate validates submissions and writes them through the store.
type Gate struct {
	store Store
	view  View
	pub   Publisher
	newID func() string
	log   logger.Logger
}

// NewGate creates a gate writing to store and updating view.
func NewGate(store Store, view View, opts ...Option) *Gate {
	g := &Gate{
		store: store,
		view:  view,
		newID: uuid.NewString,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit computes the total and writes the score, replacing the pair's
// previous score in place. The store re-checks the lock inside the write.
func (g *Gate) Submit(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "submission.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", req.EventID),
		attribute.String("judge.id", req.JudgeID),
		attribute.String("participant.id", req.ParticipantID),
	)

	start := time.Now()
	res, outcome, err := g.submit(ctx, req)
	metrics.RecordSubmission(outcome, float64(time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		g.log.Warn(ctx, "submission rejected",
			logger.String("event", req.EventID),
			logger.String("judge", req.JudgeID),
			logger.String("participant", req.ParticipantID),
			logger.String("outcome", outcome),
			logger.Error(err),
		)
		return Result{}, err
	}
	span.SetAttributes(attribute.Bool("score.replaced", res.Replaced), attribute.Float64("score.total", res.Score.Total))
	return res, nil
}

func (g *Gate) submit(ctx context.Context, req Request) (Result, string, error) {
	if req.JudgeID == "" || req.ParticipantID == "" || req.EventID == "" {
		return Result{}, metrics.OutcomeInvalid, fmt.Errorf("%w: judge, participant and event are required", ErrValidation)
	}
	if math.IsNaN(req.Deduction) || math.IsInf(req.Deduction, 0) || req.Deduction < 0 {
		return Result{}, metrics.OutcomeInvalid, fmt.Errorf("%w: deduction must be a non-negative number", ErrValidation)
	}

	event, err := g.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return Result{}, outcomeOf(err), fmt.Errorf("submission.Submit: %w", err)
	}
	if event.Locked {
		return Result{}, metrics.OutcomeLocked, fmt.Errorf("submission.Submit event %q: %w", event.ID, ErrLockedEvent)
	}

	participant, err := g.store.GetParticipant(ctx, req.ParticipantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, metrics.OutcomeInvalid, fmt.Errorf("%w: unknown participant %q", ErrValidation, req.ParticipantID)
		}
		return Result{}, metrics.OutcomeStoreError, fmt.Errorf("submission.Submit: %w", err)
	}
	if participant.EventID != event.ID {
		return Result{}, metrics.OutcomeInvalid, fmt.Errorf("%w: participant %q does not compete in event %q", ErrValidation, participant.ID, event.ID)
	}

	id := g.newID()
	switch existing, err := g.store.FindScore(ctx, req.JudgeID, req.ParticipantID); {
	case err == nil:
		id = existing.ID
	case !errors.Is(err, repository.ErrNotFound):
		return Result{}, metrics.OutcomeStoreError, fmt.Errorf("submission.Submit: %w", err)
	}

	fields := event.ActiveFields()
	total, err := scoring.Checked(fields, req.Entries, req.Deduction)
	if err != nil {
		return Result{}, metrics.OutcomeInvalid, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	score := model.Score{
		ID:            id,
		JudgeID:       req.JudgeID,
		ParticipantID: req.ParticipantID,
		EventID:       event.ID,
		Entries:       scoring.Normalize(fields, req.Entries),
		Deduction:     req.Deduction,
		Total:         total,
		Critique:      req.Critique,
	}

	change, err := g.store.UpsertScore(ctx, score)
	if err != nil {
		return Result{}, outcomeOf(err), mapWriteError(err)
	}

	g.view.ApplyScore(change.Score)
	if g.pub != nil {
		if err := g.pub.Publish(ctx, change); err != nil {
			g.log.Warn(ctx, "failed to publish score change", logger.String("change", change.ID), logger.Error(err))
		}
	}

	outcome := metrics.OutcomeAccepted
	if change.Kind == model.ChangeUpdated {
		outcome = metrics.OutcomeReplaced
	}
	return Result{Score: change.Score, Replaced: change.Kind == model.ChangeUpdated, ChangeID: change.ID}, outcome, nil
}

func mapWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEventLocked):
		return fmt.Errorf("submission.Submit: %w: %w", ErrLockedEvent, err)
	case errors.Is(err, repository.ErrDuplicateScore), errors.Is(err, model.ErrInvalidRecord):
		return fmt.Errorf("submission.Submit: %w: %w", ErrValidation, err)
	default:
		return fmt.Errorf("submission.Submit: %w", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, repository.ErrEventLocked):
		return metrics.OutcomeLocked
	case errors.Is(err, repository.ErrDuplicateScore):
		return metrics.OutcomeDuplicate
	case errors.Is(err, model.ErrInvalidRecord), errors.Is(err, repository.ErrNotFound):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeStoreError
	}
}
