package services

import (
	"context"
	"fmt"

	"taller-backend/models"
	"taller-backend/utils/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SagaStep is one locally committing action and the action that reverts it.
type SagaStep struct {
	Name string
	Do   func(ctx context.Context) error
	// Undo reverts Do. Nil means the step left nothing to revert.
	Undo func(ctx context.Context) error
	// Resource reports what Do created, so a failed Undo can be recorded as an orphan.
	Resource func() (models.ResourceKind, string)
}

// StepError is returned by Execute. Err is the failure of Step, untouched.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Saga runs its steps in order. When a step fails, the steps that already
// completed are undone in reverse order. Undo failures are logged and recorded,
// never returned. A Saga is built per execution and is not safe to reuse.
type Saga struct {
	name    string
	steps   []SagaStep
	orphans OrphanRecorder
	logger  logger.Logger
	tracer  trace.Tracer
}

func NewSaga(name string, log logger.Logger) *Saga {
	return &Saga{
		name:   name,
		logger: log,
		tracer: otel.Tracer("taller-backend/saga"),
	}
}

// WithOrphanRecorder makes failed undos visible to the orphan reaper.
func (s *Saga) WithOrphanRecorder(recorder OrphanRecorder) *Saga {
	s.orphans = recorder
	return s
}

func (s *Saga) AddStep(step SagaStep) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the saga. On failure it returns a *StepError after compensation.
func (s *Saga) Execute(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "saga."+s.name)
	defer span.End()
	span.SetAttributes(attribute.Int("saga.steps", len(s.steps)))

	for i, step := range s.steps {
		if err := s.run(ctx, step); err != nil {
			s.logger.Errorf("Saga %s: step %s failed: %v", s.name, step.Name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "step "+step.Name+" failed")

			// Compensation must finish even if the caller has gone away.
			s.compensate(context.WithoutCancel(ctx), s.steps[:i])
			return &StepError{Step: step.Name, Err: err}
		}
	}

	s.logger.Infof("Saga %s completed %d steps", s.name, len(s.steps))
	return nil
}

func (s *Saga) run(ctx context.Context, step SagaStep) error {
	ctx, span := s.tracer.Start(ctx, "saga.step."+step.Name)
	defer span.End()

	if err := step.Do(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, completed []SagaStep) {
	ctx, span := s.tracer.Start(ctx, "saga.compensate."+s.name)
	defer span.End()

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Undo == nil {
			continue
		}

		s.logger.Warnf("Saga %s: compensating step %s", s.name, step.Name)
		if err := step.Undo(ctx); err != nil {
			s.logger.Errorf("Saga %s: compensation of %s failed: %v", s.name, step.Name, err)
			span.RecordError(err)
			s.recordOrphan(ctx, step, err)
		}
	}
}

func (s *Saga) recordOrphan(ctx context.Context, step SagaStep, cause error) {
	if s.orphans == nil || step.Resource == nil {
		return
	}

	kind, id := step.Resource()
	if id == "" {
		return
	}

	if err := s.orphans.RecordOrphan(ctx, kind, id, cause.Error()); err != nil {
		s.logger.Errorf("Saga %s: failed to record orphan %s %s: %v", s.name, kind, id, err)
	}
}
