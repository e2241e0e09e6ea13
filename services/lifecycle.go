package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"taller-backend/billing"
	"taller-backend/models"
	"taller-backend/utils/logger"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type requirement struct {
	field string
	met   func(*models.Service) bool
}

type transitionRule struct {
	requirements []requirement
	allowed      func(models.Capabilities) bool
	action       string
}

var hasLineItem = requirement{"parts or labor", (*models.Service).HasValidLineItem}

// transitionRules is keyed by source state; each state has exactly one successor.
var transitionRules = map[models.ServiceStatus]transitionRule{
	models.StatusPending: {
		requirements: []requirement{
			{"end date", func(s *models.Service) bool { return s.EndDate != nil && !s.EndDate.IsZero() }},
			{"vehicle location", func(s *models.Service) bool { return strings.TrimSpace(s.VehicleLocation) != "" }},
			{"mechanics", func(s *models.Service) bool { return hasName(s.Mechanics) }},
			hasLineItem,
			{"assigned technician", func(s *models.Service) bool { return strings.TrimSpace(s.Assignment.TechnicianID) != "" }},
			{"area", func(s *models.Service) bool { return strings.TrimSpace(s.Assignment.AreaID) != "" }},
		},
	},
	models.StatusInProcess: {
		requirements: []requirement{hasLineItem},
	},
	models.StatusFinished: {
		requirements: []requirement{
			{"invoice number", func(s *models.Service) bool { return strings.TrimSpace(s.InvoiceNumber) != "" }},
			{"payment method", func(s *models.Service) bool { return strings.TrimSpace(s.PaymentMethod) != "" }},
			hasLineItem,
		},
		allowed: func(c models.Capabilities) bool { return c.CanMarkDelivered },
		action:  "mark a service as delivered",
	},
}

func hasName(names []string) bool {
	for _, n := range names {
		if strings.TrimSpace(n) != "" {
			return true
		}
	}
	return false
}

// CheckTransition validates a transition without any I/O. It rejects a wrong
// or terminal source state, a non-adjacent target, a missing capability, and
// reports every unmet field precondition at once.
func CheckTransition(svc *models.Service, target models.ServiceStatus, actor models.Actor) error {
	next, ok := svc.Status.Next()
	if !ok || next != target {
		return &models.TransitionError{From: svc.Status, To: target}
	}

	rule := transitionRules[svc.Status]
	if rule.allowed != nil && !rule.allowed(actor.Capabilities) {
		return &models.ForbiddenError{Action: rule.action}
	}

	var missing []string
	for _, req := range rule.requirements {
		if !req.met(svc) {
			missing = append(missing, req.field)
		}
	}
	if len(missing) > 0 {
		return &models.TransitionError{From: svc.Status, To: target, MissingFields: missing}
	}
	return nil
}

// applyDeliveredOverride takes from edited the only fields an admin may change
// on a delivered service.
func applyDeliveredOverride(stored, edited *models.Service) *models.Service {
	merged := stored.Clone()
	merged.Observations = edited.Observations
	merged.InvoiceNumber = edited.InvoiceNumber
	merged.PaymentMethod = edited.PaymentMethod
	return merged
}

// LifecycleService moves services through their states and guards edits.
type LifecycleService struct {
	services   ServiceGateway
	calculator *billing.Calculator
	validator  *validator.Validate
	logger     logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewLifecycleService(services ServiceGateway, calculator *billing.Calculator, log logger.Logger) *LifecycleService {
	return &LifecycleService{
		services:   services,
		calculator: calculator,
		validator:  validator.New(),
		logger:     log,
		tracer:     otel.Tracer("taller-backend/lifecycle"),
		now:        time.Now,
	}
}

// GetService returns the stored service as actor may see it.
func (s *LifecycleService) GetService(ctx context.Context, id string, actor models.Actor) (*models.Service, error) {
	svc, err := s.services.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.VisibleTo(actor), nil
}

// ComputeTotals returns the totals of a service as seen by actor.
func (s *LifecycleService) ComputeTotals(service *models.Service, actor models.Actor) (*billing.Totals, error) {
	return s.calculator.Compute(service, actor)
}

// RequestTransition persists the edited fields, then changes the status, then
// returns the freshly read record. If the status change fails after the edits
// were saved, an *models.InconsistencyError is returned and nothing is undone.
func (s *LifecycleService) RequestTransition(ctx context.Context, edited *models.Service, target models.ServiceStatus, actor models.Actor) (*models.Service, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.RequestTransition")
	defer span.End()
	span.SetAttributes(
		attribute.String("service.id", edited.ID),
		attribute.String("service.from", string(edited.Status)),
		attribute.String("service.to", string(target)),
	)

	if err := CheckTransition(edited, target, actor); err != nil {
		s.logger.Infof("Transition of service %s to %s rejected: %v", edited.ID, target, err)
		return nil, err
	}
	if err := s.validateEdits(edited); err != nil {
		return nil, err
	}

	stored, err := s.services.GetService(ctx, edited.ID)
	if err != nil {
		return nil, err
	}
	if stored.Status != edited.Status {
		s.logger.Warnf("Service %s is %s on the server, draft says %s", edited.ID, stored.Status, edited.Status)
		return nil, &models.TransitionError{From: stored.Status, To: target}
	}
	if err := checkAssignmentChange(stored, edited, actor); err != nil {
		return nil, err
	}
	edited = keepHiddenFields(stored, edited, actor)

	if err := s.services.UpdateService(ctx, edited.ID, edited.Edits()); err != nil {
		s.logger.Errorf("Failed to save service %s before transition: %v", edited.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}

	change := models.StatusChange{From: edited.Status, To: target, At: s.now()}
	if err := s.services.ChangeServiceStatus(ctx, edited.ID, change); err != nil {
		s.logger.Errorf("Service %s saved but status change to %s failed: %v", edited.ID, target, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "status change failed after update")
		return nil, &models.InconsistencyError{ServiceID: edited.ID, Target: target, Err: err}
	}

	s.logger.Infof("Service %s moved from %s to %s by %s", edited.ID, edited.Status, target, actor.UserID)

	fallback := edited.Clone()
	fallback.Status = target
	if target == models.StatusDelivered {
		fallback.DeliveredAt = &change.At
	}
	return s.refetch(ctx, edited.ID, fallback).VisibleTo(actor), nil
}

// SaveEdits persists the editable fields of a service and returns the freshly
// read record. A delivered service is read-only except for the observations,
// invoice number and payment method, and only for actors with the override.
func (s *LifecycleService) SaveEdits(ctx context.Context, edited *models.Service, actor models.Actor) (*models.Service, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.SaveEdits")
	defer span.End()
	span.SetAttributes(attribute.String("service.id", edited.ID))

	stored, err := s.services.GetService(ctx, edited.ID)
	if err != nil {
		return nil, err
	}
	edited = keepHiddenFields(stored, edited, actor)

	if stored.Status == models.StatusDelivered {
		if !actor.Capabilities.CanOverrideDelivered {
			return nil, &models.ForbiddenError{Action: "edit a delivered service"}
		}
		if IsDirty(applyDeliveredOverride(stored, edited), withStoredMeta(edited, stored)) {
			return nil, models.NewValidationError("service",
				"only observations, invoice number and payment method can change on a delivered service")
		}
		edited = applyDeliveredOverride(stored, edited)
	}

	if err := checkAssignmentChange(stored, edited, actor); err != nil {
		return nil, err
	}
	if err := s.validateEdits(edited); err != nil {
		return nil, err
	}

	if err := s.services.UpdateService(ctx, edited.ID, edited.Edits()); err != nil {
		s.logger.Errorf("Failed to save service %s: %v", edited.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}

	s.logger.Infof("Service %s saved by %s", edited.ID, actor.UserID)

	fallback := edited.Clone()
	fallback.Status = stored.Status
	return s.refetch(ctx, edited.ID, fallback).VisibleTo(actor), nil
}

// refetch reads the authoritative record after a write. If the read fails the
// write still happened, so the caller gets what was written.
func (s *LifecycleService) refetch(ctx context.Context, id string, written *models.Service) *models.Service {
	fresh, err := s.services.GetService(ctx, id)
	if err != nil {
		s.logger.Warnf("Refetch of service %s failed, using written copy: %v", id, err)
		return written
	}
	return fresh
}

func (s *LifecycleService) validateEdits(edited *models.Service) error {
	valErr := &models.ValidationError{}
	addValidationErrors(valErr, "service", s.validator.Struct(edited))

	discount := decimal.NewFromFloat(edited.Discount)
	if err := billing.CheckDiscount(discount, s.calculator.Subtotal(edited)); err != nil {
		var discountErr *models.ValidationError
		if errors.As(err, &discountErr) {
			valErr.Fields = append(valErr.Fields, discountErr.Fields...)
		}
	}
	return valErr.OrNil()
}

func checkAssignmentChange(stored, edited *models.Service, actor models.Actor) error {
	if stored.Assignment == edited.Assignment || actor.Capabilities.CanAssignTechnician {
		return nil
	}
	return &models.ForbiddenError{Action: "assign the technician or area"}
}

// keepHiddenFields puts back the stored paid labor for actors who never see it,
// so their saves neither erase nor rewrite it.
func keepHiddenFields(stored, edited *models.Service, actor models.Actor) *models.Service {
	if actor.Capabilities.CanSeeProfit {
		return edited
	}
	c := edited.Clone()
	c.PaidLabors = append([]models.PaidLabor(nil), stored.PaidLabors...)
	return c
}

// withStoredMeta copies the server-managed fields of stored onto a clone of edited
// so that only user-editable fields take part in the comparison.
func withStoredMeta(edited, stored *models.Service) *models.Service {
	c := edited.Clone()
	c.ID = stored.ID
	c.OrderNumber = stored.OrderNumber
	c.ClientID = stored.ClientID
	c.VehicleID = stored.VehicleID
	c.EntryDate = stored.EntryDate
	c.Status = stored.Status
	c.DeliveredAt = stored.DeliveredAt
	return c
}
