package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taller-backend/billing"
	"taller-backend/models"
	"taller-backend/utils/logger"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const photoStepPrefix = "photo"

// IntakeService turns a reception draft into a client, a vehicle, a service
// and its photos, or into nothing at all.
type IntakeService struct {
	gateway    ResourceGateway
	orphans    OrphanRecorder
	calculator *billing.Calculator
	config     *models.Config
	validator  *validator.Validate
	logger     logger.Logger
	now        func() time.Time
}

func NewIntakeService(gateway ResourceGateway, orphans OrphanRecorder, calculator *billing.Calculator, cfg *models.Config, log logger.Logger) *IntakeService {
	return &IntakeService{
		gateway:    gateway,
		orphans:    orphans,
		calculator: calculator,
		config:     cfg,
		validator:  validator.New(),
		logger:     log,
		now:        time.Now,
	}
}

// intakeState is filled in as the saga advances.
type intakeState struct {
	clientID     string
	vehicleID    string
	serviceID    string
	clientOwned  bool
	vehicleOwned bool
}

// Commit runs the intake saga for actor and returns the new service id. A failed
// commit is terminal for the draft: compensation has already run and retrying
// could clash with records created since.
func (s *IntakeService) Commit(ctx context.Context, draft models.IntakeDraft, actor models.Actor) (string, error) {
	if err := checkIntakeCapabilities(&draft.Service, actor); err != nil {
		s.logger.Warnf("Rejected intake draft from %s: %v", actor.UserID, err)
		return "", err
	}
	if err := s.validateDraft(&draft); err != nil {
		s.logger.Warnf("Rejected intake draft before any remote call: %v", err)
		return "", err
	}

	state := &intakeState{
		clientID:  draft.Client.ID,
		vehicleID: draft.Vehicle.ID,
	}

	saga := NewSaga("intake", s.logger).WithOrphanRecorder(s.orphans)
	saga.AddStep(s.clientStep(draft.Client, state))
	saga.AddStep(s.vehicleStep(draft.Vehicle, state))
	saga.AddStep(s.serviceStep(draft.Service, state))
	for i, photo := range draft.Photos {
		for _, step := range s.photoSteps(i, photo, state) {
			saga.AddStep(step)
		}
	}

	if err := saga.Execute(ctx); err != nil {
		var stepErr *StepError
		if !errors.As(err, &stepErr) {
			return "", err
		}
		if strings.HasPrefix(stepErr.Step, photoStepPrefix) {
			s.logger.Errorf("Intake reverted after photo failure at %s: %v", stepErr.Step, stepErr.Err)
			return "", models.ErrUploadReverted
		}
		return "", stepErr.Err
	}

	s.logger.Infof("Intake committed: service %s (client %s new=%t, vehicle %s new=%t, %d photos)",
		state.serviceID, state.clientID, state.clientOwned, state.vehicleID, state.vehicleOwned, len(draft.Photos))
	return state.serviceID, nil
}

func (s *IntakeService) clientStep(client models.Client, state *intakeState) SagaStep {
	step := SagaStep{
		Name: "client",
		Do: func(ctx context.Context) error {
			if !client.IsNew() {
				s.logger.Debugf("Reusing client %s", client.ID)
				return nil
			}
			id, err := s.gateway.CreateClient(ctx, &client)
			if err != nil {
				return err
			}
			state.clientID = id
			state.clientOwned = true
			return nil
		},
		Resource: func() (models.ResourceKind, string) { return models.KindClient, state.clientID },
	}
	if client.IsNew() {
		step.Undo = func(ctx context.Context) error {
			return s.gateway.DeleteClient(ctx, state.clientID)
		}
	}
	return step
}

func (s *IntakeService) vehicleStep(vehicle models.Vehicle, state *intakeState) SagaStep {
	step := SagaStep{
		Name: "vehicle",
		Do: func(ctx context.Context) error {
			if !vehicle.IsNew() {
				s.logger.Debugf("Reusing vehicle %s", vehicle.ID)
				return nil
			}
			id, err := s.gateway.CreateVehicle(ctx, &vehicle)
			if err != nil {
				return err
			}
			state.vehicleID = id
			state.vehicleOwned = true
			return nil
		},
		Resource: func() (models.ResourceKind, string) { return models.KindVehicle, state.vehicleID },
	}
	if vehicle.IsNew() {
		step.Undo = func(ctx context.Context) error {
			return s.gateway.DeleteVehicle(ctx, state.vehicleID)
		}
	}
	return step
}

func (s *IntakeService) serviceStep(service models.Service, state *intakeState) SagaStep {
	return SagaStep{
		Name: "service",
		Do: func(ctx context.Context) error {
			svc := service.Clone()
			svc.ID = ""
			svc.ClientID = state.clientID
			svc.VehicleID = state.vehicleID
			svc.Status = models.StatusPending
			svc.DeliveredAt = nil
			if svc.EntryDate.IsZero() {
				svc.EntryDate = s.now()
			}
			if svc.IVARate == nil {
				rate := s.config.TaxRate
				svc.IVARate = &rate
			}

			id, err := s.gateway.CreateService(ctx, svc)
			if err != nil {
				return err
			}
			state.serviceID = id
			return nil
		},
		Undo: func(ctx context.Context) error {
			return s.gateway.DeleteService(ctx, state.serviceID)
		},
		Resource: func() (models.ResourceKind, string) { return models.KindService, state.serviceID },
	}
}

// photoSteps uploads one photo. The transfer is undone on its own so that
// bytes sent before a failed registration do not linger in storage.
func (s *IntakeService) photoSteps(index int, photo models.PhotoUpload, state *intakeState) []SagaStep {
	var key string

	transfer := SagaStep{
		Name: fmt.Sprintf("%s[%d].transfer", photoStepPrefix, index),
		Do: func(ctx context.Context) error {
			target, err := s.gateway.GetPhotoUploadTarget(ctx, state.serviceID, photo.ContentType)
			if err != nil {
				return err
			}
			key = target.Key
			return s.gateway.TransferImage(ctx, target.UploadURL, photo.ContentType, photo.Data)
		},
		Undo: func(ctx context.Context) error {
			return s.gateway.DiscardUpload(ctx, key)
		},
		Resource: func() (models.ResourceKind, string) { return models.KindPhoto, key },
	}

	register := SagaStep{
		Name: fmt.Sprintf("%s[%d].register", photoStepPrefix, index),
		Do: func(ctx context.Context) error {
			_, err := s.gateway.RegisterPhoto(ctx, state.serviceID, key)
			return err
		},
	}

	return []SagaStep{transfer, register}
}

// checkIntakeCapabilities applies the edit rules of the lifecycle to a new service:
// only assigners set the technician or area, and only actors who see profit
// record mechanic costs.
func checkIntakeCapabilities(service *models.Service, actor models.Actor) error {
	if service.Assignment != (models.Assignment{}) && !actor.Capabilities.CanAssignTechnician {
		return &models.ForbiddenError{Action: "assign the technician or area"}
	}
	if len(service.PaidLabors) > 0 && !actor.Capabilities.CanSeeProfit {
		return &models.ForbiddenError{Action: "record mechanic costs"}
	}
	return nil
}

func (s *IntakeService) validateDraft(draft *models.IntakeDraft) error {
	valErr := &models.ValidationError{}

	if draft.Client.IsNew() {
		addValidationErrors(valErr, "client", s.validator.Struct(&draft.Client))
	}
	if draft.Vehicle.IsNew() {
		addValidationErrors(valErr, "vehicle", s.validator.Struct(&draft.Vehicle))
	}
	addValidationErrors(valErr, "service", s.validator.Struct(&draft.Service))
	addValidationErrors(valErr, "", s.validator.Struct(draft))

	if limit := s.config.MaxPhotosPerService; limit > 0 && len(draft.Photos) > limit {
		valErr.Add("photos", fmt.Sprintf("at most %d photos can be attached to a service", limit))
	}

	discount := decimal.NewFromFloat(draft.Service.Discount)
	if err := billing.CheckDiscount(discount, s.calculator.Subtotal(&draft.Service)); err != nil {
		var discountErr *models.ValidationError
		if errors.As(err, &discountErr) {
			valErr.Fields = append(valErr.Fields, discountErr.Fields...)
		}
	}

	return valErr.OrNil()
}
