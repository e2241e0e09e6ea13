package models

import (
	"strings"
	"time"
)

type ServiceStatus string

const (
	StatusPending   ServiceStatus = "pending"
	StatusInProcess ServiceStatus = "in_process"
	StatusFinished  ServiceStatus = "finished"
	StatusDelivered ServiceStatus = "delivered"
)

var statusOrder = []ServiceStatus{StatusPending, StatusInProcess, StatusFinished, StatusDelivered}

// IsValid reports whether s is one of the known lifecycle states.
func (s ServiceStatus) IsValid() bool {
	return s.position() >= 0
}

// Next returns the only state s may move to. Delivered is terminal.
func (s ServiceStatus) Next() (ServiceStatus, bool) {
	i := s.position()
	if i < 0 || i == len(statusOrder)-1 {
		return "", false
	}
	return statusOrder[i+1], true
}

// IsTerminal reports whether no further transition is possible.
func (s ServiceStatus) IsTerminal() bool {
	return s == StatusDelivered
}

func (s ServiceStatus) position() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Part is a billed spare part.
type Part struct {
	Name          string  `json:"name" dynamodbav:"name" validate:"max=200"`
	Quantity      float64 `json:"quantity" dynamodbav:"quantity" validate:"min=0"`
	UnitPrice     float64 `json:"unitPrice" dynamodbav:"unitPrice" validate:"min=0"`
	InvoiceNumber string  `json:"invoiceNumber,omitempty" dynamodbav:"invoiceNumber,omitempty"`
}

// IsValid reports whether the part counts towards the line-item precondition.
func (p Part) IsValid() bool {
	return p.Quantity > 0 && strings.TrimSpace(p.Name) != ""
}

// Labor is billed work.
type Labor struct {
	Description string  `json:"description" dynamodbav:"description" validate:"max=500"`
	Quantity    float64 `json:"quantity" dynamodbav:"quantity" validate:"min=0"`
	UnitPrice   float64 `json:"unitPrice" dynamodbav:"unitPrice" validate:"min=0"`
}

// IsValid reports whether the labor line counts towards the line-item precondition.
func (l Labor) IsValid() bool {
	return l.Quantity > 0 && strings.TrimSpace(l.Description) != ""
}

// PaidLabor is the cost paid to a mechanic. It is never billed.
type PaidLabor struct {
	Description string  `json:"description" dynamodbav:"description" validate:"max=500"`
	Price       float64 `json:"price" dynamodbav:"price" validate:"min=0"`
}

// Assignment pairs the responsible technician with a workshop area.
type Assignment struct {
	TechnicianID string `json:"technicianId,omitempty" dynamodbav:"technicianId,omitempty"`
	AreaID       string `json:"areaId,omitempty" dynamodbav:"areaId,omitempty"`
}

// Service is a repair order for one vehicle of one client.
type Service struct {
	ID              string        `json:"id" dynamodbav:"id"`
	OrderNumber     string        `json:"orderNumber" dynamodbav:"orderNumber" validate:"required,max=30"`
	ClientID        string        `json:"clientId" dynamodbav:"clientId"`
	VehicleID       string        `json:"vehicleId" dynamodbav:"vehicleId"`
	EntryDate       time.Time     `json:"entryDate" dynamodbav:"entryDate"`
	EndDate         *time.Time    `json:"endDate,omitempty" dynamodbav:"endDate,omitempty"`
	Assignment      Assignment    `json:"assignment" dynamodbav:"assignment"`
	VehicleLocation string        `json:"vehicleLocation,omitempty" dynamodbav:"vehicleLocation,omitempty" validate:"max=200"`
	Mechanics       []string      `json:"mechanics" dynamodbav:"mechanics"`
	Observations    string        `json:"observations,omitempty" dynamodbav:"observations,omitempty" validate:"max=2000"`
	IVARate         *float64      `json:"ivaRate,omitempty" dynamodbav:"ivaRate,omitempty" validate:"omitempty,min=0,lt=1"`
	Discount        float64       `json:"discount" dynamodbav:"discount" validate:"min=0"`
	Parts           []Part        `json:"parts" dynamodbav:"parts" validate:"dive"`
	Labors          []Labor       `json:"labors" dynamodbav:"labors" validate:"dive"`
	PaidLabors      []PaidLabor   `json:"paidLabors" dynamodbav:"paidLabors" validate:"dive"`
	InvoiceNumber   string        `json:"invoiceNumber,omitempty" dynamodbav:"invoiceNumber,omitempty"`
	PaymentMethod   string        `json:"paymentMethod,omitempty" dynamodbav:"paymentMethod,omitempty"`
	DeliveredAt     *time.Time    `json:"deliveredAt,omitempty" dynamodbav:"deliveredAt,omitempty"`
	Status          ServiceStatus `json:"status" dynamodbav:"status"`
	CreatedAt       time.Time     `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt" dynamodbav:"updatedAt"`
}

// HasValidLineItem reports whether at least one part or labor line is valid.
func (s *Service) HasValidLineItem() bool {
	for _, p := range s.Parts {
		if p.IsValid() {
			return true
		}
	}
	for _, l := range s.Labors {
		if l.IsValid() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the service.
func (s *Service) Clone() *Service {
	if s == nil {
		return nil
	}
	c := *s
	c.EndDate = cloneTime(s.EndDate)
	c.DeliveredAt = cloneTime(s.DeliveredAt)
	if s.IVARate != nil {
		rate := *s.IVARate
		c.IVARate = &rate
	}
	c.Mechanics = append([]string(nil), s.Mechanics...)
	c.Parts = append([]Part(nil), s.Parts...)
	c.Labors = append([]Labor(nil), s.Labors...)
	c.PaidLabors = append([]PaidLabor(nil), s.PaidLabors...)
	return &c
}

// VisibleTo returns the service as actor may see it. Paid labor is the workshop's
// cost, so it is left out for actors who cannot see profit.
func (s *Service) VisibleTo(actor Actor) *Service {
	if s == nil || actor.Capabilities.CanSeeProfit {
		return s
	}
	c := s.Clone()
	c.PaidLabors = nil
	return c
}

// Edits extracts the fields an update call persists.
func (s *Service) Edits() ServiceEdits {
	c := s.Clone()
	return ServiceEdits{
		EndDate:         c.EndDate,
		Assignment:      c.Assignment,
		VehicleLocation: c.VehicleLocation,
		Mechanics:       c.Mechanics,
		Observations:    c.Observations,
		IVARate:         c.IVARate,
		Discount:        c.Discount,
		Parts:           c.Parts,
		Labors:          c.Labors,
		PaidLabors:      c.PaidLabors,
		InvoiceNumber:   c.InvoiceNumber,
		PaymentMethod:   c.PaymentMethod,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ServiceEdits carries the mutable fields of a service.
type ServiceEdits struct {
	EndDate         *time.Time  `json:"endDate"`
	Assignment      Assignment  `json:"assignment"`
	VehicleLocation string      `json:"vehicleLocation"`
	Mechanics       []string    `json:"mechanics"`
	Observations    string      `json:"observations"`
	IVARate         *float64    `json:"ivaRate"`
	Discount        float64     `json:"discount"`
	Parts           []Part      `json:"parts"`
	Labors          []Labor     `json:"labors"`
	PaidLabors      []PaidLabor `json:"paidLabors"`
	InvoiceNumber   string      `json:"invoiceNumber"`
	PaymentMethod   string      `json:"paymentMethod"`
}

// StatusChange moves a service from one state to the next.
type StatusChange struct {
	From ServiceStatus
	To   ServiceStatus
	At   time.Time
}
