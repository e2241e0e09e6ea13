package services

import (
	"context"
	"strconv"
	"time"

	"taller-backend/models"
)

// IsDirty reports whether current differs from snapshot in any user-visible
// field. Absent values compare equal to empty ones, numbers compare
// numerically, and lists compare by position, so a reorder is a change.
// Server-managed timestamps (CreatedAt, UpdatedAt) are ignored.
func IsDirty(current, snapshot *models.Service) bool {
	if current == nil || snapshot == nil {
		return current != snapshot
	}

	if !equalStrings(scalars(current), scalars(snapshot)) {
		return true
	}
	if !equalStrings(assignmentPair(current), assignmentPair(snapshot)) {
		return true
	}
	if !equalStrings(current.Mechanics, snapshot.Mechanics) {
		return true
	}
	if !equalParts(current.Parts, snapshot.Parts) {
		return true
	}
	if !equalLabors(current.Labors, snapshot.Labors) {
		return true
	}
	return !equalPaidLabors(current.PaidLabors, snapshot.PaidLabors)
}

func scalars(s *models.Service) []string {
	return []string{
		s.ID,
		s.OrderNumber,
		s.ClientID,
		s.VehicleID,
		timeValue(&s.EntryDate),
		timeValue(s.EndDate),
		s.VehicleLocation,
		s.Observations,
		floatPtrValue(s.IVARate),
		floatValue(s.Discount),
		s.InvoiceNumber,
		s.PaymentMethod,
		timeValue(s.DeliveredAt),
		string(s.Status),
	}
}

func assignmentPair(s *models.Service) []string {
	return []string{s.Assignment.TechnicianID, s.Assignment.AreaID}
}

func timeValue(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func floatValue(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func floatPtrValue(f *float64) string {
	if f == nil {
		return ""
	}
	return floatValue(*f)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalParts(a, b []models.Part) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name ||
			a[i].Quantity != b[i].Quantity ||
			a[i].UnitPrice != b[i].UnitPrice ||
			a[i].InvoiceNumber != b[i].InvoiceNumber {
			return false
		}
	}
	return true
}

func equalLabors(a, b []models.Labor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Description != b[i].Description ||
			a[i].Quantity != b[i].Quantity ||
			a[i].UnitPrice != b[i].UnitPrice {
			return false
		}
	}
	return true
}

func equalPaidLabors(a, b []models.PaidLabor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Description != b[i].Description || a[i].Price != b[i].Price {
			return false
		}
	}
	return true
}

// EditSaver persists edits and returns the authoritative record.
type EditSaver interface {
	SaveEdits(ctx context.Context, edited *models.Service, actor models.Actor) (*models.Service, error)
	RequestTransition(ctx context.Context, edited *models.Service, target models.ServiceStatus, actor models.Actor) (*models.Service, error)
}

// EditSession pairs a working draft with the last record read from the server.
type EditSession struct {
	saver    EditSaver
	snapshot *models.Service
	Draft    *models.Service
}

// NewEditSession starts editing a copy of stored.
func NewEditSession(saver EditSaver, stored *models.Service) *EditSession {
	return &EditSession{
		saver:    saver,
		snapshot: stored.Clone(),
		Draft:    stored.Clone(),
	}
}

// IsDirty reports whether the draft has unsaved changes.
func (e *EditSession) IsDirty() bool {
	return IsDirty(e.Draft, e.snapshot)
}

// Snapshot returns a copy of the last synchronized record.
func (e *EditSession) Snapshot() *models.Service {
	return e.snapshot.Clone()
}

// Discard drops unsaved changes.
func (e *EditSession) Discard() {
	e.Draft = e.snapshot.Clone()
}

// Save persists the draft. Both snapshot and draft are replaced by the record
// read back from the server; on error the draft is left untouched.
func (e *EditSession) Save(ctx context.Context, actor models.Actor) error {
	saved, err := e.saver.SaveEdits(ctx, e.Draft, actor)
	if err != nil {
		return err
	}
	e.sync(saved)
	return nil
}

// Transition requests the next status for the draft and resynchronizes.
func (e *EditSession) Transition(ctx context.Context, target models.ServiceStatus, actor models.Actor) error {
	fresh, err := e.saver.RequestTransition(ctx, e.Draft, target, actor)
	if err != nil {
		return err
	}
	e.sync(fresh)
	return nil
}

func (e *EditSession) sync(record *models.Service) {
	e.snapshot = record.Clone()
	e.Draft = record.Clone()
}
