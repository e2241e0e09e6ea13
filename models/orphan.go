package models

import "time"

// ResourceKind names a record type the intake saga can create.
type ResourceKind string

const (
	KindClient  ResourceKind = "client"
	KindVehicle ResourceKind = "vehicle"
	KindService ResourceKind = "service"
	KindPhoto   ResourceKind = "photo"
)

// Orphan is a record left behind because its compensating delete failed.
type Orphan struct {
	ID            string       `json:"id" dynamodbav:"id"`
	Kind          ResourceKind `json:"kind" dynamodbav:"kind"`
	ResourceID    string       `json:"resourceId" dynamodbav:"resourceId"`
	Reason        string       `json:"reason" dynamodbav:"reason"`
	Attempts      int          `json:"attempts" dynamodbav:"attempts"`
	CreatedAt     time.Time    `json:"createdAt" dynamodbav:"createdAt"`
	LastAttemptAt *time.Time   `json:"lastAttemptAt,omitempty" dynamodbav:"lastAttemptAt,omitempty"`
}
