package models

import "time"

type FuelType string

const (
	FuelGasoline FuelType = "gasoline"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
	FuelLPG      FuelType = "lpg"
)

// Vehicle is keyed by plate. It carries no client reference; a Service links both.
type Vehicle struct {
	ID           string    `json:"id" dynamodbav:"id"`
	Plate        string    `json:"plate" dynamodbav:"plate" validate:"required,min=2,max=15"`
	Brand        string    `json:"brand" dynamodbav:"brand" validate:"required,max=50"`
	Model        string    `json:"model" dynamodbav:"model" validate:"required,max=50"`
	Year         int       `json:"year" dynamodbav:"year" validate:"omitempty,min=1900,max=2100"`
	Chassis      string    `json:"chassis,omitempty" dynamodbav:"chassis,omitempty" validate:"max=50"`
	Engine       string    `json:"engine,omitempty" dynamodbav:"engine,omitempty" validate:"max=50"`
	Mileage      int       `json:"mileage" dynamodbav:"mileage" validate:"min=0"`
	FuelType     FuelType  `json:"fuelType,omitempty" dynamodbav:"fuelType,omitempty" validate:"omitempty,oneof=gasoline diesel hybrid electric lpg"`
	Color        string    `json:"color,omitempty" dynamodbav:"color,omitempty"`
	Transmission string    `json:"transmission,omitempty" dynamodbav:"transmission,omitempty"`
	Notes        string    `json:"notes,omitempty" dynamodbav:"notes,omitempty" validate:"max=1000"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// IsNew reports whether the vehicle still needs to be created.
func (v *Vehicle) IsNew() bool {
	return v.ID == ""
}
