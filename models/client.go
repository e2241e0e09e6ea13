package models

import "time"

// Client is a workshop customer. Identification is the natural key.
type Client struct {
	ID             string    `json:"id" dynamodbav:"id"`
	Name           string    `json:"name" dynamodbav:"name" validate:"required,max=100"`
	FirstSurname   string    `json:"firstSurname" dynamodbav:"firstSurname" validate:"required,max=100"`
	SecondSurname  string    `json:"secondSurname,omitempty" dynamodbav:"secondSurname,omitempty" validate:"max=100"`
	Identification string    `json:"identification" dynamodbav:"identification" validate:"required,min=5,max=30"`
	Email          string    `json:"email,omitempty" dynamodbav:"email,omitempty" validate:"omitempty,email"`
	Phone          string    `json:"phone,omitempty" dynamodbav:"phone,omitempty" validate:"omitempty,min=8,max=20"`
	Province       string    `json:"province,omitempty" dynamodbav:"province,omitempty"`
	Canton         string    `json:"canton,omitempty" dynamodbav:"canton,omitempty"`
	District       string    `json:"district,omitempty" dynamodbav:"district,omitempty"`
	Address        string    `json:"address,omitempty" dynamodbav:"address,omitempty" validate:"max=500"`
	CreatedAt      time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// IsNew reports whether the client still needs to be created.
func (c *Client) IsNew() bool {
	return c.ID == ""
}

// Location is a province/canton pair known to the workshop.
type Location struct {
	ID       string `json:"id" dynamodbav:"id"`
	Province string `json:"province" dynamodbav:"province"`
	Canton   string `json:"canton" dynamodbav:"canton"`
}

// LocationID builds the key used by the locations table.
func LocationID(province, canton string) string {
	return province + "#" + canton
}
