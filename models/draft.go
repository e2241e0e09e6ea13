package models

// IntakeDraft is everything collected at reception for a new service.
// Client and Vehicle may be pre-existing (ID set) or new.
type IntakeDraft struct {
	Client  Client        `json:"client" validate:"-"`
	Vehicle Vehicle       `json:"vehicle" validate:"-"`
	Service Service       `json:"service" validate:"-"`
	Photos  []PhotoUpload `json:"photos" validate:"dive"`
}
