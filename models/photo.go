package models

import "time"

// Photo is a stored image reference tied to exactly one service.
type Photo struct {
	ID        string    `json:"id" dynamodbav:"id"`
	ServiceID string    `json:"serviceId" dynamodbav:"serviceId"`
	Key       string    `json:"key" dynamodbav:"key"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// PhotoUpload is an image submitted with a draft, before it is stored.
type PhotoUpload struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,oneof=image/jpeg image/png image/webp image/heic"`
	Data        []byte `json:"data" validate:"required"`
}

// UploadTarget is where the bytes of a photo must be sent.
type UploadTarget struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}
