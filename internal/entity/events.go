package entity

import "github.com/google/uuid"

// EventSchemaVersion travels in the "schema-version" header of every event.
// Bump it when a field below changes meaning.
const EventSchemaVersion = "1"

type ReceivedEvent struct {
	ImageID         uuid.UUID `json:"imageId"`
	UserID          string    `json:"userId"`
	StorageLocation string    `json:"storageLocation"`
}

type ProcessedEvent struct {
	ImageID           uuid.UUID `json:"imageId"`
	OriginalLocation  string    `json:"originalLocation"`
	ThumbnailLocation string    `json:"thumbnailLocation"`
}
