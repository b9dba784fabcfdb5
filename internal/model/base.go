package model

import (
	"time"
)

// Base contains common fields shared by all entities. IDs are assigned by
// the server and never regenerated client-side.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// EntityID satisfies the resource and controller id accessors.
func (b Base) EntityID() string { return b.ID }

// Entity is any record with a stable unique id.
type Entity interface {
	EntityID() string
}

// Normalizer is implemented by entities whose server representation uses
// field aliases ("fullname" vs "name"). Normalize folds aliases onto the
// canonical field and is called once, right after decoding.
type Normalizer interface {
	Normalize()
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}
