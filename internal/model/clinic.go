package model

// Clinic status constants
const (
	ClinicStatusActive   = "active"
	ClinicStatusInactive = "inactive"
)

type Clinic struct {
	Base
	Name         string  `json:"name" validate:"required"`
	Address      string  `json:"address" validate:"required"`
	Phone        string  `json:"phone" validate:"required,phone10_11"`
	Email        string  `json:"email" validate:"required,email"`
	Description  string  `json:"description"`
	ImageURL     string  `json:"image_url"`
	Price        float64 `json:"price" validate:"gte=0"`
	BookingLimit int     `json:"booking_limit" validate:"required,gte=1,lte=50"`
	Status       string  `json:"status" validate:"omitempty,oneof=active inactive"`
}
