package model

// Refund status constants
const (
	RefundStatusPending  = "pending"
	RefundStatusRefunded = "refunded"
)

// RefundInvoice records a booking refund handled from the admin dashboard.
type RefundInvoice struct {
	Base
	BookingID   string  `json:"booking_id" validate:"required"`
	PatientName string  `json:"patient_name" validate:"required"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	DateRefund  string  `json:"date_refund" validate:"omitempty,datevalue"`
	Status      string  `json:"status" validate:"omitempty,oneof=pending refunded"`
	Reason      string  `json:"reason"`
}
