package model

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusExamined  BookingStatus = "examined"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BadgeKind is the visual classification a booking status maps to.
type BadgeKind string

const (
	BadgeWarning BadgeKind = "warning"
	BadgeSuccess BadgeKind = "success"
	BadgeInfo    BadgeKind = "info"
	BadgeDanger  BadgeKind = "danger"
	BadgeDefault BadgeKind = "default"
)

// Badge maps a booking status to its display badge.
func (s BookingStatus) Badge() BadgeKind {
	switch s {
	case BookingStatusPending:
		return BadgeWarning
	case BookingStatusConfirmed:
		return BadgeSuccess
	case BookingStatusExamined:
		return BadgeInfo
	case BookingStatusCancelled:
		return BadgeDanger
	default:
		return BadgeDefault
	}
}

type Booking struct {
	Base
	PatientName  string        `json:"patient_name" validate:"required"`
	PatientPhone string        `json:"patient_phone" validate:"required,phone10_15"`
	PatientEmail string        `json:"patient_email" validate:"required,email"`
	ClinicID     string        `json:"clinic_id" validate:"required"`
	DoctorID     string        `json:"doctor_id"`
	Date         string        `json:"date" validate:"required,datevalue"`
	TimeSlot     string        `json:"time_slot" validate:"required"`
	Status       BookingStatus `json:"status"`
	Price        float64       `json:"price" validate:"gte=0"`
	Reason       string        `json:"reason"`
}
