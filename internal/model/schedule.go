package model

// Schedule is a doctor's bookable slot block for one day. Times are
// zero-padded "HH:MM" strings as submitted by the schedule form, so the
// lexicographic gtfield comparison matches chronological order.
type Schedule struct {
	Base
	DoctorID  string `json:"doctor_id" validate:"required"`
	ClinicID  string `json:"clinic_id" validate:"required"`
	Date      string `json:"date" validate:"required,datevalue,futuredate"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required,gtfield=StartTime"`
	Capacity  int    `json:"capacity" validate:"gte=0"`
	Status    string `json:"status" validate:"omitempty,oneof=active inactive"`
}
