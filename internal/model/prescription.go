package model

// PrescriptionItem is one medication line on a prescription.
type PrescriptionItem struct {
	MedicationID string `json:"medication_id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Dosage       string `json:"dosage" validate:"required"`
	Duration     string `json:"duration"`
}

// Prescription is written from the doctor portal and delivered to the
// patient by email.
type Prescription struct {
	Base
	BookingID    string             `json:"booking_id" validate:"required"`
	DoctorID     string             `json:"doctor_id" validate:"required"`
	PatientName  string             `json:"patient_name" validate:"required"`
	PatientEmail string             `json:"patient_email" validate:"required,email"`
	Items        []PrescriptionItem `json:"items" validate:"required,min=1,dive"`
	Notes        string             `json:"notes"`
}
