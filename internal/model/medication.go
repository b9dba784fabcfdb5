package model

// Medication is a prescribable item managed from the admin dashboard. Some
// endpoints return the name under "medicationName"; Normalize folds it
// onto Name.
type Medication struct {
	Base
	Name           string  `json:"name" validate:"required"`
	MedicationName string  `json:"medicationName,omitempty"`
	Description    string  `json:"description"`
	Unit           string  `json:"unit" validate:"required"`
	Price          float64 `json:"price" validate:"gte=0"`
	Status         string  `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (m *Medication) Normalize() {
	if m.Name == "" && m.MedicationName != "" {
		m.Name = m.MedicationName
	}
	m.MedicationName = ""
}
