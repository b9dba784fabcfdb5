package model

// Contact status constants
const (
	ContactStatusNew     = "new"
	ContactStatusReplied = "replied"
)

// Contact is a message submitted through the public contact form.
type Contact struct {
	Base
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,phone10_15"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
	Status  string `json:"status" validate:"omitempty,oneof=new replied"`
}
