package model

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User role constants
const (
	UserRoleAdmin   = "admin"
	UserRoleDoctor  = "doctor"
	UserRolePatient = "patient"
)

// User represents a system user. The server historically returned the name
// under "fullname" on some endpoints; Normalize folds it onto Name.
type User struct {
	Base
	Name     string `json:"name" validate:"required"`
	Fullname string `json:"fullname,omitempty"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone10_11"`
	Role     string `json:"role" validate:"omitempty,oneof=admin doctor patient"`
	Status   string `json:"status" validate:"omitempty,oneof=active inactive"`

	// Password fields are only ever sent, never returned. Both blank means
	// "do not change password" and the pair is dropped from update payloads.
	Password       string `json:"password,omitempty" validate:"omitempty,min=8"`
	RetypePassword string `json:"retype_password,omitempty" validate:"eqfield=Password"`
}

func (u *User) Normalize() {
	if u.Name == "" && u.Fullname != "" {
		u.Name = u.Fullname
	}
	u.Fullname = ""
}
