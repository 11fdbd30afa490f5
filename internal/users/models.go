package users

import "time"

// User is an account row (user_details).
//
// Credit is mutated only by the credits service (deduction/reconciliation);
// user management never touches it after the signup grant.
type User struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	// PasswordHash is a bcrypt digest; the salt is embedded.
	PasswordHash string `json:"-" db:"password_hash"`

	Role string `json:"role" db:"role"`

	Credit int64 `json:"credit" db:"credit"`

	SignupTime time.Time  `json:"signup_time" db:"signup_time"`
	LastLogin  *time.Time `json:"last_login,omitempty" db:"last_login"`
}
