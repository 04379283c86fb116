package types

import (
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role tags which identity space an account belongs to
type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleEmployee Role = "EMPLOYEE"
)

// Account holds the identity fields shared by clients and employees.
// Clients and employees are separate entities that both embed it; no
// behaviour is dispatched on the embedding type.
type Account struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
}

// Client is a customer account with a monetary balance
type Client struct {
	Account
	Balance decimal.Decimal `json:"balance"`
	Blocked bool            `json:"blocked"`
}

// Employee is a staff account that confirms orders
type Employee struct {
	Account
	BirthDate time.Time `json:"birth_date"`
	Phone     string    `json:"phone"`
}

// Principal is the role-tagged view of an account used at the
// account-lookup boundary (authentication, blocking checks).
type Principal struct {
	Role    Role   `json:"role"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Blocked bool   `json:"blocked"`
}

// ClientRegistration is the input for creating a client
type ClientRegistration struct {
	Email    string
	Password string
	Name     string
	Balance  decimal.Decimal
}

// Validate checks a client registration
func (r *ClientRegistration) Validate() error {
	if err := validateIdentity(r.Email, r.Password, r.Name); err != nil {
		return err
	}
	if r.Balance.IsNegative() {
		return NewValidationError("balance", "cannot be negative")
	}
	if err := ValidateMoneyScale("balance", r.Balance); err != nil {
		return err
	}
	return nil
}

// EmployeeRegistration is the input for creating an employee
type EmployeeRegistration struct {
	Email     string
	Password  string
	Name      string
	BirthDate time.Time
	Phone     string
}

// Validate checks an employee registration. now bounds the birth date.
func (r *EmployeeRegistration) Validate(now time.Time) error {
	if err := validateIdentity(r.Email, r.Password, r.Name); err != nil {
		return err
	}
	if r.BirthDate.IsZero() || !r.BirthDate.Before(now) {
		return NewValidationError("birth_date", "must be in the past")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return NewValidationError("phone", "cannot be empty")
	}
	return nil
}

// ClientUpdate is the explicit partial update of a client profile.
// Balance and the blocked flag are never touched by profile updates;
// Password is applied only when non-blank.
type ClientUpdate struct {
	Name     string
	Password string
}

// EmployeeUpdate is the explicit partial update of an employee profile.
// Password is applied only when non-blank.
type EmployeeUpdate struct {
	Name      string
	Phone     string
	BirthDate time.Time
	Password  string
}

func validateIdentity(email, password, name string) error {
	if strings.TrimSpace(email) == "" {
		return NewValidationError("email", "cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return NewValidationError("email", "has an invalid format")
	}
	if len(password) < 4 {
		return NewValidationError("password", "must be at least 4 characters")
	}
	if strings.TrimSpace(name) == "" {
		return NewValidationError("name", "cannot be empty")
	}
	return nil
}
