package model

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError is a form-level violation caught before any mutation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func email(field, value string) error {
	if err := required(field, value); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(value); err != nil {
		return &ValidationError{Field: field, Message: "is not a valid email address"}
	}
	return nil
}

// Validate checks the fields a new task must carry
func (t Task) Validate() error {
	if err := required(FieldTitle, t.Title); err != nil {
		return err
	}
	if err := required(FieldProjectID, t.ProjectID); err != nil {
		return err
	}
	if err := required("createdById", t.CreatedByID); err != nil {
		return err
	}
	if t.Status != "" && !t.Status.Valid() {
		return &ValidationError{Field: FieldStatus, Message: fmt.Sprintf("unknown status %q", t.Status)}
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return &ValidationError{Field: FieldPriority, Message: fmt.Sprintf("unknown priority %q", t.Priority)}
	}
	if t.HourlyRate != nil && *t.HourlyRate < 0 {
		return &ValidationError{Field: FieldHourlyRate, Message: "must not be negative"}
	}
	return nil
}

// Validate checks the fields a new project must carry
func (p Project) Validate() error {
	return required(FieldName, p.Name)
}

// Validate checks the fields a new client must carry
func (c Client) Validate() error {
	if err := required(FieldName, c.Name); err != nil {
		return err
	}
	return email(FieldEmail, c.Email)
}

// Validate checks the fields a new user must carry
func (u User) Validate() error {
	if err := required(FieldName, u.Name); err != nil {
		return err
	}
	return email(FieldEmail, u.Email)
}

// Validate checks the fields a new team must carry
func (t Team) Validate() error {
	return required(FieldName, t.Name)
}

// Validate checks the fields a new invitation must carry
func (i Invitation) Validate() error {
	if err := email(FieldEmail, i.Email); err != nil {
		return err
	}
	if i.Role != "" && i.Role != RoleAdmin && i.Role != RoleMember {
		return &ValidationError{Field: FieldRole, Message: fmt.Sprintf("unknown role %q", i.Role)}
	}
	return nil
}
