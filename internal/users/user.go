package users

import (
	"errors"
	"fmt"
	"strings"
)

// Status enumerates the lifecycle states a user record can be in.
type Status string

const (
	// StatusActive marks a user that can sign in.
	StatusActive Status = "active"
	// StatusInactive marks a user that has been disabled.
	StatusInactive Status = "inactive"
)

const (
	legacyStatusActive   = "ativo"
	legacyStatusInactive = "inativo"
)

// ErrInvalidStatus indicates the supplied status is not one of the enumerated values.
var ErrInvalidStatus = errors.New("users: invalid status")

// ParseStatus normalizes raw input into a Status. Legacy aliases are accepted.
func ParseStatus(rawInput string) (Status, error) {
	switch strings.ToLower(normalize(rawInput)) {
	case string(StatusActive), legacyStatusActive:
		return StatusActive, nil
	case string(StatusInactive), legacyStatusInactive:
		return StatusInactive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, rawInput)
	}
}

// String returns the underlying status value.
func (s Status) String() string {
	return string(s)
}

// User models a persisted user record.
type User struct {
	ID               string `json:"id" gorm:"column:id;primaryKey;size:190;not null"`
	Name             string `json:"name" gorm:"column:name;size:320;not null"`
	Email            string `json:"email" gorm:"column:email;size:320;not null;uniqueIndex"`
	Status           Status `json:"status" gorm:"column:status;size:32;not null;default:'active'"`
	CreatedAtSeconds int64  `json:"created_at_s" gorm:"column:created_at_s;not null;index"`
	UpdatedAtSeconds int64  `json:"updated_at_s" gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// Draft carries the editable fields of a user record.
type Draft struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status Status `json:"status"`
}

// DraftFrom copies the editable fields of an existing record.
func DraftFrom(user User) Draft {
	return Draft{
		Name:   user.Name,
		Email:  user.Email,
		Status: user.Status,
	}
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}
