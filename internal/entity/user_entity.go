package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID
	Email        string
	FullName     string
	PasswordHash string

	// Quota overrides. Nil means the system default applies.
	DailyLimit   *int
	MonthlyLimit *int

	CreatedAt time.Time
	UpdatedAt *time.Time
}
