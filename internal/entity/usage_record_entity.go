package entity

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord holds one user's billable action counters for a single calendar day.
// At most one record exists per (user, day); counters only ever grow.
type UsageRecord struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	UsageDate time.Time // truncated to day
	Messages  int
	Uploads   int
	Repos     int
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (r *UsageRecord) Total() int {
	return r.Messages + r.Uploads + r.Repos
}
