package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an owning principal for submitted jobs. Account management lives
// outside this service; the queue only validates that an owner exists.
type User struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	Username      string    `db:"username"       json:"username"`
	Email         string    `db:"email"          json:"email"`
	TotalAnalyses int       `db:"total_analyses" json:"total_analyses"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
}
