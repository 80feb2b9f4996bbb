// FILE: internal/dto/usage_dto.go
// DTOs for the monthly usage quota
package dto

import (
	"time"
)

// UsageStatusResponse is returned by GET /api/user/usage-status
type UsageStatusResponse struct {
	Plan     string    `json:"plan"`
	Used     int       `json:"used"`
	Limit    int       `json:"limit"`
	CanUse   bool      `json:"can_use"`
	ResetsAt time.Time `json:"resets_at"`
}
