package dto

import (
	"ragchat-be/pkg/quota"
)

type UpdateLimitsRequest struct {
	DailyLimit   *int `json:"daily_limit" validate:"omitempty,min=1,max=100000"`
	MonthlyLimit *int `json:"monthly_limit" validate:"omitempty,min=1,max=1000000"`
}

// QuotaExceededResponse is the 429 body. Code is stable for client dispatch;
// Usage lets the client render the exhausted window without a second call.
type QuotaExceededResponse struct {
	Message string          `json:"message"`
	Usage   *quota.Snapshot `json:"usage"`
	Code    string          `json:"code"`
}

const QuotaExceededCode = "USAGE_LIMIT_EXCEEDED"
