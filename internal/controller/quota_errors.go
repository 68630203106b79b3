package controller

import (
	"errors"

	"ragchat-be/internal/dto"
	"ragchat-be/internal/service"
	"ragchat-be/pkg/quota"

	"github.com/gofiber/fiber/v2"
)

// respondQuotaExceeded renders a 429 with the usage snapshot when err is a
// quota denial; otherwise it passes the error through to the error handler.
func respondQuotaExceeded(ctx *fiber.Ctx, err error) error {
	var quotaErr *service.QuotaExceededError
	if !errors.As(err, &quotaErr) {
		return err
	}

	message := "You have reached your daily usage limit. Try again tomorrow."
	if quotaErr.Decision.Reason == quota.ReasonMonthlyLimitExceeded {
		message = "You have reached your monthly usage limit."
	}

	return ctx.Status(fiber.StatusTooManyRequests).JSON(dto.QuotaExceededResponse{
		Message: message,
		Usage:   quotaErr.Decision.Snapshot,
		Code:    dto.QuotaExceededCode,
	})
}
