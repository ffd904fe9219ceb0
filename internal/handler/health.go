package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

var startedAt = time.Now()

// Health 헬스체크
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(startedAt).String(),
	})
}
