package handler

import (
	"github.com/gofiber/fiber/v2"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/permission"
)

// requireScope resolves the actor's effective scope on one resource and
// checks a single capability. On failure the response is already
// written; callers just return the error.
func requireScope(c *fiber.Ctx, perms *permission.Service, kind permission.ResourceKind, key string, cap permission.Capability) (bool, error) {
	actor := auth.FromFiber(c)
	scope, err := perms.GetEffectiveScope(c.Context(), key, kind, actor)
	if err != nil {
		return false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to resolve permissions",
		})
	}
	if !scope.Has(cap) {
		return false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient scope",
		})
	}
	return true, nil
}
