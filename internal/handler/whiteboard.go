package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/board"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/permission"
)

// WhiteboardHandler 화이트보드 컨테이너 핸들러
type WhiteboardHandler struct {
	boards *board.Whiteboards
	perms  *permission.Service
}

func NewWhiteboardHandler(boards *board.Whiteboards, perms *permission.Service) *WhiteboardHandler {
	return &WhiteboardHandler{boards: boards, perms: perms}
}

// List 화이트보드 목록 조회
func (h *WhiteboardHandler) List(c *fiber.Ctx) error {
	boards, err := h.boards.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list whiteboards",
		})
	}
	return c.JSON(fiber.Map{
		"whiteboards": boards,
	})
}

// Create 화이트보드 생성
//
// The creator gets the full scope set on the new board; other logged-in
// users may read and write, anonymous visitors may read. An anonymous
// creator gets no per-user entry (there is no subject to attach it to).
func (h *WhiteboardHandler) Create(c *fiber.Ctx) error {
	var opts model.WhiteboardOptions
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&opts); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}

	actor := auth.FromFiber(c)
	if !actor.Resolved {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid token",
		})
	}

	id, err := h.boards.Create(c.Context(), actor, opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create whiteboard",
		})
	}

	anonymous := permission.NewWhiteboardScopes(map[permission.Capability]bool{
		permission.CapabilityRead: true,
	})
	loggedIn := permission.NewWhiteboardScopes(map[permission.Capability]bool{
		permission.CapabilityRead:  true,
		permission.CapabilityWrite: true,
	})
	grant := permission.Grant{Anonymous: &anonymous, LoggedIn: &loggedIn}
	if actor.LoggedIn() {
		creator := permission.NewWhiteboardScopes(map[permission.Capability]bool{
			permission.CapabilityRead:      true,
			permission.CapabilityWrite:     true,
			permission.CapabilityModerator: true,
		})
		grant.User = map[string]*permission.ScopeSet{actor.UID: &creator}
	}
	if err := h.perms.CreatePermission(c.Context(), id, permission.ResourceWhiteboard, grant); err != nil {
		log.Printf("[Whiteboard] permission seed failed for %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to initialize permissions",
		})
	}

	wb, err := h.boards.Get(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read whiteboard",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         id,
		"whiteboard": wb,
	})
}

// Get 화이트보드 단건 조회
func (h *WhiteboardHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if ok, err := requireScope(c, h.perms, permission.ResourceWhiteboard, id, permission.CapabilityRead); !ok {
		return err
	}

	wb, err := h.boards.Get(id)
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "whiteboard not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read whiteboard",
		})
	}
	return c.JSON(fiber.Map{
		"id":         id,
		"whiteboard": wb,
	})
}

// UpdateRequest 이름/배경 변경 요청 (nil 필드는 변경 없음)
type UpdateRequest struct {
	Name       *string `json:"name"`
	Background *string `json:"background"`
}

// Update 화이트보드 이름/배경 변경
func (h *WhiteboardHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if ok, err := requireScope(c, h.perms, permission.ResourceWhiteboard, id, permission.CapabilityModerator); !ok {
		return err
	}

	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Name == nil && req.Background == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "nothing to update",
		})
	}

	if req.Name != nil {
		if err := h.boards.Rename(c.Context(), id, *req.Name); err != nil {
			return whiteboardWriteError(c, err)
		}
	}
	if req.Background != nil {
		if err := h.boards.SetBackground(c.Context(), id, *req.Background); err != nil {
			return whiteboardWriteError(c, err)
		}
	}
	return c.JSON(fiber.Map{
		"message": "whiteboard updated",
	})
}

// SnapshotRequest 스냅샷 참조 갱신 요청
type SnapshotRequest struct {
	Ref string `json:"ref"`
}

// SetSnapshot 스냅샷 참조 갱신
func (h *WhiteboardHandler) SetSnapshot(c *fiber.Ctx) error {
	id := c.Params("id")
	if ok, err := requireScope(c, h.perms, permission.ResourceWhiteboard, id, permission.CapabilityModerator); !ok {
		return err
	}

	var req SnapshotRequest
	if err := c.BodyParser(&req); err != nil || req.Ref == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ref is required",
		})
	}
	if err := h.boards.SetSnapshotRef(c.Context(), id, req.Ref); err != nil {
		return whiteboardWriteError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "snapshot updated",
	})
}

// Delete 화이트보드 삭제
func (h *WhiteboardHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if ok, err := requireScope(c, h.perms, permission.ResourceWhiteboard, id, permission.CapabilityModerator); !ok {
		return err
	}

	if err := h.boards.Delete(c.Context(), id); err != nil {
		return whiteboardWriteError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "whiteboard deleted",
	})
}

func whiteboardWriteError(c *fiber.Ctx, err error) error {
	if errors.Is(err, board.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "whiteboard not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "failed to update whiteboard",
	})
}
