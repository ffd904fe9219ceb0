package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/board"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/permission"
)

// EntityHandler 마킹/텍스트/도형 공통 핸들러
//
// The three kinds share one route shape; the :collection segment picks
// the kind and the body shape follows it.
type EntityHandler struct {
	sync  *board.Synchronizer
	perms *permission.Service
}

func NewEntityHandler(sync *board.Synchronizer, perms *permission.Service) *EntityHandler {
	return &EntityHandler{sync: sync, perms: perms}
}

// kindFromCollection URL 세그먼트를 엔티티 종류로 변환
func kindFromCollection(segment string) (model.EntityKind, bool) {
	switch segment {
	case "markings":
		return model.KindMarking, true
	case "texts":
		return model.KindText, true
	case "shapes":
		return model.KindShape, true
	}
	return "", false
}

func (h *EntityHandler) kind(c *fiber.Ctx) (model.EntityKind, bool, error) {
	kind, ok := kindFromCollection(c.Params("collection"))
	if !ok {
		return "", false, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown collection",
		})
	}
	return kind, true, nil
}

// List 컬렉션 전체를 컴팩션된 상태로 조회
func (h *EntityHandler) List(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	whiteboardID := c.Params("id")
	if ok, err := requireScope(c, h.perms, permission.ResourceWhiteboard, whiteboardID, permission.CapabilityRead); !ok {
		return err
	}

	entities, err := h.sync.List(whiteboardID, kind)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list entities",
		})
	}
	return c.JSON(fiber.Map{
		"entities": entities,
	})
}

// Get 엔티티 단건을 컴팩션된 상태로 조회
func (h *EntityHandler) Get(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	whiteboardID := c.Params("id")
	if ok, err := requireScope(c, h.perms, permission.ResourceWhiteboard, whiteboardID, permission.CapabilityRead); !ok {
		return err
	}

	entity, err := h.sync.Get(whiteboardID, kind, c.Params("key"))
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "entity not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read entity",
		})
	}
	return c.JSON(fiber.Map{
		"entity": entity,
	})
}

// Create 엔티티 생성
func (h *EntityHandler) Create(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	whiteboardID := c.Params("id")
	if ok, err := requireScope(c, h.perms, permission.ResourceWhiteboard, whiteboardID, permission.CapabilityWrite); !ok {
		return err
	}
	actor := auth.FromFiber(c)

	var key string
	switch kind {
	case model.KindMarking:
		opts := model.MarkingOptions{Style: model.DefaultStyle()}
		if err := c.BodyParser(&opts); err != nil {
			return badBody(c)
		}
		key, err = h.sync.CreateMarking(c.Context(), whiteboardID, actor, opts)
	case model.KindText:
		opts := model.TextOptions{Style: model.DefaultStyle(), Font: model.DefaultFont()}
		if err := c.BodyParser(&opts); err != nil {
			return badBody(c)
		}
		key, err = h.sync.CreateText(c.Context(), whiteboardID, actor, opts)
	case model.KindShape:
		opts := model.ShapeOptions{Style: model.DefaultStyle()}
		if err := c.BodyParser(&opts); err != nil {
			return badBody(c)
		}
		key, err = h.sync.CreateShape(c.Context(), whiteboardID, actor, opts)
		if err != nil && !opts.ShapeType.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown shape type",
			})
		}
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create entity",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key": key,
	})
}

// Edit 엔티티 편집 로그에 변경 추가
func (h *EntityHandler) Edit(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	whiteboardID := c.Params("id")
	if ok, err := requireScope(c, h.perms, permission.ResourceWhiteboard, whiteboardID, permission.CapabilityWrite); !ok {
		return err
	}

	var changes map[string]any
	if err := c.BodyParser(&changes); err != nil || len(changes) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "edit body must be a non-empty object",
		})
	}

	if err := h.sync.Edit(c.Context(), whiteboardID, kind, c.Params("key"), changes); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to record edit",
		})
	}
	return c.JSON(fiber.Map{
		"message": "edit recorded",
	})
}

// Erase 엔티티 소거 (톰스톤 기록, 이력 보존)
func (h *EntityHandler) Erase(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	whiteboardID := c.Params("id")
	if ok, err := requireScope(c, h.perms, permission.ResourceWhiteboard, whiteboardID, permission.CapabilityWrite); !ok {
		return err
	}

	if err := h.sync.Erase(c.Context(), whiteboardID, kind, c.Params("key")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to erase entity",
		})
	}
	return c.JSON(fiber.Map{
		"message": "entity erased",
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid request body",
	})
}
