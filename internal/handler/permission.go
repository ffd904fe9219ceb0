package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/permission"
)

// PermissionHandler 권한 레코드 API
//
// Creating a record for a resource that has none is open to any
// resolved actor (the resource was just born, nobody holds moderator on
// it yet); every mutation of an existing record requires moderator.
type PermissionHandler struct {
	perms *permission.Service
}

func NewPermissionHandler(perms *permission.Service) *PermissionHandler {
	return &PermissionHandler{perms: perms}
}

func (h *PermissionHandler) kind(c *fiber.Ctx) (permission.ResourceKind, bool, error) {
	kind := permission.ResourceKind(c.Params("kind"))
	if !kind.Valid() {
		return "", false, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown resource kind",
		})
	}
	return kind, true, nil
}

// requireModeratorIfExists gates mutation: an existing record demands
// moderator scope, an absent one is claimable.
func (h *PermissionHandler) requireModeratorIfExists(c *fiber.Ctx, kind permission.ResourceKind, key string) (bool, error) {
	actor := auth.FromFiber(c)
	if !actor.Resolved {
		return false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid token",
		})
	}
	_, exists, err := h.perms.GetPermission(c.Context(), key, kind)
	if err != nil {
		return false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read permissions",
		})
	}
	if !exists {
		return true, nil
	}
	return requireScope(c, h.perms, kind, key, permission.CapabilityModerator)
}

// GrantRequest 그룹별 스코프 오브젝트 (생략된 그룹은 언급 없음)
type GrantRequest struct {
	Anonymous any            `json:"anonymous"`
	LoggedIn  any            `json:"loggedIn"`
	User      map[string]any `json:"user"`
}

func (r GrantRequest) grant(kind permission.ResourceKind) (permission.Grant, error) {
	var grant permission.Grant
	if r.Anonymous != nil {
		ss, err := permission.ScopeSetFromValue(kind, r.Anonymous)
		if err != nil {
			return permission.Grant{}, err
		}
		grant.Anonymous = &ss
	}
	if r.LoggedIn != nil {
		ss, err := permission.ScopeSetFromValue(kind, r.LoggedIn)
		if err != nil {
			return permission.Grant{}, err
		}
		grant.LoggedIn = &ss
	}
	if len(r.User) > 0 {
		grant.User = make(map[string]*permission.ScopeSet, len(r.User))
		for uid, v := range r.User {
			ss, err := permission.ScopeSetFromValue(kind, v)
			if err != nil {
				return permission.Grant{}, err
			}
			grant.User[uid] = &ss
		}
	}
	return grant, nil
}

// Put 권한 레코드 생성/전체 교체
func (h *PermissionHandler) Put(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	key := c.Params("key")
	if ok, err := h.requireModeratorIfExists(c, kind, key); !ok {
		return err
	}

	var req GrantRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	grant, err := req.grant(kind)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scope set does not match resource kind",
		})
	}
	if err := h.perms.CreatePermission(c.Context(), key, kind, grant); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to write permissions",
		})
	}
	return c.JSON(fiber.Map{
		"message": "permissions written",
	})
}

// Get 권한 레코드 원본 조회 (moderator 전용)
func (h *PermissionHandler) Get(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	key := c.Params("key")
	if ok, err := requireScope(c, h.perms, kind, key, permission.CapabilityModerator); !ok {
		return err
	}

	rec, exists, err := h.perms.GetPermission(c.Context(), key, kind)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read permissions",
		})
	}
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "permission record not found",
		})
	}

	out := fiber.Map{}
	if rec.Anonymous != nil {
		out["anonymous"] = rec.Anonymous.Capabilities()
	}
	if rec.LoggedIn != nil {
		out["loggedIn"] = rec.LoggedIn.Capabilities()
	}
	if len(rec.User) > 0 {
		users := make(map[string][]permission.Capability, len(rec.User))
		for uid, ss := range rec.User {
			users[uid] = ss.Capabilities()
		}
		out["user"] = users
	}
	return c.JSON(out)
}

// Effective 요청자 본인의 유효 스코프 조회
func (h *PermissionHandler) Effective(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	actor := auth.FromFiber(c)
	scope, err := h.perms.GetEffectiveScope(c.Context(), c.Params("key"), kind, actor)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to resolve permissions",
		})
	}
	return c.JSON(fiber.Map{
		"capabilities": scope.Capabilities(),
	})
}

// ScopeRequest 그룹 단위 스코프 추가/제거 요청
type ScopeRequest struct {
	Group  string `json:"group"`
	UID    string `json:"uid"`
	Scopes any    `json:"scopes"`
}

func (h *PermissionHandler) parseScopeRequest(c *fiber.Ctx, kind permission.ResourceKind) (permission.ScopeSet, permission.Group, string, bool, error) {
	var req ScopeRequest
	if err := c.BodyParser(&req); err != nil {
		return permission.ScopeSet{}, "", "", false, badBody(c)
	}
	scopes, err := permission.ScopeSetFromValue(kind, req.Scopes)
	if err != nil {
		return permission.ScopeSet{}, "", "", false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scopes must be an object of capability grants",
		})
	}
	return scopes, permission.Group(req.Group), req.UID, true, nil
}

// AddScopes 그룹에 스코프 병합 (레코드 없으면 생성)
func (h *PermissionHandler) AddScopes(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	key := c.Params("key")
	if ok, err := h.requireModeratorIfExists(c, kind, key); !ok {
		return err
	}
	scopes, group, uid, ok, err := h.parseScopeRequest(c, kind)
	if !ok {
		return err
	}

	if err := h.perms.AddScope(c.Context(), key, kind, scopes, group, uid); err != nil {
		return scopeWriteError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "scopes added",
	})
}

// RemoveScopes 그룹에서 스코프 제거
func (h *PermissionHandler) RemoveScopes(c *fiber.Ctx) error {
	kind, ok, err := h.kind(c)
	if !ok {
		return err
	}
	key := c.Params("key")
	if ok, err := requireScope(c, h.perms, kind, key, permission.CapabilityModerator); !ok {
		return err
	}
	scopes, group, uid, ok, err := h.parseScopeRequest(c, kind)
	if !ok {
		return err
	}

	if err := h.perms.RemoveScope(c.Context(), key, kind, scopes, group, uid); err != nil {
		return scopeWriteError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "scopes removed",
	})
}

func scopeWriteError(c *fiber.Ctx, err error) error {
	if errors.Is(err, permission.ErrScopeTypeMismatch) || errors.Is(err, permission.ErrUnknownGroup) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "failed to update permissions",
	})
}
