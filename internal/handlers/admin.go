package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"flowershop/internal/apperr"
	"flowershop/internal/nullable"
	"flowershop/internal/service"
)

type adminCreateRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=6"`
}

// adminUpdateRequest — пустой или отсутствующий пароль оставляет старый
type adminUpdateRequest struct {
	Username nullable.Field[string] `json:"username"`
	Password nullable.Field[string] `json:"password"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) createAdmin(c *gin.Context) {
	var req adminCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.admins.Create(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAdmin(a))
}

func (h *Handler) listAdmins(c *gin.Context) {
	list, err := h.admins.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdmins(list))
}

func (h *Handler) getAdmin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.admins.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdmin(a))
}

func (h *Handler) updateAdmin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req adminUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.admins.Update(c.Request.Context(), id, service.AdminPatch{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdmin(a))
}

func (h *Handler) deleteAdmin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.admins.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	// удалили сами себя — сессия больше не действительна
	if current, ok := sessionAdmin(c); ok && current == id {
		sess := sessions.Default(c)
		sess.Clear()
		_ = sess.Save()
	}
	c.Status(http.StatusNoContent)
}

// login кладёт id админа в cookie-сессию
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.admins.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionAdminID, a.ID)
	if err := sess.Save(); err != nil {
		writeError(c, apperr.Internal(err, "failed to save session"))
		return
	}
	c.JSON(http.StatusOK, toAdmin(a))
}

func (h *Handler) logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	id, ok := sessionAdmin(c)
	if !ok {
		writeError(c, apperr.Unauthorized("Not logged in"))
		return
	}
	a, err := h.admins.Get(c.Request.Context(), id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			sess := sessions.Default(c)
			sess.Clear()
			_ = sess.Save()
			writeError(c, apperr.Unauthorized("Not logged in"))
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdmin(a))
}
