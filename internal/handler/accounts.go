package handler

import (
	"errors"
	"net/http"

	"tickerpulse/internal/account"
	"tickerpulse/internal/domain"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// Register godoc
// @Summary      Create an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request  body  credentialsRequest  true  "Username and password"
// @Success      201  {object}  domain.User
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/accounts/register [post]
func (h *Handler) Register(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.register")
	defer span.End()

	if !h.requireAccounts(c) {
		return
	}
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	user, err := h.accounts.Register(ctx, req.Username, req.Password)
	if err != nil {
		writeAccountError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary      Exchange credentials for a bearer token
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request  body  credentialsRequest  true  "Username and password"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/accounts/login [post]
func (h *Handler) Login(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.login")
	defer span.End()

	if !h.requireAccounts(c) {
		return
	}
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	token, err := h.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		writeAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "token_type": "Bearer"})
}

// ChangePassword godoc
// @Summary      Change the signed-in user's password
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request  body  changePasswordRequest  true  "Old password, new password and confirmation"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/accounts/password [post]
func (h *Handler) ChangePassword(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.change-password")
	defer span.End()

	if !h.requireAccounts(c) {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	err := h.accounts.ChangePassword(ctx, sessionUser(c), req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		writeAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

// DeleteAccount godoc
// @Summary      Delete the signed-in user's account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request  body  credentialsRequest  true  "Username and password of the signed-in account"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/accounts/delete [post]
func (h *Handler) DeleteAccount(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.delete-account")
	defer span.End()

	if !h.requireAccounts(c) {
		return
	}
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := h.accounts.Delete(ctx, sessionUser(c), req.Username, req.Password); err != nil {
		writeAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "account deleted"})
}

func (h *Handler) requireAccounts(c *gin.Context) bool {
	if h.accounts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts are not configured"})
		return false
	}
	return true
}

func writeAccountError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, account.ErrPasswordMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, account.ErrUsernameTaken):
		status = http.StatusConflict
	case errors.Is(err, account.ErrInvalidCredentials), errors.Is(err, account.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, account.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, account.ErrUserNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
