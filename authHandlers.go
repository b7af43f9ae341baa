package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/costbook_backend/models"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (a *api) register(c *gin.Context) {
	var input models.NewUser
	if err := bindJSON(c, &input); err != nil {
		a.faults.Respond(c, "AuthHandlers", "register", err)
		return
	}
	info, err := models.Register(c.Request.Context(), &input)
	if err != nil {
		a.faults.Respond(c, "AuthHandlers", "register", err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (a *api) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		a.faults.Respond(c, "AuthHandlers", "login", err)
		return
	}
	info, err := models.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.faults.Respond(c, "AuthHandlers", "login", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (a *api) logout(c *gin.Context) {
	ok, err := models.Logout(c.Request.Context())
	if err != nil {
		a.faults.Respond(c, "AuthHandlers", "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

func (a *api) getMe(c *gin.Context) {
	user, err := models.GetCurrentUser(c.Request.Context())
	if err != nil {
		a.faults.Respond(c, "AuthHandlers", "getMe", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *api) updateMe(c *gin.Context) {
	var input models.UpdateProfileInput
	if err := bindJSON(c, &input); err != nil {
		a.faults.Respond(c, "AuthHandlers", "updateMe", err)
		return
	}
	user, err := models.UpdateProfile(c.Request.Context(), &input)
	if err != nil {
		a.faults.Respond(c, "AuthHandlers", "updateMe", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *api) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		a.faults.Respond(c, "AuthHandlers", "changePassword", err)
		return
	}
	user, err := models.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword)
	if err != nil {
		a.faults.Respond(c, "AuthHandlers", "changePassword", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
