// User HTTP handlers.
//
// This file exposes REST endpoints for accounts:
//   - POST /users        (register)
//   - POST /users/login  (verify credentials)
//
// Passwords travel only in request bodies and never appear in responses;
// the domain.User JSON shape hides the stored digest.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-search-backend/internal/services"
)

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the JSON payload for verifying credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

//
// Handlers
//

// Register creates a new account.
//
// POST /users
//
// Responses:
//
//	201 domain.User (password omitted)
//	400 malformed body or blank fields
//	409 email already registered
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email and password (min 6 chars) are required")
		return
	}

	u, err := h.userSvc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
		case errors.Is(err, services.ErrInvalidInput):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeRegisterFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, u)
}

// Login verifies credentials.
//
// POST /users/login
//
// Responses:
//
//	200 domain.User (password omitted)
//	400 malformed body
//	404 unknown email
//	401 wrong password
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	u, err := h.userSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credentials")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeLoginFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, u)
}
