package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/filevault/filevault/internal/auth"
	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/pkg/response"
)

// AuthHandler manages registration, login, and token validation.
type AuthHandler struct {
	accounts   *iauth.AccountService
	identities *iauth.IdentityService
}

func NewAuthHandler(accounts *iauth.AccountService, identities *iauth.IdentityService) *AuthHandler {
	return &AuthHandler{accounts: accounts, identities: identities}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type validateRequest struct {
	Token string `json:"token" validate:"required"`
}

type userPayload struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
}

type authPayload struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      userPayload `json:"user"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), iauth.RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, toAuthPayload(result))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), iauth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, toAuthPayload(result))
}

// POST /api/auth/validate performs a signature/expiry check without a user lookup.
func (h *AuthHandler) Validate(c *gin.Context) {
	var req validateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"valid": h.identities.Verify(req.Token)})
}

func toAuthPayload(result *iauth.AuthResult) authPayload {
	return authPayload{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User: userPayload{
			ID:       result.User.ID,
			Email:    result.User.Email,
			FullName: result.User.FullName,
			Roles:    rolesOf(result.User),
		},
	}
}

func rolesOf(user *models.User) []string {
	return append([]string(nil), user.Roles...)
}
