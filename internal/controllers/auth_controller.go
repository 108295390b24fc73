package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/resolvehq/resolve/internal/dtos"
	"github.com/resolvehq/resolve/internal/models"
	"github.com/resolvehq/resolve/internal/services"
	"github.com/resolvehq/resolve/internal/token"
	"github.com/resolvehq/resolve/internal/utils"
)

var validate = validator.New()

// AuthController exposes the session-service boundary as thin route
// handlers: decode, validate, delegate, map errors to wire codes.
type AuthController struct {
	authService services.AuthService
}

func NewAuthController(authService services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dtos.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Email and password are required", err,
		)
		return
	}

	resp, err := c.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredentials) {
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "Invalid email or password",
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to login", err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req dtos.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid registration details", err,
		)
		return
	}

	resp, err := c.authService.Register(
		r.Context(), req.Name, req.Email, req.Password, models.Role(req.Role),
	)
	if err != nil {
		if errors.Is(err, utils.ErrEmailExists) {
			utils.RespondErrorWithCode(
				w, http.StatusConflict, utils.ErrCodeConflict, "User with this email already exists",
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to register user", err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dtos.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Refresh token is required", err,
		)
		return
	}

	resp, err := c.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrRefreshRevoked), errors.Is(err, token.ErrTokenExpired):
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeRefreshRevoked, "Refresh token is no longer valid",
			)
		case errors.Is(err, token.ErrTokenMalformed):
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid refresh token",
			)
		default:
			utils.RespondErrorWithCode(
				w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to refresh tokens", err,
			)
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	accessToken := strings.TrimPrefix(header, "Bearer ")
	if accessToken == "" || accessToken == header {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Access token required",
		)
		return
	}

	// Logout never fails from the caller's perspective; revocation is
	// best-effort and any store trouble has already been logged.
	_ = c.authService.Logout(r.Context(), accessToken)

	utils.RespondWithJSON(w, http.StatusOK, dtos.LogoutResponse{Message: "Logged out successfully"})
}
