package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homeserve/internal/config"
	apperrors "homeserve/internal/errors"
	"homeserve/internal/logger"
	"homeserve/internal/metrics"
	"homeserve/internal/middleware"
	"homeserve/internal/models"
	"homeserve/internal/services"
	"homeserve/internal/validator"
)

// TokenRevoker deny-lists an access token id until it would expire anyway.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService         services.UserServicer
	verificationService services.VerificationServicer
	auditService        services.AuditServicer
	revoker             TokenRevoker
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	userService services.UserServicer,
	verificationService services.VerificationServicer,
	auditService services.AuditServicer,
	revoker TokenRevoker,
) *AuthHandler {
	return &AuthHandler{
		userService:         userService,
		verificationService: verificationService,
		auditService:        auditService,
		revoker:             revoker,
	}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username             string `json:"username" binding:"required,username"`
	Name                 string `json:"name" binding:"required,max=50"`
	Email                string `json:"email" binding:"omitempty,email,max=255"`
	Phone                string `json:"phone" binding:"omitempty,cn_mobile"`
	Password             string `json:"password" binding:"required,min=6,max=20"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=20"`
	Password string `json:"password" binding:"required"`
}

// EmailLoginRequest logs in with a mailed verification code.
type EmailLoginRequest struct {
	Username string `json:"username" binding:"required,max=20"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Code     string `json:"code" binding:"required,len=6,digits"`
}

// SendEmailCodeRequest asks for a verification code to be mailed.
type SendEmailCodeRequest struct {
	Username string `json:"username" binding:"required,max=20"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Purpose  string `json:"purpose" binding:"required,code_purpose"`
}

// ResetPasswordRequest sets a new password using a reset_password code.
type ResetPasswordRequest struct {
	Username             string `json:"username" binding:"required,max=20"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Code                 string `json:"code" binding:"required,len=6,digits"`
	Password             string `json:"password" binding:"required,min=6,max=20"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// RefreshRequest carries the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID          uint              `json:"id"`
	Username    string            `json:"username"`
	Name        string            `json:"name"`
	Email       *string           `json:"email"`
	Phone       *string           `json:"phone"`
	Avatar      *string           `json:"avatar"`
	Status      models.UserStatus `json:"status"`
	Roles       []string          `json:"roles,omitempty"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AuthResponse represents the authentication response with tokens
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserResponse `json:"user"`
}

// SendCodeResponse acknowledges a mailed code.
type SendCodeResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

// UsernameAvailability reports whether a username is free.
type UsernameAvailability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

func newUserResponse(user *models.User) UserResponse {
	resp := UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Name:        user.Name,
		Email:       user.Email,
		Phone:       user.Phone,
		Avatar:      user.Avatar,
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	for _, r := range user.Roles {
		resp.Roles = append(resp.Roles, r.Name)
	}
	return resp
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new account. Email and phone are optional.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} UserResponse "User registered"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Username taken"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(user)})
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate with username and password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and tokens generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     403 {object} ErrorResponse "Account disabled"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.AttemptLogin(c.Request.Context(), req.Username, req.Password)
	metrics.AuthLoginsTotal.WithLabelValues("password", metrics.Result(err)).Inc()
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.completeLogin(c, user)
}

// EmailLogin handles login with a mailed verification code
// @Summary     Login with email code
// @Description Verify a login code, then authenticate the user owning both username and email
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body EmailLoginRequest true "Username, email and code"
// @Success     200 {object} AuthResponse "User authenticated and tokens generated"
// @Failure     400 {object} ErrorResponse "Invalid or expired code"
// @Failure     403 {object} ErrorResponse "Account disabled"
// @Failure     404 {object} ErrorResponse "Username and email do not match"
// @Router      /auth/email-login [post]
func (h *AuthHandler) EmailLogin(c *gin.Context) {
	var req EmailLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.consumeCode(c.Request.Context(), req.Username, req.Email, validator.PurposeLogin, req.Code)
	metrics.AuthLoginsTotal.WithLabelValues("email_code", metrics.Result(err)).Inc()
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.completeLogin(c, user)
}

// SendEmailCode mails a verification code
// @Summary     Send a verification code
// @Description Mail a 6-digit code to a registered username/email pair. One code per minute.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body SendEmailCodeRequest true "Username, email and purpose"
// @Success     200 {object} SendCodeResponse "Code sent"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Username and email do not match"
// @Failure     429 {object} ErrorResponse "Requested too soon"
// @Failure     503 {object} ErrorResponse "Mail or store unavailable"
// @Router      /auth/send-email-code [post]
func (h *AuthHandler) SendEmailCode(c *gin.Context) {
	var req SendEmailCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.userService.GetUserByIdentity(ctx, req.Username, req.Email); err != nil {
		respondWithError(c, err)
		return
	}

	identity := services.Identity{Username: req.Username, Email: req.Email}
	issued, err := h.verificationService.RequestCode(ctx, identity, req.Purpose, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SendCodeResponse{Message: "Verification code sent", ExpiresIn: issued.ExpiresIn})
}

// CheckUsername reports whether a username is still free
// @Summary     Check username availability
// @Tags        auth
// @Produce     json
// @Param       username path string true "Username"
// @Success     200 {object} UsernameAvailability
// @Router      /auth/check-username/{username} [get]
func (h *AuthHandler) CheckUsername(c *gin.Context) {
	username := c.Param("username")

	exists, err := h.userService.UsernameExists(c.Request.Context(), username)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, UsernameAvailability{Username: username, Available: !exists})
}

// Refresh rotates a refresh token
// @Summary     Refresh tokens
// @Description Exchange the current refresh token for a new token pair. The old refresh token stops working.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RefreshRequest true "Refresh token"
// @Success     200 {object} AuthResponse
// @Failure     401 {object} ErrorResponse "Invalid or expired token"
// @Router      /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	claims, err := middleware.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		respondWithError(c, apperrors.ErrTokenExpired)
		return
	}

	ctx := c.Request.Context()
	stored, err := h.userService.GetRefreshTokenHash(ctx, claims.UserID)
	if err != nil {
		respondWithError(c, apperrors.ErrTokenExpired)
		return
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(middleware.HashToken(req.RefreshToken))) != 1 {
		respondWithError(c, apperrors.ErrTokenExpired)
		return
	}

	user, err := h.userService.GetUserByID(ctx, claims.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !user.IsActive() {
		respondWithError(c, apperrors.ErrAccountDisabled)
		return
	}

	h.respondWithTokens(c, user)
}

// Logout revokes the caller's tokens
// @Summary     Logout
// @Description Deny-list the current access token and drop the refresh token
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} MessageResponse
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if jti := c.GetString(middleware.ContextTokenID); jti != "" {
		ttl := config.Get().JWTAccessTTL
		if expiry := c.GetTime(middleware.ContextTokenExpiry); !expiry.IsZero() {
			ttl = time.Until(expiry)
		}
		if err := h.revoker.Revoke(ctx, jti, ttl); err != nil {
			respondWithError(c, apperrors.Wrap(apperrors.ErrUnavailable, err))
			return
		}
	}

	if err := h.userService.StoreRefreshTokenHash(ctx, userID, ""); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

// ResetPassword sets a new password with a reset code
// @Summary     Reset password
// @Description Verify a reset_password code and replace the password. Existing refresh tokens stop working.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body ResetPasswordRequest true "Identity, code and new password"
// @Success     200 {object} MessageResponse
// @Failure     400 {object} ErrorResponse "Invalid or expired code"
// @Failure     404 {object} ErrorResponse "Username and email do not match"
// @Router      /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.consumeCode(ctx, req.Username, req.Email, validator.PurposeResetPassword, req.Code)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.userService.ResetPassword(ctx, req.Username, req.Email, req.Password); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(ctx, user.ID, services.AuditResetPassword, "user", user.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

// Me returns the authenticated user's profile
// @Summary     Get current user
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// consumeCode verifies a code for the identity and then loads the user owning
// both username and email.
func (h *AuthHandler) consumeCode(ctx context.Context, username, email, purpose, code string) (*models.User, error) {
	identity := services.Identity{Username: username, Email: email}
	ok, err := h.verificationService.Verify(ctx, identity, purpose, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidCode
	}
	return h.userService.GetUserByIdentity(ctx, username, email)
}

func (h *AuthHandler) completeLogin(c *gin.Context, user *models.User) {
	if err := h.userService.RecordLogin(c.Request.Context(), user.ID); err != nil {
		logger.Get().Warnw("failed to record login", "user_id", user.ID, "error", err)
	}
	h.respondWithTokens(c, user)
}

// respondWithTokens issues a fresh token pair and stores the refresh hash,
// replacing any earlier refresh token.
func (h *AuthHandler) respondWithTokens(c *gin.Context, user *models.User) {
	accessToken, err := middleware.GenerateAccessToken(user)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	refreshToken, err := middleware.GenerateRefreshToken(user)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	if err := h.userService.StoreRefreshTokenHash(c.Request.Context(), user.ID, middleware.HashToken(refreshToken)); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(config.Get().JWTAccessTTL.Seconds()),
		User:         newUserResponse(user),
	})
}
