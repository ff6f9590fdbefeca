package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/repository"
	"github.com/iliyamo/task-manager/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Users      *repository.UserRepo
	Tokens     *utils.TokenIssuer
	BcryptCost int
}

func NewAuthHandler(u *repository.UserRepo, tokens *utils.TokenIssuer, bcryptCost int) *AuthHandler {
	if u == nil || tokens == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Users: u, Tokens: tokens, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type authResp struct {
	Token string   `json:"token"`
	User  userPart `json:"user"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email}
}

// errInvalidCredentials is the single body for every login failure, so an
// unknown email and a wrong password cannot be told apart.
var errInvalidCredentials = echo.Map{"error": "Invalid credentials"}

// Register handles POST /api/auth/register: create the user and return a
// session token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "username, email and password are required")
	}
	if !strings.Contains(req.Email, "@") {
		return badRequest(c, "invalid email")
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return badRequest(c, "password too long")
		}
		return serverError(c, "password_hash_failed", err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCredential) {
			return badRequest(c, "User already exists")
		}
		return serverError(c, "user_create_failed", err)
	}

	token, err := h.Tokens.Issue(uid, req.Username)
	if err != nil {
		return serverError(c, "token_issue_failed", err, "user_id", uid)
	}
	return c.JSON(http.StatusCreated, authResp{
		Token: token,
		User:  userPart{ID: uid, Username: req.Username, Email: req.Email},
	})
}

// Login handles POST /api/auth/login: verify credentials and return a new
// session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errInvalidCredentials)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusBadRequest, errInvalidCredentials)
		}
		return serverError(c, "user_lookup_failed", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusBadRequest, errInvalidCredentials)
	}

	token, err := h.Tokens.Issue(u.ID, u.Username)
	if err != nil {
		return serverError(c, "token_issue_failed", err, "user_id", u.ID)
	}
	return c.JSON(http.StatusOK, authResp{Token: token, User: toUserPart(u)})
}

// Me handles GET /api/auth/me and returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token required"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return serverError(c, "user_lookup_failed", err, "user_id", uid)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
