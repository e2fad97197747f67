package server

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	session "github.com/projectflow/go-session"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate reproduces the reference precondition messages in order:
// missing fields, short password, bad role.
func (r signupRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Role, validation.Required),
	); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "All fields are required")
	}

	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
	); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "A valid email is required")
	}

	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Length(6, 100)),
	); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Password must be at least 6 characters long")
	}

	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.In(session.RoleTeacher, session.RoleStudent)),
	); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid role. Must be teacher or student")
	}

	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
	}
	return nil
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	payload := signupRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		ferr, ok := err.(*fiber.Error)
		if !ok {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return fail(c, ferr.Code, ferr.Message)
	}

	email := NormalizeEmail(payload.Email)

	if existing, err := s.accounts.GetByEmail(c.Context(), email); err == nil && existing != nil {
		return fail(c, fiber.StatusConflict, "User with this email already exists")
	} else if err != nil && !IsNotFound(err) {
		s.logger.Error("signup lookup failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Sign up failed. Please try again.")
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		s.logger.Error("signup hash failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Sign up failed. Please try again.")
	}

	account := &Account{
		ID:           s.newAccountID(email),
		Name:         payload.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         payload.Role,
		// Derived from the role exactly once, stored as-is forever.
		Avatar: session.AvatarForRole(payload.Role),
	}

	account, err = s.accounts.Register(c.Context(), account)
	if err != nil {
		s.logger.Error("signup create failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Sign up failed. Please try again.")
	}

	token, err := s.tokens.Generate(account.ID.String())
	if err != nil {
		s.logger.Error("signup token mint failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Sign up failed. Please try again.")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    account.Public(),
		"token":   token,
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	payload := loginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := payload.Validate(); err != nil {
		ferr, ok := err.(*fiber.Error)
		if !ok {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return fail(c, ferr.Code, ferr.Message)
	}

	// Unknown account and wrong password produce the same response so
	// the endpoint cannot be used to enumerate accounts.
	account, err := s.accounts.GetByEmail(c.Context(), payload.Email)
	if err != nil {
		if IsNotFound(err) {
			return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
		}
		s.logger.Error("login lookup failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Login failed. Please try again.")
	}

	if err := ComparePasswordAndHash(payload.Password, account.PasswordHash); err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	token, err := s.tokens.Generate(account.ID.String())
	if err != nil {
		s.logger.Error("login token mint failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Login failed. Please try again.")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    account.Public(),
		"token":   token,
	})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	raw := strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer"))
	if raw == "" {
		return fail(c, fiber.StatusUnauthorized, "No token provided")
	}

	accountID, err := s.tokens.Verify(raw)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid or expired token")
	}

	id, err := uuid.Parse(accountID)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid or expired token")
	}

	account, err := s.accounts.GetByID(c.Context(), id)
	if err != nil {
		if IsNotFound(err) {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		s.logger.Error("me lookup failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to get user")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    account.Public(),
	})
}

// handleListUsers is intentionally unauthenticated, matching the
// reference service's scope gap.
func (s *Server) handleListUsers(c *fiber.Ctx) error {
	records, err := s.accounts.ListAll(c.Context())
	if err != nil {
		s.logger.Error("users list failed: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to get users")
	}

	users := make([]session.User, 0, len(records))
	for _, account := range records {
		users = append(users, account.Public())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"status":  "ok",
	})
}
