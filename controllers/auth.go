package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/utils"
)

const tokenTTL = 24 * time.Hour

type registerInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register creates a patient or doctor account. Admins are never
// self-registered.
func (h *Controller) Register(c *fiber.Ctx) error {
	input := new(registerInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || input.Password == "" || input.Name == "" {
		return badRequest(c, "Missing required fields")
	}
	if input.Role == "" {
		input.Role = models.RolePatient
	}
	if input.Role != models.RolePatient && input.Role != models.RoleDoctor {
		return badRequest(c, "Role must be patient or doctor")
	}

	if _, err := h.store.FindUserByEmail(c.UserContext(), input.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(utils.ErrorResponse{
			Code:    "email_taken",
			Message: "User with this email already exists",
		})
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return h.respondError(c, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to hash password",
		})
	}

	user := &models.User{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Password: string(hashed),
		Role:     input.Role,
	}
	if err := h.store.CreateUser(c.UserContext(), user); err != nil {
		return h.respondError(c, err)
	}

	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(user)
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Controller) Login(c *fiber.Ctx) error {
	input := new(loginInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	invalid := utils.ErrorResponse{Code: "invalid_credentials", Message: "Invalid credentials"}
	user, err := h.store.FindUserByEmail(c.UserContext(), strings.ToLower(strings.TrimSpace(input.Email)))
	if errors.Is(err, models.ErrUserNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(invalid)
	}
	if err != nil {
		return h.respondError(c, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(invalid)
	}

	token, err := utils.GenerateToken(h.secret, user.ID, user.Email, user.Role, tokenTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}
