package controllers

import (
	"errors"
	"strings"
	"time"

	"leads-organizer-backend/middlewares"
	"leads-organizer-backend/models"
	"leads-organizer-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type OperatorCreateDTO struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"omitempty,max=100"`
	Email           string `json:"email" validate:"required,email,max=150"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type AuthController struct {
	db   *gorm.DB
	auth *middlewares.Authenticator
}

func NewAuthController(db *gorm.DB, auth *middlewares.Authenticator) *AuthController {
	return &AuthController{db: db, auth: auth}
}

func operatorJSON(user *models.User) fiber.Map {
	return fiber.Map{
		"id":    user.Id,
		"name":  user.FullName(),
		"email": user.Email,
	}
}

// POST /api/login
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var in LoginDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	var user models.User
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := ac.db.WithContext(c.UserContext()).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid credentials")
		}
		return err
	}

	if err := user.ComparePassword(in.Password); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid credentials")
	}

	token, err := ac.auth.GenerateJWT(user.Id, user.Email)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  operatorJSON(&user),
	})
}

// POST /api/logout
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	cookie := fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	}
	c.Cookie(&cookie)
	return c.JSON(fiber.Map{
		"message": "success",
	})
}

// POST /api/operators
func (ac *AuthController) CreateOperator(c *fiber.Ctx) error {
	var in OperatorCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	password := in.Password
	utils.NormalizeDTO(&in)
	in.Email = strings.ToLower(in.Email)

	db := ac.db.WithContext(c.UserContext())

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "email already exists")
	}

	user := models.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "email already exists")
		}
		return fiber.NewError(fiber.StatusBadRequest, "could not create operator")
	}

	return c.Status(fiber.StatusCreated).JSON(operatorJSON(&user))
}

// GET /api/me
func (ac *AuthController) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	var user models.User
	if err := ac.db.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "operator not found")
		}
		return err
	}
	return c.JSON(operatorJSON(&user))
}
