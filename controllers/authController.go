package controllers

import (
	"errors"

	"weather-dashboard-backend/config"
	"weather-dashboard-backend/middlewares"
	"weather-dashboard-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthController struct {
	DB  *gorm.DB
	Cfg config.AuthConfig
	Log *zap.Logger
}

type registerRequest struct {
	Name            string `json:"name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (ct *AuthController) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	var existing models.User
	err := ct.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "email already exists",
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	user := models.User{
		Name:  req.Name,
		Email: req.Email,
	}
	user.SetPassword(req.Password)
	if err := ct.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "could not create user",
		})
	}

	token, err := ct.issueToken(&user)
	if err != nil {
		return err
	}

	ct.Log.Info("user registered", zap.String("email", user.Email))

	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (ct *AuthController) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	var user models.User
	err := ct.DB.Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalidCredentials(c)
	}
	if err != nil {
		return err
	}

	if err := user.ComparePassword(req.Password); err != nil {
		return invalidCredentials(c)
	}

	token, err := ct.issueToken(&user)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

// Logout revokes every token the caller holds.
func (ct *AuthController) Logout(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	if err := ct.DB.Where("user_id = ?", userID).Delete(&models.AuthToken{}).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "logged out",
	})
}

// issueToken persists an AuthToken record and signs a JWT carrying its id,
// so a later logout can revoke the token.
func (ct *AuthController) issueToken(user *models.User) (string, error) {
	record := models.AuthToken{
		UserId:  user.Id,
		TokenId: uuid.NewString(),
		Name:    user.Name,
	}
	if err := ct.DB.Create(&record).Error; err != nil {
		return "", err
	}
	return middlewares.GenerateJWT(ct.Cfg.JWTSecret, user.Id, record.TokenId, ct.Cfg.TokenTTL)
}

func invalidCredentials(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "invalid credentials",
	})
}
