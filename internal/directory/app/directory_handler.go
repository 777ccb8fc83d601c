package app

import (
	"fmt"

	"support_chat_service/pkg/logger"
	"support_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DirectoryHandler HTTP surface of the account directory
type DirectoryHandler struct {
	Usecase DirectoryUseCase
}

// NewDirectoryHandler create DirectoryHandler
func NewDirectoryHandler(usecase DirectoryUseCase) *DirectoryHandler {
	return &DirectoryHandler{Usecase: usecase}
}

// Register create an account
// @Summary Register an account
// @Tags Directory
// @Accept json
// @Produce json
// @Success 200 {object} string "register success"
// @Failure 400 {object} string "request error"
// @Router /directory/register [post]
func (h *DirectoryHandler) Register(c *fiber.Ctx) error {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		TenantID string `json:"tenant_id"`
	}

	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	logger.Log.Debug("Register request", zap.String("email", req.Email), zap.String("role", req.Role))

	if err := h.Usecase.Register(c.Context(), req.Email, req.Password, req.Role, req.TenantID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "register success"})
}

// Login open a session
// @Summary Login
// @Tags Directory
// @Accept json
// @Produce json
// @Success 200 {object} string "token"
// @Failure 401 {object} string "login failed"
// @Router /directory/login [post]
func (h *DirectoryHandler) Login(c *fiber.Ctx) error {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	logger.Log.Debug("Login", zap.String("Email", req.Email))

	token, err := h.Usecase.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"token": token, "message": "login success"})
}

// Logout close the caller's session
// @Summary Logout
// @Tags Directory
// @Produce json
// @Param auth query string false "jwt"
// @Success 200 {object} string "logout success"
// @Router /directory/logout [post]
func (h *DirectoryHandler) Logout(c *fiber.Ctx) error {
	userID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("c.Locals(%s) is nil", middlewares.TokenUserID)})
	}

	if err := h.Usecase.ForceLogout(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	logger.Log.Info("logout", zap.String("user", userID))
	return c.JSON(fiber.Map{"message": "logout success"})
}

// RegisterDevice attach a push token to the caller's account
// @Summary Register a device push token
// @Tags Directory
// @Accept json
// @Produce json
// @Success 200 {object} string "device registered"
// @Router /directory/devices [post]
func (h *DirectoryHandler) RegisterDevice(c *fiber.Ctx) error {
	userID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("c.Locals(%s) is nil", middlewares.TokenUserID)})
	}

	type request struct {
		DeviceToken string `json:"device_token"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	if err := h.Usecase.RegisterDeviceToken(c.Context(), userID, req.DeviceToken); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "device registered"})
}

// CreateTenant register an organization
// @Summary Create a tenant
// @Tags Directory
// @Accept json
// @Produce json
// @Success 200 {object} string "tenant created"
// @Router /directory/tenants [post]
func (h *DirectoryHandler) CreateTenant(c *fiber.Ctx) error {
	type request struct {
		TenantID string `json:"tenant_id"`
		Name     string `json:"name"`
		Plan     string `json:"plan"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	if err := h.Usecase.CreateTenant(c.Context(), req.TenantID, req.Name, req.Plan); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "tenant created"})
}

// ListTenants list organizations
// @Summary List tenants
// @Tags Directory
// @Produce json
// @Success 200 {array} domain.Tenant
// @Router /directory/tenants [get]
func (h *DirectoryHandler) ListTenants(c *fiber.Ctx) error {
	tenants, err := h.Usecase.ListTenants(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"tenants": tenants})
}
