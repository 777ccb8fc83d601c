package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"support_chat_service/internal/directory/domain"
	"support_chat_service/internal/directory/repository"
	"support_chat_service/pkg/config"
	"support_chat_service/pkg/database"
	"support_chat_service/pkg/encrypt"
	"support_chat_service/pkg/logger"
	token "support_chat_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DirectoryUseCase the account services behind the support desk
type DirectoryUseCase interface {
	Register(ctx context.Context, email, password, role, tenantID string) error
	FindUser(ctx context.Context, param *domain.UserQuery) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string) error
	ForceLogout(ctx context.Context, userID string) error
	CheckSessionTimeout(ctx context.Context, token string) (bool, error)
	ReconnectSession(ctx context.Context, token string) error
	RegisterDeviceToken(ctx context.Context, userID, deviceToken string) error
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
	PruneTokens(ctx context.Context, userID string, invalid []string) error
	CreateTenant(ctx context.Context, tenantID, name, plan string) error
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
}

type directoryUseCase struct {
	userRepo   repository.UserRepository
	tenantRepo repository.TenantRepo
	sessionTTL time.Duration
	redisRepo  database.RedisRepository[domain.UserSession]
}

// NewDirectoryUseCase create a DirectoryUseCase
func NewDirectoryUseCase(userRepo repository.UserRepository,
	tenantRepo repository.TenantRepo,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.UserSession],
) DirectoryUseCase {
	return &directoryUseCase{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		sessionTTL: sessionTTL,
		redisRepo:  redisRepo,
	}
}

// Register create an account. Role must be one of the known roles, end users
// must name an existing tenant.
func (d *directoryUseCase) Register(ctx context.Context, email, password, role, tenantID string) error {
	if !token.IsStaff(role) && !token.IsEndUser(role) {
		return errors.New("unknown role: " + role)
	}
	if _, err := d.userRepo.FindByUser(ctx, &domain.UserQuery{Email: &email}); err == nil {
		return errors.New("email already exists")
	}
	if token.IsEndUser(role) {
		if tenantID == "" {
			return errors.New("tenant_id is required")
		}
		if _, err := d.tenantRepo.GetByTenantID(tenantID); err != nil {
			return errors.New("tenant not found: " + tenantID)
		}
	}
	if err := encrypt.ValidatePasswordStrength(password); err != nil {
		return err
	}

	pw, err := encrypt.HashPassword(password)
	if err != nil {
		logger.Log.Errorf("password err :", err)
		return err
	}

	user := domain.User{
		UserID:   uuid.New().String(),
		Email:    email,
		Password: pw,
		Role:     role,
		TenantID: tenantID,
	}

	logger.Log.Info(fmt.Sprintf("usecase Register : %s role=%s tenant=%s", user.UserID, role, tenantID))

	return d.userRepo.CreateUser(ctx, &user)
}

// FindUser lookup by any of the query fields
func (d *directoryUseCase) FindUser(ctx context.Context, param *domain.UserQuery) (*domain.User, error) {
	return d.userRepo.FindByUser(ctx, param)
}

// Login verify the password and open a session
func (d *directoryUseCase) Login(ctx context.Context, email, password string) (string, error) {
	user, err := d.userRepo.FindByUser(ctx, &domain.UserQuery{Email: &email})
	if err != nil {
		logger.Log.Error("email can't find!!!")
		return "", errors.New("user not found")
	}

	if err = user.IsPasswordMatch(password); err != nil {
		logger.Log.Error("password can't match!!!")
		return "", err
	}

	user.Status = domain.UserStatusOnline

	t, err := token.GenerateJWT(user.UserID, user.Role, user.TenantID, config.EnvConfig.DirectoryService)
	if err != nil {
		return "", err
	}

	now := time.Now()
	session := domain.UserSession{
		Token:        t,
		UserID:       user.UserID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(d.sessionTTL),
	}

	d.redisRepo.Set(context.Background(), user.UserID, session, d.sessionTTL)

	if err := d.userRepo.UpdateUserStatus(ctx, user); err != nil {
		return "", err
	}

	return t, nil
}

// Logout close the caller's session
func (d *directoryUseCase) Logout(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWT(t)
	if err != nil {
		logger.Log.Error("Logout err :", zap.String("err", err.Error()))
		return err
	}

	d.redisRepo.Del(context.Background(), tokenInfo.UserID)

	return d.userRepo.UpdateUserStatus(ctx, &domain.User{
		UserID: tokenInfo.UserID,
		Status: domain.UserStatusOffline,
	})
}

// ForceLogout clear every session of the user
func (d *directoryUseCase) ForceLogout(ctx context.Context, userID string) error {
	d.redisRepo.Del(context.Background(), userID)

	return d.userRepo.UpdateUserStatus(ctx, &domain.User{
		UserID: userID,
		Status: domain.UserStatusOffline,
	})
}

// CheckSessionTimeout report whether the session behind the token expired
func (d *directoryUseCase) CheckSessionTimeout(ctx context.Context, t string) (bool, error) {
	tokenInfo, err := token.ParseJWT(t)
	if err != nil {
		return true, err
	}

	ttl, err := d.redisRepo.GetTTL(context.Background(), tokenInfo.UserID)
	if err != nil {
		return true, err
	}

	if ttl > 0 {
		return false, nil
	}
	return true, nil
}

// ReconnectSession refresh the session TTL after a reconnect
func (d *directoryUseCase) ReconnectSession(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWT(t)
	if err != nil {
		return err
	}

	return d.redisRepo.ExtendTTL(context.Background(), tokenInfo.UserID, d.sessionTTL)
}

// RegisterDeviceToken attach a push token to the account
func (d *directoryUseCase) RegisterDeviceToken(ctx context.Context, userID, deviceToken string) error {
	if deviceToken == "" {
		return errors.New("device token is empty")
	}
	return d.userRepo.AddDeviceToken(ctx, userID, deviceToken)
}

// DeviceTokens list the user's push tokens
func (d *directoryUseCase) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	return d.userRepo.DeviceTokens(ctx, userID)
}

// PruneTokens drop tokens the push transport flagged invalid
func (d *directoryUseCase) PruneTokens(ctx context.Context, userID string, invalid []string) error {
	if len(invalid) == 0 {
		return nil
	}
	logger.Log.Info("pruning device tokens", zap.String("user", userID), zap.Int("count", len(invalid)))
	return d.userRepo.RemoveDeviceTokens(ctx, userID, invalid)
}

// CreateTenant register an organization
func (d *directoryUseCase) CreateTenant(ctx context.Context, tenantID, name, plan string) error {
	if tenantID == "" || name == "" {
		return errors.New("tenant_id and name are required")
	}
	return d.tenantRepo.Create(&domain.Tenant{
		TenantID: tenantID,
		Name:     name,
		Plan:     plan,
	})
}

// ListTenants list every organization
func (d *directoryUseCase) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	return d.tenantRepo.List()
}
