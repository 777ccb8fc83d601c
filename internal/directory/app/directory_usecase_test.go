package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"support_chat_service/internal/directory/domain"
	"support_chat_service/pkg/encrypt"
	"support_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockUserRepo Mock UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepo) UpdateUserStatus(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepo) FindByUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error) {
	args := m.Called(ctx, query)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockUserRepo) AddDeviceToken(ctx context.Context, userID, deviceToken string) error {
	args := m.Called(ctx, userID, deviceToken)
	return args.Error(0)
}
func (m *MockUserRepo) RemoveDeviceTokens(ctx context.Context, userID string, tokens []string) error {
	args := m.Called(ctx, userID, tokens)
	return args.Error(0)
}
func (m *MockUserRepo) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTenantRepo Mock TenantRepo
type MockTenantRepo struct {
	mock.Mock
}

func (m *MockTenantRepo) AutoMigrate() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockTenantRepo) Create(tenant *domain.Tenant) error {
	args := m.Called(tenant)
	return args.Error(0)
}
func (m *MockTenantRepo) GetByTenantID(tenantID string) (*domain.Tenant, error) {
	args := m.Called(tenantID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockTenantRepo) List() ([]domain.Tenant, error) {
	args := m.Called()
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockTenantRepo) Update(tenant *domain.Tenant) error {
	args := m.Called(tenant)
	return args.Error(0)
}

// MockSessionRepo Mock RedisRepository for UserSession
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Set(ctx context.Context, key string, value domain.UserSession, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}
func (m *MockSessionRepo) Get(ctx context.Context, key string) (domain.UserSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) != nil {
		return args.Get(0).(domain.UserSession), args.Error(1)
	}
	return domain.UserSession{}, args.Error(1)
}
func (m *MockSessionRepo) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
func (m *MockSessionRepo) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}
func (m *MockSessionRepo) GetTTL(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

func TestDirectoryUseCase_Register(t *testing.T) {
	ctx := context.Background()
	email := "student@example.com"
	password := "!!Securepassword111"

	logger.SetNewNop()

	t.Run("register end user success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		mockTenants := new(MockTenantRepo)
		mockRedis := new(MockSessionRepo)

		mockRepo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(nil, errors.New("not found")).Once()
		mockTenants.On("GetByTenantID", "tenant-1").Return(&domain.Tenant{TenantID: "tenant-1"}, nil).Once()
		mockRepo.On("CreateUser", ctx, mock.Anything).Return(nil).Once()

		uc := NewDirectoryUseCase(mockRepo, mockTenants, time.Hour, mockRedis)
		err := uc.Register(ctx, email, password, "student", "tenant-1")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockTenants.AssertExpectations(t)
	})

	t.Run("email already exists", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		mockTenants := new(MockTenantRepo)
		mockRedis := new(MockSessionRepo)

		existing := &domain.User{UserID: "AAA", Email: email}
		mockRepo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(existing, nil).Once()

		uc := NewDirectoryUseCase(mockRepo, mockTenants, time.Hour, mockRedis)
		err := uc.Register(ctx, email, password, "student", "tenant-1")

		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("end user without tenant", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		mockRepo.On("FindByUser", ctx, mock.Anything).Return(nil, errors.New("not found")).Once()

		uc := NewDirectoryUseCase(mockRepo, new(MockTenantRepo), time.Hour, new(MockSessionRepo))
		err := uc.Register(ctx, email, password, "student", "")

		assert.Error(t, err)
	})

	t.Run("unknown role", func(t *testing.T) {
		uc := NewDirectoryUseCase(new(MockUserRepo), new(MockTenantRepo), time.Hour, new(MockSessionRepo))
		err := uc.Register(ctx, email, password, "wizard", "tenant-1")

		assert.Error(t, err)
	})
}

func TestDirectoryUseCase_Login(t *testing.T) {
	ctx := context.Background()
	email := "student@example.com"
	password := "!!Securepassword111"

	logger.SetNewNop()

	hashed, err := encrypt.HashPassword(password)
	assert.NoError(t, err)

	t.Run("login success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		mockRedis := new(MockSessionRepo)

		user := &domain.User{
			UserID:   "user-1",
			Email:    email,
			Password: hashed,
			Role:     "student",
			TenantID: "tenant-1",
		}
		mockRepo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(user, nil).Once()
		mockRedis.On("Set", mock.Anything, "user-1", mock.Anything, time.Hour).Return(nil).Once()
		mockRepo.On("UpdateUserStatus", ctx, mock.Anything).Return(nil).Once()

		uc := NewDirectoryUseCase(mockRepo, new(MockTenantRepo), time.Hour, mockRedis)
		tokenStr, err := uc.Login(ctx, email, password)

		assert.NoError(t, err)
		assert.NotEmpty(t, tokenStr)
		mockRedis.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		user := &domain.User{UserID: "user-1", Email: email, Password: hashed}
		mockRepo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(user, nil).Once()

		uc := NewDirectoryUseCase(mockRepo, new(MockTenantRepo), time.Hour, new(MockSessionRepo))
		_, err := uc.Login(ctx, email, "not-the-password")

		assert.Error(t, err)
	})
}

func TestDirectoryUseCase_DeviceTokens(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()

	t.Run("register and prune", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		mockRepo.On("AddDeviceToken", ctx, "user-1", "token-a").Return(nil).Once()
		mockRepo.On("RemoveDeviceTokens", ctx, "user-1", []string{"token-a"}).Return(nil).Once()

		uc := NewDirectoryUseCase(mockRepo, new(MockTenantRepo), time.Hour, new(MockSessionRepo))

		assert.NoError(t, uc.RegisterDeviceToken(ctx, "user-1", "token-a"))
		assert.NoError(t, uc.PruneTokens(ctx, "user-1", []string{"token-a"}))
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty token rejected", func(t *testing.T) {
		uc := NewDirectoryUseCase(new(MockUserRepo), new(MockTenantRepo), time.Hour, new(MockSessionRepo))
		assert.Error(t, uc.RegisterDeviceToken(ctx, "user-1", ""))
	})

	t.Run("empty prune list is a no-op", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := NewDirectoryUseCase(mockRepo, new(MockTenantRepo), time.Hour, new(MockSessionRepo))

		assert.NoError(t, uc.PruneTokens(ctx, "user-1", nil))
		mockRepo.AssertNotCalled(t, "RemoveDeviceTokens", mock.Anything, mock.Anything, mock.Anything)
	})
}
