package repository

import (
	"support_chat_service/internal/directory/domain"

	"gorm.io/gorm"
)

// TenantRepo definition tenant store
type TenantRepo interface {
	AutoMigrate() error
	Create(tenant *domain.Tenant) error
	GetByTenantID(tenantID string) (*domain.Tenant, error)
	List() ([]domain.Tenant, error)
	Update(tenant *domain.Tenant) error
}

type tenantRepo struct {
	db *gorm.DB
}

// NewTenantRepo create TenantRepo
func NewTenantRepo(db *gorm.DB) TenantRepo {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Tenant{})
}

func (r *tenantRepo) Create(tenant *domain.Tenant) error {
	return r.db.Create(tenant).Error
}

func (r *tenantRepo) GetByTenantID(tenantID string) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := r.db.Where("tenant_id = ?", tenantID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepo) List() ([]domain.Tenant, error) {
	var tenants []domain.Tenant
	if err := r.db.Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *tenantRepo) Update(tenant *domain.Tenant) error {
	return r.db.Save(tenant).Error
}
