package store

import (
	"context"

	"leads-organizer-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPerPage = 5
	MaxPerPage     = 100
)

// ListParams selects one page of leads.
type ListParams struct {
	Page    int
	PerPage int
	OrderBy string
	Order   string
}

// Normalize clamps paging and resolves ordering against the allow-list.
// An empty OrderBy means insertion order.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	p.OrderBy = ValidateSortField(p.OrderBy, LeadSortFields, "")
	p.Order = ValidateSortOrder(p.Order)
	return p
}

// Offset of the first row of the page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// LeadStore persists leads through gorm. Every query is parameterized.
type LeadStore struct {
	db *gorm.DB
}

func NewLeadStore(db *gorm.DB) *LeadStore {
	return &LeadStore{db: db}
}

func (s *LeadStore) Insert(ctx context.Context, lead *models.Lead) error {
	return storageError("insert", s.db.WithContext(ctx).Create(lead).Error)
}

func (s *LeadStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("email = ?", email).
		Count(&n).Error
	if err != nil {
		return false, storageError("exists", err)
	}
	return n > 0, nil
}

func (s *LeadStore) List(ctx context.Context, params ListParams) ([]models.Lead, error) {
	params = params.Normalize()

	// id breaks ties so offset pages stay disjoint
	order := clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "id"}}}}
	if params.OrderBy != "" {
		order.Columns = append([]clause.OrderByColumn{{
			Column: clause.Column{Name: params.OrderBy},
			Desc:   params.Order == "DESC",
		}}, order.Columns...)
	}

	var leads []models.Lead
	err := s.db.WithContext(ctx).
		Order(order).
		Limit(params.PerPage).
		Offset(params.Offset()).
		Find(&leads).Error
	if err != nil {
		return nil, storageError("list", err)
	}
	return leads, nil
}

func (s *LeadStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).Count(&n).Error; err != nil {
		return 0, storageError("count", err)
	}
	return n, nil
}

// DeleteByID removes one lead. Unknown ids are not an error.
func (s *LeadStore) DeleteByID(ctx context.Context, id uint) error {
	return storageError("delete", s.db.WithContext(ctx).Delete(&models.Lead{}, id).Error)
}

// DeleteByIDs removes every listed lead in a single transaction.
func (s *LeadStore) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id IN ?", ids).Delete(&models.Lead{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, storageError("bulk delete", err)
	}
	return deleted, nil
}

// All returns every lead in insertion order.
func (s *LeadStore) All(ctx context.Context) ([]models.Lead, error) {
	var leads []models.Lead
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&leads).Error; err != nil {
		return nil, storageError("all", err)
	}
	return leads, nil
}
