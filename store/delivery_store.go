package store

import (
	"context"

	"leads-organizer-backend/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeliveryFilter narrows the forwarding log. Empty fields match everything.
type DeliveryFilter struct {
	Connector string
	Status    string
	Page      int
	PerPage   int
}

// DeliveryStore is the append-only log of connector outcomes.
type DeliveryStore struct {
	db *gorm.DB
}

func NewDeliveryStore(db *gorm.DB) *DeliveryStore {
	return &DeliveryStore{db: db}
}

func (s *DeliveryStore) Record(ctx context.Context, d *models.Delivery) error {
	if len(d.Payload) == 0 {
		d.Payload = datatypes.JSON("{}")
	}
	return storageError("record delivery", s.db.WithContext(ctx).Create(d).Error)
}

// List returns the newest deliveries first along with the filtered total.
func (s *DeliveryStore) List(ctx context.Context, filter DeliveryFilter) ([]models.Delivery, int64, error) {
	paging := ListParams{Page: filter.Page, PerPage: filter.PerPage}.Normalize()

	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.Delivery{})
		if filter.Connector != "" {
			query = query.Where("connector = ?", filter.Connector)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, storageError("count deliveries", err)
	}

	var deliveries []models.Delivery
	err := filtered().
		Order("id DESC").
		Limit(paging.PerPage).
		Offset(paging.Offset()).
		Find(&deliveries).Error
	if err != nil {
		return nil, 0, storageError("list deliveries", err)
	}
	return deliveries, total, nil
}
