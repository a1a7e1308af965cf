package store

import (
	"context"
	"fmt"
	"testing"

	"leads-organizer-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// every connection to :memory: is a fresh database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Lead{}, &models.Delivery{}))
	return db
}

func seedLeads(t *testing.T, s *LeadStore, names ...string) []models.Lead {
	t.Helper()
	leads := make([]models.Lead, 0, len(names))
	for i, name := range names {
		lead := models.Lead{
			Name:   name,
			Phone:  fmt.Sprintf("1199999%04d", i),
			Email:  fmt.Sprintf("lead%d@example.com", i),
			Source: models.SourceContact,
		}
		require.NoError(t, s.Insert(context.Background(), &lead))
		leads = append(leads, lead)
	}
	return leads
}

func TestLeadStore_InsertAndExists(t *testing.T) {
	ctx := context.Background()
	s := NewLeadStore(setupTestDB(t))

	exists, err := s.ExistsByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.False(t, exists)

	price := "1.200.000"
	lead := &models.Lead{
		Name:          "Ana",
		Phone:         "11999990000",
		Email:         "ana@x.com",
		PropertyPrice: &price,
		Source:        models.SourcePropertyInquiry,
	}
	require.NoError(t, s.Insert(ctx, lead))
	assert.NotZero(t, lead.ID)
	assert.False(t, lead.CreatedAt.IsZero())

	exists, err = s.ExistsByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ExistsByEmail(ctx, "ANA@x.com")
	require.NoError(t, err)
	assert.False(t, exists, "lookup is an exact match")

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "1.200.000", models.Value(all[0].PropertyPrice))
	assert.Equal(t, models.SourcePropertyInquiry, all[0].Source)
	assert.Nil(t, all[0].Message)
}

func TestLeadStore_InsertDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewLeadStore(setupTestDB(t))

	require.NoError(t, s.Insert(ctx, &models.Lead{Name: "Ana", Phone: "1", Email: "ana@x.com", Source: models.SourceContact}))
	err := s.Insert(ctx, &models.Lead{Name: "Ana 2", Phone: "2", Email: "ana@x.com", Source: models.SourceContact})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "insert", storageErr.Op)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestLeadStore_List(t *testing.T) {
	ctx := context.Background()
	s := NewLeadStore(setupTestDB(t))
	seedLeads(t, s, "Kim", "Bea", "Ivo", "Ana", "Gil", "Edu", "Caio", "Hugo", "Dani", "Fabi", "Juca", "Lia")

	t.Run("second page of five ordered by name", func(t *testing.T) {
		leads, err := s.List(ctx, ListParams{Page: 2, PerPage: 5, OrderBy: "name", Order: "asc"})
		require.NoError(t, err)

		names := make([]string, 0, len(leads))
		for _, l := range leads {
			names = append(names, l.Name)
		}
		assert.Equal(t, []string{"Fabi", "Gil", "Hugo", "Ivo", "Juca"}, names)
	})

	t.Run("descending order", func(t *testing.T) {
		leads, err := s.List(ctx, ListParams{Page: 1, PerPage: 2, OrderBy: "name", Order: "DESC"})
		require.NoError(t, err)
		require.Len(t, leads, 2)
		assert.Equal(t, "Lia", leads[0].Name)
		assert.Equal(t, "Kim", leads[1].Name)
	})

	t.Run("ties on the sort column page by id", func(t *testing.T) {
		tied := NewLeadStore(setupTestDB(t))
		seeded := seedLeads(t, tied, "Ana", "Bea", "Ana", "Ana", "Ana")

		first, err := tied.List(ctx, ListParams{Page: 1, PerPage: 2, OrderBy: "name"})
		require.NoError(t, err)
		second, err := tied.List(ctx, ListParams{Page: 2, PerPage: 2, OrderBy: "name"})
		require.NoError(t, err)
		require.Len(t, first, 2)
		require.Len(t, second, 2)

		ids := []uint{first[0].ID, first[1].ID, second[0].ID, second[1].ID}
		assert.Equal(t, []uint{seeded[0].ID, seeded[2].ID, seeded[3].ID, seeded[4].ID}, ids)
	})

	t.Run("unknown column falls back to insertion order", func(t *testing.T) {
		leads, err := s.List(ctx, ListParams{Page: 1, PerPage: 3, OrderBy: "id;DROP TABLE leads", Order: "DESC"})
		require.NoError(t, err)
		require.Len(t, leads, 3)
		assert.Equal(t, "Kim", leads[0].Name)
		assert.Equal(t, "Bea", leads[1].Name)
		assert.Equal(t, "Ivo", leads[2].Name)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 12, n)
	})

	t.Run("defaults to five per page", func(t *testing.T) {
		leads, err := s.List(ctx, ListParams{})
		require.NoError(t, err)
		assert.Len(t, leads, DefaultPerPage)
		assert.Equal(t, "Kim", leads[0].Name)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		leads, err := s.List(ctx, ListParams{Page: 10, PerPage: 5})
		require.NoError(t, err)
		assert.Empty(t, leads)
	})
}

func TestLeadStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewLeadStore(setupTestDB(t))
	leads := seedLeads(t, s, "Ana", "Bea", "Caio", "Dani")

	t.Run("single", func(t *testing.T) {
		require.NoError(t, s.DeleteByID(ctx, leads[0].ID))
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		require.NoError(t, s.DeleteByID(ctx, 9999))
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("bulk", func(t *testing.T) {
		deleted, err := s.DeleteByIDs(ctx, []uint{leads[1].ID, leads[2].ID, 9999})
		require.NoError(t, err)
		assert.EqualValues(t, 2, deleted)

		rest, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "Dani", rest[0].Name)
	})

	t.Run("bulk with no ids", func(t *testing.T) {
		deleted, err := s.DeleteByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})
}

func TestListParams_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListParams
		want ListParams
	}{
		{"zero value", ListParams{}, ListParams{Page: 1, PerPage: 5, Order: "ASC"}},
		{"caps per page", ListParams{Page: 3, PerPage: 1000}, ListParams{Page: 3, PerPage: 100, Order: "ASC"}},
		{"allowed column", ListParams{OrderBy: " Email ", Order: "desc"}, ListParams{Page: 1, PerPage: 5, OrderBy: "email", Order: "DESC"}},
		{"rejected column", ListParams{OrderBy: "phone", Order: "sideways"}, ListParams{Page: 1, PerPage: 5, Order: "ASC"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
	assert.Equal(t, 10, ListParams{Page: 3, PerPage: 5}.Offset())
}

func TestDeliveryStore(t *testing.T) {
	ctx := context.Background()
	s := NewDeliveryStore(setupTestDB(t))

	records := []models.Delivery{
		{Connector: models.ConnectorPipedrive, Email: "a@x.com", Status: models.DeliverySucceeded, ExternalID: "10"},
		{Connector: models.ConnectorRDStation, Email: "a@x.com", Status: models.DeliverySucceeded},
		{Connector: models.ConnectorPipedrive, Email: "b@x.com", Status: models.DeliveryFailed, Error: "timeout"},
		{Connector: models.ConnectorRDStation, Email: "b@x.com", Status: models.DeliveryFailed, Error: "status 500"},
	}
	for i := range records {
		require.NoError(t, s.Record(ctx, &records[i]))
	}

	all, total, err := s.List(ctx, DeliveryFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, all, 4)
	assert.Equal(t, "status 500", all[0].Error, "newest first")
	assert.JSONEq(t, "{}", string(all[0].Payload))

	failed, total, err := s.List(ctx, DeliveryFilter{Connector: models.ConnectorPipedrive, Status: models.DeliveryFailed})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, failed, 1)
	assert.Equal(t, "b@x.com", failed[0].Email)

	page, total, err := s.List(ctx, DeliveryFilter{PerPage: 3, Page: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, page, 1)
	assert.Equal(t, "10", page[0].ExternalID)
}
