package jobqueue

import (
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/dbtest"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "jobqueue-test", Output: io.Discard})
}

type fixture struct {
	client *db.Client
	conn   *gorm.DB
	repo   Repository
	outbox *outbox.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	return &fixture{
		client: client,
		conn:   conn,
		repo:   NewRepository(conn),
		outbox: outbox.NewService(outbox.NewRepository(conn), testLogger()),
	}
}

func (f *fixture) booking(t *testing.T, serviceType string) *models.Booking {
	t.Helper()
	b := &models.Booking{
		ID:          uuid.New(),
		CustomerID:  uuid.New(),
		ServiceType: serviceType,
		Latitude:    -26.1076,
		Longitude:   28.0567,
		Status:      enums.BookingStatusPending,
	}
	require.NoError(t, f.conn.Create(b).Error)
	return b
}

func (f *fixture) entry(t *testing.T, b *models.Booking, priority int, createdAt time.Time) *models.JobQueueEntry {
	t.Helper()
	e := &models.JobQueueEntry{
		ID:                uuid.New(),
		BookingID:         b.ID,
		ServiceType:       b.ServiceType,
		CustomerLatitude:  b.Latitude,
		CustomerLongitude: b.Longitude,
		MaxRadiusKm:       20,
		Priority:          priority,
		Status:            enums.JobStatusPending,
		CreatedAt:         createdAt,
		ExpiresAt:         createdAt.Add(DefaultQueueTTL),
	}
	require.NoError(t, f.repo.Enqueue(t.Context(), e))
	return e
}

func (f *fixture) provider(t *testing.T, serviceType string, rating string, lat, lng float64, online bool) uuid.UUID {
	t.Helper()
	p := models.Provider{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		DisplayName: "provider",
		Rating:      decimal.RequireFromString(rating),
		Verified:    true,
	}
	require.NoError(t, f.conn.Create(&p).Error)
	require.NoError(t, f.conn.Create(&models.ProviderService{ProviderID: p.ID, ServiceType: serviceType}).Error)
	require.NoError(t, f.conn.Create(&models.ProviderLocation{
		ProviderID: p.ID,
		Latitude:   lat,
		Longitude:  lng,
		IsOnline:   online,
		LastSeen:   baseTime,
	}).Error)
	return p.ID
}

func (f *fixture) outboxEvents(t *testing.T, eventType enums.OutboxEventType) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", eventType).Find(&rows).Error)
	return rows
}
