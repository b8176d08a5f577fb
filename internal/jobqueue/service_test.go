package jobqueue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
)

func newQueueService(t *testing.T, f *fixture) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   f.repo,
		Tx:     f.client,
		Outbox: f.outbox,
		Now:    func() time.Time { return baseTime },
	})
	require.NoError(t, err)
	return svc
}

func TestAssignIsIdempotentPerBooking(t *testing.T) {
	f := newFixture(t)
	svc := newQueueService(t, f)
	b := f.booking(t, "cleaning")

	first, err := svc.Assign(t.Context(), b.ID, AssignOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPriority, first.Priority)
	assert.Equal(t, 20.0, first.MaxRadiusKm)
	assert.Equal(t, enums.JobStatusPending, first.Status)
	assert.True(t, first.ExpiresAt.Equal(baseTime.Add(30*time.Minute)))

	second, err := svc.Assign(t.Context(), b.ID, AssignOptions{Priority: 5})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, DefaultPriority, second.Priority)

	var count int64
	require.NoError(t, f.conn.Model(&models.JobQueueEntry{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Len(t, f.outboxEvents(t, enums.EventBookingQueued), 1)
}

func TestAssignCopiesBookingLocation(t *testing.T) {
	f := newFixture(t)
	svc := newQueueService(t, f)
	b := f.booking(t, "gardening")

	entry, err := svc.Assign(t.Context(), b.ID, AssignOptions{Priority: 4, MaxRadiusKm: 7.5})
	require.NoError(t, err)
	assert.Equal(t, "gardening", entry.ServiceType)
	assert.Equal(t, b.Latitude, entry.CustomerLatitude)
	assert.Equal(t, b.Longitude, entry.CustomerLongitude)
	assert.Equal(t, 4, entry.Priority)
	assert.Equal(t, 7.5, entry.MaxRadiusKm)
}

func TestAssignValidation(t *testing.T) {
	f := newFixture(t)
	svc := newQueueService(t, f)

	_, err := svc.Assign(t.Context(), uuid.New(), AssignOptions{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	b := f.booking(t, "cleaning")
	_, err = svc.Assign(t.Context(), b.ID, AssignOptions{Priority: 6})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Assign(t.Context(), uuid.Nil, AssignOptions{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAssignRejectsBookingWithProvider(t *testing.T) {
	f := newFixture(t)
	svc := newQueueService(t, f)
	b := f.booking(t, "cleaning")
	providerID := uuid.New()
	require.NoError(t, f.conn.Model(b).Update("provider_id", providerID).Error)

	_, err := svc.Assign(t.Context(), b.ID, AssignOptions{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestAssignTxRollsBackWithCaller(t *testing.T) {
	f := newFixture(t)
	svc := newQueueService(t, f)
	b := f.booking(t, "cleaning")

	err := f.client.WithTx(t.Context(), func(tx *gorm.DB) error {
		if _, err := svc.AssignTx(t.Context(), tx, b, AssignOptions{}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = svc.Status(t.Context(), b.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, f.outboxEvents(t, enums.EventBookingQueued))
}
