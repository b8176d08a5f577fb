package jobqueue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/enums"
)

// MemoryQueue is an in-process WorkQueue for local runs and processor tests.
// Availability reports whether a provider can still take work at commit time.
// A provider that won an entry here is not offered another one.
type MemoryQueue struct {
	mu           sync.Mutex
	entries      map[uuid.UUID]*models.JobQueueEntry
	byBooking    map[uuid.UUID]uuid.UUID
	assigned     map[uuid.UUID]uuid.UUID
	busy         map[uuid.UUID]uuid.UUID
	Availability func(providerID uuid.UUID) bool
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		entries:   make(map[uuid.UUID]*models.JobQueueEntry),
		byBooking: make(map[uuid.UUID]uuid.UUID),
		assigned:  make(map[uuid.UUID]uuid.UUID),
		busy:      make(map[uuid.UUID]uuid.UUID),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, entry *models.JobQueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.byBooking[entry.BookingID]; ok {
		return nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Status == "" {
		entry.Status = enums.JobStatusPending
	}
	cp := *entry
	q.entries[cp.ID] = &cp
	q.byBooking[cp.BookingID] = cp.ID
	return nil
}

func (q *MemoryQueue) Pending(_ context.Context, now time.Time, limit int) ([]models.JobQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.JobQueueEntry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.Status == enums.JobStatusPending && e.ExpiresAt.After(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *MemoryQueue) Commit(_ context.Context, a Assignment) (CommitOutcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Availability != nil && !q.Availability(a.Provider.ProviderID) {
		return CommitProviderUnavailable, nil
	}
	if _, held := q.busy[a.Provider.ProviderID]; held {
		return CommitProviderUnavailable, nil
	}
	e, ok := q.entries[a.Entry.ID]
	if !ok || e.Status != enums.JobStatusPending || !e.ExpiresAt.After(a.At) {
		return CommitEntryClosed, nil
	}
	if _, taken := q.assigned[e.BookingID]; taken {
		return CommitEntryClosed, nil
	}
	providerID := a.Provider.ProviderID
	at := a.At
	e.Status = enums.JobStatusAssigned
	e.AssignedProviderID = &providerID
	e.AssignedAt = &at
	q.assigned[e.BookingID] = providerID
	q.busy[providerID] = e.BookingID
	return CommitAssigned, nil
}

func (q *MemoryQueue) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int64
	for _, e := range q.entries {
		if e.Status == enums.JobStatusPending && !e.ExpiresAt.After(now) {
			e.Status = enums.JobStatusExpired
			n++
		}
	}
	return n, nil
}

// Entry returns a copy of the entry queued for the booking.
func (q *MemoryQueue) Entry(bookingID uuid.UUID) (models.JobQueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id, ok := q.byBooking[bookingID]
	if !ok {
		return models.JobQueueEntry{}, false
	}
	return *q.entries[id], true
}
