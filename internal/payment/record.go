package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/internal/kvstore"
	"github.com/cx-tal-miterani/booking-assistant/shared/models"
)

// DefaultRecordPrefix namespaces payment records in the durable store
const DefaultRecordPrefix = "flyo:payment:"

// ErrCorruptRecord is returned when a persisted record cannot be decoded
var ErrCorruptRecord = errors.New("corrupt payment record")

// RecordStore persists PersistedPaymentRecords keyed by trip id
type RecordStore struct {
	store kvstore.Store
	now   func() time.Time
}

// NewRecordStore creates a RecordStore namespacing keys with prefix
func NewRecordStore(store kvstore.Store, prefix string) *RecordStore {
	if prefix == "" {
		prefix = DefaultRecordPrefix
	}
	return &RecordStore{
		store: kvstore.WithPrefix(store, prefix),
		now:   time.Now,
	}
}

// Load returns the record for tripID, ok=false when none exists
func (r *RecordStore) Load(ctx context.Context, tripID string) (*models.PersistedPaymentRecord, bool, error) {
	raw, ok, err := r.store.Get(ctx, tripID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load payment record: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var rec models.PersistedPaymentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &rec, true, nil
}

// Save overwrites the record for tripID
func (r *RecordStore) Save(ctx context.Context, tripID string, rec models.PersistedPaymentRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = r.now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode payment record: %w", err)
	}
	if err := r.store.Set(ctx, tripID, string(data)); err != nil {
		return fmt.Errorf("failed to save payment record: %w", err)
	}
	return nil
}

// Clear removes the record for tripID
func (r *RecordStore) Clear(ctx context.Context, tripID string) error {
	if err := r.store.Remove(ctx, tripID); err != nil {
		return fmt.Errorf("failed to clear payment record: %w", err)
	}
	return nil
}
