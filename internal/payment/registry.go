package payment

import (
	"errors"
	"sync"
)

var (
	// ErrUnknownTrip is returned for a trip that has not been mounted
	ErrUnknownTrip = errors.New("no payment in progress for trip")
	// ErrAttemptInFlight is returned when a trip is remounted elsewhere while an attempt is running
	ErrAttemptInFlight = errors.New("payment attempt in progress for trip")
)

// Factory builds the Machine for a trip mounted in a conversation
type Factory func(tripID, conversationID, interruptID string) (*Machine, error)

// Registry keeps one Machine per trip id
type Registry struct {
	mu       sync.Mutex
	machines map[string]*Machine
	factory  Factory
}

// NewRegistry creates an empty Registry
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		machines: make(map[string]*Machine),
		factory:  factory,
	}
}

// Mount returns the trip's Machine, creating it on first use. A mount under a
// different conversation or interrupt replaces the Machine so the outcome
// resumes the new suspension; the replacement hydrates from the persisted
// record. It fails with ErrAttemptInFlight while the old binding is running.
func (r *Registry) Mount(tripID, conversationID, interruptID string) (*Machine, error) {
	if tripID == "" {
		return nil, ErrMissingTripID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.machines[tripID]; ok {
		if m.boundTo(conversationID, interruptID) {
			return m, nil
		}
		if m.InFlight() {
			return nil, ErrAttemptInFlight
		}
	}
	m, err := r.factory(tripID, conversationID, interruptID)
	if err != nil {
		return nil, err
	}
	r.machines[tripID] = m
	return m, nil
}

// Get returns a mounted Machine
func (r *Registry) Get(tripID string) (*Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[tripID]
	if !ok {
		return nil, ErrUnknownTrip
	}
	return m, nil
}

// Unmount forgets a trip's Machine; its persisted record is untouched
func (r *Registry) Unmount(tripID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.machines, tripID)
}
