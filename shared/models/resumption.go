package models

import (
	"encoding/json"
	"time"
)

// Resumption type tags
const (
	ResumptionTypeResponse            = "response"
	ResumptionTypeBookingConfirmation = "booking_confirmation"
)

// ResumptionMessage is the envelope that unsuspends a conversation
type ResumptionMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ResumeOptions scopes a resume call
type ResumeOptions struct {
	InterruptID string       `json:"interruptId,omitempty"`
	FrozenValue *FrozenValue `json:"frozenValue,omitempty"`
	UserID      string       `json:"userId,omitempty"`
}

// NewResumption marshals data into a resumption message of the given type.
func NewResumption[T any](typ string, data T) (ResumptionMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return ResumptionMessage{}, err
	}
	return ResumptionMessage{Type: typ, Data: raw}, nil
}

// Interrupt represents a suspension point raised by the conversation
type Interrupt struct {
	ID        string          `json:"id"`
	Widget    WidgetType      `json:"widget"`
	Args      json.RawMessage `json:"args,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// InterruptRequest describes an interrupt the conversation should raise
type InterruptRequest struct {
	Widget WidgetType      `json:"widget"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// ConversationStep groups interrupts that are pending at the same time
type ConversationStep struct {
	Interrupts []InterruptRequest `json:"interrupts"`
}

// ConversationInput is the input for the conversation workflow
type ConversationInput struct {
	ConversationID string             `json:"conversationId"`
	UserID         string             `json:"userId,omitempty"`
	Steps          []ConversationStep `json:"steps"`
}

// ConversationStatus represents the lifecycle of a conversation
type ConversationStatus string

const (
	ConversationStatusActive    ConversationStatus = "active"
	ConversationStatusCompleted ConversationStatus = "completed"
	ConversationStatusExpired   ConversationStatus = "expired"
	ConversationStatusCancelled ConversationStatus = "cancelled"
)

// TranscriptEntry is one answered interrupt
type TranscriptEntry struct {
	Interrupt   Interrupt           `json:"interrupt"`
	Messages    []ResumptionMessage `json:"messages"`
	FrozenValue *FrozenValue        `json:"frozenValue,omitempty"`
	UserID      string              `json:"userId,omitempty"`
	ResumedAt   time.Time           `json:"resumedAt"`
}

// ConversationResult is the result of the conversation workflow
type ConversationResult struct {
	ConversationID string             `json:"conversationId"`
	Status         ConversationStatus `json:"status"`
	Transcript     []TranscriptEntry  `json:"transcript"`
}

// ConversationState is the queryable view of a running conversation
type ConversationState struct {
	ConversationID string             `json:"conversationId"`
	Status         ConversationStatus `json:"status"`
	Pending        []Interrupt        `json:"pending"`
	Transcript     []TranscriptEntry  `json:"transcript"`
}

// Signals for workflow communication
const (
	SignalResume = "resume"
)

// Queries for workflow state
const (
	QueryPendingInterrupts = "pending_interrupts"
	QueryConversationState = "conversation_state"
)

// ResumeSignal is sent to unsuspend one pending interrupt
type ResumeSignal struct {
	InterruptID string              `json:"interruptId,omitempty"`
	Messages    []ResumptionMessage `json:"messages"`
	FrozenValue *FrozenValue        `json:"frozenValue,omitempty"`
	UserID      string              `json:"userId,omitempty"`
}

// Activity inputs
type RecordResumptionInput struct {
	ConversationID string          `json:"conversationId"`
	Entry          TranscriptEntry `json:"entry"`
}

type CompleteConversationInput struct {
	ConversationID string             `json:"conversationId"`
	Status         ConversationStatus `json:"status"`
}
