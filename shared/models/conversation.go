package models

import (
	"encoding/json"
	"time"
)

// Conversation is the persisted record of a conversation
type Conversation struct {
	ID         string             `json:"id"`
	UserID     string             `json:"userId,omitempty"`
	WorkflowID string             `json:"workflowId"`
	Status     ConversationStatus `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// ConversationView is the API view of a conversation
type ConversationView struct {
	Conversation
	Pending    []Interrupt       `json:"pending"`
	Transcript []TranscriptEntry `json:"transcript"`
}

// StartConversationRequest is the request body for starting a conversation
type StartConversationRequest struct {
	Steps []ConversationStep `json:"steps"`
}

// SubmitResponseRequest is the request body for answering an interrupt
type SubmitResponseRequest struct {
	InterruptID string          `json:"interruptId,omitempty"`
	Widget      WidgetType      `json:"widget"`
	Args        json.RawMessage `json:"args,omitempty"`
	Response    json.RawMessage `json:"response"`
}
