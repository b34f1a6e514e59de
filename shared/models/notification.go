package models

// NotificationLevel mirrors toast severities
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a transient user-visible message
type Notification struct {
	ConversationID string            `json:"conversationId,omitempty"`
	Level          NotificationLevel `json:"level"`
	Title          string            `json:"title"`
	Description    string            `json:"description,omitempty"`
}
