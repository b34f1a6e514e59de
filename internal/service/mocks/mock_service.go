package mocks

import (
	"context"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/stretchr/testify/mock"
)

// MockAssistantService is a mock implementation of AssistantService
type MockAssistantService struct {
	mock.Mock
}

func (m *MockAssistantService) StartConversation(ctx context.Context, req *models.StartConversationRequest) (*models.Conversation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockAssistantService) GetConversation(ctx context.Context, conversationID string) (*models.ConversationView, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConversationView), args.Error(1)
}

func (m *MockAssistantService) SubmitResponse(ctx context.Context, conversationID string, req *models.SubmitResponseRequest) error {
	args := m.Called(ctx, conversationID, req)
	return args.Error(0)
}

func (m *MockAssistantService) MountPayment(ctx context.Context, tripID, conversationID, interruptID string) (models.PaymentState, error) {
	args := m.Called(ctx, tripID, conversationID, interruptID)
	return args.Get(0).(models.PaymentState), args.Error(1)
}

func (m *MockAssistantService) Pay(ctx context.Context, tripID string) (models.PaymentState, error) {
	args := m.Called(ctx, tripID)
	return args.Get(0).(models.PaymentState), args.Error(1)
}

func (m *MockAssistantService) GetPayment(ctx context.Context, tripID string) (models.PaymentState, error) {
	args := m.Called(ctx, tripID)
	return args.Get(0).(models.PaymentState), args.Error(1)
}

func (m *MockAssistantService) CompleteCheckout(ctx context.Context, tripID string, cb models.CheckoutCallback) error {
	args := m.Called(ctx, tripID, cb)
	return args.Error(0)
}

func (m *MockAssistantService) DismissCheckout(ctx context.Context, tripID string) error {
	args := m.Called(ctx, tripID)
	return args.Error(0)
}
