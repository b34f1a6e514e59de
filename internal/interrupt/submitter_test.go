package interrupt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConversation struct {
	mock.Mock
}

func (m *mockConversation) Resume(ctx context.Context, messages []models.ResumptionMessage, opts models.ResumeOptions) error {
	args := m.Called(ctx, messages, opts)
	return args.Error(0)
}

func (m *mockConversation) ID() string { return "conv-1" }

type staticIdentity string

func (s staticIdentity) CurrentUserID(ctx context.Context) string { return string(s) }

type recordingNotifier struct {
	mu    sync.Mutex
	items []models.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func TestSubmit_SingleResumeMessage(t *testing.T) {
	conv := new(mockConversation)
	notifier := &recordingNotifier{}
	s := NewSubmitter(staticIdentity("user-42"), notifier, nil)

	conv.On("Resume", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	err := s.Submit(context.Background(), conv, "response", map[string]string{"seatNumber": "14F"}, Options{})
	require.NoError(t, err)

	conv.AssertNumberOfCalls(t, "Resume", 1)
	messages := conv.Calls[0].Arguments.Get(1).([]models.ResumptionMessage)
	opts := conv.Calls[0].Arguments.Get(2).(models.ResumeOptions)

	require.Len(t, messages, 1)
	assert.Equal(t, "response", messages[0].Type)
	assert.JSONEq(t, `{"seatNumber":"14F"}`, string(messages[0].Data))
	assert.Equal(t, "user-42", opts.UserID)
	assert.Empty(t, opts.InterruptID)
	assert.Nil(t, opts.FrozenValue)
	assert.Empty(t, notifier.items)
}

func TestSubmit_TargetsInterruptWithFrozenValue(t *testing.T) {
	conv := new(mockConversation)
	s := NewSubmitter(nil, nil, nil)

	frozen, err := models.NewFrozenValue(models.WidgetSeatSelection, map[string][]string{"selectedSeatIds": {"14F"}})
	require.NoError(t, err)

	conv.On("Resume", mock.Anything, mock.Anything, mock.MatchedBy(func(opts models.ResumeOptions) bool {
		return opts.InterruptID == "int-7" && opts.FrozenValue == frozen && opts.UserID == ""
	})).Return(nil).Once()

	err = s.Submit(context.Background(), conv, "response", map[string]any{"selectedSeat": "14F"}, Options{
		InterruptID: "int-7",
		FrozenValue: frozen,
	})
	require.NoError(t, err)
	conv.AssertExpectations(t)
}

func TestSubmit_PropagatesErrorAndNotifies(t *testing.T) {
	conv := new(mockConversation)
	notifier := &recordingNotifier{}
	s := NewSubmitter(nil, notifier, nil)

	networkErr := errors.New("network")
	conv.On("Resume", mock.Anything, mock.Anything, mock.Anything).Return(networkErr).Once()

	err := s.Submit(context.Background(), conv, "response", map[string]string{"seatNumber": "14F"}, Options{})
	assert.Same(t, networkErr, err)

	conv.AssertNumberOfCalls(t, "Resume", 1)
	require.Len(t, notifier.items, 1)
	assert.Equal(t, models.NotificationError, notifier.items[0].Level)
	assert.Equal(t, "Failed to submit response.", notifier.items[0].Description)
	assert.Equal(t, "conv-1", notifier.items[0].ConversationID)
}

func TestSubmit_RejectsUnserializableData(t *testing.T) {
	conv := new(mockConversation)
	s := NewSubmitter(nil, nil, nil)

	err := s.Submit(context.Background(), conv, "response", map[string]any{"ch": make(chan int)}, Options{})
	assert.ErrorIs(t, err, ErrUnserializable)
	conv.AssertNotCalled(t, "Resume", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitResponse_UsesWidgetTypeTag(t *testing.T) {
	conv := new(mockConversation)
	s := NewSubmitter(nil, nil, nil)

	conv.On("Resume", mock.Anything, mock.MatchedBy(func(msgs []models.ResumptionMessage) bool {
		return len(msgs) == 1 && msgs[0].Type == models.ResumptionTypeBookingConfirmation
	}), mock.Anything).Return(nil).Once()

	confirmation := &models.BookingConfirmation{
		Passenger: json.RawMessage(`{"firstName":"Asha"}`),
		Contact:   json.RawMessage(`{"email":"asha@example.com"}`),
		Total:     302.25,
	}
	require.NoError(t, s.SubmitResponse(context.Background(), conv, confirmation, Options{}))
	conv.AssertExpectations(t)
}
