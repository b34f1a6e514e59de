package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/internal/checkout"
	"github.com/cx-tal-miterani/booking-assistant/internal/conversation"
	"github.com/cx-tal-miterani/booking-assistant/internal/interrupt"
	"github.com/cx-tal-miterani/booking-assistant/internal/payment"
	"github.com/cx-tal-miterani/booking-assistant/internal/repository"
	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/google/uuid"
)

// ErrInvalidRequest is returned for requests the service refuses to act on
var ErrInvalidRequest = errors.New("invalid request")

// AssistantService defines the assistant service interface
type AssistantService interface {
	StartConversation(ctx context.Context, req *models.StartConversationRequest) (*models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*models.ConversationView, error)
	SubmitResponse(ctx context.Context, conversationID string, req *models.SubmitResponseRequest) error
	MountPayment(ctx context.Context, tripID, conversationID, interruptID string) (models.PaymentState, error)
	Pay(ctx context.Context, tripID string) (models.PaymentState, error)
	GetPayment(ctx context.Context, tripID string) (models.PaymentState, error)
	CompleteCheckout(ctx context.Context, tripID string, cb models.CheckoutCallback) error
	DismissCheckout(ctx context.Context, tripID string) error
}

// Engine is the conversation host
type Engine interface {
	Start(ctx context.Context, input models.ConversationInput) (string, error)
	State(ctx context.Context, conversationID string) (*models.ConversationState, error)
	Handle(conversationID string) interrupt.Conversation
}

// ConversationStore persists conversation records. It is optional.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListResumptions(ctx context.Context, conversationID string) ([]models.TranscriptEntry, error)
}

// PaymentPublisher pushes payment state to the browser
type PaymentPublisher interface {
	PublishPaymentState(ctx context.Context, conversationID, tripID string, state models.PaymentState)
}

// Deps wires an AssistantService
type Deps struct {
	Engine    Engine
	Store     ConversationStore
	Identity  interrupt.Identity
	Submitter *interrupt.Submitter
	Payments  *payment.Registry
	Checkout  *checkout.Bridge
	Publisher PaymentPublisher
	Logger    *slog.Logger
}

type assistantServiceImpl struct {
	Deps
	logger *slog.Logger
}

// NewAssistantService creates a new AssistantService
func NewAssistantService(deps Deps) AssistantService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &assistantServiceImpl{Deps: deps, logger: logger}
}

func (s *assistantServiceImpl) StartConversation(ctx context.Context, req *models.StartConversationRequest) (*models.Conversation, error) {
	for i, step := range req.Steps {
		if len(step.Interrupts) == 0 {
			return nil, fmt.Errorf("%w: step %d has no interrupts", ErrInvalidRequest, i)
		}
		for _, in := range step.Interrupts {
			if !in.Widget.CollectsInput() {
				return nil, fmt.Errorf("%w: widget %s does not collect input", ErrInvalidRequest, in.Widget)
			}
		}
	}

	input := models.ConversationInput{
		ConversationID: uuid.NewString(),
		Steps:          req.Steps,
	}
	if s.Identity != nil {
		input.UserID = s.Identity.CurrentUserID(ctx)
	}

	workflowID, err := s.Engine.Start(ctx, input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:         input.ConversationID,
		UserID:     input.UserID,
		WorkflowID: workflowID,
		Status:     models.ConversationStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if s.Store != nil {
		if err := s.Store.CreateConversation(ctx, conv); err != nil {
			s.logger.Error("Failed to persist conversation", "conversationId", conv.ID, "error", err)
		}
	}
	return conv, nil
}

func (s *assistantServiceImpl) GetConversation(ctx context.Context, conversationID string) (*models.ConversationView, error) {
	state, err := s.Engine.State(ctx, conversationID)
	if err != nil {
		if errors.Is(err, conversation.ErrConversationNotFound) && s.Store != nil {
			return s.archivedConversation(ctx, conversationID, err)
		}
		return nil, err
	}

	view := &models.ConversationView{
		Conversation: models.Conversation{ID: conversationID, Status: state.Status},
		Pending:      state.Pending,
		Transcript:   state.Transcript,
	}
	if s.Store != nil {
		stored, err := s.Store.GetConversation(ctx, conversationID)
		switch {
		case err == nil:
			view.Conversation = *stored
			view.Status = state.Status
		case errors.Is(err, repository.ErrNotFound):
		default:
			s.logger.Warn("Failed to load conversation record", "conversationId", conversationID, "error", err)
		}
	}
	return view, nil
}

// archivedConversation serves a conversation whose workflow is gone from the
// stored record. notFound is returned when there is no record either.
func (s *assistantServiceImpl) archivedConversation(ctx context.Context, conversationID string, notFound error) (*models.ConversationView, error) {
	stored, err := s.Store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to load conversation record: %w", err)
	}
	transcript, err := s.Store.ListResumptions(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return &models.ConversationView{
		Conversation: *stored,
		Pending:      []models.Interrupt{},
		Transcript:   transcript,
	}, nil
}

func (s *assistantServiceImpl) SubmitResponse(ctx context.Context, conversationID string, req *models.SubmitResponseRequest) error {
	resp, err := models.DecodeWidgetResponse(req.Widget, req.Response)
	if err != nil {
		return err
	}

	opts := interrupt.Options{InterruptID: req.InterruptID}
	if len(req.Args) > 0 {
		frozen, err := models.NewFrozenValue(req.Widget, req.Args)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		opts.FrozenValue = frozen
	}

	return s.Submitter.SubmitResponse(ctx, s.Engine.Handle(conversationID), resp, opts)
}

// MountPayment mounts the trip's payment and, unless suppressed, starts the
// attempt in the background. The returned state is the mounted state.
func (s *assistantServiceImpl) MountPayment(ctx context.Context, tripID, conversationID, interruptID string) (models.PaymentState, error) {
	if conversationID == "" {
		return models.PaymentState{}, fmt.Errorf("%w: conversationId is required", ErrInvalidRequest)
	}
	m, err := s.Payments.Mount(tripID, conversationID, interruptID)
	if err != nil {
		return models.PaymentState{}, err
	}

	state := m.Init(ctx)
	s.background(ctx, m, m.Start)
	return state, nil
}

func (s *assistantServiceImpl) Pay(ctx context.Context, tripID string) (models.PaymentState, error) {
	m, err := s.Payments.Get(tripID)
	if err != nil {
		return models.PaymentState{}, err
	}
	s.background(ctx, m, m.Pay)
	return m.State(), nil
}

func (s *assistantServiceImpl) GetPayment(ctx context.Context, tripID string) (models.PaymentState, error) {
	m, err := s.Payments.Get(tripID)
	if err != nil {
		return models.PaymentState{}, err
	}
	return m.State(), nil
}

func (s *assistantServiceImpl) CompleteCheckout(ctx context.Context, tripID string, cb models.CheckoutCallback) error {
	if cb.RazorpayPaymentID == "" || cb.RazorpaySignature == "" {
		return fmt.Errorf("%w: razorpay_payment_id and razorpay_signature are required", ErrInvalidRequest)
	}
	return s.Checkout.Complete(tripID, cb)
}

func (s *assistantServiceImpl) DismissCheckout(ctx context.Context, tripID string) error {
	return s.Checkout.Dismiss(tripID)
}

// background runs an attempt detached from the request, keeping its values
// (the caller's credential) but not its cancellation.
func (s *assistantServiceImpl) background(ctx context.Context, m *payment.Machine, run func(context.Context) models.PaymentState) {
	detached := context.WithoutCancel(ctx)
	go func() {
		state := run(detached)
		s.logger.Info("Payment attempt settled", "tripId", m.TripID(), "status", state.Status)
		if s.Publisher != nil {
			s.Publisher.PublishPaymentState(detached, m.ConversationID(), m.TripID(), state)
		}
	}()
}
