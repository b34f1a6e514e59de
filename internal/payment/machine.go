package payment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/internal/interrupt"
	"github.com/cx-tal-miterani/booking-assistant/shared/models"
)

const (
	// DefaultResumeTimeout bounds the post-success conversation resume
	DefaultResumeTimeout = 5 * time.Second
	// DefaultViewSwitchDelay is how long after a terminal resume the host
	// switches back to the conversation view
	DefaultViewSwitchDelay = time.Second

	ReasonCancelled          = "Payment cancelled by user"
	ReasonCheckoutNotLoaded  = "Payment gateway not loaded. Please refresh the page."
	ReasonPrepaymentFailed   = "Payment initiation failed"
	ReasonVerificationFailed = "Verification failed"
)

// ErrMissingTripID is returned when a machine is built without a trip id
var ErrMissingTripID = errors.New("trip ID is required but not provided")

// API is the backend prepayment and verification surface
type API interface {
	ExecutePrepayment(ctx context.Context, tripID string) (*models.PrepaymentResponse, error)
	VerifyTransaction(ctx context.Context, req models.VerifyRequest) (*models.VerificationResponse, error)
}

// CheckoutGateway opens the external checkout and waits for it to report
// success or dismissal.
type CheckoutGateway interface {
	// Ready returns an error when the checkout cannot be opened at all.
	Ready(ctx context.Context) error
	Open(ctx context.Context, opts models.CheckoutOptions) (models.CheckoutResult, error)
}

// ViewSwitcher moves the hosting UI back to the conversation
type ViewSwitcher interface {
	SwitchToChat(ctx context.Context, conversationID string)
}

// Config wires one Machine
type Config struct {
	TripID         string
	ConversationID string
	// InterruptID targets a specific suspension; empty resumes the most recent one.
	InterruptID string

	Conversation interrupt.Conversation
	Submitter    *interrupt.Submitter
	API          API
	Checkout     CheckoutGateway
	Records      *RecordStore
	Notifier     interrupt.Notifier
	Views        ViewSwitcher
	Logger       *slog.Logger

	ResumeTimeout   time.Duration
	ViewSwitchDelay time.Duration
	Prefill         models.CheckoutPrefill
	ThemeColor      string
}

// Machine reconciles one trip's payment. It is safe for concurrent use; a
// trigger while an attempt is in flight or after success is ignored.
type Machine struct {
	cfg    Config
	logger *slog.Logger

	mu              sync.Mutex
	state           models.PaymentState
	initialized     bool
	suppressAuto    bool
	attempt         int
	switchedAttempt int
}

// NewMachine validates cfg and creates an idle Machine
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.TripID == "" {
		return nil, ErrMissingTripID
	}
	if cfg.Conversation == nil || cfg.Submitter == nil || cfg.API == nil || cfg.Checkout == nil || cfg.Records == nil {
		return nil, errors.New("payment machine requires conversation, submitter, api, checkout and records")
	}
	if cfg.ResumeTimeout <= 0 {
		cfg.ResumeTimeout = DefaultResumeTimeout
	}
	if cfg.ViewSwitchDelay < 0 {
		cfg.ViewSwitchDelay = 0
	}
	if cfg.ThemeColor == "" {
		cfg.ThemeColor = "#3B82F6"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		cfg:    cfg,
		logger: logger.With("tripId", cfg.TripID, "conversationId", cfg.ConversationID),
		state:  models.PaymentState{Status: models.PaymentStatusIdle},
	}, nil
}

// TripID returns the transaction this machine reconciles
func (m *Machine) TripID() string {
	return m.cfg.TripID
}

// ConversationID returns the conversation the outcome is reported to
func (m *Machine) ConversationID() string {
	return m.cfg.ConversationID
}

// InterruptID returns the suspension the outcome resumes; empty means the most recent one
func (m *Machine) InterruptID() string {
	return m.cfg.InterruptID
}

// InFlight reports whether an attempt is loading or processing
func (m *Machine) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Status == models.PaymentStatusLoading || m.state.Status == models.PaymentStatusProcessing
}

func (m *Machine) boundTo(conversationID, interruptID string) bool {
	return m.cfg.ConversationID == conversationID && m.cfg.InterruptID == interruptID
}

// State returns the current payment state
func (m *Machine) State() models.PaymentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Init reads the persisted record once and seeds state from it. A success
// record hydrates straight into success; a suppression flag keeps the machine
// idle until an explicit Pay.
func (m *Machine) Init(ctx context.Context) models.PaymentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initLocked(ctx)
	return m.state
}

func (m *Machine) initLocked(ctx context.Context) {
	if m.initialized {
		return
	}
	m.initialized = true

	rec, ok, err := m.cfg.Records.Load(ctx, m.cfg.TripID)
	if err != nil {
		// an unreadable record may hide a completed payment
		m.logger.Error("Failed to read payment record, auto-trigger suppressed", "error", err)
		m.suppressAuto = true
		return
	}
	if !ok {
		return
	}
	if next, err := Transition(m.state, Hydrate{Record: *rec}); err == nil {
		m.state = next
		m.logger.Info("Payment hydrated from persisted success record")
		return
	}
	if rec.PreventAutoTrigger {
		m.suppressAuto = true
		m.logger.Info("Payment auto-trigger suppressed", "persistedStatus", rec.Status)
	}
}

// Start is the mount step: Init, then begin an attempt unless the persisted
// record says otherwise. It blocks until the attempt ends.
func (m *Machine) Start(ctx context.Context) models.PaymentState {
	m.mu.Lock()
	m.initLocked(ctx)
	auto := !m.suppressAuto && m.state.Status == models.PaymentStatusIdle
	m.mu.Unlock()

	if auto {
		m.run(ctx, Initiate{})
	}
	return m.State()
}

// Pay is the explicit user action. From idle it starts an attempt even when
// auto-trigger was suppressed; from failed it clears the persisted record and
// retries. In any other state it is a no-op. It blocks until the attempt ends.
func (m *Machine) Pay(ctx context.Context) models.PaymentState {
	m.mu.Lock()
	m.initLocked(ctx)
	status := m.state.Status
	m.mu.Unlock()

	switch status {
	case models.PaymentStatusIdle:
		m.run(ctx, Initiate{})
	case models.PaymentStatusFailed:
		m.run(ctx, Retry{})
	default:
		m.logger.Debug("Payment trigger ignored", "status", status)
	}
	return m.State()
}

// run drives one attempt from loading to a terminal state
func (m *Machine) run(ctx context.Context, start Event) {
	attempt, ok := m.begin(ctx, start)
	if !ok {
		return
	}

	if err := m.cfg.Checkout.Ready(ctx); err != nil {
		m.logger.Error("Checkout unavailable", "error", err)
		m.fail(ctx, attempt, ReasonCheckoutNotLoaded, false)
		return
	}

	m.logger.Info("Initiating prepayment")
	prepayment, err := m.cfg.API.ExecutePrepayment(ctx, m.cfg.TripID)
	if err == nil && prepayment == nil {
		err = errors.New("empty prepayment response")
	}
	if err == nil && !prepayment.Success {
		err = errors.New(prepayment.Message)
	}
	if err != nil {
		m.logger.Error("Prepayment failed", "error", err)
		m.fail(ctx, attempt, reasonFrom(err, ReasonPrepaymentFailed), false)
		return
	}

	if !m.advance(attempt, PrepaymentSucceeded{Data: prepayment.Data}) {
		return
	}

	result, err := m.cfg.Checkout.Open(ctx, m.checkoutOptions(prepayment.Data))
	if err != nil {
		m.logger.Error("Checkout failed", "error", err)
		m.fail(ctx, attempt, reasonFrom(err, ReasonCheckoutNotLoaded), false)
		return
	}
	if result.Outcome != models.CheckoutCompleted {
		m.logger.Info("Checkout dismissed by user")
		m.fail(ctx, attempt, ReasonCancelled, true)
		return
	}

	verification, err := m.cfg.API.VerifyTransaction(ctx, models.VerifyRequest{
		TripID:            m.cfg.TripID,
		TransactionID:     prepayment.Data.Transaction.TransactionID,
		RazorpayPaymentID: result.Callback.RazorpayPaymentID,
		RazorpaySignature: result.Callback.RazorpaySignature,
		RazorpayOrderID:   result.Callback.RazorpayOrderID,
	})
	if err == nil && verification == nil {
		err = errors.New("empty verification response")
	}
	if err != nil {
		m.logger.Error("Transaction verification failed", "error", err)
		m.fail(ctx, attempt, reasonFrom(err, ReasonVerificationFailed), false)
		return
	}

	m.succeed(ctx, attempt, *verification)
}

func (m *Machine) begin(ctx context.Context, start Event) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := Transition(m.state, start)
	if err != nil {
		m.logger.Debug("Payment trigger ignored", "status", m.state.Status)
		return 0, false
	}

	if _, retry := start.(Retry); retry {
		if err := m.cfg.Records.Clear(ctx, m.cfg.TripID); err != nil {
			m.logger.Error("Failed to clear payment record", "error", err)
		}
	}

	m.state = next
	m.attempt++
	m.save(ctx, models.PersistedPaymentRecord{
		Status:             models.PaymentStatusAttempted,
		PreventAutoTrigger: true,
	})
	return m.attempt, true
}

// advance applies ev if attempt is still the current one
func (m *Machine) advance(attempt int, ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attempt != m.attempt {
		return false
	}
	next, err := Transition(m.state, ev)
	if err != nil {
		m.logger.Warn("Payment event dropped", "error", err)
		return false
	}
	m.state = next
	return true
}

func (m *Machine) fail(ctx context.Context, attempt int, reason string, cancelled bool) {
	if !m.advance(attempt, Failed{Reason: reason, Cancelled: cancelled}) {
		return
	}

	m.mu.Lock()
	m.save(ctx, models.PersistedPaymentRecord{
		Status:             models.PaymentStatusFailed,
		PreventAutoTrigger: true,
		Error:              reason,
	})
	m.mu.Unlock()

	if cancelled {
		m.notify(ctx, models.NotificationInfo, "Payment cancelled", "")
	} else {
		m.notify(ctx, models.NotificationError, "Payment failed", reason)
	}

	resumeCtx := context.WithoutCancel(ctx)
	if err := m.submit(resumeCtx, models.FailedPaymentResult()); err != nil {
		m.logger.Error("Failed to resume conversation with payment failure", "error", err)
	}
	m.switchToChat(attempt)
}

func (m *Machine) succeed(ctx context.Context, attempt int, verification models.VerificationResponse) {
	if !m.advance(attempt, Verified{Response: verification}) {
		return
	}

	m.mu.Lock()
	state := m.state
	m.save(ctx, models.PersistedPaymentRecord{
		Status:               models.PaymentStatusSuccess,
		VerificationResponse: state.VerificationResponse,
		PreventAutoTrigger:   true,
	})
	m.mu.Unlock()

	if verification.BothSucceeded() {
		m.notify(ctx, models.NotificationSuccess, "Payment and booking completed successfully!", "")
	} else {
		m.notify(ctx, models.NotificationWarning, "Payment completed but booking status needs attention",
			DescribeBookingStatus(verification.Data.BookingStatus))
	}

	result := models.PaymentResult{
		PaymentStatus: verification.Data.PaymentStatus,
		BookingStatus: verification.Data.BookingStatus,
		PNR:           ExtractPNR(&verification),
		PaymentMethod: PaymentMethod(&verification),
	}
	if state.PrepaymentData != nil {
		result.TransactionID = state.PrepaymentData.Transaction.TransactionID
	}
	m.resumeWithTimeout(ctx, result)
	m.switchToChat(attempt)
}

// resumeWithTimeout races the resume against ResumeTimeout. The payment stays
// successful whatever happens to the notification.
func (m *Machine) resumeWithTimeout(ctx context.Context, result models.PaymentResult) {
	resumeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ResumeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.submit(resumeCtx, result)
	}()

	select {
	case err := <-done:
		if err != nil {
			m.logger.Error("Failed to resume conversation after successful payment", "error", err)
		}
	case <-resumeCtx.Done():
		// the result is dropped; the success record stays authoritative
		m.logger.Error("Timed out resuming conversation after successful payment", "timeout", m.cfg.ResumeTimeout)
	}
}

func (m *Machine) submit(ctx context.Context, result any) error {
	return m.cfg.Submitter.Submit(ctx, m.cfg.Conversation, models.ResumptionTypeResponse, result, interrupt.Options{
		InterruptID: m.cfg.InterruptID,
	})
}

// switchToChat fires at most once per attempt
func (m *Machine) switchToChat(attempt int) {
	if m.cfg.Views == nil {
		return
	}
	m.mu.Lock()
	if m.switchedAttempt >= attempt {
		m.mu.Unlock()
		return
	}
	m.switchedAttempt = attempt
	m.mu.Unlock()

	time.AfterFunc(m.cfg.ViewSwitchDelay, func() {
		m.cfg.Views.SwitchToChat(context.Background(), m.cfg.ConversationID)
	})
}

// save must be called with mu held
func (m *Machine) save(ctx context.Context, rec models.PersistedPaymentRecord) {
	if err := m.cfg.Records.Save(context.WithoutCancel(ctx), m.cfg.TripID, rec); err != nil {
		m.logger.Error("Failed to persist payment record", "status", rec.Status, "error", err)
	}
}

func (m *Machine) notify(ctx context.Context, level models.NotificationLevel, title, description string) {
	if m.cfg.Notifier == nil {
		return
	}
	m.cfg.Notifier.Notify(ctx, models.Notification{
		ConversationID: m.cfg.ConversationID,
		Level:          level,
		Title:          title,
		Description:    description,
	})
}

func (m *Machine) checkoutOptions(data models.PrepaymentData) models.CheckoutOptions {
	tx := data.Transaction
	currency := tx.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return models.CheckoutOptions{
		Key:         tx.Key,
		Amount:      ToSmallestUnit(tx.Amount),
		Currency:    currency,
		Name:        tx.Name,
		Description: tx.Description,
		OrderID:     tx.RazorpayOrderID,
		Prefill:     m.cfg.Prefill,
		Notes: map[string]string{
			"trip_id":        m.cfg.TripID,
			"transaction_id": tx.TransactionID,
		},
		Theme: models.CheckoutTheme{Color: m.cfg.ThemeColor},
	}
}

func reasonFrom(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
