package models

import "time"

// PaymentStatus is the tag of the payment state machine
type PaymentStatus string

const (
	PaymentStatusIdle       PaymentStatus = "idle"
	PaymentStatusLoading    PaymentStatus = "loading"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSuccess    PaymentStatus = "success"
	PaymentStatusFailed     PaymentStatus = "failed"
	// PaymentStatusAttempted only appears in persisted records and marks an
	// explicit user initiation that has not reached a terminal state yet.
	PaymentStatusAttempted PaymentStatus = "attempted"
)

// IsTerminal reports whether the status ends a payment attempt
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// PaymentState represents the in-memory state of one payment transaction
type PaymentState struct {
	Status               PaymentStatus         `json:"status"`
	PrepaymentData       *PrepaymentData       `json:"prepaymentData,omitempty"`
	VerificationResponse *VerificationResponse `json:"verificationResponse,omitempty"`
	Error                string                `json:"error,omitempty"`
}

// PersistedPaymentRecord is the reload-safe record kept per trip
type PersistedPaymentRecord struct {
	Status               PaymentStatus         `json:"status"`
	VerificationResponse *VerificationResponse `json:"verificationResponse,omitempty"`
	PreventAutoTrigger   bool                  `json:"preventAutoTrigger"`
	Error                string                `json:"error,omitempty"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// Gateway-side statuses reported by verification
const (
	GatewayStatusSuccess = "SUCCESS"
	GatewayStatusFailed  = "FAILED"
	GatewayStatusPending = "PENDING"
)

// Transaction is the order created by the prepayment step
type Transaction struct {
	TransactionID   string  `json:"transaction_id"`
	ReferenceID     string  `json:"reference_id,omitempty"`
	RazorpayOrderID string  `json:"razorpay_order_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Key             string  `json:"key"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
}

// PrepaymentData is the opaque payload returned by the prepayment step
type PrepaymentData struct {
	Transaction Transaction `json:"transaction"`
}

// PrepaymentResponse is the prepayment API response
type PrepaymentResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    PrepaymentData `json:"data"`
}

// VerifyRequest is the verification API request
type VerifyRequest struct {
	TripID            string `json:"-"`
	TransactionID     string `json:"transaction_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
}

type AssociatedRecord struct {
	Reference string `json:"reference"`
}

type BookingData struct {
	AssociatedRecords []AssociatedRecord `json:"associatedRecords,omitempty"`
}

type PaymentData struct {
	Method string `json:"method,omitempty"`
}

// VerificationData carries server-confirmed payment and booking status
type VerificationData struct {
	PaymentStatus string       `json:"paymentStatus"`
	BookingStatus string       `json:"bookingStatus"`
	BookingError  string       `json:"bookingError,omitempty"`
	BookingData   *BookingData `json:"bookingData,omitempty"`
	PaymentData   *PaymentData `json:"paymentData,omitempty"`
}

// VerificationResponse is the verification API response
type VerificationResponse struct {
	Success bool             `json:"success"`
	Data    VerificationData `json:"data"`
}

// BothSucceeded reports whether payment and booking are both confirmed
func (v *VerificationResponse) BothSucceeded() bool {
	return v != nil &&
		v.Data.PaymentStatus == GatewayStatusSuccess &&
		v.Data.BookingStatus == GatewayStatusSuccess
}

// CheckoutPrefill pre-populates the checkout form
type CheckoutPrefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type CheckoutTheme struct {
	Color string `json:"color"`
}

// CheckoutOptions is what the external checkout is opened with.
// Amount is in the smallest currency unit.
type CheckoutOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     CheckoutPrefill   `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
	Theme       CheckoutTheme     `json:"theme"`
}

// CheckoutOutcome is how an opened checkout ended
type CheckoutOutcome string

const (
	CheckoutCompleted CheckoutOutcome = "completed"
	CheckoutDismissed CheckoutOutcome = "dismissed"
)

// CheckoutCallback is the payload the checkout handler receives on success
type CheckoutCallback struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
}

// CheckoutResult normalizes the checkout handler and ondismiss callbacks
type CheckoutResult struct {
	Outcome  CheckoutOutcome  `json:"outcome"`
	Callback CheckoutCallback `json:"callback,omitempty"`
}

// PaymentResult is the payload resumed into the conversation after a verified
// payment. Every key is always present; a missing reference is "".
type PaymentResult struct {
	PaymentStatus string `json:"paymentStatus"`
	BookingStatus string `json:"bookingStatus"`
	PNR           string `json:"pnr"`
	TransactionID string `json:"transactionId"`
	PaymentMethod string `json:"paymentMethod"`
}

// FailedPayment is the payload resumed for a failed or cancelled attempt
type FailedPayment struct {
	PaymentStatus string `json:"paymentStatus"`
	BookingStatus string `json:"bookingStatus"`
}

// FailedPaymentResult is resumed for every failed or cancelled attempt
func FailedPaymentResult() FailedPayment {
	return FailedPayment{
		PaymentStatus: GatewayStatusFailed,
		BookingStatus: GatewayStatusFailed,
	}
}

// MountPaymentRequest is the request body for mounting a trip's payment
type MountPaymentRequest struct {
	ConversationID string `json:"conversationId"`
	InterruptID    string `json:"interruptId,omitempty"`
}
