package payment

import (
	"math"
	"strings"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
)

// DefaultCurrency is used when the prepayment step omits one
const DefaultCurrency = "INR"

// ToSmallestUnit converts a decimal amount into the currency's smallest unit
// (paise for INR).
func ToSmallestUnit(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ExtractPNR returns the booking reference from a verification response.
// With more than one associated record the second one is used. Missing or
// blank references yield "".
func ExtractPNR(resp *models.VerificationResponse) string {
	if resp == nil || resp.Data.BookingData == nil {
		return ""
	}
	records := resp.Data.BookingData.AssociatedRecords
	var ref string
	switch {
	case len(records) > 1:
		ref = records[1].Reference
	case len(records) == 1:
		ref = records[0].Reference
	default:
		return ""
	}
	return strings.TrimSpace(ref)
}

// PaymentMethod returns the method reported by the gateway, if any
func PaymentMethod(resp *models.VerificationResponse) string {
	if resp == nil || resp.Data.PaymentData == nil {
		return ""
	}
	return resp.Data.PaymentData.Method
}

// DescribePaymentStatus returns a human-readable payment status
func DescribePaymentStatus(status string) string {
	switch status {
	case models.GatewayStatusSuccess:
		return "Payment completed successfully"
	case models.GatewayStatusFailed:
		return "Payment failed"
	case models.GatewayStatusPending:
		return "Payment is being processed"
	default:
		return "Unknown payment status"
	}
}

// DescribeBookingStatus returns a human-readable booking status
func DescribeBookingStatus(status string) string {
	switch status {
	case models.GatewayStatusSuccess:
		return "Booking confirmed successfully"
	case models.GatewayStatusFailed:
		return "Booking failed"
	case models.GatewayStatusPending:
		return "Booking is being processed"
	default:
		return "Unknown booking status"
	}
}
