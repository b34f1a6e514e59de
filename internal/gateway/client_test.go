package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cx-tal-miterani/booking-assistant/internal/auth"
	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withToken() context.Context {
	return auth.WithToken(context.Background(), "tok-1")
}

func TestExecutePrepayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/core/v1/prePayment/executePrepayment/T1", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"transaction":{
			"transaction_id":"tx-1","razorpay_order_id":"order_1","amount":302.25,"currency":"INR","key":"rzp"}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", server.Client(), nil)
	resp, err := client.ExecutePrepayment(withToken(), "T1")

	require.NoError(t, err)
	assert.Equal(t, "tx-1", resp.Data.Transaction.TransactionID)
	assert.Equal(t, 302.25, resp.Data.Transaction.Amount)
}

func TestExecutePrepayment_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Trip has expired"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client(), nil).ExecutePrepayment(withToken(), "T1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrepaymentRejected)
	assert.Equal(t, "Trip has expired", err.Error())
}

func TestRequest_HTTPErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message from body", http.StatusBadRequest, `{"message":"Invalid trip"}`, "Invalid trip"},
		{"status text fallback", http.StatusInternalServerError, `not json`, "HTTP 500: Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, server.Client(), nil).ExecutePrepayment(withToken(), "T1")

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRequestFailed)
			assert.Equal(t, tt.wantMsg, err.Error())

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestRequest_NoCredential(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client(), nil).ExecutePrepayment(context.Background(), "T1")

	assert.ErrorIs(t, err, ErrNoCredential)
	assert.False(t, called)
}

func TestVerifyTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/core/v1/transactions/verify/T1", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"transaction_id":      "tx-1",
			"razorpay_payment_id": "pay_1",
			"razorpay_signature":  "sig_1",
			"razorpay_order_id":   "order_1",
		}, body)

		_, _ = w.Write([]byte(`{"success":true,"data":{"paymentStatus":"SUCCESS","bookingStatus":"SUCCESS",
			"bookingData":{"associatedRecords":[{"reference":"GDS1"},{"reference":"PNR123"}]},
			"paymentData":{"method":"card"}}}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, server.Client(), nil).VerifyTransaction(withToken(), models.VerifyRequest{
		TripID:            "T1",
		TransactionID:     "tx-1",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: "sig_1",
		RazorpayOrderID:   "order_1",
	})

	require.NoError(t, err)
	assert.True(t, resp.BothSucceeded())
	require.NotNil(t, resp.Data.PaymentData)
	assert.Equal(t, "card", resp.Data.PaymentData.Method)
	require.NotNil(t, resp.Data.BookingData)
	assert.Len(t, resp.Data.BookingData.AssociatedRecords, 2)
}

func TestVerifyTransaction_Validation(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", nil, nil)

	_, err := client.VerifyTransaction(withToken(), models.VerifyRequest{TransactionID: "tx"})
	assert.ErrorIs(t, err, ErrMissingTripID)

	_, err = client.VerifyTransaction(withToken(), models.VerifyRequest{TripID: "T1", TransactionID: "tx", RazorpayPaymentID: "p"})
	assert.ErrorIs(t, err, ErrIncompleteVerification)
}

func TestVerifyTransaction_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"data":{}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client(), nil).VerifyTransaction(withToken(), models.VerifyRequest{
		TripID: "T1", TransactionID: "tx", RazorpayPaymentID: "p", RazorpaySignature: "s", RazorpayOrderID: "o",
	})

	assert.ErrorIs(t, err, ErrVerificationRejected)
	assert.Equal(t, "Transaction verification failed", err.Error())
}
