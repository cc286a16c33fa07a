package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/dto"
	"github.com/wareqa/creditledger/internal/gateway"
	"github.com/wareqa/creditledger/pkg/auth"
)

const (
	userID        = "a81bc81b-dead-4e5d-abff-90865d1e13b1"
	paymentID     = "pay_01HZX2Y3"
	webhookSecret = "whsec_test"
)

func NewMock(t *testing.T) (*PaymentHandler, *MockService, *MockGateway) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	gw := NewMockGateway(ctrl)
	handler := New(service, gw, webhookSecret)
	defer ctrl.Finish()
	return handler, service, gw
}

func gatewayPayment(status string, metaUserID string, amountUnits int64) *gateway.Payment {
	p := &gateway.Payment{ID: paymentID, Status: status, Amount: amountUnits * 100}
	p.Metadata.UserID = metaUserID
	p.Metadata.OriginalAmount = amountUnits
	return p
}

func TestConfirmHandler(t *testing.T) {
	handler, service, gw := NewMock(t)

	settled := &domain.Settlement{
		PaymentID:      paymentID,
		CreditsGranted: 40,
		NewBalance:     140,
		Status:         domain.SettlementProcessed,
	}

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Paid payment settles with credits",
			body: `{"payment_id":"` + paymentID + `"}`,
			prepareMock: func() {
				gw.EXPECT().FetchPayment(paymentID).
					Return(gatewayPayment(gateway.StatusPaid, userID, 30), nil)
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(30), true).
					Return(settled, false, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Failed payment settles without credits",
			body: `{"payment_id":"` + paymentID + `"}`,
			prepareMock: func() {
				gw.EXPECT().FetchPayment(paymentID).
					Return(gatewayPayment(gateway.StatusFailed, userID, 30), nil)
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(30), false).
					Return(&domain.Settlement{PaymentID: paymentID, Status: domain.SettlementFailed}, false, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Repeated confirmation reports already_processed",
			body: `{"payment_id":"` + paymentID + `"}`,
			prepareMock: func() {
				gw.EXPECT().FetchPayment(paymentID).
					Return(gatewayPayment(gateway.StatusPaid, userID, 30), nil)
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(30), true).
					Return(settled, true, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Initiated payment is parked as pending",
			body: `{"payment_id":"` + paymentID + `"}`,
			prepareMock: func() {
				gw.EXPECT().FetchPayment(paymentID).
					Return(gatewayPayment(gateway.StatusInitiated, userID, 30), nil)
				service.EXPECT().
					RecordInitiated(gomock.Any(), paymentID, userID, int64(30)).
					Return(&domain.Settlement{PaymentID: paymentID, Status: domain.SettlementPending}, nil)
			},
			expectedCode: http.StatusAccepted,
		},
		{
			name:         "Invalid request body",
			body:         `{"payment_id":`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Missing payment id",
			body:         `{}`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Payment not found at gateway",
			body: `{"payment_id":"` + paymentID + `"}`,
			prepareMock: func() {
				gw.EXPECT().FetchPayment(paymentID).
					Return(nil, gateway.ErrPaymentNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
		{
			name: "Gateway unavailable",
			body: `{"payment_id":"` + paymentID + `"}`,
			prepareMock: func() {
				gw.EXPECT().FetchPayment(paymentID).
					Return(nil, errors.New("connection refused"))
			},
			expectedCode: http.StatusBadGateway,
		},
		{
			name: "Payment belongs to another user",
			body: `{"payment_id":"` + paymentID + `"}`,
			prepareMock: func() {
				gw.EXPECT().FetchPayment(paymentID).
					Return(gatewayPayment(gateway.StatusPaid, "f47ac10b-58cc-4372-a567-0e02b2c3d479", 30), nil)
			},
			expectedCode:  http.StatusForbidden,
			expectedError: "Payment belongs to another user",
		},
		{
			name: "No pricing rule for paid amount",
			body: `{"payment_id":"` + paymentID + `"}`,
			prepareMock: func() {
				gw.EXPECT().FetchPayment(paymentID).
					Return(gatewayPayment(gateway.StatusPaid, userID, 37), nil)
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(37), true).
					Return(nil, false, domain.ErrUnknownPricing)
			},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name: "Concurrent confirmation",
			body: `{"payment_id":"` + paymentID + `"}`,
			prepareMock: func() {
				gw.EXPECT().FetchPayment(paymentID).
					Return(gatewayPayment(gateway.StatusPaid, userID, 30), nil)
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(30), true).
					Return(nil, false, domain.ErrConcurrencyConflict)
			},
			expectedCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			r := httptest.NewRequest(http.MethodPost, "/api/payments/confirm", bytes.NewBufferString(tt.body))
			r = r.WithContext(context.WithValue(context.Background(), auth.UserIDKey, userID))
			w := httptest.NewRecorder()
			handler.Confirm(w, r)
			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK && tt.name == "Paid payment settles with credits" {
				var body dto.SettlementResponseDTO
				_ = json.NewDecoder(w.Body).Decode(&body)
				assert.Equal(t, int64(40), body.CreditsGranted)
				assert.Equal(t, int64(140), body.Balance)
				assert.Equal(t, domain.SettlementProcessed, body.Status)
			}
			if tt.name == "Repeated confirmation reports already_processed" {
				var body dto.SettlementResponseDTO
				_ = json.NewDecoder(w.Body).Decode(&body)
				assert.Equal(t, domain.SettlementAlreadyProcessed, body.Status)
				assert.Equal(t, int64(140), body.Balance)
			}
			if tt.expectedError != "" {
				assert.Contains(t, w.Body.String(), tt.expectedError)
			}
		})
	}
}

func TestWebhookHandler(t *testing.T) {
	handler, service, _ := NewMock(t)

	typedPaid := `{"type":"payment_paid","data":{"id":"` + paymentID + `","status":"paid","amount":3000,"metadata":{"user_id":"` + userID + `","original_amount":30}}}`

	tests := []struct {
		name         string
		secret       string
		body         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name:   "Typed paid event settles",
			secret: webhookSecret,
			body:   typedPaid,
			prepareMock: func() {
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(30), true).
					Return(&domain.Settlement{Status: domain.SettlementProcessed}, false, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:   "Typed failed event without body status",
			secret: webhookSecret,
			body:   `{"type":"payment.failed","data":{"id":"` + paymentID + `","amount":3000,"metadata":{"user_id":"` + userID + `"}}}`,
			prepareMock: func() {
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(30), false).
					Return(&domain.Settlement{Status: domain.SettlementFailed}, false, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:   "Legacy flat payload",
			secret: webhookSecret,
			body:   `{"id":"` + paymentID + `","status":"paid","amount":3000,"metadata":{"user_id":"` + userID + `"}}`,
			prepareMock: func() {
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(30), true).
					Return(&domain.Settlement{Status: domain.SettlementProcessed}, false, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Wrong secret",
			secret:       "whsec_wrong",
			body:         typedPaid,
			prepareMock:  func() {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Malformed event",
			secret:       webhookSecret,
			body:         `{"type":`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Event missing user id",
			secret:       webhookSecret,
			body:         `{"type":"payment_paid","data":{"id":"` + paymentID + `","status":"paid","amount":3000}}`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Intermediate status is acknowledged",
			secret:       webhookSecret,
			body:         `{"type":"payment_authorized","data":{"id":"` + paymentID + `","status":"authorized","metadata":{"user_id":"` + userID + `"}}}`,
			prepareMock:  func() {},
			expectedCode: http.StatusOK,
		},
		{
			name:   "Replay of a processed payment is acknowledged",
			secret: webhookSecret,
			body:   typedPaid,
			prepareMock: func() {
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(30), true).
					Return(&domain.Settlement{Status: domain.SettlementProcessed}, true, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:   "Settlement failure asks the gateway to retry",
			secret: webhookSecret,
			body:   typedPaid,
			prepareMock: func() {
				service.EXPECT().
					SettlePayment(gomock.Any(), paymentID, userID, int64(30), true).
					Return(nil, false, errors.New("db unavailable"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			r := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewBufferString(tt.body))
			r.Header.Set("X-Webhook-Secret", tt.secret)
			w := httptest.NewRecorder()
			handler.Webhook(w, r)
			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestEventStatus(t *testing.T) {
	assert.Equal(t, "paid", eventStatus("payment_paid"))
	assert.Equal(t, "failed", eventStatus("payment.failed"))
	assert.Equal(t, "payment_voided", eventStatus("payment_voided"))
}
