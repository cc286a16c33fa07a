package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/dto"
	"github.com/wareqa/creditledger/internal/gateway"
	"github.com/wareqa/creditledger/pkg/auth"
	"github.com/wareqa/creditledger/pkg/utils"
)

type Service interface {
	SettlePayment(ctx context.Context, paymentID, userID string, paidAmount int64, paid bool) (*domain.Settlement, bool, error)
	RecordInitiated(ctx context.Context, paymentID, userID string, paidAmount int64) (*domain.Settlement, error)
}

type Gateway interface {
	FetchPayment(paymentID string) (*gateway.Payment, error)
}

type PaymentHandler struct {
	settlementService Service
	gateway           Gateway
	webhookSecret     string
}

func New(settlementService Service, gw Gateway, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		settlementService: settlementService,
		gateway:           gw,
		webhookSecret:     webhookSecret,
	}
}

// Confirm godoc
//
//	@Summary		Confirm a gateway payment
//	@Description	Verify the payment with the gateway and credit the purchased credits. Safe to retry: replays return the stored settlement.
//	@Tags			Payments
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ConfirmPaymentRequestDTO	true	"Confirm request payload"
//	@Success		200		{object}	dto.SettlementResponseDTO
//	@Success		202		{object}	dto.SettlementResponseDTO	"Payment not final yet, settlement pending"
//	@Failure		400		{object}	utils.Response				"Invalid request body"
//	@Failure		401		{object}	utils.Response				"User not authorized"
//	@Failure		403		{object}	utils.Response				"Payment belongs to another user"
//	@Failure		404		{object}	utils.Response				"Payment not found at the gateway"
//	@Failure		409		{object}	utils.Response				"Concurrent confirmation in progress"
//	@Failure		422		{object}	utils.Response				"No pricing rule for the paid amount"
//	@Failure		502		{object}	utils.Response				"Gateway unavailable"
//	@Failure		500		{object}	utils.Response				"Internal server error"
//	@Router			/api/payments/confirm [post]
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(string)

	var req dto.ConfirmPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.gateway.FetchPayment(req.PaymentID)
	if err != nil {
		if errors.Is(err, gateway.ErrPaymentNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Payment not found")
			return
		}
		zap.L().Warn("gateway lookup failed", zap.String("paymentID", req.PaymentID), zap.Error(err))
		utils.RespondWithError(w, http.StatusBadGateway, "Payment gateway unavailable")
		return
	}
	if payment.Metadata.UserID != "" && payment.Metadata.UserID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "Payment belongs to another user")
		return
	}

	switch payment.Status {
	case gateway.StatusPaid, gateway.StatusFailed:
		settlement, replay, err := h.settlementService.SettlePayment(
			r.Context(), payment.ID, userID, payment.AmountUnits(), payment.Status == gateway.StatusPaid)
		if err != nil {
			respondSettleError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, toSettlementDTO(settlement, replay))
	default:
		// Not final yet. Park it; the reconciler or the webhook finishes it.
		settlement, err := h.settlementService.RecordInitiated(r.Context(), payment.ID, userID, payment.AmountUnits())
		if err != nil {
			respondSettleError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusAccepted, toSettlementDTO(settlement, false))
	}
}

// Webhook godoc
//
//	@Summary		Gateway payment webhook
//	@Description	Accept paid/failed payment events from the gateway. Requires the shared webhook secret.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.WebhookEventDTO	true	"Webhook event"
//	@Success		200		{object}	utils.Response
//	@Failure		400		{object}	utils.Response	"Malformed event"
//	@Failure		401		{object}	utils.Response	"Bad webhook secret"
//	@Failure		500		{object}	utils.Response	"Settlement failed, gateway should retry"
//	@Router			/api/webhooks/payments [post]
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var event dto.WebhookEventDTO
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid event body")
		return
	}

	payment := event.Data
	if payment.ID == "" {
		// Legacy flat payload.
		payment.ID = event.ID
		payment.Status = event.Status
		payment.Amount = event.Amount
	}
	status := payment.Status
	if status == "" {
		status = eventStatus(event.Type)
	}
	if payment.ID == "" || payment.Metadata.UserID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Event missing payment id or user id")
		return
	}

	switch status {
	case gateway.StatusPaid, gateway.StatusFailed:
		amount := payment.Metadata.OriginalAmount
		if amount == 0 {
			amount = payment.Amount / 100
		}
		_, _, err := h.settlementService.SettlePayment(
			r.Context(), payment.ID, payment.Metadata.UserID, amount, status == gateway.StatusPaid)
		if err != nil {
			zap.L().Error("webhook settlement failed", zap.String("paymentID", payment.ID), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "Settlement failed")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "ok"})
	default:
		// Intermediate statuses are acknowledged and ignored.
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "ignored"})
	}
}

// eventStatus maps typed event names like "payment_paid" or "payment.failed"
// to the payment status they carry.
func eventStatus(eventType string) string {
	normalized := strings.NewReplacer("payment_", "", "payment.", "").Replace(eventType)
	switch normalized {
	case gateway.StatusPaid, gateway.StatusFailed:
		return normalized
	}
	return eventType
}

func respondSettleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownPricing):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "No pricing rule for the paid amount")
	case errors.Is(err, domain.ErrConcurrencyConflict):
		utils.RespondWithError(w, http.StatusConflict, "Concurrent confirmation in progress")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// toSettlementDTO reports replays as already_processed so a retried
// confirmation is distinguishable from the grant it repeats.
func toSettlementDTO(s *domain.Settlement, replay bool) dto.SettlementResponseDTO {
	status := s.Status
	if replay {
		status = domain.SettlementAlreadyProcessed
	}
	return dto.SettlementResponseDTO{
		PaymentID:      s.PaymentID,
		CreditsGranted: s.CreditsGranted,
		Balance:        s.NewBalance,
		Status:         status,
	}
}
