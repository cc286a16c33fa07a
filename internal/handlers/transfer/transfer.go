package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/dto"
	"github.com/wareqa/creditledger/pkg/auth"
	"github.com/wareqa/creditledger/pkg/utils"
)

type Service interface {
	Transfer(ctx context.Context, fromID, toID string, amount int64) (int64, int64, error)
}

type TransferHandler struct {
	transferService Service
}

func New(transferService Service) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// Transfer godoc
//
//	@Summary		Transfer credits to another user
//	@Description	Atomically move credits from the authenticated user to the recipient. Amount must be a positive multiple of the configured gift unit.
//	@Tags			Transfer
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.TransferRequestDTO	true	"Transfer request payload"
//	@Success		200		{object}	dto.TransferResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body or self transfer"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		402		{object}	utils.Response	"Insufficient balance"
//	@Failure		404		{object}	utils.Response	"Sender account not found"
//	@Failure		409		{object}	utils.Response	"Concurrent conflict, retry"
//	@Failure		422		{object}	utils.Response	"Invalid amount"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/user/transfer [post]
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(string)

	var req dto.TransferRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RecipientID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Recipient is required")
		return
	}

	senderBalance, recipientBalance, err := h.transferService.Transfer(r.Context(), userID, req.RecipientID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfTransfer):
			utils.RespondWithError(w, http.StatusBadRequest, "Cannot transfer to yourself")
		case errors.Is(err, domain.ErrInvalidAmount):
			utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid amount")
		case errors.Is(err, domain.ErrInsufficientFunds):
			utils.RespondWithError(w, http.StatusPaymentRequired, "Insufficient balance")
		case errors.Is(err, domain.ErrAccountNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, domain.ErrConcurrencyConflict):
			utils.RespondWithError(w, http.StatusConflict, "Conflicting operation in progress")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dto.TransferResponseDTO{
		Balance:          senderBalance,
		RecipientBalance: recipientBalance,
	})
}
