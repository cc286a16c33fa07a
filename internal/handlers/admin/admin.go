package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/dto"
	"github.com/wareqa/creditledger/pkg/auth"
	"github.com/wareqa/creditledger/pkg/utils"
)

type GrantService interface {
	Grant(ctx context.Context, adminID, userID string, amount int64) (int64, error)
	Refund(ctx context.Context, adminID, userID string, amount int64, note string) (int64, error)
}

type PricingService interface {
	ListPricing(ctx context.Context) ([]domain.PricingRule, error)
	UpsertPricing(ctx context.Context, amount, credits int64) (*domain.PricingRule, error)
	DeletePricing(ctx context.Context, amount int64) error
}

type AdminHandler struct {
	grantService   GrantService
	pricingService PricingService
}

func New(grantService GrantService, pricingService PricingService) *AdminHandler {
	return &AdminHandler{
		grantService:   grantService,
		pricingService: pricingService,
	}
}

// Grant godoc
//
//	@Summary		Grant credits to a user
//	@Description	Credit a user's account as an administrative gift. Amount must be a positive multiple of the configured gift unit.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.GrantRequestDTO	true	"Grant request payload"
//	@Success		200		{object}	dto.GrantResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		403		{object}	utils.Response	"Admin only"
//	@Failure		422		{object}	utils.Response	"Invalid amount"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/grant [post]
func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	adminID := r.Context().Value(auth.UserIDKey).(string)

	var req dto.GrantRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, err := h.grantService.Grant(r.Context(), adminID, req.UserID, req.Amount)
	if err != nil {
		respondGrantError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.GrantResponseDTO{Balance: balance})
}

// Refund godoc
//
//	@Summary		Refund credits to a user
//	@Description	Credit a user's account to compensate a failed service. Any positive amount is allowed.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.RefundRequestDTO	true	"Refund request payload"
//	@Success		200		{object}	dto.GrantResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		403		{object}	utils.Response	"Admin only"
//	@Failure		422		{object}	utils.Response	"Invalid amount"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/refund [post]
func (h *AdminHandler) Refund(w http.ResponseWriter, r *http.Request) {
	adminID := r.Context().Value(auth.UserIDKey).(string)

	var req dto.RefundRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, err := h.grantService.Refund(r.Context(), adminID, req.UserID, req.Amount, req.Note)
	if err != nil {
		respondGrantError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.GrantResponseDTO{Balance: balance})
}

// ListPricing godoc
//
//	@Summary		List pricing rules
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.PricingRuleDTO
//	@Failure		403	{object}	utils.Response	"Admin only"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/pricing [get]
func (h *AdminHandler) ListPricing(w http.ResponseWriter, r *http.Request) {
	rules, err := h.pricingService.ListPricing(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch pricing rules")
		return
	}

	response := make([]dto.PricingRuleDTO, len(rules))
	for i, rule := range rules {
		response[i] = dto.PricingRuleDTO{
			Amount:    rule.Amount,
			Credits:   rule.Credits,
			UpdatedAt: rule.UpdatedAt,
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// UpsertPricing godoc
//
//	@Summary		Create or update a pricing rule
//	@Description	Set how many credits a paid amount grants. Applies to settlements processed after the change.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.UpsertPricingRequestDTO	true	"Pricing rule"
//	@Success		200		{object}	dto.PricingRuleDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		403		{object}	utils.Response	"Admin only"
//	@Failure		422		{object}	utils.Response	"Invalid amount or credits"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/pricing [post]
func (h *AdminHandler) UpsertPricing(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertPricingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rule, err := h.pricingService.UpsertPricing(r.Context(), req.Amount, req.Credits)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			utils.RespondWithError(w, http.StatusUnprocessableEntity, "Amount and credits must be positive")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save pricing rule")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.PricingRuleDTO{
		Amount:    rule.Amount,
		Credits:   rule.Credits,
		UpdatedAt: rule.UpdatedAt,
	})
}

// DeletePricing godoc
//
//	@Summary		Delete a pricing rule
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			amount	path		int	true	"Rule amount"
//	@Success		200		{object}	utils.Response
//	@Failure		400		{object}	utils.Response	"Invalid amount"
//	@Failure		403		{object}	utils.Response	"Admin only"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/pricing/{amount} [delete]
func (h *AdminHandler) DeletePricing(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(chi.URLParam(r, "amount"), 10, 64)
	if err != nil || amount <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	if err := h.pricingService.DeletePricing(r.Context(), amount); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete pricing rule")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Pricing rule deleted"})
}

func respondGrantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid amount")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
