package dto

import "time"

type GrantRequestDTO struct {
	UserID string `json:"user_id" example:"a81bc81b-dead-4e5d-abff-90865d1e13b1"`
	Amount int64  `json:"amount" example:"300"`
}

type GrantResponseDTO struct {
	Balance int64 `json:"balance" example:"800"`
}

type RefundRequestDTO struct {
	UserID string `json:"user_id" example:"a81bc81b-dead-4e5d-abff-90865d1e13b1"`
	Amount int64  `json:"amount" example:"10"`
	Note   string `json:"note" example:"failed research"`
}

type PricingRuleDTO struct {
	Amount    int64     `json:"amount" example:"30"`
	Credits   int64     `json:"credits" example:"40"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type UpsertPricingRequestDTO struct {
	Amount  int64 `json:"amount" example:"30"`
	Credits int64 `json:"credits" example:"40"`
}
