package dto

type ConfirmPaymentRequestDTO struct {
	PaymentID string `json:"payment_id" example:"pay_01HZX2Y3"`
}

type SettlementResponseDTO struct {
	PaymentID      string `json:"payment_id" example:"pay_01HZX2Y3"`
	CreditsGranted int64  `json:"credits_granted" example:"40"`
	Balance        int64  `json:"balance" example:"540"`
	Status         string `json:"status" example:"processed"`
}

// WebhookEventDTO covers both gateway payload shapes: the typed event
// envelope and the legacy bare payment object.
type WebhookEventDTO struct {
	Type string            `json:"type,omitempty"`
	Data WebhookPaymentDTO `json:"data,omitempty"`

	// Legacy format fields.
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
	Amount int64  `json:"amount,omitempty"`
}

type WebhookPaymentDTO struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Metadata struct {
		UserID         string `json:"user_id"`
		OriginalAmount int64  `json:"original_amount"`
	} `json:"metadata"`
}
