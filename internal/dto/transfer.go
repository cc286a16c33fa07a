package dto

type TransferRequestDTO struct {
	RecipientID string `json:"recipient_id" example:"a81bc81b-dead-4e5d-abff-90865d1e13b1"`
	Amount      int64  `json:"amount" example:"200"`
}

type TransferResponseDTO struct {
	Balance          int64 `json:"balance" example:"300"`
	RecipientBalance int64 `json:"recipient_balance" example:"200"`
}
