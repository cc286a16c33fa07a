package dto

import "time"

type BalanceResponseDTO struct {
	Balance int64 `json:"balance" example:"500"`
}

type SpendRequestDTO struct {
	Amount int64  `json:"amount" example:"10"`
	Note   string `json:"note" example:"research generation"`
}

type SpendResponseDTO struct {
	Balance int64 `json:"balance" example:"490"`
}

type LedgerEntryDTO struct {
	ID          int64     `json:"id" example:"42"`
	FromUserID  *string   `json:"from_user_id,omitempty"`
	ToUserID    *string   `json:"to_user_id,omitempty"`
	Amount      int64     `json:"amount" example:"100"`
	Kind        string    `json:"kind" example:"transfer"`
	ExternalRef *string   `json:"external_ref,omitempty"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at" example:"2024-12-09T16:09:57+03:00"`
}

type ListEntriesResponseDTO struct {
	Entries       []LedgerEntryDTO `json:"entries"`
	NextPageToken string           `json:"next_page_token,omitempty" example:"41"`
}
