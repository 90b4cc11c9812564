package api

import "time"

type NewTransactionRequest struct {
	Sender    string `json:"sender" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
}

type NewConsentRequest struct {
	Action  string     `json:"action" validate:"required"`
	Consent *bool      `json:"consent" validate:"required"`
	Expire  *time.Time `json:"expire"`
}

type RegisterNodesRequest struct {
	Nodes []string `json:"nodes" validate:"required,min=1,dive,required"`
}
