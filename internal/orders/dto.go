package orders

import "time"

type lineRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type createOrderRequest struct {
	CounterpartyID int64         `json:"counterparty_id" validate:"required,gt=0"`
	Total          float64       `json:"total" validate:"gte=0"`
	OrderDate      *time.Time    `json:"order_date,omitempty"`
	InvoiceNumber  *string       `json:"invoice_number,omitempty"`
	Status         string        `json:"status,omitempty" validate:"omitempty,oneof=PENDING COMPLETED"`
	Lines          []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updateOrderRequest struct {
	CounterpartyID int64         `json:"counterparty_id" validate:"required,gt=0"`
	Total          float64       `json:"total" validate:"gte=0"`
	OrderDate      *time.Time    `json:"order_date,omitempty"`
	InvoiceNumber  *string       `json:"invoice_number,omitempty"`
	Lines          []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING COMPLETED VOIDED"`
	Reason string `json:"reason,omitempty"`
}

func toLineInputs(lines []lineRequest) []LineInput {
	inputs := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, LineInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return inputs
}
