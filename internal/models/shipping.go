package models

type ShippingMethod struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	EstimatedDays int     `json:"estimatedDays"`
}

// Quote est le détail des montants d'un checkout.
type Quote struct {
	Subtotal       float64        `json:"subtotal"`
	TaxRate        float64        `json:"taxRate"`
	Tax            float64        `json:"tax"`
	ShippingMethod ShippingMethod `json:"shippingMethod"`
	ShippingCost   float64        `json:"shippingCost"`
	DiscountCode   string         `json:"discountCode,omitempty"`
	DiscountAmount float64        `json:"discountAmount"`
	Total          float64        `json:"total"`
	ItemCount      int            `json:"itemCount"`
}
