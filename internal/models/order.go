package models

import "time"

type OrderStatus string

const (
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Valid indique si le statut fait partie de l'énumération.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal : plus aucun changement de statut possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
}

type PaymentMethod struct {
	Type  string `json:"type"`
	Last4 string `json:"last4"`
}

type Order struct {
	ID                string         `json:"id"`
	UserID            string         `json:"userId"`
	Items             []OrderItem    `json:"items"`
	Subtotal          float64        `json:"subtotal"`
	TaxRate           float64        `json:"taxRate"`
	Tax               float64        `json:"tax"`
	ShippingCost      float64        `json:"shippingCost"`
	DiscountCode      string         `json:"discountCode,omitempty"`
	DiscountAmount    float64        `json:"discountAmount"`
	Total             float64        `json:"total"`
	BillingAddress    Address        `json:"billingAddress"`
	ShippingAddress   Address        `json:"shippingAddress"`
	ShippingMethod    ShippingMethod `json:"shippingMethod"`
	PaymentMethod     PaymentMethod  `json:"paymentMethod"`
	Status            OrderStatus    `json:"status"`
	CreatedAt         time.Time      `json:"createdAt"`
	EstimatedDelivery time.Time      `json:"estimatedDelivery"`
}
