package models

// CartItem est un instantané du produit au moment de l'ajout, plus la quantité.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

type CartSummary struct {
	Subtotal  float64    `json:"subtotal"`
	Tax       float64    `json:"tax"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
	Items     []CartItem `json:"items"`
}
