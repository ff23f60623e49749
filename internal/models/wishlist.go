package models

type WishlistItem struct {
	Product
}

type Wishlist struct {
	Items     []WishlistItem `json:"items"`
	ItemCount int            `json:"itemCount"`
}
