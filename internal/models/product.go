package models

import "math"

// Product est une fiche du catalogue. Seul Stock évolue (décrémenté au checkout).
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"originalPrice,omitempty"`
	Stock         int      `json:"stock"`
	Rating        float64  `json:"rating"`
	Reviews       int      `json:"reviews"`
	Tags          []string `json:"tags"`
	CategoryID    string   `json:"categoryId"`
	SubcategoryID string   `json:"subcategoryId"`
	Image         string   `json:"image"`
}

// DiscountPercent retourne la remise affichée en pourcentage entier.
func (p Product) DiscountPercent() int {
	if p.OriginalPrice <= 0 || p.OriginalPrice <= p.Price {
		return 0
	}
	return int(math.Round((p.OriginalPrice - p.Price) / p.OriginalPrice * 100))
}

// ProductQuery regroupe recherche, filtres, tri et page.
type ProductQuery struct {
	Search        string `form:"q"`
	CategoryID    string `form:"category"`
	SubcategoryID string `form:"subcategory"`
	SortBy        string `form:"sort"`
	SortOrder     string `form:"order"`
	Page          int    `form:"page"`
}

type ProductPage struct {
	Products    []Product `json:"products"`
	TotalPages  int       `json:"totalPages"`
	TotalItems  int       `json:"totalItems"`
	CurrentPage int       `json:"currentPage"`
	HasNextPage bool      `json:"hasNextPage"`
	HasPrevPage bool      `json:"hasPrevPage"`
}
