package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/models"
	"storefront/internal/storage"
)

//go:embed seed/catalog.json
var seedCatalog []byte

type catalogSeed struct {
	Categories []models.Category `json:"categories"`
	Products   []models.Product  `json:"products"`
}

// SeedCatalog retourne les catégories et produits embarqués.
func SeedCatalog() ([]models.Category, []models.Product, error) {
	var seed catalogSeed
	if err := json.Unmarshal(seedCatalog, &seed); err != nil {
		return nil, nil, fmt.Errorf("catalogue embarqué invalide: %w", err)
	}
	return seed.Categories, seed.Products, nil
}

// SearchIndex fournit les ids des produits correspondant à une recherche.
type SearchIndex interface {
	MatchIDs(ctx context.Context, query string) ([]string, error)
}

// ProductStore : catalogue partagé par tous les clients.
type ProductStore struct {
	storage    storage.Storage
	pageSize   int
	index      SearchIndex
	products   []models.Product
	categories []models.Category
}

func NewProductStore(st storage.Storage, opts Options) *ProductStore {
	opts = opts.withDefaults()
	return &ProductStore{storage: st, pageSize: opts.PageSize}
}

// WithSearchIndex délègue la recherche texte à un index externe.
func (s *ProductStore) WithSearchIndex(index SearchIndex) *ProductStore {
	s.index = index
	return s
}

// Initialize charge les produits, en écrivant le catalogue embarqué au premier lancement.
func (s *ProductStore) Initialize(ctx context.Context) error {
	categories, seed, err := SeedCatalog()
	if err != nil {
		return err
	}
	s.categories = categories

	var products []models.Product
	if err := storage.LoadOrInit(ctx, s.storage, storage.KeyProducts, &products, seed); err != nil {
		return fmt.Errorf("chargement catalogue: %w", err)
	}
	if products == nil {
		products = seed
	}
	s.products = products
	return nil
}

func (s *ProductStore) reload(ctx context.Context) error {
	var products []models.Product
	found, err := s.storage.Load(ctx, storage.KeyProducts, &products)
	if err != nil {
		return err
	}
	if found {
		s.products = products
	}
	return nil
}

func (s *ProductStore) Products() []models.Product {
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

func (s *ProductStore) Categories() []models.Category {
	return s.categories
}

func (s *ProductStore) GetProductByID(id string) (models.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// StockOf sert de lookup de stock live pour le panier.
func (s *ProductStore) StockOf(id string) (int, bool) {
	p, ok := s.GetProductByID(id)
	return p.Stock, ok
}

// Query applique recherche → catégorie → sous-catégorie → tri → pagination.
func (s *ProductStore) Query(ctx context.Context, q models.ProductQuery) models.ProductPage {
	filtered := s.search(ctx, q.Search)

	if q.CategoryID != "" {
		filtered = filterProducts(filtered, func(p models.Product) bool { return p.CategoryID == q.CategoryID })
	}
	if q.SubcategoryID != "" {
		filtered = filterProducts(filtered, func(p models.Product) bool { return p.SubcategoryID == q.SubcategoryID })
	}

	sortProducts(filtered, q.SortBy, q.SortOrder)
	return paginate(filtered, q.Page, s.pageSize)
}

func (s *ProductStore) search(ctx context.Context, query string) []models.Product {
	all := s.Products()
	query = strings.TrimSpace(query)
	if query == "" {
		return all
	}

	if s.index != nil {
		if ids, err := s.index.MatchIDs(ctx, query); err == nil {
			wanted := make(map[string]struct{}, len(ids))
			for _, id := range ids {
				wanted[id] = struct{}{}
			}
			return filterProducts(all, func(p models.Product) bool {
				_, ok := wanted[p.ID]
				return ok
			})
		}
		// index indisponible : recherche locale
	}

	return filterProducts(all, func(p models.Product) bool { return MatchesSearch(p, query) })
}

// MatchesSearch : sous-chaîne insensible à la casse dans le nom, la description ou un tag.
func MatchesSearch(p models.Product, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func filterProducts(products []models.Product, keep func(models.Product) bool) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func sortProducts(products []models.Product, sortBy, sortOrder string) {
	desc := strings.EqualFold(sortOrder, "desc")

	var less func(a, b models.Product) bool
	switch sortBy {
	case "price":
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case "rating":
		less = func(a, b models.Product) bool { return a.Rating < b.Rating }
	default:
		less = func(a, b models.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	}

	sort.SliceStable(products, func(i, j int) bool {
		if desc {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}

func paginate(products []models.Product, page, pageSize int) models.ProductPage {
	if page < 1 {
		page = 1
	}
	total := len(products)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return models.ProductPage{
		Products:    products[start:end],
		TotalPages:  (total + pageSize - 1) / pageSize,
		TotalItems:  total,
		CurrentPage: page,
		HasNextPage: end < total,
		HasPrevPage: page > 1,
	}
}

// mutateProducts recharge le catalogue sous son verrou et applique fn à une
// copie ; s.products n'est remplacé qu'après une sauvegarde réussie.
func (s *ProductStore) mutateProducts(ctx context.Context, fn func(products []models.Product) error) error {
	return s.storage.WithLock(ctx, storage.KeyProducts, func(ctx context.Context) error {
		if err := s.reload(ctx); err != nil {
			return err
		}
		working := make([]models.Product, len(s.products))
		copy(working, s.products)

		if err := fn(working); err != nil {
			return err
		}
		if err := s.storage.Save(ctx, storage.KeyProducts, working, 0); err != nil {
			return fmt.Errorf("sauvegarde catalogue: %w", err)
		}
		s.products = working
		return nil
	})
}

// UpdateProductStock fixe le stock d'un produit (jamais négatif).
func (s *ProductStore) UpdateProductStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		stock = 0
	}
	return s.mutateProducts(ctx, func(products []models.Product) error {
		idx := indexOf(products, id)
		if idx < 0 {
			return ErrProductNotFound
		}
		products[idx].Stock = stock
		return nil
	})
}

// StockConflict décrit une ligne dont la quantité dépasse le stock live.
type StockConflict struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

// StockError regroupe les conflits détectés pendant DecrementStock.
type StockError struct {
	Conflicts []StockConflict
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s: demandé %d, disponible %d", c.Name, c.Requested, c.Available))
	}
	return "stock insuffisant (" + strings.Join(parts, ", ") + ")"
}

func (e *StockError) Unwrap() error { return ErrOutOfStock }

// DecrementStock retire les quantités du panier du stock, tout ou rien.
func (s *ProductStore) DecrementStock(ctx context.Context, items []models.CartItem) error {
	return s.mutateProducts(ctx, func(products []models.Product) error {
		var conflicts []StockConflict
		for _, item := range items {
			idx := indexOf(products, item.ID)
			if idx < 0 {
				conflicts = append(conflicts, StockConflict{ProductID: item.ID, Name: item.Name, Requested: item.Quantity})
				continue
			}
			if products[idx].Stock < item.Quantity {
				conflicts = append(conflicts, StockConflict{
					ProductID: item.ID,
					Name:      item.Name,
					Requested: item.Quantity,
					Available: products[idx].Stock,
				})
			}
		}
		if len(conflicts) > 0 {
			return &StockError{Conflicts: conflicts}
		}

		for _, item := range items {
			products[indexOf(products, item.ID)].Stock -= item.Quantity
		}
		return nil
	})
}

// RestoreStock rend au stock les quantités d'une commande qui n'a pas pu être
// enregistrée. Les produits disparus du catalogue sont ignorés.
func (s *ProductStore) RestoreStock(ctx context.Context, items []models.CartItem) error {
	return s.mutateProducts(ctx, func(products []models.Product) error {
		for _, item := range items {
			if idx := indexOf(products, item.ID); idx >= 0 {
				products[idx].Stock += item.Quantity
			}
		}
		return nil
	})
}

func indexOf(products []models.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}
