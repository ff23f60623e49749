package store

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/storage"
	"storefront/internal/utils"

	"github.com/shopspring/decimal"
)

// StockLookup retourne le stock live d'un produit.
type StockLookup func(productID string) (stock int, ok bool)

// CartStore : panier d'un client.
type CartStore struct {
	storage storage.Storage
	key     string
	ttl     time.Duration
	taxRate float64
	stockOf StockLookup

	items     []models.CartItem
	total     float64
	itemCount int
}

func NewCartStore(st storage.Storage, clientID string, opts Options) *CartStore {
	opts = opts.withDefaults()
	return &CartStore{
		storage: st,
		key:     storage.ClientKey(storage.KeyCart, clientID),
		ttl:     opts.ClientTTL,
		taxRate: opts.TaxRate,
		items:   []models.CartItem{},
	}
}

// WithStockLookup : UpdateQuantity borne alors sur le stock live plutôt que
// sur l'instantané pris à l'ajout.
func (s *CartStore) WithStockLookup(lookup StockLookup) *CartStore {
	s.stockOf = lookup
	return s
}

func (s *CartStore) Initialize(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	s.CalculateTotals()
	return nil
}

func (s *CartStore) load(ctx context.Context) error {
	var items []models.CartItem
	if _, err := s.storage.Load(ctx, s.key, &items); err != nil {
		return fmt.Errorf("chargement panier: %w", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	s.items = items
	return nil
}

// mutate recharge, applique fn, persiste et recalcule, sous le verrou du panier.
func (s *CartStore) mutate(ctx context.Context, fn func() error) error {
	return s.storage.WithLock(ctx, s.key, func(ctx context.Context) error {
		if err := s.load(ctx); err != nil {
			return err
		}
		if err := fn(); err != nil {
			return err
		}
		return s.persist(ctx)
	})
}

func (s *CartStore) persist(ctx context.Context) error {
	if err := s.storage.Save(ctx, s.key, s.items, s.ttl); err != nil {
		return fmt.Errorf("sauvegarde panier: %w", err)
	}
	s.CalculateTotals()
	return nil
}

func (s *CartStore) Items() []models.CartItem {
	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *CartStore) Total() float64 { return s.total }
func (s *CartStore) ItemCount() int { return s.itemCount }
func (s *CartStore) IsEmpty() bool { return len(s.items) == 0 }
func (s *CartStore) TaxRate() float64 { return s.taxRate }

// AddToCart ajoute quantity unités, bornées au stock du produit.
func (s *CartStore) AddToCart(ctx context.Context, product models.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if product.Stock <= 0 {
		return fmt.Errorf("%s: %w", product.Name, ErrOutOfStock)
	}

	return s.mutate(ctx, func() error {
		for i := range s.items {
			if s.items[i].ID == product.ID {
				s.items[i].Product = product
				s.items[i].Quantity = min(s.items[i].Quantity+quantity, product.Stock)
				return nil
			}
		}
		s.items = append(s.items, models.CartItem{
			Product:  product,
			Quantity: min(quantity, product.Stock),
		})
		return nil
	})
}

func (s *CartStore) RemoveFromCart(ctx context.Context, productID string) error {
	return s.mutate(ctx, func() error {
		s.items = removeCartLine(s.items, productID)
		return nil
	})
}

func removeCartLine(items []models.CartItem, productID string) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.ID != productID {
			out = append(out, item)
		}
	}
	return out
}

// UpdateQuantity : quantity <= 0 retire la ligne, sinon borne au stock.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, productID)
	}

	return s.mutate(ctx, func() error {
		for i := range s.items {
			if s.items[i].ID != productID {
				continue
			}
			if s.stockOf != nil {
				if stock, ok := s.stockOf(productID); ok {
					s.items[i].Stock = stock
				}
			}
			if s.items[i].Stock <= 0 {
				return fmt.Errorf("%s: %w", s.items[i].Name, ErrOutOfStock)
			}
			s.items[i].Quantity = min(quantity, s.items[i].Stock)
			return nil
		}
		return ErrItemNotFound
	})
}

func (s *CartStore) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, func() error {
		s.items = []models.CartItem{}
		return nil
	})
}

// CalculateTotals : total = Σ prix × quantité, itemCount = Σ quantité.
func (s *CartStore) CalculateTotals() {
	total, count := cartTotals(s.items)
	s.total = utils.Cents(total)
	s.itemCount = count
}

func cartTotals(items []models.CartItem) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		total = total.Add(utils.LineTotal(item.Price, item.Quantity))
		count += item.Quantity
	}
	return total, count
}

// GetCartSummary ajoute la taxe au sous-total.
func (s *CartStore) GetCartSummary() models.CartSummary {
	return Summarize(s.items, s.taxRate)
}

// Summarize calcule le résumé d'une liste d'articles pour un taux de taxe donné.
func Summarize(items []models.CartItem, taxRate float64) models.CartSummary {
	total, count := cartTotals(items)
	subtotal := total.Round(2)
	tax := utils.Percent(subtotal, taxRate).Round(2)

	if items == nil {
		items = []models.CartItem{}
	}
	return models.CartSummary{
		Subtotal:  utils.Cents(subtotal),
		Tax:       utils.Cents(tax),
		Total:     utils.Cents(subtotal.Add(tax)),
		ItemCount: count,
		Items:     items,
	}
}

// ValidateCart réconcilie le panier avec le stock live. Les lignes disparues
// ou en rupture sont retirées, les autres bornées ; chaque correction produit
// un message.
func (s *CartStore) ValidateCart(ctx context.Context, products []models.Product) ([]string, error) {
	var messages []string

	err := s.storage.WithLock(ctx, s.key, func(ctx context.Context) error {
		if err := s.load(ctx); err != nil {
			return err
		}

		live := make(map[string]models.Product, len(products))
		for _, p := range products {
			live[p.ID] = p
		}

		changed := false
		updated := make([]models.CartItem, 0, len(s.items))
		for _, item := range s.items {
			current, ok := live[item.ID]
			switch {
			case !ok:
				messages = append(messages, fmt.Sprintf("%s is no longer available", item.Name))
				changed = true
			case current.Stock <= 0:
				messages = append(messages, fmt.Sprintf("%s is out of stock", item.Name))
				changed = true
			case item.Quantity > current.Stock:
				messages = append(messages, fmt.Sprintf("Only %d %s available", current.Stock, item.Name))
				item.Quantity = current.Stock
				item.Stock = current.Stock
				updated = append(updated, item)
				changed = true
			default:
				if item.Stock != current.Stock {
					item.Stock = current.Stock
					changed = true
				}
				updated = append(updated, item)
			}
		}

		s.items = updated
		if !changed {
			s.CalculateTotals()
			return nil
		}
		return s.persist(ctx)
	})
	return messages, err
}
