// Package service regroupe la logique qui compose plusieurs stores : checkout
// et indexation de recherche.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultShippingMethod        = "standard"
	DefaultFreeShippingThreshold = 50.0
	mailTimeout                  = 15 * time.Second
)

var (
	ErrEmptyCart             = errors.New("le panier est vide")
	ErrUnknownShippingMethod = errors.New("mode de livraison inconnu")
	ErrInvalidDiscountCode   = errors.New("Invalid discount code")
)

var shippingMethods = []models.ShippingMethod{
	{ID: "standard", Name: "Standard Shipping", Description: "5-7 business days", Price: 5.99, EstimatedDays: 7},
	{ID: "express", Name: "Express Shipping", Description: "2-3 business days", Price: 12.99, EstimatedDays: 3},
	{ID: "overnight", Name: "Overnight Shipping", Description: "Next business day", Price: 24.99, EstimatedDays: 1},
}

// Codes promo : pourcentage du sous-total.
var discountCodes = map[string]float64{
	"SAVE10": 0.10,
}

// CartConflictError : le panier ne correspond plus au stock. Messages est
// affiché tel quel au client.
type CartConflictError struct {
	Messages []string
}

func (e *CartConflictError) Error() string {
	return "panier modifié: " + strings.Join(e.Messages, "; ")
}

func (e *CartConflictError) Unwrap() error { return store.ErrOutOfStock }

// CheckoutRequest : formulaire de commande. Les champs de livraison ne sont
// requis que si l'adresse diffère de la facturation.
type CheckoutRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
	Country   string `json:"country"`

	SameAsBilling     bool   `json:"sameAsBilling"`
	ShippingFirstName string `json:"shippingFirstName" validate:"required_unless=SameAsBilling true"`
	ShippingLastName  string `json:"shippingLastName" validate:"required_unless=SameAsBilling true"`
	ShippingAddress   string `json:"shippingAddress" validate:"required_unless=SameAsBilling true"`
	ShippingCity      string `json:"shippingCity" validate:"required_unless=SameAsBilling true"`
	ShippingState     string `json:"shippingState" validate:"required_unless=SameAsBilling true"`
	ShippingZip       string `json:"shippingZip" validate:"required_unless=SameAsBilling true"`
	ShippingCountry   string `json:"shippingCountry"`

	CardNumber string `json:"cardNumber" validate:"required,min=16"`
	ExpiryDate string `json:"expiryDate" validate:"required"`
	CVV        string `json:"cvv" validate:"required,min=3"`
	CardName   string `json:"cardName" validate:"required"`

	ShippingMethod string `json:"shippingMethod"`
	DiscountCode   string `json:"discountCode"`
}

func (r CheckoutRequest) billing() models.Address {
	return models.Address{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		City:      r.City,
		State:     r.State,
		Zip:       r.Zip,
		Country:   orDefault(r.Country, "US"),
	}
}

func (r CheckoutRequest) shipping() models.Address {
	if r.SameAsBilling {
		return r.billing()
	}
	return models.Address{
		FirstName: r.ShippingFirstName,
		LastName:  r.ShippingLastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.ShippingAddress,
		City:      r.ShippingCity,
		State:     r.ShippingState,
		Zip:       r.ShippingZip,
		Country:   orDefault(r.ShippingCountry, orDefault(r.Country, "US")),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Checkout calcule les devis et transforme un panier en commande.
type Checkout struct {
	catalog       *store.ProductStore
	orders        *store.OrderStore
	mailer        utils.Mailer
	logger        *zap.Logger
	taxRate       float64
	freeThreshold float64
}

func NewCheckout(catalog *store.ProductStore, orders *store.OrderStore, taxRate, freeThreshold float64, log *zap.Logger) *Checkout {
	if taxRate <= 0 {
		taxRate = store.DefaultTaxRate
	}
	return &Checkout{
		catalog:       catalog,
		orders:        orders,
		logger:        logger.OrNop(log),
		taxRate:       taxRate,
		freeThreshold: freeThreshold,
	}
}

// WithMailer active l'envoi de la confirmation de commande.
func (c *Checkout) WithMailer(m utils.Mailer) *Checkout {
	c.mailer = m
	return c
}

// ShippingMethods liste les modes de livraison, standard gratuit au-delà du
// seuil. Un seuil <= 0 désactive la livraison gratuite.
func (c *Checkout) ShippingMethods(subtotal float64) []models.ShippingMethod {
	out := make([]models.ShippingMethod, len(shippingMethods))
	copy(out, shippingMethods)
	if c.freeThreshold > 0 && subtotal >= c.freeThreshold {
		out[0].Price = 0
	}
	return out
}

func (c *Checkout) shippingMethod(id string, subtotal float64) (models.ShippingMethod, error) {
	if id == "" {
		id = DefaultShippingMethod
	}
	for _, m := range c.ShippingMethods(subtotal) {
		if m.ID == id {
			return m, nil
		}
	}
	return models.ShippingMethod{}, fmt.Errorf("%w: %s", ErrUnknownShippingMethod, id)
}

// DiscountRate retourne le taux d'un code promo (insensible à la casse).
func DiscountRate(code string) (string, float64, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	rate, ok := discountCodes[normalized]
	if !ok {
		return "", 0, ErrInvalidDiscountCode
	}
	return normalized, rate, nil
}

// Quote : total = sous-total + taxe + livraison - remise, jamais négatif.
func (c *Checkout) Quote(items []models.CartItem, shippingID, discountCode string) (models.Quote, error) {
	summary := store.Summarize(items, c.taxRate)
	subtotal := utils.Money(summary.Subtotal)
	tax := utils.Money(summary.Tax)

	method, err := c.shippingMethod(shippingID, summary.Subtotal)
	if err != nil {
		return models.Quote{}, err
	}
	shipping := utils.Money(method.Price)

	discount := decimal.Zero
	var code string
	if strings.TrimSpace(discountCode) != "" {
		var rate float64
		if code, rate, err = DiscountRate(discountCode); err != nil {
			return models.Quote{}, err
		}
		discount = utils.Percent(subtotal, rate).Round(2)
	}

	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return models.Quote{
		Subtotal:       summary.Subtotal,
		TaxRate:        c.taxRate,
		Tax:            summary.Tax,
		ShippingMethod: method,
		ShippingCost:   method.Price,
		DiscountCode:   code,
		DiscountAmount: utils.Cents(discount),
		Total:          utils.Cents(total),
		ItemCount:      summary.ItemCount,
	}, nil
}

// PlaceOrder valide le formulaire et le panier, décrémente le stock, crée la
// commande puis vide le panier.
func (c *Checkout) PlaceOrder(ctx context.Context, userID string, req CheckoutRequest, cart *store.CartStore) (models.Order, error) {
	if errs := utils.ValidateStruct(req); errs != nil {
		return models.Order{}, errs
	}

	messages, err := cart.ValidateCart(ctx, c.catalog.Products())
	if err != nil {
		return models.Order{}, err
	}
	if len(messages) > 0 {
		return models.Order{}, &CartConflictError{Messages: messages}
	}
	if cart.IsEmpty() {
		return models.Order{}, ErrEmptyCart
	}

	items := cart.Items()
	quote, err := c.Quote(items, req.ShippingMethod, req.DiscountCode)
	if err != nil {
		return models.Order{}, err
	}

	if err := c.catalog.DecrementStock(ctx, items); err != nil {
		var stockErr *store.StockError
		if errors.As(err, &stockErr) {
			return models.Order{}, &CartConflictError{Messages: conflictMessages(stockErr)}
		}
		return models.Order{}, err
	}

	order, err := c.orders.CreateOrder(ctx, models.Order{
		UserID:          userID,
		Items:           orderItems(items),
		Subtotal:        quote.Subtotal,
		TaxRate:         quote.TaxRate,
		Tax:             quote.Tax,
		ShippingCost:    quote.ShippingCost,
		DiscountCode:    quote.DiscountCode,
		DiscountAmount:  quote.DiscountAmount,
		Total:           quote.Total,
		BillingAddress:  req.billing(),
		ShippingAddress: req.shipping(),
		ShippingMethod:  quote.ShippingMethod,
		PaymentMethod:   models.PaymentMethod{Type: "credit_card", Last4: utils.CardLast4(req.CardNumber)},
	})
	if err != nil {
		// pas de commande : le stock réservé est rendu
		if restoreErr := c.catalog.RestoreStock(context.WithoutCancel(ctx), items); restoreErr != nil {
			c.logger.Error("stock non restauré après échec de commande",
				zap.String("user_id", userID), zap.Error(restoreErr))
			return models.Order{}, errors.Join(err, restoreErr)
		}
		return models.Order{}, err
	}

	if err := cart.ClearCart(ctx); err != nil {
		c.logger.Warn("panier non vidé après commande", zap.String("order_id", order.ID), zap.Error(err))
	}

	c.logger.Info("commande créée",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Float64("total", order.Total))

	c.sendConfirmation(ctx, order)
	return order, nil
}

func (c *Checkout) sendConfirmation(ctx context.Context, order models.Order) {
	if c.mailer == nil || order.BillingAddress.Email == "" {
		return
	}
	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()
	if err := c.mailer.SendOrderConfirmation(mailCtx, order.BillingAddress.Email, order); err != nil {
		c.logger.Warn("email de confirmation non envoyé", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func orderItems(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return out
}

func conflictMessages(err *store.StockError) []string {
	out := make([]string, 0, len(err.Conflicts))
	for _, c := range err.Conflicts {
		switch {
		case c.Available <= 0:
			out = append(out, fmt.Sprintf("%s is out of stock", c.Name))
		default:
			out = append(out, fmt.Sprintf("Only %d %s available", c.Available, c.Name))
		}
	}
	return out
}
