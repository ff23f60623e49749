package utils

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/wneessen/go-mail"
)

// SMTPConfig : paramètres d'envoi des confirmations de commande.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer envoie la confirmation d'une commande.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to string, order models.Order) error
}

type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer retourne nil si aucun hôte SMTP n'est configuré.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Host == "" {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, to string, order models.Order) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject("Order confirmation " + order.ID)
	msg.SetBodyString(mail.TypeTextHTML, OrderConfirmationHTML(order))

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// OrderConfirmationHTML génère le HTML de confirmation de commande
func OrderConfirmationHTML(order models.Order) string {
	var rows strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&rows, `
			<tr>
				<td>%s</td>
				<td>%d</td>
				<td>%s</td>
				<td>%s</td>
			</tr>`, item.Name, item.Quantity, FormatPrice(item.Price),
			FormatPrice(Cents(LineTotal(item.Price, item.Quantity))))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Order confirmation</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2>Thank you for your order</h2>
		<p>Order <strong>%s</strong> is %s. Estimated delivery: %s.</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr><th>Product</th><th>Quantity</th><th>Price</th><th>Total</th></tr>
			</thead>
			<tbody>%s
			</tbody>
		</table>
		<p>Subtotal: %s<br>Tax: %s<br>Shipping: %s<br>Discount: -%s</p>
		<p><strong>Total: %s</strong></p>
	</div>
</body>
</html>`,
		order.ID, order.Status, FormatDate(order.EstimatedDelivery), rows.String(),
		FormatPrice(order.Subtotal), FormatPrice(order.Tax), FormatPrice(order.ShippingCost),
		FormatPrice(order.DiscountAmount), FormatPrice(order.Total))
}
