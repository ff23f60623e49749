package utils

import (
	"fmt"

	"storefront/internal/models"

	"github.com/skip2/go-qrcode"
)

// OrderQRCode encode l'identifiant et le total d'une commande en PNG.
func OrderQRCode(order models.Order, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	payload := fmt.Sprintf("ORDER:%s\nTOTAL:%.2f\nSTATUS:%s", order.ID, order.Total, order.Status)
	return qrcode.Encode(payload, qrcode.Medium, size)
}
