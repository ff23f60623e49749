package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const DefaultImageURLExpiry = time.Hour

// ImageResolver transforme la clé d'objet d'une image produit en URL
// consultable par le navigateur.
type ImageResolver interface {
	ResolveImage(ctx context.Context, image string) string
}

// MinioImages signe des URLs GET temporaires sur le bucket des images.
// Les images déjà exprimées en URL absolue sont laissées telles quelles.
type MinioImages struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	logger *zap.Logger
}

func NewMinioImages(client *minio.Client, bucket string, expiry time.Duration, log *zap.Logger) *MinioImages {
	if expiry <= 0 {
		expiry = DefaultImageURLExpiry
	}
	return &MinioImages{client: client, bucket: bucket, expiry: expiry, logger: logger.OrNop(log)}
}

func (m *MinioImages) ResolveImage(ctx context.Context, image string) string {
	if image == "" || isAbsoluteURL(image) {
		return image
	}

	// Nettoie le préfixe du bucket pour ne garder que la clé
	key := strings.TrimPrefix(strings.TrimPrefix(image, "/"), m.bucket+"/")
	signed, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.expiry, make(url.Values))
	if err != nil {
		m.logger.Warn("signature URL image impossible", zap.String("key", key), zap.Error(err))
		return image
	}
	return signed.String()
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ResolveProducts retourne une copie des produits avec des URLs d'images signées.
func ResolveProducts(ctx context.Context, r ImageResolver, products []models.Product) []models.Product {
	if r == nil {
		return products
	}
	out := make([]models.Product, len(products))
	for i, p := range products {
		p.Image = r.ResolveImage(ctx, p.Image)
		out[i] = p
	}
	return out
}

func ResolveProduct(ctx context.Context, r ImageResolver, p models.Product) models.Product {
	if r != nil {
		p.Image = r.ResolveImage(ctx, p.Image)
	}
	return p
}
