package store

import (
	"context"
	"errors"
	"time"

	"storefront/internal/models"
	"storefront/internal/storage"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{Now: func() time.Time { return testNow }}
}

func product(id string, price float64, stock int) models.Product {
	return models.Product{ID: id, Name: "Produit " + id, Price: price, Stock: stock}
}

var errBackendDown = errors.New("backend down")

// failingSaves fait échouer Save sur une clé tant que fail vaut true.
type failingSaves struct {
	storage.Storage
	key  string
	fail bool
}

func (f *failingSaves) Save(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.fail && key == f.key {
		return errBackendDown
	}
	return f.Storage.Save(ctx, key, value, ttl)
}
