// Package catalog serves the read-only gift catalog from a shared TTL cache
// in front of the gift repository.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-app/internal/apperrors"
	"live-app/internal/database"
	"live-app/internal/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Catalog struct {
	repo  database.GiftRepository
	cache *expirable.LRU[string, models.GiftCatalogEntry]
}

func New(repo database.GiftRepository, size int, ttl time.Duration) *Catalog {
	return &Catalog{
		repo:  repo,
		cache: expirable.NewLRU[string, models.GiftCatalogEntry](size, nil, ttl),
	}
}

// Lookup returns the catalog entry for id or an error wrapping ErrUnknownGift.
func (c *Catalog) Lookup(ctx context.Context, id string) (models.GiftCatalogEntry, error) {
	if gift, ok := c.cache.Get(id); ok {
		return gift, nil
	}
	gift, err := c.repo.GetGift(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.GiftCatalogEntry{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownGift, id)
		}
		return models.GiftCatalogEntry{}, fmt.Errorf("failed to load gift %s: %w", id, err)
	}
	c.cache.Add(gift.ID, *gift)
	return *gift, nil
}

func (c *Catalog) List(ctx context.Context) ([]models.GiftCatalogEntry, error) {
	gifts, err := c.repo.ListGifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gifts: %w", err)
	}
	out := make([]models.GiftCatalogEntry, 0, len(gifts))
	for _, g := range gifts {
		c.cache.Add(g.ID, *g)
		out = append(out, *g)
	}
	return out, nil
}

// Price overwrites the client supplied price and name of a gift with the
// catalog's.
func (c *Catalog) Price(ctx context.Context, gift *models.Gift) error {
	entry, err := c.Lookup(ctx, gift.GiftID)
	if err != nil {
		return err
	}
	gift.GiftPrice = models.FlexInt(entry.Price)
	gift.GiftName = entry.Name
	return nil
}
