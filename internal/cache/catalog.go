package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/storefront-go/internal/product"
)

// Key layout and staleness policy for the catalog cache.
const (
	// catalog:product:{product_id} -> product JSON
	keyProduct = "catalog:product:%s"
	// catalog:listings:ver -> integer, bumped to drop every cached listing
	keyListingVersion = "catalog:listings:ver"
	// catalog:listings:{ver}:{page}:{per}:{seller} -> product list JSON
	keyListing = "catalog:listings:%d:%d:%d:%s"
)

var (
	TTLProduct = 5 * time.Minute
	TTLListing = 1 * time.Minute
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Catalog is a read-through redis cache in front of the product repository.
// Read misses and redis failures fall back to the database; a cache problem
// never fails a request.
type Catalog struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewCatalog(rdb *redis.Client, logger zerolog.Logger) *Catalog {
	return &Catalog{rdb: rdb, logger: logger}
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (*product.Product, bool) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(keyProduct, id)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Msg("product cache read failed")
		}
		return nil, false
	}

	var p product.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *Catalog) SetProduct(ctx context.Context, p *product.Product) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(keyProduct, p.ID), raw, TTLProduct).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("product cache write failed")
	}
}

func (c *Catalog) InvalidateProduct(ctx context.Context, productID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(keyProduct, productID)).Err()
}

func (c *Catalog) GetListing(ctx context.Context, f product.ListFilter) ([]product.Product, bool) {
	key, err := c.listingKey(ctx, f)
	if err != nil {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var out []product.Product
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	return out, true
}

func (c *Catalog) SetListing(ctx context.Context, f product.ListFilter, products []product.Product) {
	key, err := c.listingKey(ctx, f)
	if err != nil {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, TTLListing).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("listing cache write failed")
	}
}

// InvalidateListings bumps the listing version so every cached page goes
// stale at once; the old keys expire on their own TTL.
func (c *Catalog) InvalidateListings(ctx context.Context) error {
	return c.rdb.Incr(ctx, keyListingVersion).Err()
}

func (c *Catalog) listingKey(ctx context.Context, f product.ListFilter) (string, error) {
	ver, err := c.rdb.Get(ctx, keyListingVersion).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf(keyListing, ver, f.Page, f.PerPage, f.SellerID), nil
}
