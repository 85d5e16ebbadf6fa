package adapter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"storefront/internal/service/order/domain"
)

// decrementStockScript checks every line before touching any of them, so a batch is taken whole or not at all.
//
// KEYS[i]: product hash, e.g. {catalog}:product:P1
// ARGV[i]: quantity to take from KEYS[i]
// returns {1} on success, {-1, i} when KEYS[i] does not exist, {0, i, available, name} on shortfall
var decrementStockScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
    if redis.call('exists', key) == 0 then
        return {-1, i}
    end
    local stock = tonumber(redis.call('hget', key, 'quantity') or '0')
    if stock < tonumber(ARGV[i]) then
        return {0, i, stock, redis.call('hget', key, 'name') or ''}
    end
end
for i, key in ipairs(KEYS) do
    redis.call('hincrby', key, 'quantity', -tonumber(ARGV[i]))
end
return {1}
`)

// RedisCatalogAdapter implements domain.ProductCatalog and domain.StockReleaser on Redis hashes.
// All product keys share one hash tag so the decrement script runs on a single cluster slot.
type RedisCatalogAdapter struct {
	client redis.UniversalClient
}

func NewRedisCatalogAdapter(client redis.UniversalClient) *RedisCatalogAdapter {
	return &RedisCatalogAdapter{client: client}
}

func productKey(id string) string {
	return fmt.Sprintf("{catalog}:product:%s", id)
}

func (a *RedisCatalogAdapter) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := a.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, productKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, redisError("find products", err)
	}

	products := make([]domain.Product, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		p, err := parseProduct(ids[i], fields)
		if err != nil {
			return nil, domain.NewStorageError("find products", err, false)
		}
		products = append(products, p)
	}
	return products, nil
}

func parseProduct(id string, fields map[string]string) (domain.Product, error) {
	price, err := decimal.NewFromString(fields["price"])
	if err != nil {
		return domain.Product{}, errors.Wrapf(err, "product %s: bad price %q", id, fields["price"])
	}
	qty, err := strconv.Atoi(fields["quantity"])
	if err != nil {
		return domain.Product{}, errors.Wrapf(err, "product %s: bad quantity %q", id, fields["quantity"])
	}
	return domain.Product{ID: id, Name: fields["name"], Price: price, Quantity: qty}, nil
}

// UpdateQuantity runs decrementStockScript; availability is re-checked inside Redis at write time.
func (a *RedisCatalogAdapter) UpdateQuantity(ctx context.Context, items []domain.StockDecrement) error {
	if len(items) == 0 {
		return nil
	}
	if err := domain.ValidateDecrements(items); err != nil {
		return err
	}
	keys := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		keys[i] = productKey(item.ProductID)
		args[i] = item.Quantity
	}

	// On a client timeout the script may still have run; the stock then stays taken
	// while the order rolls back, so stock can be lost but never oversold.
	res, err := decrementStockScript.Run(ctx, a.client, keys, args...).Slice()
	if err != nil {
		return redisError("decrement stock", err)
	}
	return decrementResult(items, res)
}

func decrementResult(items []domain.StockDecrement, res []interface{}) error {
	code, ok := intAt(res, 0)
	if !ok {
		return domain.NewStorageError("decrement stock", errors.Errorf("unexpected script reply %v", res), false)
	}
	if code == 1 {
		return nil
	}
	idx, ok := intAt(res, 1)
	if !ok || idx < 1 || int(idx) > len(items) {
		return domain.NewStorageError("decrement stock", errors.Errorf("unexpected script reply %v", res), false)
	}
	item := items[idx-1]
	switch code {
	case -1:
		return &domain.ProductNotFoundError{IDs: []string{item.ProductID}}
	case 0:
		available, _ := intAt(res, 2)
		name, _ := res[len(res)-1].(string)
		return &domain.InsufficientStockError{
			ProductID: item.ProductID,
			Name:      name,
			Requested: item.Quantity,
			Available: int(available),
		}
	default:
		return domain.NewStorageError("decrement stock", errors.Errorf("unknown script code %d", code), false)
	}
}

func intAt(res []interface{}, i int) (int64, bool) {
	if i >= len(res) {
		return 0, false
	}
	v, ok := res[i].(int64)
	return v, ok
}

// ReleaseQuantity gives back a previous decrement in one MULTI/EXEC.
func (a *RedisCatalogAdapter) ReleaseQuantity(ctx context.Context, items []domain.StockDecrement) error {
	_, err := a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, item := range items {
			pipe.HIncrBy(ctx, productKey(item.ProductID), "quantity", int64(item.Quantity))
		}
		return nil
	})
	return redisError("release stock", err)
}

// PrepareProduct writes a catalog entry (seeding and admin use).
func (a *RedisCatalogAdapter) PrepareProduct(ctx context.Context, p domain.Product) error {
	err := a.client.HSet(ctx, productKey(p.ID),
		"name", p.Name,
		"price", p.Price.StringFixed(2),
		"quantity", p.Quantity,
	).Err()
	return redisError("prepare product", err)
}

func redisError(op string, err error) error {
	if err == nil {
		return nil
	}
	transient := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	return domain.NewStorageError(op, errors.WithStack(err), transient)
}
