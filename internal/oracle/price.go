// Package oracle supplies the external data the classifier enriches alerts
// with: a unit price for the monitored token and historical wallet balances.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when an oracle has no data for a request.
var ErrUnavailable = errors.New("oracle: data unavailable")

// PriceOracle returns the USD price of one whole token unit.
type PriceOracle interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Quote is a price observed once and reused for a whole batch.
type Quote struct {
	Symbol string
	USD    float64
	At     time.Time
	OK     bool
}

// Value converts a display amount to USD.
func (q Quote) Value(amount float64) (float64, bool) {
	if !q.OK {
		return 0, false
	}
	return amount * q.USD, true
}

// Snapshot reads the current price. Failures produce a Quote with OK unset
// alongside the error.
func Snapshot(ctx context.Context, prices PriceOracle, symbol string) (Quote, error) {
	quote := Quote{Symbol: symbol, At: time.Now().UTC()}
	if prices == nil {
		return quote, ErrUnavailable
	}
	usd, err := prices.Price(ctx, symbol)
	if err != nil {
		return quote, err
	}
	if usd <= 0 {
		return quote, ErrUnavailable
	}
	quote.USD = usd
	quote.OK = true
	return quote, nil
}

// StaticPrice is a fixed price, typically from configuration.
type StaticPrice float64

func (p StaticPrice) Price(context.Context, string) (float64, error) {
	if p <= 0 {
		return 0, ErrUnavailable
	}
	return float64(p), nil
}

// RedisPrice reads prices published by an external service. Each symbol is
// a hash at "price:{SYMBOL}" with a "price" field and an optional "ts" field
// in Unix nanoseconds.
type RedisPrice struct {
	rdb    *redis.Client
	maxAge time.Duration
	now    func() time.Time
}

// NewRedisPrice wraps a client. Prices older than maxAge are treated as
// unavailable; zero disables the check.
func NewRedisPrice(rdb *redis.Client, maxAge time.Duration) *RedisPrice {
	return &RedisPrice{rdb: rdb, maxAge: maxAge, now: time.Now}
}

func priceKey(symbol string) string {
	return "price:" + strings.ToUpper(symbol)
}

func (r *RedisPrice) Price(ctx context.Context, symbol string) (float64, error) {
	vals, err := r.rdb.HGetAll(ctx, priceKey(symbol)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	return parsePriceHash(vals, r.maxAge, r.now())
}

func parsePriceHash(vals map[string]string, maxAge time.Duration, now time.Time) (float64, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return 0, ErrUnavailable
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", priceStr, err)
	}
	if maxAge > 0 {
		tsStr, ok := vals["ts"]
		if !ok {
			return 0, ErrUnavailable
		}
		tsNano, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse ts %q: %w", tsStr, err)
		}
		if now.Sub(time.Unix(0, tsNano)) > maxAge {
			return 0, ErrUnavailable
		}
	}
	return price, nil
}
