package oracle

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"buyScope/internal/model"
)

func TestSnapshot(t *testing.T) {
	quote, err := Snapshot(context.Background(), StaticPrice(2.5), "BUY")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	usd, ok := quote.Value(150)
	if !ok || usd != 375 {
		t.Fatalf("expected 375 usd, got %v (%v)", usd, ok)
	}

	quote, err = Snapshot(context.Background(), StaticPrice(0), "BUY")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, ok := quote.Value(1); ok {
		t.Fatalf("unavailable quote must not price amounts")
	}

	if _, err := Snapshot(context.Background(), nil, "BUY"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("nil oracle should be unavailable, got %v", err)
	}
}

func TestParsePriceHash(t *testing.T) {
	now := time.Unix(1700000000, 0)
	fresh := strconv.FormatInt(now.Add(-time.Minute).UnixNano(), 10)
	stale := strconv.FormatInt(now.Add(-time.Hour).UnixNano(), 10)

	price, err := parsePriceHash(map[string]string{"price": "1.25", "ts": fresh}, 5*time.Minute, now)
	if err != nil || price != 1.25 {
		t.Fatalf("expected 1.25, got %v (%v)", price, err)
	}
	if _, err := parsePriceHash(map[string]string{"price": "1.25", "ts": stale}, 5*time.Minute, now); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("stale price should be unavailable, got %v", err)
	}
	if price, err := parsePriceHash(map[string]string{"price": "3"}, 0, now); err != nil || price != 3 {
		t.Fatalf("age check disabled: %v (%v)", price, err)
	}
	if _, err := parsePriceHash(map[string]string{}, 0, now); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("missing hash should be unavailable, got %v", err)
	}
	if _, err := parsePriceHash(map[string]string{"price": "abc"}, 0, now); err == nil {
		t.Fatalf("expected parse error")
	}
}

type fakeReader struct {
	calls    int
	failures int
	balances map[uint64]*big.Int
}

func (f *fakeReader) BalanceOf(_ context.Context, _, _ common.Address, block *big.Int) (*big.Int, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("rpc timeout")
	}
	if balance, ok := f.balances[block.Uint64()]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}

func TestChainBalances(t *testing.T) {
	token := model.Token{Symbol: "BUY", Decimals: 18, Addresses: map[uint64]string{1: "0x2222222222222222222222222222222222222222"}}
	reader := &fakeReader{failures: 1, balances: map[uint64]*big.Int{100: big.NewInt(42)}}
	balances := NewChainBalances(token, map[uint64]BalanceReader{1: reader}, 2, time.Millisecond)
	wallet := "0x4444444444444444444444444444444444444444"

	got, err := balances.BalanceAt(context.Background(), wallet, 1, 100)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got.Int64() != 42 || reader.calls != 2 {
		t.Fatalf("expected 42 after a retry, got %s in %d calls", got, reader.calls)
	}

	if _, err := balances.BalanceAt(context.Background(), wallet, 56, 100); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unknown chain should be unavailable, got %v", err)
	}
	if _, err := balances.BalanceAt(context.Background(), "nope", 1, 100); err == nil {
		t.Fatalf("expected invalid wallet error")
	}
}
