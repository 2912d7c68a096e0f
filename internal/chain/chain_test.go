package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"buyScope/internal/dex"
)

func TestWithRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	calls := 0
	want := errors.New("down")
	err := WithRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetry(ctx, 5, time.Hour, func(context.Context) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	cause := errors.New("bad output")
	err := WithRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return Permanent(cause)
	})
	if calls != 1 {
		t.Fatalf("permanent error retried: %d calls", calls)
	}
	if !errors.Is(err, cause) || !IsPermanent(err) {
		t.Fatalf("expected wrapped permanent error, got %v", err)
	}
	if Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) must be nil")
	}
}

func TestUnpackBalance(t *testing.T) {
	erc20, err := dex.ERC20ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(150), big.NewInt(1e18))
	output, err := erc20.Methods["balanceOf"].Outputs.Pack(want)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	got, err := UnpackBalance(erc20, output)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if _, err := UnpackBalance(erc20, output[:10]); err == nil {
		t.Fatalf("expected error for short output")
	}
}
