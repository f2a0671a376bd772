package track

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAdjustAmount(t *testing.T) {
	got, err := adjustAmount("1500000", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "1.5" {
		t.Fatalf("adjusted = %s, want 1.5", got)
	}

	got, err = adjustAmount("", 18)
	if err != nil || !got.IsZero() {
		t.Fatalf("empty amount: got %s err %v", got, err)
	}

	if _, err := adjustAmount("not-a-number", 18); err == nil {
		t.Fatalf("expected error for malformed amount")
	}
}

func TestSwapAmountSumsBothLegs(t *testing.T) {
	got, err := swapAmount("100", "50", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "150" {
		t.Fatalf("swap amount = %s, want 150", got)
	}
}

func TestPairPricesAreReciprocal(t *testing.T) {
	token0Price, token1Price := pairPrices(decimal.NewFromInt(3), decimal.NewFromInt(1000))

	product := token0Price.Mul(token1Price)
	drift := product.Sub(decimal.NewFromInt(1)).Abs()
	if drift.GreaterThan(decimal.RequireFromString("0.0000000001")) {
		t.Fatalf("price product = %s, want ~1", product)
	}
}

func TestPairPricesZeroReserve(t *testing.T) {
	token0Price, token1Price := pairPrices(decimal.Zero, decimal.NewFromInt(5))
	if !token0Price.IsZero() || !token1Price.IsZero() {
		t.Fatalf("zero reserve should price as zero, got %s / %s", token0Price, token1Price)
	}
}
