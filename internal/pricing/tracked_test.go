package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"priceScope/internal/model"
)

const deadPair = "0xdead0000000000000000000000000000000dead0"

func trackedFixture(t *testing.T) (model.Token, model.Token, model.Token, decimal.Decimal) {
	t.Helper()
	usdc := model.Token{Address: stableUSDC, Decimals: 6, DerivedBase: dec(t, "0.001")}
	base := model.Token{Address: baseToken, Decimals: 18, DerivedBase: decimal.NewFromInt(1)}
	other := model.Token{Address: tokenA, Decimals: 18}
	basePriceUSD := dec(t, "1000")
	return usdc, base, other, basePriceUSD
}

func trustedPair(liquidityProviders uint64) model.Pair {
	return model.Pair{
		Address:                pairA1,
		LiquidityProviderCount: liquidityProviders,
	}
}

func TestTrackedVolumeBothAnchorsAveragesLegs(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	usdc, base, _, basePrice := trackedFixture(t)

	got := engine.TrackedVolumeUSD(dec(t, "10"), usdc, dec(t, "2"), base, trustedPair(9), basePrice)
	// (10*1 + 2*1000) / 2
	if !got.Equal(dec(t, "1005")) {
		t.Fatalf("tracked volume = %s, want 1005", got)
	}
}

func TestTrackedVolumeSingleAnchorLeg(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	usdc, _, other, basePrice := trackedFixture(t)

	got := engine.TrackedVolumeUSD(dec(t, "10"), usdc, dec(t, "999"), other, trustedPair(9), basePrice)
	if !got.Equal(dec(t, "10")) {
		t.Fatalf("tracked volume = %s, want 10 (anchor leg only)", got)
	}

	got = engine.TrackedVolumeUSD(dec(t, "999"), other, dec(t, "10"), usdc, trustedPair(9), basePrice)
	if !got.Equal(dec(t, "10")) {
		t.Fatalf("tracked volume = %s, want 10 (anchor on token1 side)", got)
	}
}

func TestTrackedVolumeNoAnchors(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	_, _, other, basePrice := trackedFixture(t)

	second := model.Token{Address: "0xbbbb00000000000000000000000000000000bbbb"}
	got := engine.TrackedVolumeUSD(dec(t, "10"), other, dec(t, "10"), second, trustedPair(9), basePrice)
	if !got.IsZero() {
		t.Fatalf("unanchored pair should track zero volume, got %s", got)
	}
}

func TestTrackedVolumeUntrackedPair(t *testing.T) {
	cfg := testConfig(t)
	cfg.UntrackedPairs = []string{deadPair}
	engine := testEngine(t, cfg)
	usdc, base, _, basePrice := trackedFixture(t)

	pair := trustedPair(100)
	pair.Address = deadPair
	got := engine.TrackedVolumeUSD(dec(t, "10"), usdc, dec(t, "2"), base, pair, basePrice)
	if !got.IsZero() {
		t.Fatalf("denylisted pair must track zero volume, got %s", got)
	}
}

func TestTrackedVolumeLowProviderGuard(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	usdc, base, _, basePrice := trackedFixture(t)

	// 40 + 40 USD of reserves, below the 100 USD floor.
	pair := trustedPair(3)
	pair.Reserve0 = dec(t, "40")
	pair.Reserve1 = dec(t, "0.04")

	got := engine.TrackedVolumeUSD(dec(t, "10"), usdc, dec(t, "2"), base, pair, basePrice)
	if !got.IsZero() {
		t.Fatalf("shallow low-provider pair must track zero volume, got %s", got)
	}

	// Same reserves with enough providers: the guard does not apply.
	pair.LiquidityProviderCount = 5
	got = engine.TrackedVolumeUSD(dec(t, "10"), usdc, dec(t, "2"), base, pair, basePrice)
	if !got.Equal(dec(t, "1005")) {
		t.Fatalf("tracked volume = %s, want 1005 with enough providers", got)
	}
}

func TestTrackedVolumeLowProviderGuardSingleAnchor(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	usdc, _, other, basePrice := trackedFixture(t)

	// Anchor-side reserve doubles to 80 USD, still below the floor.
	pair := trustedPair(1)
	pair.Reserve0 = dec(t, "40")
	pair.Reserve1 = dec(t, "123456")

	got := engine.TrackedVolumeUSD(dec(t, "10"), usdc, dec(t, "5"), other, pair, basePrice)
	if !got.IsZero() {
		t.Fatalf("tracked volume = %s, want 0", got)
	}

	// 60 USD doubles to 120, above the floor.
	pair.Reserve0 = dec(t, "60")
	got = engine.TrackedVolumeUSD(dec(t, "10"), usdc, dec(t, "5"), other, pair, basePrice)
	if !got.Equal(dec(t, "10")) {
		t.Fatalf("tracked volume = %s, want 10", got)
	}
}

func TestTrackedLiquidityBothAnchorsSumsLegs(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	usdc, base, _, basePrice := trackedFixture(t)

	got := engine.TrackedLiquidityUSD(dec(t, "10"), usdc, dec(t, "2"), base, basePrice)
	if !got.Equal(dec(t, "2010")) {
		t.Fatalf("tracked liquidity = %s, want 2010", got)
	}
}

func TestTrackedLiquiditySingleAnchorDoubled(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	usdc, _, other, basePrice := trackedFixture(t)

	got := engine.TrackedLiquidityUSD(dec(t, "10"), usdc, dec(t, "1"), other, basePrice)
	if !got.Equal(dec(t, "20")) {
		t.Fatalf("tracked liquidity = %s, want 20", got)
	}

	// The untrusted leg's size must not matter.
	again := engine.TrackedLiquidityUSD(dec(t, "10"), usdc, dec(t, "999999"), other, basePrice)
	if !again.Equal(got) {
		t.Fatalf("tracked liquidity changed with untrusted leg: %s != %s", again, got)
	}
}

func TestTrackedLiquidityNoAnchors(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	_, _, other, basePrice := trackedFixture(t)

	second := model.Token{Address: "0xbbbb00000000000000000000000000000000bbbb"}
	got := engine.TrackedLiquidityUSD(dec(t, "10"), other, dec(t, "10"), second, basePrice)
	if !got.IsZero() {
		t.Fatalf("unanchored liquidity should track zero, got %s", got)
	}
}
