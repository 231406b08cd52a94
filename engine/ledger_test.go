package engine

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
	"github.com/AndriyAntonenko/defi-stablecoin/precision"
)

func TestLedgerValuation(t *testing.T) {
	f := newFixture(t)
	f.fundWETH(alice, units(15, 18))
	if err := f.engine.DepositCollateral(alice, wethAddr, units(15, 18)); err != nil {
		t.Fatalf("DepositCollateral: %v", err)
	}
	f.wbtc.SetBalance(alice, units(1, 8))
	if err := f.engine.DepositCollateral(alice, wbtcAddr, units(1, 8)); err != nil {
		t.Fatalf("DepositCollateral: %v", err)
	}

	// 15 WETH at 2000 plus 1 WBTC at 30000, quoted at 18 decimals.
	_, value, err := f.engine.AccountInformation(alice)
	if err != nil {
		t.Fatalf("AccountInformation: %v", err)
	}
	equal(t, value, usd(60000), "portfolio value")
}

func TestLedgerCollateralAmountFromUSD(t *testing.T) {
	f := newFixture(t)
	profit, err := f.engine.EstimateProfit(wethAddr, usd(100))
	if err != nil {
		t.Fatalf("EstimateProfit: %v", err)
	}
	// 100 USD at 2000 USD per WETH is 0.05 WETH.
	equal(t, profit.SeizedFromDebt, big.NewInt(5e16), "seized amount")
}

func TestLedgerStaleFeedFreezesValuation(t *testing.T) {
	f := newFixture(t)
	f.fundWETH(alice, units(15, 18))
	if err := f.engine.DepositCollateral(alice, wethAddr, units(15, 18)); err != nil {
		t.Fatalf("DepositCollateral: %v", err)
	}

	// Alice holds no WBTC, yet a stale WBTC feed still freezes her
	// valuation: every registered feed must be answerable.
	f.wbtcFeed.SetAnswer(price(30000), time.Now().Add(-oracle.StaleTimeout))
	if _, _, err := f.engine.AccountInformation(alice); !errors.Is(err, oracle.ErrStalePrice) {
		t.Fatalf("expected ErrStalePrice, got %v", err)
	}
	if _, err := f.engine.HealthFactor(alice); !errors.Is(err, oracle.ErrStalePrice) {
		t.Fatalf("expected ErrStalePrice from HealthFactor, got %v", err)
	}
}

func TestLedgerRedeemUnderflow(t *testing.T) {
	f := newFixture(t)
	f.fundWETH(alice, units(1, 18))
	if err := f.engine.DepositCollateral(alice, wethAddr, units(1, 18)); err != nil {
		t.Fatalf("DepositCollateral: %v", err)
	}
	if err := f.engine.RedeemCollateral(alice, wethAddr, units(2, 18)); !errors.Is(err, precision.ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	equal(t, f.engine.CollateralBalance(alice, wethAddr), units(1, 18), "balance after abort")
}

func TestLedgerSnapshotRestore(t *testing.T) {
	f := newFixture(t)
	ledger := f.engine.ledger
	if err := ledger.Deposit(alice, wethAddr, units(3, 18)); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	snap := ledger.snapshot(alice, bob)

	if err := ledger.Deposit(alice, wethAddr, units(1, 18)); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := ledger.RecordMint(bob, usd(5)); err != nil {
		t.Fatalf("RecordMint: %v", err)
	}
	ledger.restore(snap)

	equal(t, ledger.CollateralBalance(alice, wethAddr), units(3, 18), "alice balance restored")
	equal(t, ledger.Debt(bob), big.NewInt(0), "bob position dropped")
	if _, ok := ledger.positions[bob]; ok {
		t.Fatal("implicitly created position must be removed on restore")
	}
}
