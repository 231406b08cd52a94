package token

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestBankTransferAndSupply(t *testing.T) {
	operator := common.HexToAddress("0x0000000000000000000000000000000000000001")
	alice := common.HexToAddress("0x0000000000000000000000000000000000000002")

	bank := NewBank(18, operator)
	bank.SetBalance(operator, big.NewInt(1_000))

	ok, err := bank.Transfer(alice, big.NewInt(400))
	if err != nil || !ok {
		t.Fatalf("transfer: ok=%v err=%v", ok, err)
	}
	if got := bank.BalanceOf(alice); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected recipient balance: %s", got)
	}
	if got := bank.TotalSupply(); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("transfer must not change supply: %s", got)
	}

	if ok, err := bank.TransferFrom(alice, operator, big.NewInt(500)); ok || err == nil {
		t.Fatalf("expected insufficient balance, got ok=%v err=%v", ok, err)
	}
}

func TestBankMintAndBurn(t *testing.T) {
	operator := common.HexToAddress("0x0000000000000000000000000000000000000001")
	bank := NewBank(18, operator)

	if ok, err := bank.Mint(operator, big.NewInt(250)); !ok || err != nil {
		t.Fatalf("mint: ok=%v err=%v", ok, err)
	}
	if err := bank.Burn(big.NewInt(100)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := bank.TotalSupply(); got.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("unexpected supply: %s", got)
	}
	if err := bank.Burn(big.NewInt(1_000)); err == nil {
		t.Fatal("expected burn beyond holdings to fail")
	}
	if _, err := bank.Mint(operator, big.NewInt(0)); err == nil {
		t.Fatal("expected zero mint to fail")
	}
}
