package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-taxscan/internal/models"
	"github.com/wallet-taxscan/internal/types"
)

const (
	wallet = "WaLLet111111111111111111111111111111111111"
	mintA  = "AAAA111111111111111111111111111111111111111"
	mintB  = "BBBB111111111111111111111111111111111111111"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func rawTx(sig string, lamports int64, transfers ...models.TokenTransfer) *models.RawTransaction {
	return &models.RawTransaction{
		Signature: sig,
		Timestamp: 1700000000,
		AccountData: []models.AccountData{
			{Account: wallet, NativeBalanceChange: lamports},
		},
		TokenTransfers: transfers,
	}
}

func TestNormalize_NoActivity(t *testing.T) {
	n := New(wallet)
	entries := n.Normalize(rawTx("sig", 0))
	assert.Empty(t, entries)
}

func TestNormalize_FeeOnly(t *testing.T) {
	n := New(wallet)

	// 5000 lamports out, a typical transaction fee.
	entries := n.Normalize(rawTx("sig", -5000))
	require.Len(t, entries, 1)
	assert.Equal(t, types.KindFeeOnly, entries[0].Kind)
	assert.Equal(t, types.SOLMint, entries[0].Mint)
	assert.True(t, entries[0].Quantity.Equal(dec("0.000005")))
}

func TestNormalize_LargeNativeWithdrawalIsNotAFee(t *testing.T) {
	n := New(wallet)

	// 2 SOL out with no token legs: a plain withdrawal, not a taxable entry.
	entries := n.Normalize(rawTx("sig", -2*types.LamportsPerSOL))
	assert.Empty(t, entries)
}

func TestNormalize_BuyWithSOL(t *testing.T) {
	n := New(wallet)

	tx := rawTx("sig", -1*types.LamportsPerSOL, models.TokenTransfer{
		Mint: mintA, ToUserAccount: wallet, TokenAmount: dec("1000"),
	})

	entries := n.Normalize(tx)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, types.KindAcquisition, e.Kind)
	assert.Equal(t, mintA, e.Mint)
	assert.True(t, e.Quantity.Equal(dec("1000")))
	assert.Equal(t, types.SOLMint, e.SwapLeg)
	assert.True(t, e.NativeValue.Equal(dec("1")))
}

func TestNormalize_SellForSOL(t *testing.T) {
	n := New(wallet)

	tx := rawTx("sig", 3*types.LamportsPerSOL/2, models.TokenTransfer{
		Mint: mintA, FromUserAccount: wallet, TokenAmount: dec("500"),
	})

	entries := n.Normalize(tx)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, types.KindDisposal, e.Kind)
	assert.True(t, e.Quantity.Equal(dec("500")))
	assert.True(t, e.NativeValue.Equal(dec("1.5")))
}

func TestNormalize_BuyWithUSDC(t *testing.T) {
	n := New(wallet)

	tx := rawTx("sig", -5000,
		models.TokenTransfer{Mint: types.USDCMint, FromUserAccount: wallet, TokenAmount: dec("250")},
		models.TokenTransfer{Mint: mintA, ToUserAccount: wallet, TokenAmount: dec("1000")},
	)

	entries := n.Normalize(tx)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, types.KindAcquisition, e.Kind)
	assert.Equal(t, types.USDCMint, e.SwapLeg)
	assert.True(t, e.StableValueUSD.Equal(dec("250")))
}

func TestNormalize_TokenToTokenSwap(t *testing.T) {
	n := New(wallet)

	tx := rawTx("sig", -5000,
		models.TokenTransfer{Mint: mintA, FromUserAccount: wallet, TokenAmount: dec("100")},
		models.TokenTransfer{Mint: mintB, ToUserAccount: wallet, TokenAmount: dec("40")},
	)

	entries := n.Normalize(tx)
	require.Len(t, entries, 2)

	disposal, acquisition := entries[0], entries[1]
	assert.Equal(t, types.KindDisposal, disposal.Kind)
	assert.Equal(t, mintA, disposal.Mint)
	assert.Equal(t, mintB, disposal.SwapLeg)

	assert.Equal(t, types.KindAcquisition, acquisition.Kind)
	assert.Equal(t, mintB, acquisition.Mint)
	assert.Equal(t, mintA, acquisition.SwapLeg)

	// Both legs share the signature; the ledger pairs them on it.
	assert.Equal(t, disposal.Signature, acquisition.Signature)
}

func TestNormalize_DustDropped(t *testing.T) {
	n := New(wallet)

	tx := rawTx("sig", 0, models.TokenTransfer{
		Mint: mintA, ToUserAccount: wallet, TokenAmount: decimal.New(1, -12),
	})

	assert.Empty(t, n.Normalize(tx))
}

func TestNormalize_WrappedSOLSkipped(t *testing.T) {
	n := New(wallet)

	// A WSOL transfer rides along with the native change; counting both
	// would double the cash leg.
	tx := rawTx("sig", -1*types.LamportsPerSOL,
		models.TokenTransfer{Mint: types.SOLMint, FromUserAccount: wallet, TokenAmount: dec("1")},
		models.TokenTransfer{Mint: mintA, ToUserAccount: wallet, TokenAmount: dec("100")},
	)

	entries := n.Normalize(tx)
	require.Len(t, entries, 1)
	assert.Equal(t, mintA, entries[0].Mint)
	assert.True(t, entries[0].NativeValue.Equal(dec("1")))
}

func TestNormalize_MultiLegSkipped(t *testing.T) {
	n := New(wallet)

	tx := rawTx("sig", 0,
		models.TokenTransfer{Mint: mintA, FromUserAccount: wallet, TokenAmount: dec("10")},
		models.TokenTransfer{Mint: mintB, FromUserAccount: wallet, TokenAmount: dec("20")},
		models.TokenTransfer{Mint: "CCCC111111111111111111111111111111111111111", ToUserAccount: wallet, TokenAmount: dec("5")},
		models.TokenTransfer{Mint: "DDDD111111111111111111111111111111111111111", ToUserAccount: wallet, TokenAmount: dec("6")},
	)

	assert.Empty(t, n.Normalize(tx))
}

func TestNormalize_TransfersForOtherWalletsIgnored(t *testing.T) {
	n := New(wallet)

	tx := rawTx("sig", 0, models.TokenTransfer{
		Mint: mintA, FromUserAccount: "someone", ToUserAccount: "else", TokenAmount: dec("10"),
	})

	assert.Empty(t, n.Normalize(tx))
}

func TestNormalizeAll_PreservesOrder(t *testing.T) {
	n := New(wallet)

	txs := []models.RawTransaction{
		*rawTx("first", -1*types.LamportsPerSOL, models.TokenTransfer{Mint: mintA, ToUserAccount: wallet, TokenAmount: dec("10")}),
		*rawTx("second", types.LamportsPerSOL, models.TokenTransfer{Mint: mintA, FromUserAccount: wallet, TokenAmount: dec("10")}),
	}

	entries := n.NormalizeAll(txs)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Signature)
	assert.Equal(t, "second", entries[1].Signature)
}
