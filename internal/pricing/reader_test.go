package pricing

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math/big"
	"testing"
	"time"

	"github.com/BlueGuider/Price-Based-Bot/internal/evm"
)

const (
	testPlatform = "0x5c952063c7fc8610ffdb798152d69f0b9550762b"
	testWNative  = "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"
	testStable   = "0x55d398326f99059ff775485246999027b3197955"
	testToken    = "0x1234567890abcdef1234567890abcdef12345678"
)

var testSelector = []byte{0x6c, 0x1b, 0x2f, 0x7d}

// fakeLedger serves canned eth_call results keyed by nothing; only
// CallContract matters for the reader.
type fakeLedger struct {
	out []byte
	err error
}

func (f *fakeLedger) LatestBlockNumber(context.Context) (uint64, error) { return 0, nil }
func (f *fakeLedger) BlockByNumber(context.Context, uint64) (*evm.Block, error) {
	return nil, evm.ErrNotFound
}
func (f *fakeLedger) TransactionReceipt(context.Context, string) (*evm.Receipt, error) {
	return nil, evm.ErrNotFound
}
func (f *fakeLedger) CallContract(context.Context, string, []byte) ([]byte, error) {
	return f.out, f.err
}

// tokenInfoResult packs quote-asset and last-price words the way the
// platform's token-info view returns them.
func tokenInfoResult(t *testing.T, quoteAsset string, priceWei *big.Int) []byte {
	t.Helper()

	out := make([]byte, 64)
	addr, err := evm.HexToBytes(quoteAsset)
	if err != nil || len(addr) != 20 {
		t.Fatalf("bad quote asset %s", quoteAsset)
	}
	copy(out[12:32], addr)
	priceWei.FillBytes(out[32:64])
	return out
}

func newTestReader(ledger evm.Reader, quotePrice float64) *Reader {
	source := &fakeQuoteSource{prices: []float64{quotePrice}}
	cache := NewQuoteCache(source, time.Minute, quotePrice, nil)

	return NewReader(ReaderOptions{
		Ledger:          ledger,
		QuoteCache:      cache,
		PlatformAddress: testPlatform,
		InfoSelector:    testSelector,
		WrappedNative:   testWNative,
		StableAssets:    []string{testStable},
	})
}

func TestReader_NativeQuoteConversion(t *testing.T) {
	// 0.00000005 native per token at 600 fiat/native = 0.00003 fiat.
	priceWei := new(big.Int).SetUint64(50_000_000_000) // 5e10 wei = 5e-8 * 1e18
	ledger := &fakeLedger{out: tokenInfoResult(t, testWNative, priceWei)}

	reader := newTestReader(ledger, 600.0)

	price, err := reader.ReadPrice(context.Background(), testToken)
	if err != nil {
		t.Fatalf("ReadPrice: %v", err)
	}

	want := 0.00003
	if diff := price.Fiat - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("expected %v fiat, got %v", want, price.Fiat)
	}
	if price.QuoteFiat != 600.0 {
		t.Errorf("expected quote fiat 600, got %v", price.QuoteFiat)
	}
}

func TestReader_StableQuoteIsOneToOne(t *testing.T) {
	// 0.5 stable per token.
	priceWei := new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))
	ledger := &fakeLedger{out: tokenInfoResult(t, testStable, priceWei)}

	reader := newTestReader(ledger, 600.0)

	price, err := reader.ReadPrice(context.Background(), testToken)
	if err != nil {
		t.Fatalf("ReadPrice: %v", err)
	}
	if price.Fiat != 0.5 {
		t.Errorf("expected 0.5 fiat, got %v", price.Fiat)
	}
	if price.QuoteFiat != 1.0 {
		t.Errorf("expected quote fiat 1.0, got %v", price.QuoteFiat)
	}
}

func TestReader_ZeroPriceIsNotLiquid(t *testing.T) {
	ledger := &fakeLedger{out: tokenInfoResult(t, testWNative, big.NewInt(0))}
	reader := newTestReader(ledger, 600.0)

	_, err := reader.ReadPrice(context.Background(), testToken)
	if !errors.Is(err, ErrNotLiquid) {
		t.Fatalf("expected ErrNotLiquid, got %v", err)
	}
}

func TestReader_ShortResultIsNotLiquid(t *testing.T) {
	ledger := &fakeLedger{out: make([]byte, 32)}
	reader := newTestReader(ledger, 600.0)

	_, err := reader.ReadPrice(context.Background(), testToken)
	if !errors.Is(err, ErrNotLiquid) {
		t.Fatalf("expected ErrNotLiquid, got %v", err)
	}
}

func TestReader_ImplausiblePriceRejected(t *testing.T) {
	// 1e9 stable per token is outside the default band.
	priceWei := new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)
	ledger := &fakeLedger{out: tokenInfoResult(t, testStable, priceWei)}

	reader := newTestReader(ledger, 600.0)

	_, err := reader.ReadPrice(context.Background(), testToken)
	if !errors.Is(err, ErrImplausiblePrice) {
		t.Fatalf("expected ErrImplausiblePrice, got %v", err)
	}
}

func TestReader_TransientErrorPassesThrough(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("connection reset")}
	reader := newTestReader(ledger, 600.0)

	_, err := reader.ReadPrice(context.Background(), testToken)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotLiquid) || errors.Is(err, ErrImplausiblePrice) {
		t.Errorf("transient error misclassified: %v", err)
	}
}

func TestReader_UnknownQuoteWarnsOncePerToken(t *testing.T) {
	unknownQuote := "0x9999999999999999999999999999999999999999"
	priceWei := new(big.Int).SetUint64(50_000_000_000)
	ledger := &fakeLedger{out: tokenInfoResult(t, unknownQuote, priceWei)}

	var buf bytes.Buffer
	source := &fakeQuoteSource{prices: []float64{600}}
	cache := NewQuoteCache(source, time.Minute, 600, nil)
	reader := NewReader(ReaderOptions{
		Ledger:          ledger,
		QuoteCache:      cache,
		PlatformAddress: testPlatform,
		InfoSelector:    testSelector,
		WrappedNative:   testWNative,
		StableAssets:    []string{testStable},
		Logger:          log.New(&buf, "", 0),
	})

	for i := 0; i < 3; i++ {
		if _, err := reader.ReadPrice(context.Background(), testToken); err != nil {
			t.Fatalf("ReadPrice %d: %v", i, err)
		}
	}

	warnings := bytes.Count(buf.Bytes(), []byte("unknown quote asset"))
	if warnings != 1 {
		t.Errorf("expected exactly one warning, got %d", warnings)
	}
}
