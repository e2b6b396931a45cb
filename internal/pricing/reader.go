package pricing

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"

	"github.com/BlueGuider/Price-Based-Bot/internal/evm"
)

// Plausible fiat band defaults. Reads outside the band are treated as
// corrupt and rejected before they can reach the decision loop.
const (
	DefaultMinPlausibleFiat = 1e-12
	DefaultMaxPlausibleFiat = 1e6
)

// Price is one resolved token price.
type Price struct {
	Fiat      float64 // token price in fiat
	QuoteFiat float64 // quote-asset price in fiat used for conversion
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Ledger          evm.Reader
	QuoteCache      *QuoteCache
	PlatformAddress string // launch platform contract
	InfoSelector    []byte // 4-byte selector of the token-info view
	WrappedNative   string // chain's wrapped native asset address
	StableAssets    []string
	MinPlausible    float64
	MaxPlausible    float64
	Logger          *log.Logger
}

// Reader resolves a token's last trade price from the platform contract
// and normalizes it to fiat.
type Reader struct {
	ledger        evm.Reader
	quoteCache    *QuoteCache
	platform      string
	infoSelector  []byte
	wrappedNative string
	stables       map[string]bool
	minPlausible  float64
	maxPlausible  float64
	logger        *log.Logger

	// warned tracks tokens we already logged an unknown-quote warning for.
	warnedMu sync.Mutex
	warned   map[string]bool
}

// NewReader creates a price reader.
func NewReader(opts ReaderOptions) *Reader {
	minP := opts.MinPlausible
	if minP <= 0 {
		minP = DefaultMinPlausibleFiat
	}
	maxP := opts.MaxPlausible
	if maxP <= 0 {
		maxP = DefaultMaxPlausibleFiat
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	stables := make(map[string]bool, len(opts.StableAssets))
	for _, addr := range opts.StableAssets {
		stables[evm.NormalizeAddress(addr)] = true
	}

	return &Reader{
		ledger:        opts.Ledger,
		quoteCache:    opts.QuoteCache,
		platform:      evm.NormalizeAddress(opts.PlatformAddress),
		infoSelector:  opts.InfoSelector,
		wrappedNative: evm.NormalizeAddress(opts.WrappedNative),
		stables:       stables,
		minPlausible:  minP,
		maxPlausible:  maxP,
		logger:        logger,
		warned:        make(map[string]bool),
	}
}

// ReadPrice resolves the token's last trade price in fiat.
// Returns ErrNotLiquid when the platform reports a non-positive price and
// ErrImplausiblePrice when the resolved value leaves the plausible band;
// transient ledger errors pass through wrapped.
func (r *Reader) ReadPrice(ctx context.Context, tokenAddress string) (*Price, error) {
	token := evm.NormalizeAddress(tokenAddress)

	out, err := r.ledger.CallContract(ctx, r.platform, r.infoCalldata(token))
	if err != nil {
		return nil, fmt.Errorf("read token info for %s: %w", token, err)
	}
	if len(out) < 64 {
		return nil, fmt.Errorf("%w: token info result too short (%d bytes)", ErrNotLiquid, len(out))
	}

	quoteAsset, _ := evm.WordAddress(out, 0)
	lastPriceWei := new(big.Int).SetBytes(out[32:64])
	if lastPriceWei.Sign() <= 0 {
		return nil, ErrNotLiquid
	}

	// Price word is wei of quote asset per whole token.
	priceQuote, _ := new(big.Rat).SetFrac(lastPriceWei, big.NewInt(1e18)).Float64()

	quoteFiat := r.resolveQuoteFiat(ctx, token, quoteAsset)
	fiat := priceQuote * quoteFiat

	if fiat < r.minPlausible || fiat > r.maxPlausible {
		return nil, fmt.Errorf("%w: %g for %s", ErrImplausiblePrice, fiat, token)
	}

	return &Price{Fiat: fiat, QuoteFiat: quoteFiat}, nil
}

// resolveQuoteFiat maps the token's quote asset to a fiat rate. Stable
// assets are 1:1; anything unrecognized is assumed native-priced with a
// warning logged once per token (heuristic, may misclassify).
func (r *Reader) resolveQuoteFiat(ctx context.Context, token, quoteAsset string) float64 {
	switch {
	case quoteAsset == r.wrappedNative:
		return r.quoteCache.Get(ctx)
	case r.stables[quoteAsset]:
		return 1.0
	default:
		r.warnedMu.Lock()
		if !r.warned[token] {
			r.warned[token] = true
			r.logger.Printf("unknown quote asset %s for token %s, assuming native pricing", quoteAsset, token)
		}
		r.warnedMu.Unlock()
		return r.quoteCache.Get(ctx)
	}
}

// infoCalldata packs selector + left-padded token address.
func (r *Reader) infoCalldata(token string) []byte {
	data := make([]byte, 0, 36)
	data = append(data, r.infoSelector...)

	addrBytes, err := evm.HexToBytes(token)
	if err != nil || len(addrBytes) != 20 {
		// Malformed address falls through as a zero word; the platform
		// reports it unpriced and the caller sees ErrNotLiquid.
		addrBytes = make([]byte, 20)
	}
	word := make([]byte, 32)
	copy(word[12:], addrBytes)
	return append(data, word...)
}
