// Package scanner walks new ledger blocks, picks out create-token
// transactions sent to the launch platform, classifies them against the
// trading patterns and registers accepted tokens.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
	"github.com/BlueGuider/Price-Based-Bot/internal/evm"
	"github.com/BlueGuider/Price-Based-Bot/internal/pattern"
	"github.com/BlueGuider/Price-Based-Bot/internal/pricing"
	"github.com/BlueGuider/Price-Based-Bot/internal/registry"
	"github.com/BlueGuider/Price-Based-Bot/internal/telemetry"
)

// PriceReader resolves a token's current fiat price.
type PriceReader interface {
	ReadPrice(ctx context.Context, tokenAddress string) (*pricing.Price, error)
}

// Options configures a Scanner.
type Options struct {
	Ledger   evm.Reader
	Registry *registry.Registry
	Patterns []domain.TradingPattern
	Pricer   PriceReader
	Sink     telemetry.Sink

	// PlatformAddress is the launch platform contract; CreateSelector is
	// the 4-byte selector of its create-token function.
	PlatformAddress string
	CreateSelector  []byte

	// TokenLogOffset is the byte offset of the 32-byte word holding the
	// new token address inside the platform's creation log payload.
	TokenLogOffset int

	// MaxBlocksPerScan caps how far one tick may advance.
	MaxBlocksPerScan uint64

	// StartBlock, when non-zero, is the first block scanned. Zero means
	// start from the chain tip observed on the first tick.
	StartBlock uint64

	Logger *log.Logger
}

// Scanner is a state machine over block height. Tick is not safe for
// concurrent use; the caller drives it from a single loop.
type Scanner struct {
	ledger   evm.Reader
	registry *registry.Registry
	patterns []domain.TradingPattern
	pricer   PriceReader
	sink     telemetry.Sink

	platform  string
	selector  []byte
	logOffset int
	maxBlocks uint64

	lastProcessed uint64
	initialized   bool

	logger *log.Logger
}

// New creates a Scanner.
func New(opts Options) (*Scanner, error) {
	if opts.Ledger == nil {
		return nil, errors.New("scanner: ledger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("scanner: registry is required")
	}
	if opts.Pricer == nil {
		return nil, errors.New("scanner: price reader is required")
	}
	if opts.PlatformAddress == "" {
		return nil, errors.New("scanner: platform address is required")
	}
	if len(opts.CreateSelector) != 4 {
		return nil, errors.New("scanner: create selector must be 4 bytes")
	}

	sink := opts.Sink
	if sink == nil {
		sink = telemetry.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	maxBlocks := opts.MaxBlocksPerScan
	if maxBlocks == 0 {
		maxBlocks = 10
	}

	s := &Scanner{
		ledger:    opts.Ledger,
		registry:  opts.Registry,
		patterns:  opts.Patterns,
		pricer:    opts.Pricer,
		sink:      sink,
		platform:  evm.NormalizeAddress(opts.PlatformAddress),
		selector:  opts.CreateSelector,
		logOffset: opts.TokenLogOffset,
		maxBlocks: maxBlocks,
		logger:    logger,
	}
	if opts.StartBlock > 0 {
		s.lastProcessed = opts.StartBlock - 1
		s.initialized = true
	}
	return s, nil
}

// LastProcessed returns the highest block height already scanned.
func (s *Scanner) LastProcessed() uint64 {
	return s.lastProcessed
}

// Tick scans the range [lastProcessed+1, latest], capped at the
// per-scan block limit. A failing transaction is logged and skipped; a
// failing block fetch ends the tick so the block is retried next time.
func (s *Scanner) Tick(ctx context.Context) error {
	latest, err := s.ledger.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("latest block: %w", err)
	}

	if !s.initialized {
		// First tick anchors at the current tip; only blocks produced
		// after startup are scanned.
		s.lastProcessed = latest
		s.initialized = true
		return nil
	}

	from := s.lastProcessed + 1
	if latest < from {
		return nil
	}
	to := latest
	if to-from+1 > s.maxBlocks {
		to = from + s.maxBlocks - 1
	}

	for num := from; num <= to; num++ {
		block, err := s.ledger.BlockByNumber(ctx, num)
		if err != nil {
			if errors.Is(err, evm.ErrNotFound) {
				// Tip raced ahead of block availability; retry next tick.
				return nil
			}
			return fmt.Errorf("block %d: %w", num, err)
		}
		s.scanBlock(ctx, block)
		s.lastProcessed = num
	}

	return nil
}

func (s *Scanner) scanBlock(ctx context.Context, block *evm.Block) {
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if evm.NormalizeAddress(tx.To) != s.platform {
			continue
		}
		if len(tx.Input) < 4 || !bytes.Equal(tx.Input[:4], s.selector) {
			continue
		}

		ev := &domain.TokenCreationEvent{
			Creator:      evm.NormalizeAddress(tx.From),
			BlockNumber:  block.Number,
			TxHash:       tx.Hash,
			GasPriceGwei: evm.WeiToGwei(tx.GasPriceWei),
			GasLimit:     tx.Gas,
		}

		if err := s.processCreation(ctx, block, tx, ev); err != nil {
			s.logger.Printf("creation tx %s: %v", tx.Hash, err)
			s.sink.OperationFailed(ev.Address, "discover", err.Error())
		}
	}
}

// processCreation resolves the new token address, classifies the event
// and registers the token after one successful initial price read.
func (s *Scanner) processCreation(ctx context.Context, block *evm.Block, tx *evm.Transaction, ev *domain.TokenCreationEvent) error {
	receipt, err := s.ledger.TransactionReceipt(ctx, tx.Hash)
	if err != nil {
		return fmt.Errorf("receipt: %w", err)
	}
	if receipt.Status != 1 {
		return nil
	}

	addr := s.extractTokenAddress(receipt)
	if addr == "" {
		return nil
	}
	ev.Address = addr

	if s.registry.IsTracked(addr) || s.registry.IsTraded(addr) {
		return nil
	}

	matched := pattern.Match(ev, s.patterns)
	if matched == nil {
		return nil
	}

	price, err := s.pricer.ReadPrice(ctx, addr)
	if err != nil {
		// No known price, no registration. Discarded for good: the
		// scanner only moves forward and never revisits this block.
		s.logger.Printf("token %s discarded, initial price read: %v", addr, err)
		return nil
	}

	now := time.Now()
	token := &domain.MonitoredToken{
		Address:            addr,
		Creator:            ev.Creator,
		CreationTime:       time.Unix(block.Time, 0),
		CurrentPriceFiat:   price.Fiat,
		PreviousPriceFiat:  price.Fiat,
		LastPriceUpdateAt:  now,
		LastPriceChangeAt:  now,
		MatchedPattern:     matched.Name,
		Params:             matched.Params,
	}

	if err := s.registry.Insert(token); err != nil {
		switch {
		case errors.Is(err, registry.ErrAlreadyTracked), errors.Is(err, registry.ErrAlreadyTraded):
			return nil
		case errors.Is(err, registry.ErrCapacity):
			s.logger.Printf("token %s skipped, registry at capacity", addr)
			return nil
		default:
			return fmt.Errorf("register: %w", err)
		}
	}

	s.logger.Printf("token %s registered, pattern=%s price=%.10f", addr, matched.Name, price.Fiat)
	s.sink.TokenDiscovered(addr, matched.Name)
	s.sink.SetMonitored(s.registry.Len())
	return nil
}

// extractTokenAddress pulls the token address word out of the platform's
// creation log, falling back to the receipt's contract address.
func (s *Scanner) extractTokenAddress(receipt *evm.Receipt) string {
	for i := range receipt.Logs {
		lg := &receipt.Logs[i]
		if evm.NormalizeAddress(lg.Address) != s.platform {
			continue
		}
		if addr, ok := evm.WordAddress(lg.Data, s.logOffset); ok {
			return addr
		}
	}
	return evm.NormalizeAddress(receipt.ContractAddress)
}
