package sniper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"wyvern-matchbot/internal/ethutil"
	"wyvern-matchbot/internal/jsonl"
	"wyvern-matchbot/internal/opensea"
	"wyvern-matchbot/internal/state"
	"wyvern-matchbot/internal/txbuild"
	"wyvern-matchbot/internal/wyvern"
)

// Outcome is what the bundle relay reports for a submission.
type Outcome int

const (
	OutcomeNotIncluded Outcome = iota
	OutcomeIncluded
)

func (o Outcome) String() string {
	if o == OutcomeIncluded {
		return "included"
	}
	return "not_included"
}

// Signer turns an unsigned transaction into a signed one.
type Signer interface {
	SignTx(tx *types.Transaction) (*types.Transaction, error)
}

// Submitter sends a signed transaction as a bundle targeting the next block
// and waits for the verdict. The receipt is optional.
type Submitter interface {
	Submit(ctx context.Context, tx *types.Transaction) (Outcome, *types.Receipt, error)
}

type Config struct {
	Caller  common.Address
	ChainID int64
	Limits  Limits

	Workers       int
	MaxAttempts   int
	TxLimit       int // 0 = unlimited
	EnableTrading bool

	// Tag fills the unused r slot of every buy signature.
	Tag [32]byte
}

type Deps struct {
	Tx        *txbuild.Builder
	Nonces    txbuild.NonceSource
	Signer    Signer
	Submitter Submitter
	Seen      *state.Seen
	Events    *jsonl.Writer

	Salt func() (*big.Int, error)
	Now  func() time.Time
}

// Status is the final state of one handled order.
type Status string

const (
	StatusSkipped     Status = "skipped"
	StatusDryRun      Status = "dry_run"
	StatusIncluded    Status = "included"
	StatusNotIncluded Status = "not_included"
	StatusFailed      Status = "failed"
)

type Result struct {
	Key      string
	Status   Status
	Reason   error
	Attempts int
	Call     *wyvern.MatchCall
	Tx       *types.Transaction
}

type Stats struct {
	Handled     int64
	Skipped     int64
	DryRun      int64
	Included    int64
	NotIncluded int64
	Failed      int64
}

type Runner struct {
	cfg   Config
	deps  Deps
	match *wyvern.Builder

	startedAt time.Time
	submitMu  sync.Mutex

	handled     atomic.Int64
	skipped     atomic.Int64
	dryRun      atomic.Int64
	included    atomic.Int64
	notIncluded atomic.Int64
	failed      atomic.Int64
}

var (
	errTxLimit          = errors.New("transaction limit reached")
	errAlreadyAttempted = errors.New("already attempted")
)

func New(cfg Config, deps Deps) (*Runner, error) {
	if (cfg.Caller == common.Address{}) {
		return nil, fmt.Errorf("caller address required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction builder required")
	}
	if cfg.EnableTrading && (deps.Nonces == nil || deps.Signer == nil || deps.Submitter == nil) {
		return nil, fmt.Errorf("live mode requires a nonce source, signer and submitter")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Seen == nil {
		deps.Seen, _ = state.LoadSeen("", cfg.ChainID)
	}
	return &Runner{
		cfg:   cfg,
		deps:  deps,
		match: &wyvern.Builder{Tag: cfg.Tag, Salt: deps.Salt},
	}, nil
}

func (r *Runner) Stats() Stats {
	return Stats{
		Handled:     r.handled.Load(),
		Skipped:     r.skipped.Load(),
		DryRun:      r.dryRun.Load(),
		Included:    r.included.Load(),
		NotIncluded: r.notIncluded.Load(),
		Failed:      r.failed.Load(),
	}
}

// Run consumes src with cfg.Workers workers until the source is exhausted,
// ctx is cancelled, or the transaction limit is reached.
func (r *Runner) Run(ctx context.Context, src Source) Stats {
	r.startedAt = r.deps.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logMatchEvent(r.deps.Events, matchLogEvent{
		TsMs:        r.startedAt.UnixMilli(),
		Event:       "start",
		Mode:        runMode(r.cfg.EnableTrading),
		Caller:      r.cfg.Caller.Hex(),
		Workers:     r.cfg.Workers,
		MaxAttempts: r.cfg.MaxAttempts,
		TxLimit:     r.cfg.TxLimit,
	})

	orders, errs := src.Orders(ctx)
	go func() {
		for err := range errs {
			log.Printf("[warn] order source: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range orders {
				if ctx.Err() != nil {
					return
				}
				r.Handle(ctx, &rec)
				if r.limitReached() {
					cancel()
					return
				}
			}
		}()
	}
	wg.Wait()

	if err := r.deps.Seen.Save(r.cfg.ChainID); err != nil {
		log.Printf("[warn] save seen orders: %v", err)
	}

	st := r.Stats()
	logMatchEvent(r.deps.Events, matchLogEvent{
		TsMs:     r.deps.Now().UnixMilli(),
		Event:    "shutdown",
		Mode:     runMode(r.cfg.EnableTrading),
		Handled:  st.Handled,
		Included: st.Included,
		UptimeMs: r.uptimeMs(),
	})
	return st
}

func (r *Runner) limitReached() bool {
	return r.cfg.TxLimit > 0 && r.included.Load() >= int64(r.cfg.TxLimit)
}

func (r *Runner) uptimeMs() int64 {
	if r.startedAt.IsZero() {
		return 0
	}
	return r.deps.Now().Sub(r.startedAt).Milliseconds()
}

// Handle runs one record through de-duplication, eligibility and up to
// MaxAttempts match attempts. Errors never escape; they end up in the Result.
func (r *Runner) Handle(ctx context.Context, rec *opensea.Order) Result {
	r.handled.Add(1)
	now := r.deps.Now()
	key := rec.Key()
	base := matchLogEvent{
		Mode:     runMode(r.cfg.EnableTrading),
		OrderKey: key,
		Maker:    rec.Maker.Address,
		Target:   rec.Target,
		TokenID:  rec.TokenID(),
	}

	skip := func(reason error) Result {
		r.skipped.Add(1)
		ev := base
		ev.TsMs = now.UnixMilli()
		ev.Event = "skip"
		ev.Reason = reason.Error()
		logMatchEvent(r.deps.Events, ev)
		return Result{Key: key, Status: StatusSkipped, Reason: reason}
	}

	if r.deps.Seen.Has(key) {
		return skip(errAlreadyAttempted)
	}
	if err := CheckRecord(rec); err != nil {
		return skip(err)
	}
	sell, err := rec.SellOrder()
	if err != nil {
		return skip(err)
	}
	base.PriceWei = sell.BasePrice.String()
	base.PriceEth = ethutil.FormatUnits(sell.BasePrice, 18)
	if err := r.cfg.Limits.Check(sell, now); err != nil {
		return skip(err)
	}
	if err := ctx.Err(); err != nil {
		return skip(err)
	}
	if r.limitReached() {
		return skip(errTxLimit)
	}

	// Only orders that reach an attempt are recorded; one skipped on price or
	// expiry stays eligible under other limits.
	if !r.deps.Seen.Mark(key, now.UnixMilli()) {
		return skip(errAlreadyAttempted)
	}

	var last Result
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		if r.limitReached() {
			last = Result{Status: StatusSkipped, Reason: errTxLimit, Attempts: last.Attempts}
			break
		}

		res, retry := r.attempt(ctx, sell, base, attempt)
		res.Attempts = attempt
		if res.Status == StatusSkipped {
			res.Attempts = last.Attempts
		}
		last = res
		if !retry {
			break
		}
	}

	if last.Status == "" || last.Status == StatusSkipped {
		// Nothing went out on the final pass. With no earlier submission the
		// order was never tried.
		if last.Attempts == 0 {
			r.deps.Seen.Forget(key)
		}
		reason := last.Reason
		if reason == nil {
			reason = ctx.Err()
		}
		res := skip(reason)
		res.Attempts = last.Attempts
		res.Call = last.Call
		return res
	}

	switch last.Status {
	case StatusDryRun:
		r.dryRun.Add(1)
	case StatusIncluded:
		// counted by attempt
	case StatusFailed:
		r.failed.Add(1)
	default:
		last.Status = StatusNotIncluded
		r.notIncluded.Add(1)
	}
	last.Key = key
	return last
}

// attempt performs one build (and, live, one submission). retry reports
// whether another attempt could change the outcome.
func (r *Runner) attempt(ctx context.Context, sell *wyvern.SellOrder, base matchLogEvent, n int) (Result, bool) {
	ev := base
	ev.Attempt = n

	emit := func(event string, err error) {
		ev.TsMs = r.deps.Now().UnixMilli()
		ev.Event = event
		ev.Err = ""
		if err != nil {
			ev.Err = err.Error()
		}
		ev.UptimeMs = r.uptimeMs()
		logMatchEvent(r.deps.Events, ev)
	}

	// Codec failures are deterministic for a given order; retrying only
	// changes the salt.
	call, err := r.match.Build(sell, r.cfg.Caller)
	if err != nil {
		emit("error", err)
		return Result{Status: StatusFailed, Reason: err}, false
	}
	if call.WildcardRuns > 1 && n == 1 {
		log.Printf("[warn] order %s: replacement pattern has %d wildcard windows, only the first receives the buyer", base.OrderKey, call.WildcardRuns)
	}
	ev.To = call.To.Hex()
	ev.ValueWei = call.Value.String()
	ev.WildcardRuns = call.WildcardRuns

	if !r.cfg.EnableTrading {
		var nonce uint64
		if r.deps.Nonces != nil {
			nonce, err = r.deps.Nonces.PendingNonceAt(ctx, r.cfg.Caller)
			if err != nil {
				log.Printf("[warn] nonce lookup (dry run): %v", err)
				nonce = 0
			}
		}
		tx, err := r.deps.Tx.Build(call, nonce)
		if err != nil {
			emit("error", err)
			return Result{Status: StatusFailed, Reason: err, Call: call}, false
		}
		ev.Calldata = hexutil.Encode(call.Data)
		ev.Nonce = tx.Nonce()
		ev.Gas = tx.Gas()
		ev.Ok = true
		emit("dry_run", nil)
		return Result{Status: StatusDryRun, Call: call, Tx: tx}, false
	}

	// One submission in flight at a time so consecutive bundles never reuse
	// a nonce.
	r.submitMu.Lock()
	defer r.submitMu.Unlock()
	if r.limitReached() {
		return Result{Status: StatusSkipped, Reason: errTxLimit, Call: call}, false
	}

	nonce, err := r.deps.Nonces.PendingNonceAt(ctx, r.cfg.Caller)
	if err != nil {
		emit("error", fmt.Errorf("nonce: %w", err))
		return Result{Status: StatusFailed, Reason: err, Call: call}, true
	}
	tx, err := r.deps.Tx.Build(call, nonce)
	if err != nil {
		emit("error", err)
		return Result{Status: StatusFailed, Reason: err, Call: call}, false
	}
	signed, err := r.deps.Signer.SignTx(tx)
	if err != nil {
		emit("error", fmt.Errorf("sign: %w", err))
		return Result{Status: StatusFailed, Reason: err, Call: call}, false
	}
	ev.Nonce = signed.Nonce()
	ev.Gas = signed.Gas()
	ev.TxHash = signed.Hash().Hex()
	emit("submitted", nil)

	outcome, receipt, err := r.deps.Submitter.Submit(ctx, signed)
	if err != nil {
		emit("error", fmt.Errorf("submit: %w", err))
		return Result{Status: StatusFailed, Reason: err, Call: call, Tx: signed}, true
	}
	if outcome != OutcomeIncluded {
		emit("not_included", nil)
		return Result{Status: StatusNotIncluded, Call: call, Tx: signed}, true
	}

	if m := wyvern.FindMatch(receipt, call.To); m != nil {
		ev.FillPriceWei = m.Price.String()
	}
	// Counted under submitMu so a waiting worker sees the limit.
	r.included.Add(1)
	ev.Ok = true
	emit("included", nil)
	log.Printf("[match] included order=%s tx=%s price=%s ETH", base.OrderKey, ev.TxHash, base.PriceEth)
	return Result{Status: StatusIncluded, Call: call, Tx: signed}, false
}
