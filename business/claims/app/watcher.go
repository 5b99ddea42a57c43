package app

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/cooler-keeper/business/claims/domain"
	protocoldomain "github.com/fd1az/cooler-keeper/business/protocol/domain"
	"github.com/fd1az/cooler-keeper/internal/apperror"
	"github.com/fd1az/cooler-keeper/internal/logger"
)

const (
	tracerName = "github.com/fd1az/cooler-keeper/business/claims/app"
	meterName  = "github.com/fd1az/cooler-keeper/business/claims/app"

	// closedWindowHistory bounds the in-memory archive of settled windows.
	closedWindowHistory = 128
)

// WatcherConfig holds the tunables of the opportunity watcher.
type WatcherConfig struct {
	DryRun bool
}

// watcherMetrics holds OTEL metric instruments.
type watcherMetrics struct {
	evaluations     metric.Int64Counter
	windowsOpened   metric.Int64Counter
	windowsClaimed  metric.Int64Counter
	windowsMissed   metric.Int64Counter
	claimedUSD      metric.Float64Counter
	rewardValueUSD  metric.Float64Gauge
	netProfitUSD    metric.Float64Gauge
	submitOutcomes  metric.Int64Counter
	dryRunSkips     metric.Int64Counter
	estimationFails metric.Int64Counter
}

// OpportunityWatcher evaluates the claim opportunity on every new block
// and drives profitable windows through the execution gate to submission.
type OpportunityWatcher struct {
	config    WatcherConfig
	blocks    BlockStream
	protocol  ProtocolState
	prices    PriceFeed
	gas       GasPricer
	estimator *ProfitEstimator
	gate      *ExecutionGate
	sequencer *NonceSequencer
	submitter TransactionSubmitter
	logger    logger.LoggerInterface

	mu       sync.Mutex
	window   *domain.RewardWindow
	batch    *protocoldomain.ClaimBatch
	nextID   uint64
	history  []*domain.RewardWindow
	claiming sync.WaitGroup

	tracer  trace.Tracer
	metrics *watcherMetrics
}

// NewOpportunityWatcher wires the watcher from its collaborators.
func NewOpportunityWatcher(
	cfg WatcherConfig,
	blocks BlockStream,
	protocol ProtocolState,
	prices PriceFeed,
	gas GasPricer,
	estimator *ProfitEstimator,
	gate *ExecutionGate,
	sequencer *NonceSequencer,
	submitter TransactionSubmitter,
	log logger.LoggerInterface,
) (*OpportunityWatcher, error) {
	w := &OpportunityWatcher{
		config:    cfg,
		blocks:    blocks,
		protocol:  protocol,
		prices:    prices,
		gas:       gas,
		estimator: estimator,
		gate:      gate,
		sequencer: sequencer,
		submitter: submitter,
		logger:    log,
		nextID:    1,
		tracer:    otel.Tracer(tracerName),
	}
	if err := w.initMetrics(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *OpportunityWatcher) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &watcherMetrics{}
	var err error

	if m.evaluations, err = meter.Int64Counter("claim_evaluations_total",
		metric.WithDescription("Opportunity evaluations performed"),
		metric.WithUnit("{evaluation}")); err != nil {
		return err
	}
	if m.windowsOpened, err = meter.Int64Counter("reward_windows_opened_total",
		metric.WithDescription("Reward windows opened"),
		metric.WithUnit("{window}")); err != nil {
		return err
	}
	if m.windowsClaimed, err = meter.Int64Counter("reward_windows_claimed_total",
		metric.WithDescription("Reward windows settled as claimed"),
		metric.WithUnit("{window}")); err != nil {
		return err
	}
	if m.windowsMissed, err = meter.Int64Counter("reward_windows_missed_total",
		metric.WithDescription("Reward windows settled as missed"),
		metric.WithUnit("{window}")); err != nil {
		return err
	}
	if m.claimedUSD, err = meter.Float64Counter("claimed_usd_total",
		metric.WithDescription("Cumulative USD value of confirmed claims"),
		metric.WithUnit("USD")); err != nil {
		return err
	}
	if m.rewardValueUSD, err = meter.Float64Gauge("claimable_reward_usd",
		metric.WithDescription("Current claimable reward value"),
		metric.WithUnit("USD")); err != nil {
		return err
	}
	if m.netProfitUSD, err = meter.Float64Gauge("estimated_net_profit_usd",
		metric.WithDescription("Last evaluated net profit"),
		metric.WithUnit("USD")); err != nil {
		return err
	}
	if m.submitOutcomes, err = meter.Int64Counter("claim_submissions_total",
		metric.WithDescription("Claim submission cycles by outcome"),
		metric.WithUnit("{submission}")); err != nil {
		return err
	}
	if m.dryRunSkips, err = meter.Int64Counter("dry_run_skips_total",
		metric.WithDescription("Profitable claims skipped in dry-run mode"),
		metric.WithUnit("{skip}")); err != nil {
		return err
	}
	if m.estimationFails, err = meter.Int64Counter("estimation_failures_total",
		metric.WithDescription("Evaluations skipped for missing gas or price data"),
		metric.WithUnit("{failure}")); err != nil {
		return err
	}

	w.metrics = m
	return nil
}

// Run consumes new blocks and evaluates the opportunity on each, until the
// context ends. It blocks.
func (w *OpportunityWatcher) Run(ctx context.Context) error {
	if err := w.sequencer.Sync(ctx); err != nil {
		return err
	}

	blocks, err := w.blocks.SubscribeBlocks(ctx)
	if err != nil {
		return err
	}

	w.logger.Info(ctx, "opportunity watcher running", "dry_run", w.config.DryRun)

	for {
		select {
		case <-ctx.Done():
			w.claiming.Wait()
			return ctx.Err()
		case block, ok := <-blocks:
			if !ok {
				w.claiming.Wait()
				return apperror.New(apperror.CodeEthereumSubscribeFailed,
					apperror.WithContext("block stream closed"))
			}
			w.Evaluate(ctx, time.Now(), block.Number)
		}
	}
}

// Evaluate runs one evaluation cycle at the given wall time. It is the
// per-block heartbeat of the keeper.
func (w *OpportunityWatcher) Evaluate(ctx context.Context, now time.Time, blockNumber uint64) {
	ctx, span := w.tracer.Start(ctx, "claims.evaluate",
		trace.WithAttributes(attribute.Int64("block", int64(blockNumber))),
	)
	defer span.End()

	w.metrics.evaluations.Add(ctx, 1)

	rewardPrice, err := w.prices.RewardTokenUSD(ctx)
	if err != nil {
		w.metrics.estimationFails.Add(ctx, 1)
		w.logger.Warn(ctx, "reward price unavailable, skipping evaluation", "error", err)
		return
	}

	batch, err := w.protocol.ClaimableBatch(ctx, now, rewardPrice.USD)
	if err != nil {
		w.logger.Warn(ctx, "claimable scan failed, skipping evaluation", "error", err)
		return
	}

	rewardUSD, _ := batch.TotalRewardUSD.Float64()
	w.metrics.rewardValueUSD.Record(ctx, rewardUSD)

	w.mu.Lock()
	defer w.mu.Unlock()

	if batch.IsEmpty() {
		w.closeEmptyWindowLocked(ctx, now)
		return
	}

	if w.window == nil || w.window.IsTerminal() {
		w.window = domain.NewRewardWindow(w.nextID, now)
		w.nextID++
		w.metrics.windowsOpened.Add(ctx, 1)
		w.logger.Info(ctx, "reward window opened",
			"window", w.window.ID,
			"loans", batch.Len(),
			"reward_usd", batch.TotalRewardUSD.StringFixed(2))
	}
	w.batch = batch

	if w.window.State == domain.WindowClaiming {
		// A submission is in flight; it re-evaluates on its own before
		// every broadcast.
		return
	}

	verdict, err := w.estimator.Evaluate(ctx, batch.TotalRewardUSD)
	if err != nil {
		w.metrics.estimationFails.Add(ctx, 1)
		w.logger.Warn(ctx, "profit estimation unavailable", "error", err)
		w.demoteLocked(ctx, now)
		return
	}
	w.window.LastVerdict = verdict

	net, _ := verdict.NetProfitUSD().Float64()
	w.metrics.netProfitUSD.Record(ctx, net)

	w.logger.Debug(ctx, "opportunity evaluated",
		"window", w.window.ID,
		"loans", batch.Len(),
		"reward_usd", verdict.RewardUSD.StringFixed(2),
		"gas_usd", verdict.GasCostUSD.StringFixed(2),
		"net_usd", verdict.NetProfitUSD().StringFixed(2),
		"profitable", verdict.Profitable)

	if !verdict.Profitable {
		w.demoteLocked(ctx, now)
		return
	}

	if w.window.State == domain.WindowPending {
		if err := w.window.Transition(domain.WindowEligible, now); err != nil {
			w.logger.Error(ctx, "window transition failed", "error", err)
			return
		}
		w.logger.Info(ctx, "reward window eligible",
			"window", w.window.ID,
			"net_usd", verdict.NetProfitUSD().StringFixed(2))
	}

	if w.config.DryRun {
		w.metrics.dryRunSkips.Add(ctx, 1)
		w.logger.Info(ctx, "dry run: claim not submitted",
			"window", w.window.ID,
			"loans", batch.Len(),
			"net_usd", verdict.NetProfitUSD().StringFixed(2))
		return
	}

	if !w.gate.Admit(w.window.ID) {
		return
	}

	if err := w.window.Transition(domain.WindowClaiming, now); err != nil {
		w.logger.Error(ctx, "window transition failed", "error", err)
		_ = w.gate.Settle(w.window.ID)
		return
	}

	window := w.window
	claimBatch := batch
	w.claiming.Add(1)
	go func() {
		defer w.claiming.Done()
		w.execute(ctx, window, claimBatch)
	}()
}

// closeEmptyWindowLocked settles a still-open window whose claimable value
// vanished before we captured it.
func (w *OpportunityWatcher) closeEmptyWindowLocked(ctx context.Context, now time.Time) {
	if w.window == nil || w.window.IsTerminal() {
		return
	}
	if w.window.State == domain.WindowClaiming {
		// The in-flight submission settles the window.
		return
	}

	if err := w.window.Transition(domain.WindowMissed, now); err != nil {
		w.logger.Error(ctx, "window transition failed", "error", err)
		return
	}
	w.metrics.windowsMissed.Add(ctx, 1)
	w.logger.Info(ctx, "reward window missed, claimable value gone",
		"window", w.window.ID,
		"open_for", w.window.Duration(now).String())
	w.archiveLocked(w.window)
}

// demoteLocked moves an eligible window back to pending after a
// non-profitable or failed evaluation.
func (w *OpportunityWatcher) demoteLocked(ctx context.Context, now time.Time) {
	if w.window != nil && w.window.State == domain.WindowEligible {
		if err := w.window.Transition(domain.WindowPending, now); err != nil {
			w.logger.Error(ctx, "window transition failed", "error", err)
		}
	}
}

// execute drives one admitted window through submission to settlement.
func (w *OpportunityWatcher) execute(ctx context.Context, window *domain.RewardWindow, batch *protocoldomain.ClaimBatch) {
	ctx, span := w.tracer.Start(ctx, "claims.execute",
		trace.WithAttributes(attribute.Int64("window", int64(window.ID))),
	)
	defer span.End()

	nonce, err := w.sequencer.Acquire()
	if err != nil {
		w.logger.Error(ctx, "nonce acquisition failed", "window", window.ID, "error", err)
		w.settle(ctx, window, domain.WindowEligible, false)
		return
	}

	calldata, err := w.protocol.EncodeClaim(batch)
	if err != nil {
		w.logger.Error(ctx, "claim encoding failed", "window", window.ID, "error", err)
		_ = w.sequencer.ReleaseUnused(nonce)
		w.settle(ctx, window, domain.WindowEligible, false)
		return
	}

	gasPrice, err := w.gas.GetGasPrice(ctx)
	if err != nil {
		w.logger.Warn(ctx, "gas price unavailable, submission deferred", "window", window.ID, "error", err)
		_ = w.sequencer.ReleaseUnused(nonce)
		w.settle(ctx, window, domain.WindowPending, false)
		return
	}

	req := SubmitRequest{
		WindowID:  window.ID,
		To:        w.protocol.ClearinghouseAddress(),
		Calldata:  calldata,
		Nonce:     nonce,
		GasLimit:  w.estimator.gasUnits,
		GasPrice:  gasPrice.Wei,
		Preflight: w.preflight,
	}

	result, err := w.submitter.Submit(ctx, req)
	if err != nil {
		w.logger.Error(ctx, "claim submission failed", "window", window.ID, "error", err)
		if apperror.IsCode(err, apperror.CodeNonceConflict) {
			// The chain disagrees about our nonce; resync once idle.
			_ = w.sequencer.ReleaseConsumed(nonce)
			if syncErr := w.sequencer.Sync(ctx); syncErr != nil {
				w.logger.Error(ctx, "nonce resync failed", "error", syncErr)
			}
		} else {
			_ = w.sequencer.ReleaseUnused(nonce)
		}
		w.settle(ctx, window, domain.WindowEligible, false)
		return
	}

	w.metrics.submitOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", string(result.Outcome))))

	switch result.Outcome {
	case domain.OutcomeConfirmed:
		_ = w.sequencer.ReleaseConsumed(nonce)
		w.logger.Info(ctx, "claim confirmed",
			"window", window.ID,
			"tx", result.TxHash.Hex(),
			"block", result.BlockNumber,
			"gas_used", result.GasUsed,
			"attempts", result.Attempts,
			"reward_usd", batch.TotalRewardUSD.StringFixed(2))
		w.reconcile(ctx, batch)
		w.settleClaimed(ctx, window, batch.TotalRewardUSD)

	case domain.OutcomeReverted:
		_ = w.sequencer.ReleaseConsumed(nonce)
		w.logger.Warn(ctx, "claim reverted, likely lost the race",
			"window", window.ID,
			"tx", result.TxHash.Hex(),
			"attempts", result.Attempts)
		w.reconcile(ctx, batch)
		w.settle(ctx, window, domain.WindowMissed, true)

	case domain.OutcomeDropped:
		_ = w.sequencer.ReleaseUnused(nonce)
		w.logger.Warn(ctx, "claim dropped after all attempts, window missed",
			"window", window.ID,
			"attempts", result.Attempts)
		w.settle(ctx, window, domain.WindowMissed, true)

	case domain.OutcomeAborted:
		_ = w.sequencer.ReleaseUnused(nonce)
		w.logger.Info(ctx, "claim aborted, no longer profitable",
			"window", window.ID,
			"attempts", result.Attempts)
		w.settle(ctx, window, domain.WindowPending, false)
	}
}

// preflight re-evaluates profitability immediately before a broadcast.
func (w *OpportunityWatcher) preflight(ctx context.Context) error {
	rewardPrice, err := w.prices.RewardTokenUSD(ctx)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeEstimationUnavailable, "preflight reward price")
	}

	fresh, err := w.protocol.ClaimableBatch(ctx, time.Now(), rewardPrice.USD)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeTransientRead, "preflight claimable scan")
	}
	if fresh.IsEmpty() {
		return apperror.New(apperror.CodeWindowNotEligible,
			apperror.WithContext("claimable value gone"))
	}

	verdict, err := w.estimator.Evaluate(ctx, fresh.TotalRewardUSD)
	if err != nil {
		return err
	}
	if !verdict.Profitable {
		return apperror.New(apperror.CodeWindowNotEligible,
			apperror.WithContext("no longer profitable: net "+verdict.NetProfitUSD().StringFixed(2)))
	}

	return nil
}

// reconcile re-reads every loan in a settled batch so the registry agrees
// with the chain before the next window opens.
func (w *OpportunityWatcher) reconcile(ctx context.Context, batch *protocoldomain.ClaimBatch) {
	for i := range batch.Coolers {
		if err := w.protocol.RefreshLoan(ctx, batch.Coolers[i], batch.LoanIDs[i]); err != nil {
			w.logger.Warn(ctx, "post-claim loan refresh failed",
				"cooler", batch.Coolers[i].Hex(),
				"loan_id", batch.LoanIDs[i].String(),
				"error", err)
		}
	}
}

func (w *OpportunityWatcher) settleClaimed(ctx context.Context, window *domain.RewardWindow, claimedUSD decimal.Decimal) {
	now := time.Now()

	w.mu.Lock()
	window.ClaimedUSD = claimedUSD
	if err := window.Transition(domain.WindowClaimed, now); err != nil {
		w.logger.Error(ctx, "window transition failed", "error", err)
	}
	w.archiveLocked(window)
	w.mu.Unlock()

	_ = w.gate.Settle(window.ID)

	w.metrics.windowsClaimed.Add(ctx, 1)
	usd, _ := claimedUSD.Float64()
	w.metrics.claimedUSD.Add(ctx, usd)
}

// settle releases the gate and moves the window to the given state.
// Terminal states archive the window.
func (w *OpportunityWatcher) settle(ctx context.Context, window *domain.RewardWindow, to domain.WindowState, terminal bool) {
	now := time.Now()

	w.mu.Lock()
	if err := window.Transition(to, now); err != nil {
		w.logger.Error(ctx, "window transition failed", "error", err)
	}
	if terminal {
		if to == domain.WindowMissed {
			w.metrics.windowsMissed.Add(ctx, 1)
		}
		w.archiveLocked(window)
	}
	w.mu.Unlock()

	_ = w.gate.Settle(window.ID)
}

// archiveLocked moves a terminal window into bounded history. Callers hold
// the mutex.
func (w *OpportunityWatcher) archiveLocked(window *domain.RewardWindow) {
	w.history = append(w.history, window)
	if len(w.history) > closedWindowHistory {
		w.history = w.history[len(w.history)-closedWindowHistory:]
	}
	if w.window == window {
		w.window = nil
		w.batch = nil
	}
}

// CurrentWindow returns a snapshot of the open window, if any.
func (w *OpportunityWatcher) CurrentWindow() *domain.RewardWindow {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return nil
	}
	snapshot := *w.window
	return &snapshot
}

// History returns the settled windows, oldest first.
func (w *OpportunityWatcher) History() []*domain.RewardWindow {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*domain.RewardWindow, len(w.history))
	copy(out, w.history)
	return out
}
