package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/topupstore/topup-api/internal/domain/ledger"
)

// Claimed is the engine's view of an exclusively-claimed row. Both the
// wallet ledger and the order table present this shape, which is what lets
// one engine drive both state machines.
type Claimed struct {
	ID     string
	UserID uuid.UUID
	Kind   ledger.Kind
	Amount int64
}

// Store is the conditional-persistence contract the engine runs on. Claim
// must be a single atomic compare-and-swap style update: find the row whose
// id matches and whose status equals expected, and in the same operation
// move it to processing. Any store substitute must preserve exactly that
// atomicity, because the claim is the sole serialization point between
// concurrent settlement attempts.
type Store interface {
	Claim(ctx context.Context, id string, expected ledger.Status) (*Claimed, error)
	CommitSuccess(ctx context.Context, id string, balanceBefore, balanceAfter int64) error
	Rollback(ctx context.Context, id string, to ledger.Status) error
	FindStatus(ctx context.Context, id string) (ledger.Status, error)
	MarkFailed(ctx context.Context, id string) error
}

// Action is the terminal effect applied once a claim is confirmed: credit
// the wallet for ledger transactions, mark-paid for product orders. Apply
// returns the balance snapshots to record on the committed row.
type Action interface {
	Apply(ctx context.Context, c *Claimed, amount int64) (balanceBefore, balanceAfter int64, err error)
}

// Outcome classifies a settlement attempt.
type Outcome string

const (
	// OutcomeSettled means this attempt won the claim and applied the
	// terminal effect exactly once.
	OutcomeSettled Outcome = "settled"
	// OutcomeAlreadySettled means the row was already success; nothing was
	// mutated (idempotent read).
	OutcomeAlreadySettled Outcome = "already_settled"
	// OutcomeInProgress means another caller holds the claim; neutral,
	// retry later.
	OutcomeInProgress Outcome = "in_progress"
	// OutcomeAlreadyFailed means the row is terminally failed; a late
	// confirmation must not resurrect it.
	OutcomeAlreadyFailed Outcome = "already_failed"
	// OutcomeUnconfirmed means the claim was won but confirmation did not
	// hold up; the row was rolled back to pending and stays retryable.
	OutcomeUnconfirmed Outcome = "unconfirmed"
)

// Result describes what a settlement attempt did.
type Result struct {
	Outcome    Outcome `json:"outcome"`
	Amount     int64   `json:"amount,omitempty"`
	NewBalance int64   `json:"new_balance,omitempty"`
}

// Settled reports whether the transaction is success after this attempt.
func (r *Result) Settled() bool {
	return r.Outcome == OutcomeSettled || r.Outcome == OutcomeAlreadySettled
}

// Engine drives a transaction from pending to a terminal state exactly
// once, regardless of how many callers race to settle it. The persisted
// processing status stands in for a lock; no in-process lock is held across
// the store or gateway calls.
type Engine struct {
	store  Store
	action Action
}

func NewEngine(store Store, action Action) *Engine {
	return &Engine{store: store, action: action}
}

// Settle attempts to settle a pending transaction. This is the path every
// normal caller (webhook, client poll) funnels through.
func (e *Engine) Settle(ctx context.Context, id string, conf Confirmer) (*Result, error) {
	return e.SettleFrom(ctx, id, ledger.StatusPending, conf)
}

// SettleFrom attempts to settle a transaction currently in the expected
// status. The admin override path uses it to re-open failed rows; every
// other caller claims from pending only.
func (e *Engine) SettleFrom(ctx context.Context, id string, expected ledger.Status, conf Confirmer) (*Result, error) {
	claimed, err := e.store.Claim(ctx, id, expected)
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", id, err)
	}
	if claimed == nil {
		// Lost the claim, or the row is already terminal. Read-only check.
		status, err := e.store.FindStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		switch status {
		case ledger.StatusSuccess:
			return &Result{Outcome: OutcomeAlreadySettled}, nil
		case ledger.StatusFailed:
			return &Result{Outcome: OutcomeAlreadyFailed}, nil
		default:
			return &Result{Outcome: OutcomeInProgress}, nil
		}
	}

	confirmation, err := conf.Confirm(ctx, claimed)
	if err != nil {
		e.release(ctx, id)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !confirmation.Confirmed || confirmation.Amount <= 0 {
		e.release(ctx, id)
		return &Result{Outcome: OutcomeUnconfirmed}, nil
	}
	if confirmation.Amount != claimed.Amount {
		log.Warn().
			Str("transaction_id", id).
			Int64("expected", claimed.Amount).
			Int64("confirmed", confirmation.Amount).
			Msg("settlement amount mismatch, rolling back")
		e.release(ctx, id)
		return &Result{Outcome: OutcomeUnconfirmed}, nil
	}

	before, after, err := e.action.Apply(ctx, claimed, confirmation.Amount)
	if err != nil {
		e.release(ctx, id)
		return nil, err
	}

	if err := e.store.CommitSuccess(ctx, id, before, after); err != nil {
		// The balance effect already happened; a commit failure here leaves
		// the row in processing for manual recovery rather than risking a
		// second application on retry.
		log.Error().Err(err).Str("transaction_id", id).Msg("commit after applied settlement failed")
		return nil, fmt.Errorf("commit %s: %w", id, err)
	}

	log.Info().
		Str("transaction_id", id).
		Str("user_id", claimed.UserID.String()).
		Int64("amount", confirmation.Amount).
		Msg("transaction settled")

	return &Result{Outcome: OutcomeSettled, Amount: confirmation.Amount, NewBalance: after}, nil
}

// ForceFail moves a pending or processing transaction straight to failed.
// Admin-only; the operator asserts the external outcome out-of-band.
func (e *Engine) ForceFail(ctx context.Context, id string) error {
	return e.store.MarkFailed(ctx, id)
}

// release rolls a claimed row back to pending so a future attempt can
// retry. A rollback failure leaves the row stuck in processing; there is no
// automatic sweep for those, so log loudly for the operator.
func (e *Engine) release(ctx context.Context, id string) {
	if err := e.store.Rollback(ctx, id, ledger.StatusPending); err != nil {
		log.Error().Err(err).Str("transaction_id", id).Msg("rollback to pending failed, row stuck in processing")
	}
}
