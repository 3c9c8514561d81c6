// Package transfer implements the transfer coordination engine: canonical
// lock ordering over account pairs, a bounded retry loop on contention, an
// atomic read-validate-write commit, and asynchronous outcome notification.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finflow/transfer-service/internal/domain"
	"github.com/finflow/transfer-service/internal/locker"
)

// Notification error texts. The resource-exhaustion and insufficient-balance
// wordings are part of the notification contract with downstream consumers.
const (
	msgSameAccount        = "sender and receiver must be different accounts"
	msgUnsupported        = "single-sided operations are not supported"
	msgNonPositiveAmount  = "transfer amount must be positive"
	msgCurrencyMismatch   = "currency mismatch between accounts and transfer"
	msgNoSuchReceiver     = "no such receiver account"
	msgInsufficientFunds  = "Insufficient user balance."
	msgResourceExhaustion = "Could not allocate resources for transaction processing."
	msgUnexpectedFailure  = "Transfer could not be processed."
)

// Config bounds the coordination loop.
type Config struct {
	// LockTimeout bounds each individual stripe acquisition.
	LockTimeout time.Duration
	// LockAttempts is the number of times the coordinator tries to take
	// both stripes before giving up with a resource-exhaustion outcome.
	LockAttempts int
}

// Coordinator orchestrates one transfer per call: validation, lock
// acquisition in canonical order, the atomic balance mutation, and
// notification dispatch. A Coordinator is safe for concurrent use; it is
// designed to run on a bounded worker pool, one execution per accepted
// request.
type Coordinator struct {
	accounts domain.AccountRepository
	ledger   domain.LedgerRepository
	tx       domain.TransactionManager
	notifier domain.Notifier
	locks    *locker.Manager
	cfg      Config
	log      zerolog.Logger
}

// New creates a Coordinator. All collaborators are required.
func New(
	accounts domain.AccountRepository,
	ledger domain.LedgerRepository,
	tx domain.TransactionManager,
	notifier domain.Notifier,
	locks *locker.Manager,
	cfg Config,
	log zerolog.Logger,
) *Coordinator {
	if cfg.LockAttempts <= 0 {
		cfg.LockAttempts = 3
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 100 * time.Millisecond
	}
	return &Coordinator{
		accounts: accounts,
		ledger:   ledger,
		tx:       tx,
		notifier: notifier,
		locks:    locks,
		cfg:      cfg,
		log:      log,
	}
}

// Process executes one transfer request to completion. It returns nothing:
// once a request is admitted, every outcome surfaces as a notification, not
// an error. The only silent exits are a missing sender (no one to notify)
// and context cancellation during shutdown, which abandons the attempt
// without resolving the request.
//
// Process never panics out into its caller; unexpected failures are logged
// and reported to the sender as a generic error.
func (c *Coordinator) Process(ctx context.Context, req domain.TransferRequest) {
	log := c.log.With().
		Str("request_id", req.RequestID).
		Str("sender_id", req.SenderID.String()).
		Str("receiver_id", req.ReceiverID.String()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic during transfer processing")
			c.notifySender(ctx, req, msgUnexpectedFailure)
		}
	}()

	if !c.validate(ctx, req, log) {
		return
	}

	// Double-checked pattern: a cheap read outside the locks rejects
	// obviously doomed requests without holding a stripe. Everything is
	// re-validated authoritatively under the locks before any mutation.
	if proceed := c.precheck(ctx, req, log); !proceed {
		return
	}

	release, err := c.acquirePair(ctx, req.SenderID, req.ReceiverID, log)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown: abandon the attempt, send nothing, don't retry.
			// The request's outcome stays unresolved after restart.
			log.Warn().Msg("transfer abandoned on cancellation")
			return
		}
		log.Error().Int("attempts", c.cfg.LockAttempts).Msg("failed to acquire account locks")
		c.notifySender(ctx, req, msgResourceExhaustion)
		return
	}
	defer release()

	c.processLocked(ctx, req, log)
}

// validate applies the cheap pre-lock rejections. It reports whether
// processing should continue; on rejection the sender is notified when one
// is identifiable.
func (c *Coordinator) validate(ctx context.Context, req domain.TransferRequest, log zerolog.Logger) bool {
	switch {
	case req.SenderID == uuid.Nil || req.ReceiverID == uuid.Nil:
		log.Warn().Err(domain.ErrUnsupportedOperation).Msg("transfer rejected")
		if req.SenderID != uuid.Nil {
			c.notifySender(ctx, req, msgUnsupported)
		}
		return false
	case req.SenderID == req.ReceiverID:
		log.Warn().Err(domain.ErrSameAccount).Msg("transfer rejected")
		c.notifySender(ctx, req, msgSameAccount)
		return false
	case !req.Amount.IsPositive():
		log.Warn().Err(domain.ErrInvalidAmount).Str("amount", req.Amount.String()).Msg("transfer rejected")
		c.notifySender(ctx, req, msgNonPositiveAmount)
		return false
	}
	return true
}

// precheck reads both accounts without locks and bails out early on
// conditions that cannot be fixed by waiting: missing participants, a
// currency mismatch, an already insufficient balance. The outcomes mirror
// the authoritative locked path exactly. Returns false when processing is
// finished.
func (c *Coordinator) precheck(ctx context.Context, req domain.TransferRequest, log zerolog.Logger) bool {
	sender, receiver, err := c.readPair(ctx, req)
	if err != nil {
		// Store hiccups before any lock is held are not terminal; the
		// locked read will retry against the authoritative state.
		log.Warn().Err(err).Msg("pre-lock account read failed, continuing to locked path")
		return true
	}
	return c.checkPair(ctx, req, sender, receiver, log)
}

// acquirePair takes the stripes of both participants in canonical ascending
// id order, retrying up to the configured attempt limit. Because every
// coordinator obeys the same global order regardless of which side initiated
// the request, no circular wait can form among concurrent transfers. On
// success it returns a release function that frees the stripes exactly once.
func (c *Coordinator) acquirePair(ctx context.Context, senderID, receiverID uuid.UUID, log zerolog.Logger) (func(), error) {
	low, high := orderPair(senderID, receiverID)

	// Both ids may alias to the same stripe; stripes are not reentrant, so
	// the shared stripe is taken only once.
	aliased := c.locks.Stripe(low) == c.locks.Stripe(high)

	for attempt := 1; attempt <= c.cfg.LockAttempts; attempt++ {
		if err := c.locks.Acquire(ctx, low, c.cfg.LockTimeout); err != nil {
			if errors.Is(err, locker.ErrAcquireTimeout) {
				log.Debug().Int("attempt", attempt).Msg("lock contention on lower stripe")
				continue
			}
			return nil, err
		}
		if aliased {
			return func() { c.locks.Release(low) }, nil
		}
		if err := c.locks.Acquire(ctx, high, c.cfg.LockTimeout); err != nil {
			c.locks.Release(low)
			if errors.Is(err, locker.ErrAcquireTimeout) {
				log.Debug().Int("attempt", attempt).Msg("lock contention on higher stripe")
				continue
			}
			return nil, err
		}
		return func() {
			c.locks.Release(high)
			c.locks.Release(low)
		}, nil
	}
	return nil, locker.ErrAcquireTimeout
}

// processLocked runs the critical section with both stripes held:
// authoritative re-read, validation, the atomic commit, and the success
// notifications.
func (c *Coordinator) processLocked(ctx context.Context, req domain.TransferRequest, log zerolog.Logger) {
	sender, receiver, err := c.readPair(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("failed to read accounts")
		c.notifySender(ctx, req, msgUnexpectedFailure)
		return
	}
	if !c.checkPair(ctx, req, sender, receiver, log) {
		return
	}

	now := time.Now().UTC()
	sender.Debit(req.Amount, now)
	receiver.Credit(req.Amount, now)

	entry := &domain.LedgerEntry{
		RequestID:  req.RequestID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Currency:   req.Currency,
	}

	// Both account rows and the ledger entry commit as one atomic unit; a
	// partial failure leaves no visible mutation.
	err = c.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := c.accounts.Save(txCtx, sender, receiver); err != nil {
			return fmt.Errorf("failed to save accounts: %w", err)
		}
		if err := c.ledger.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("transfer commit failed")
		c.notifySender(ctx, req, msgUnexpectedFailure)
		return
	}

	log.Info().
		Int64("ledger_entry_id", entry.ID).
		Str("amount", req.Amount.String()).
		Msg("transfer completed")
	c.notifyBoth(ctx, req)
}

// checkPair validates the account pair against the request and emits the
// corresponding failure notification. Returns true when the transfer may
// proceed.
func (c *Coordinator) checkPair(ctx context.Context, req domain.TransferRequest, sender, receiver *domain.Account, log zerolog.Logger) bool {
	if sender == nil {
		// No sender means no one identifiable to notify. No notification
		// is sent even when the receiver exists; consumers relying on a
		// receiver-side failure signal here will not get one.
		log.Error().Err(domain.ErrAccountNotFound).Msg("no sender account exists")
		return false
	}
	if receiver == nil {
		log.Error().Err(domain.ErrAccountNotFound).Msg("no receiver account exists")
		c.notifySender(ctx, req, msgNoSuchReceiver)
		return false
	}
	if sender.Currency != req.Currency || receiver.Currency != req.Currency {
		log.Warn().Err(domain.ErrCurrencyMismatch).
			Str("sender_currency", sender.Currency).
			Str("receiver_currency", receiver.Currency).
			Str("request_currency", req.Currency).
			Msg("transfer rejected")
		c.notifySender(ctx, req, msgCurrencyMismatch)
		return false
	}
	if !sender.HasSufficientFunds(req.Amount) {
		log.Warn().Err(domain.ErrInsufficientFunds).
			Str("balance", sender.Balance.String()).
			Str("amount", req.Amount.String()).
			Msg("transfer rejected")
		c.notifySender(ctx, req, msgInsufficientFunds)
		return false
	}
	return true
}

// readPair fetches both participant accounts, mapping the bulk result back
// onto the request. Missing accounts come back as nil without an error.
func (c *Coordinator) readPair(ctx context.Context, req domain.TransferRequest) (sender, receiver *domain.Account, err error) {
	accounts, err := c.accounts.GetByIDs(ctx, []uuid.UUID{req.SenderID, req.ReceiverID})
	if err != nil {
		return nil, nil, err
	}
	for i := range accounts {
		switch accounts[i].ID {
		case req.SenderID:
			sender = &accounts[i]
		case req.ReceiverID:
			receiver = &accounts[i]
		}
	}
	return sender, receiver, nil
}

func (c *Coordinator) notifySender(ctx context.Context, req domain.TransferRequest, errText string) {
	n := buildNotification(req, false, errText)
	c.publish(ctx, req.SenderID, n)
}

func (c *Coordinator) notifyBoth(ctx context.Context, req domain.TransferRequest) {
	// The notification is duplicated per participant so each side receives
	// the outcome on its own key.
	n := buildNotification(req, true, "")
	c.publish(ctx, req.SenderID, n)
	c.publish(ctx, req.ReceiverID, n)
}

// publish delivers a notification best-effort. A failed publish after a
// committed transfer cannot un-commit it; the failure is logged and the
// at-least-once contract is left to the publisher's own retry machinery.
func (c *Coordinator) publish(ctx context.Context, accountID uuid.UUID, n domain.Notification) {
	if err := c.notifier.Publish(ctx, accountID, n); err != nil {
		c.log.Error().Err(err).
			Str("request_id", n.RequestID).
			Str("account_id", accountID.String()).
			Msg("failed to publish transfer notification")
	}
}

func buildNotification(req domain.TransferRequest, successful bool, errText string) domain.Notification {
	return domain.Notification{
		RequestID:  req.RequestID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Successful: successful,
		Error:      errText,
	}
}

// orderPair sorts two account ids into the canonical ascending order used
// for lock acquisition.
func orderPair(a, b uuid.UUID) (low, high uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}
