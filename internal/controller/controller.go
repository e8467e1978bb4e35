// Package controller runs sentryd's per-account processing loop: for
// each target folder it enumerates messages, resolves identity,
// classifies, applies override flags, and — in process mode — deletes.
// This is the component spec.md §4.3 calls the Processing Controller.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sentryd/sentryd/internal/apperr"
	"github.com/sentryd/sentryd/internal/classifier"
	"github.com/sentryd/sentryd/internal/config"
	"github.com/sentryd/sentryd/internal/identity"
	"github.com/sentryd/sentryd/internal/imapadapter"
	"github.com/sentryd/sentryd/internal/overrides"
	"github.com/sentryd/sentryd/internal/store"
)

// IMAPClient is the subset of imapadapter.Client the controller drives.
// Narrowed to an interface so tests can fake the transport without a
// real IMAP server; *imapadapter.Client satisfies it as-is.
type IMAPClient interface {
	FetchBatch(ctx context.Context, folder string, sinceUID uint32, limit int) ([]imapadapter.Message, error)
	Delete(ctx context.Context, folder string, uids []uint32, strategy config.DeletionStrategy) error
}

// Controller ties identity extraction, classification, override
// resolution, and persistence together for one account at a time. One
// Controller is shared across every account; it carries no per-run state.
type Controller struct {
	store     *store.Store
	pipeline  *classifier.Pipeline
	overrides *overrides.Engine
	logger    *slog.Logger
}

// New builds a Controller over an already-opened store, classifier
// pipeline, and override engine.
func New(s *store.Store, pipeline *classifier.Pipeline, ov *overrides.Engine, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: s, pipeline: pipeline, overrides: ov, logger: logger}
}

// Run executes one processing session for account over its configured
// target folders, sequentially folder by folder and UID by UID within
// a folder (spec.md §4.3 step 1 and step 7's ordering invariant).
// Concurrency across accounts is the caller's concern, not this
// method's — nothing here shares state across Run calls. Cancelling
// ctx stops the run between folders or between fetch batches; whatever
// was already committed stays committed, and the session closes with
// the counters it accumulated so far.
func (c *Controller) Run(ctx context.Context, client IMAPClient, accountID int64, account config.AccountConfig, global config.ClassifierConfig, mode store.SessionMode) (*store.Session, error) {
	sessionID, err := c.store.OpenSession(accountID, mode)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistence, "open session", err)
	}

	batchSize := account.BatchSizeOverride
	if batchSize <= 0 {
		batchSize = config.ProviderDefaults(account.Provider).BatchSize
	}
	tuning := config.ProviderDefaults(account.Provider)
	threshold := account.ResolvedConfidenceThreshold(global)

folders:
	for _, folder := range account.TargetFolders {
		select {
		case <-ctx.Done():
			break folders
		default:
		}

		if err := c.runFolder(ctx, client, sessionID, account, folder, mode, batchSize, tuning.Deletion, threshold); err != nil {
			c.logger.Warn("folder processing stopped early",
				"account_id", accountID, "folder", folder, "error", err)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break folders
			}
			continue
		}
	}

	if err := c.store.CloseSession(sessionID); err != nil {
		return nil, apperr.New(apperr.KindPersistence, fmt.Sprintf("close session %d", sessionID), err)
	}
	return c.store.GetSession(sessionID)
}

// runFolder pages through folder in batchSize chunks using an in-run
// UID cursor — not a persisted watermark, since spec.md's idempotency
// model keys off message_id via FindByMessageID rather than a
// high-water mark, so every run re-enumerates the folder from its
// start and relies on the per-message skip rules in decide to avoid
// redundant work.
func (c *Controller) runFolder(ctx context.Context, client IMAPClient, sessionID int64, account config.AccountConfig, folder string, mode store.SessionMode, batchSize int, strategy config.DeletionStrategy, threshold float64) error {
	var sinceUID uint32
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := client.FetchBatch(ctx, folder, sinceUID, batchSize)
		if err != nil {
			return apperr.New(apperr.KindNetwork, fmt.Sprintf("fetch batch %s", folder), err)
		}
		if len(batch) == 0 {
			return nil
		}

		var deleteUIDs []uint32
		for _, msg := range batch {
			if msg.UID > sinceUID {
				sinceUID = msg.UID
			}

			d, err := c.decide(ctx, msg, account, threshold)
			if err != nil {
				c.logger.Warn("classification error, recording for retry",
					"message_id", msg.MessageID, "error", err)
				d = errorDisposition(err)
			}

			if mode == store.ModeProcess && d.action == store.ActionDeleted {
				deleteUIDs = append(deleteUIDs, msg.UID)
			}

			if err := c.commit(sessionID, folder, msg, mode, d); err != nil {
				return apperr.New(apperr.KindPersistence, fmt.Sprintf("commit message %s", msg.MessageID), err)
			}
		}

		if mode == store.ModeProcess && len(deleteUIDs) > 0 {
			if err := client.Delete(ctx, folder, deleteUIDs, strategy); err != nil {
				return apperr.New(apperr.KindNetwork, fmt.Sprintf("delete batch in %s", folder), err)
			}
		}

		if len(batch) < batchSize {
			return nil
		}
	}
}

// commit persists one message's resolved disposition, choosing the
// processing_status that matches mode and whether the message was
// merely previewed, actually actioned, flagged, or errored.
func (c *Controller) commit(sessionID int64, folder string, msg imapadapter.Message, mode store.SessionMode, d disposition) error {
	status := d.status
	if status == "" {
		status = store.StatusProcessed
		if mode == store.ModePreview {
			status = store.StatusPreview
		}
	}

	_, err := c.store.UpsertProcessedMessage(store.UpsertProcessedMessageInput{
		MessageID:        msg.MessageID,
		SessionID:        sessionID,
		UID:              msg.UID,
		Folder:           folder,
		Sender:           msg.From,
		SenderDomain:     identity.Domain(msg.From),
		Subject:          msg.Subject,
		Action:           d.action,
		Reason:           d.reason,
		Category:         d.category,
		Subcategory:      d.subcategory,
		Confidence:       d.confidence,
		TierUsed:         d.tierUsed,
		Geo:              d.geo,
		ProcessingStatus: status,
		RetryCount:       d.retryCount,
		Fallback:         d.fallback,
		IsError:          status == store.StatusError,
	})
	return err
}
