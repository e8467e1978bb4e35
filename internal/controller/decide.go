package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentryd/sentryd/internal/classifier"
	"github.com/sentryd/sentryd/internal/config"
	"github.com/sentryd/sentryd/internal/identity"
	"github.com/sentryd/sentryd/internal/imapadapter"
	"github.com/sentryd/sentryd/internal/store"
)

// maxRetries caps the error -> retry cycle spec.md §4.5's
// ProcessedMessage state machine allows before a message is skipped
// outright rather than reclassified forever.
const maxRetries = 3

// disposition is one message's fully-resolved outcome: the action to
// apply (and, in process mode, execute against the server), plus
// everything UpsertProcessedMessage needs to persist it.
type disposition struct {
	action      store.Action
	reason      string
	category    string
	subcategory string
	confidence  float64
	tierUsed    int
	geo         store.GeoRecord
	status      store.ProcessingStatus
	retryCount  int
	fallback    bool
}

// decide resolves one fetched message into a disposition, implementing
// spec.md §4.3 step 2's three-way idempotency branch: skip a message
// already processed and deleted, short-circuit a flagged message
// without reclassifying it, skip a message that has exhausted its
// retry budget, and classify everything else fresh before applying
// override precedence.
func (c *Controller) decide(ctx context.Context, msg imapadapter.Message, account config.AccountConfig, threshold float64) (disposition, error) {
	existing, err := c.store.FindByMessageID(msg.MessageID)
	if err != nil {
		return disposition{}, fmt.Errorf("lookup message_id %s: %w", msg.MessageID, err)
	}

	if existing != nil {
		switch {
		case existing.ProcessingStatus == store.StatusProcessed && existing.Action == store.ActionDeleted:
			return dispositionFromExisting(existing, store.ActionSkipped, "already processed", store.StatusProcessed), nil

		case existing.ProcessingStatus == store.StatusFlagged:
			action, _, err := c.overrides.Resolve(msg.MessageID, existing.Action)
			if err != nil {
				return disposition{}, fmt.Errorf("resolve flag for %s: %w", msg.MessageID, err)
			}
			return dispositionFromExisting(existing, action, "flagged, not reclassified", store.StatusFlagged), nil

		case existing.ProcessingStatus == store.StatusError && existing.RetryCount >= maxRetries:
			return dispositionFromExisting(existing, store.ActionSkipped, "retry budget exhausted", store.StatusError), nil
		}
	}

	retryCount := 0
	if existing != nil && existing.ProcessingStatus == store.StatusError {
		retryCount = existing.RetryCount + 1
	}

	in, err := c.buildInput(msg, account)
	if err != nil {
		return disposition{}, err
	}

	verdict, _, _ := c.pipeline.Classify(ctx, in)

	classified := actionForVerdict(verdict, threshold)
	action, overridden, err := c.overrides.Resolve(msg.MessageID, classified)
	if err != nil {
		return disposition{}, fmt.Errorf("resolve override for %s: %w", msg.MessageID, err)
	}
	reason := verdict.Reason
	if overridden {
		reason = "override: " + reason
	}

	return disposition{
		action:      action,
		reason:      reason,
		category:    verdict.Category,
		subcategory: verdict.Subcategory,
		confidence:  verdict.Confidence,
		tierUsed:    verdict.Tier,
		geo:         geoRecordFromVerdict(verdict),
		retryCount:  retryCount,
		fallback:    verdict.Fallback,
	}, nil
}

// buildInput assembles a classifier.Input from a fetched message and
// the account's configuration: domain-derived fields from
// internal/identity, the sender's history of PRESERVED verdicts from
// the store, and whether a DELETE flag is already active (so tier1's
// auth-pass shortcut can honor spec.md §4.5 step 1's "AND no DELETE
// flag exists" condition).
func (c *Controller) buildInput(msg imapadapter.Message, account config.AccountConfig) (classifier.Input, error) {
	domain := identity.Domain(msg.From)

	hasDelete, err := c.overrides.HasDeleteFlag(msg.MessageID)
	if err != nil {
		return classifier.Input{}, fmt.Errorf("check delete flag for %s: %w", msg.MessageID, err)
	}

	priorPreserved, err := c.store.CountPreserved(domain)
	if err != nil {
		return classifier.Input{}, fmt.Errorf("count preserved for %s: %w", domain, err)
	}

	return classifier.Input{
		MessageID:      msg.MessageID,
		Sender:         msg.From,
		SenderDomain:   domain,
		Subject:        msg.Subject,
		ReceivedChain:  msg.RawHeaders,
		ExtraIPHeaders: msg.ExtraIPHeaders,
		AuthPass:       authPasses(msg.AuthResults, domain, account.TrustedAuthDomains),
		HasDeleteFlag:  hasDelete,
		PriorPreserved: priorPreserved,
	}, nil
}

// authPasses reports whether a message's Authentication-Results header
// shows both SPF and DKIM passing and the sender's domain is one the
// account's configuration trusts — the gate spec.md §4.5 step 1 puts
// in front of the instant auth-pass whitelist bypass.
func authPasses(authResults, domain string, trusted []string) bool {
	if authResults == "" || domain == "" {
		return false
	}
	isTrusted := false
	for _, d := range trusted {
		if strings.EqualFold(d, domain) {
			isTrusted = true
			break
		}
	}
	if !isTrusted {
		return false
	}
	lower := strings.ToLower(authResults)
	return strings.Contains(lower, "spf=pass") && strings.Contains(lower, "dkim=pass")
}

// dispositionFromExisting carries forward a previously-committed row's
// classifier fields unchanged — used for the idempotency branches that
// deliberately do not reclassify.
func dispositionFromExisting(existing *store.ProcessedMessage, action store.Action, reason string, status store.ProcessingStatus) disposition {
	return disposition{
		action:      action,
		reason:      reason,
		category:    existing.Category,
		subcategory: existing.Subcategory,
		confidence:  existing.Confidence,
		tierUsed:    existing.TierUsed,
		geo:         existing.Geo,
		status:      status,
		retryCount:  existing.RetryCount,
	}
}

// errorDisposition records a classification failure as an error row
// rather than propagating — spec.md §4.6's KindPersistence/KindClassifier
// policy of surfacing through counters, not aborting the session.
func errorDisposition(err error) disposition {
	return disposition{
		action: store.ActionSkipped,
		reason: "classification error: " + err.Error(),
		status: store.StatusError,
	}
}
