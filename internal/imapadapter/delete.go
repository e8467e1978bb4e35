package imapadapter

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"

	"github.com/sentryd/sentryd/internal/config"
)

// Delete realizes a destructive disposition for the given UIDs in
// folder, using the deletion strategy configured for the account's
// provider (spec.md §9 Open Question 1): bulk_expunge issues one
// STORE +FLAGS (\Deleted) across the whole set followed by a single
// EXPUNGE; uid_expunge follows the same STORE with one UID EXPUNGE
// (RFC 4315) limited to the given UID set, to avoid
// collaterally expunging \Deleted messages left behind by another
// client on providers that don't isolate EXPUNGE to the STORE caller.
func (c *Client) Delete(ctx context.Context, folder string, uids []uint32, strategy config.DeletionStrategy) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(uids) == 0 {
		return nil
	}
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	if err := c.selectFolder(folder); err != nil {
		return err
	}

	uidSet := imap.UIDSet{}
	for _, uid := range uids {
		uidSet.AddNum(imap.UID(uid))
	}

	return c.viaBreaker(func() error {
		storeCmd := c.client.Store(uidSet, &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagDeleted},
		}, nil)
		if err := storeCmd.Close(); err != nil {
			return fmt.Errorf("store \\Deleted: %w", err)
		}

		switch strategy {
		case config.DeletionUIDExpunge:
			expungeCmd := c.client.UIDExpunge(uidSet)
			if err := expungeCmd.Close(); err != nil {
				return fmt.Errorf("uid expunge: %w", err)
			}
		default: // bulk_expunge
			expungeCmd := c.client.Expunge()
			if err := expungeCmd.Close(); err != nil {
				return fmt.Errorf("expunge: %w", err)
			}
		}
		return nil
	})
}

// Move transfers the given UIDs from folder to destination, using the
// MOVE extension with the library's automatic COPY+STORE+EXPUNGE
// fallback on servers that lack it. It relocates rather than destroys
// the messages.
func (c *Client) Move(ctx context.Context, folder string, uids []uint32, destination string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(uids) == 0 {
		return nil
	}
	if destination == "" {
		return fmt.Errorf("destination folder is required")
	}
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	if err := c.selectFolder(folder); err != nil {
		return err
	}

	uidSet := imap.UIDSet{}
	for _, uid := range uids {
		uidSet.AddNum(imap.UID(uid))
	}

	return c.viaBreaker(func() error {
		moveCmd := c.client.Move(uidSet, destination)
		if _, err := moveCmd.Wait(); err != nil {
			return fmt.Errorf("move to %s: %w", destination, err)
		}
		return nil
	})
}

// MarkSeen flags the given UIDs \Seen, honoring a provider's
// SkipSeenMarking tuning (some IMAP servers penalize read-state
// churn) by doing nothing when skip is true.
func (c *Client) MarkSeen(ctx context.Context, folder string, uids []uint32, skip bool) error {
	if skip || len(uids) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	if err := c.selectFolder(folder); err != nil {
		return err
	}

	uidSet := imap.UIDSet{}
	for _, uid := range uids {
		uidSet.AddNum(imap.UID(uid))
	}

	return c.viaBreaker(func() error {
		storeCmd := c.client.Store(uidSet, &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagSeen},
		}, nil)
		if err := storeCmd.Close(); err != nil {
			return fmt.Errorf("mark seen: %w", err)
		}
		return nil
	})
}
