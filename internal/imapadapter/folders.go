package imapadapter

import (
	"context"
	"fmt"
	"sort"

	"github.com/emersion/go-imap/v2"
)

// ListFolders returns every mailbox for the account with its message
// and unseen counts, sorted alphabetically.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	listCmd := c.client.List("", "*", nil)
	mailboxes, err := listCmd.Collect()
	if err != nil {
		return nil, fmt.Errorf("list mailboxes: %w", err)
	}

	folders := make([]Folder, 0, len(mailboxes))
	for _, mbox := range mailboxes {
		noSelect := false
		attrs := make([]string, 0, len(mbox.Attrs))
		for _, attr := range mbox.Attrs {
			attrs = append(attrs, string(attr))
			if attr == imap.MailboxAttrNoSelect {
				noSelect = true
			}
		}

		folder := Folder{Name: mbox.Mailbox, Attributes: attrs}

		if !noSelect {
			statusCmd := c.client.Status(mbox.Mailbox, &imap.StatusOptions{NumMessages: true, NumUnseen: true})
			if data, err := statusCmd.Wait(); err != nil {
				c.logger.Debug("status failed for mailbox", "mailbox", mbox.Mailbox, "error", err)
			} else {
				if data.NumMessages != nil {
					folder.Messages = *data.NumMessages
				}
				if data.NumUnseen != nil {
					folder.Unseen = *data.NumUnseen
				}
			}
		}

		folders = append(folders, folder)
	}

	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}
