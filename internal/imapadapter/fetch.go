package imapadapter

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	emessage "github.com/emersion/go-message"

	"github.com/sentryd/sentryd/internal/identity"
)

// headerSection requests the header block only — no BodySection for
// the message text is ever fetched. Classification runs on sender,
// subject, and header metadata alone, so identity.SenderIP can walk
// the Received chain and identity.MessageID can read Message-Id
// without pulling the body across the wire.
var headerSection = &imap.FetchItemBodySection{Specifier: imap.PartSpecifierHeader}

// FetchBatch selects folder and fetches up to limit messages starting
// from the oldest UID greater than sinceUID, ascending — sinceUID is
// the watermark the caller (internal/controller) persists per session
// so a batch run picks up where the last one left off rather than
// reprocessing the whole mailbox.
func (c *Client) FetchBatch(ctx context.Context, folder string, sinceUID uint32, limit int) ([]Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if folder == "" {
		folder = "INBOX"
	}
	if limit <= 0 {
		limit = 100
	}

	if err := c.selectFolder(folder); err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{}
	if sinceUID > 0 {
		criteria.UID = []imap.UIDSet{{imap.UIDRange{Start: imap.UID(sinceUID + 1), Stop: 0}}}
	}

	var messages []Message
	err := c.viaBreaker(func() error {
		searchCmd := c.client.UIDSearch(criteria, nil)
		searchData, err := searchCmd.Wait()
		if err != nil {
			return fmt.Errorf("search %s: %w", folder, err)
		}

		all := searchData.AllUIDs()
		if len(all) == 0 {
			return nil
		}
		if len(all) > limit {
			all = all[:limit]
		}

		uidSet := imap.UIDSet{}
		for _, uid := range all {
			uidSet.AddNum(uid)
		}

		messages, err = c.fetchMessages(uidSet)
		return err
	})
	return messages, err
}

// fetchMessages fetches envelope, flags, size, and headers for the
// given UID set. Caller must hold c.mu and have a folder selected.
func (c *Client) fetchMessages(uidSet imap.UIDSet) ([]Message, error) {
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		Flags:       true,
		RFC822Size:  true,
		BodySection: []*imap.FetchItemBodySection{headerSection},
	}

	fetchCmd := c.client.Fetch(uidSet, fetchOpts)

	var out []Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		m, err := c.parseMessage(msg)
		if err != nil {
			c.logger.Debug("skipping message", "error", err)
			continue
		}
		out = append(out, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return out, nil
}

func (c *Client) parseMessage(msg *imapclient.FetchMessageData) (Message, error) {
	var m Message
	var rawHeader []byte

	for {
		item := msg.Next()
		if item == nil {
			break
		}

		switch data := item.(type) {
		case imapclient.FetchItemDataUID:
			m.UID = uint32(data.UID)
		case imapclient.FetchItemDataFlags:
			for _, f := range data.Flags {
				m.Flags = append(m.Flags, string(f))
			}
		case imapclient.FetchItemDataRFC822Size:
			m.Size = uint32(data.Size)
		case imapclient.FetchItemDataEnvelope:
			if data.Envelope != nil {
				m.Date = data.Envelope.Date
				m.Subject = data.Envelope.Subject
				if len(data.Envelope.From) > 0 {
					m.From = formatAddress(data.Envelope.From[0])
				}
				for _, addr := range data.Envelope.To {
					m.To = append(m.To, formatAddress(addr))
				}
			}
		case imapclient.FetchItemDataBodySection:
			content, err := readLiteral(data.Literal)
			if err != nil {
				return m, fmt.Errorf("read body section: %w", err)
			}
			rawHeader = content
		}
	}

	if m.UID == 0 {
		return m, fmt.Errorf("message missing UID")
	}

	header, _ := mail.ReadMessage(strings.NewReader(string(rawHeader) + "\r\n\r\n"))
	var h mail.Header
	if header != nil {
		h = header.Header
		m.RawHeaders = h["Received"]
		m.ExtraIPHeaders = map[string]string{
			"X-Originating-IP": h.Get("X-Originating-IP"),
			"X-Sender-IP":      h.Get("X-Sender-IP"),
		}
		m.AuthResults = h.Get("Authentication-Results")
	}
	m.MessageID = identity.MessageID(h)
	m.Subject = decodeMIMESubject(rawHeader, m.Subject)

	return m, nil
}

// decodeMIMESubject re-decodes the subject through go-message when the
// envelope's version looks like it still carries a raw RFC 2047
// encoded word (some IMAP servers return ENVELOPE fields undecoded).
// Tier 1/3 scoring reads Subject as plain text, so a leftover
// "=?UTF-8?B?...?=" wrapper would otherwise read as high-entropy
// gibberish regardless of what the sender actually wrote.
func decodeMIMESubject(rawHeader []byte, envelopeSubject string) string {
	if !strings.Contains(envelopeSubject, "=?") {
		return envelopeSubject
	}
	entity, err := emessage.Read(bytes.NewReader(append(rawHeader, "\r\n\r\n"...)))
	if err != nil {
		return envelopeSubject
	}
	decoded, err := entity.Header.Text("Subject")
	if err != nil || decoded == "" {
		return envelopeSubject
	}
	return decoded
}

func formatAddress(addr imap.Address) string {
	email := addr.Addr()
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, email)
	}
	return email
}
