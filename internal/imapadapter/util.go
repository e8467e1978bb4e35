package imapadapter

import "io"

// readLiteral drains an IMAP literal reader into memory. The only
// literals fetched are header blocks, small enough to buffer fully —
// sentryd never fetches message bodies or attachments.
func readLiteral(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return io.ReadAll(r)
}
