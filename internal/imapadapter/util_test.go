package imapadapter

import (
	"strings"
	"testing"

	"github.com/emersion/go-imap/v2"
)

func TestFormatAddressWithName(t *testing.T) {
	addr := imap.Address{Name: "Alice", Mailbox: "alice", Host: "example.com"}
	got := formatAddress(addr)
	if got != "Alice <alice@example.com>" {
		t.Errorf("formatAddress() = %q, want %q", got, "Alice <alice@example.com>")
	}
}

func TestFormatAddressWithoutName(t *testing.T) {
	addr := imap.Address{Mailbox: "bob", Host: "example.com"}
	got := formatAddress(addr)
	if got != "bob@example.com" {
		t.Errorf("formatAddress() = %q, want %q", got, "bob@example.com")
	}
}

func TestReadLiteralNil(t *testing.T) {
	b, err := readLiteral(nil)
	if err != nil || b != nil {
		t.Errorf("readLiteral(nil) = (%v, %v), want (nil, nil)", b, err)
	}
}

func TestReadLiteralReadsAll(t *testing.T) {
	b, err := readLiteral(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("readLiteral() error: %v", err)
	}
	if string(b) != "hello" {
		t.Errorf("readLiteral() = %q, want %q", b, "hello")
	}
}

func TestDecodeMIMESubjectLeavesPlainSubjectAlone(t *testing.T) {
	got := decodeMIMESubject([]byte("From: a@example.com\r\n"), "plain subject")
	if got != "plain subject" {
		t.Errorf("decodeMIMESubject() = %q, want unchanged", got)
	}
}

func TestDecodeMIMESubjectDecodesEncodedWord(t *testing.T) {
	raw := []byte("From: a@example.com\r\nSubject: =?UTF-8?B?aGVsbG8=?=\r\n")
	got := decodeMIMESubject(raw, "=?UTF-8?B?aGVsbG8=?=")
	if got != "hello" {
		t.Errorf("decodeMIMESubject() = %q, want %q", got, "hello")
	}
}

func TestDecodeMIMESubjectFallsBackOnBadHeader(t *testing.T) {
	got := decodeMIMESubject([]byte("not a valid header block"), "=?UTF-8?B?aGVsbG8=?=")
	if got != "=?UTF-8?B?aGVsbG8=?=" {
		t.Errorf("decodeMIMESubject() = %q, want original subject back", got)
	}
}
