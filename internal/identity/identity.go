// Package identity extracts the stable, cross-folder identifiers a
// message is tracked by: its Message-ID (real or synthesized) and the
// sending IP pulled from its Received chain. Every function here is
// pure — same headers in, same identifier out (spec.md §4.2's
// round-trip invariant) — so the package takes no store or network
// dependency.
package identity

import (
	"crypto/md5"
	"fmt"
	"net"
	"net/mail"
	"regexp"
	"strings"
)

// MessageID returns the stable message_id for a set of RFC-822
// headers: the Message-ID header value (angle brackets stripped) if
// present and well-formed, or a deterministic synthesized fallback
// keyed off sender, subject, and date otherwise.
func MessageID(h mail.Header) string {
	if raw := strings.TrimSpace(h.Get("Message-Id")); raw != "" {
		if id := normalizeMessageID(raw); id != "" {
			return id
		}
	}
	return synthesize(h)
}

// normalizeMessageID strips angle brackets and rejects values that are
// clearly not an RFC-822 msg-id (empty, no '@').
func normalizeMessageID(raw string) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	if id == "" || !strings.Contains(id, "@") {
		return ""
	}
	return "<" + id + ">"
}

// synthesize builds the deterministic fallback id spec.md §4.2
// prescribes: "<generated." + MD5(sender|subject|date) + "@local>".
func synthesize(h mail.Header) string {
	sender := strings.TrimSpace(h.Get("From"))
	subject := strings.TrimSpace(h.Get("Subject"))
	date := strings.TrimSpace(h.Get("Date"))
	sum := md5.Sum([]byte(sender + "|" + subject + "|" + date))
	return fmt.Sprintf("<generated.%x@local>", sum)
}

// receivedIPPattern pulls the first IPv4 or bracketed/bare IPv6
// literal out of a Received: header's "from"/"by" clause.
var receivedIPPattern = regexp.MustCompile(`\[?((?:[0-9]{1,3}\.){3}[0-9]{1,3}|[0-9a-fA-F:]+:[0-9a-fA-F:]+)\]?`)

// xOriginatingIPPattern extracts the value of X-Originating-IP and
// X-Sender-IP style headers, which vendors sometimes quote.
var xOriginatingIPPattern = regexp.MustCompile(`\[?([0-9a-fA-F:.]+)\]?`)

// SenderIP scans a message's Received header chain from the bottom
// (closest to the originating MTA, which RFC 5321 appends last and
// readers traverse first-to-last in storage order, so the chain as
// stored here is iterated in reverse) upward, preferring the first
// public (non-loopback, non-private) IP address it finds. It falls
// back to X-Originating-IP / X-Sender-IP style headers when the
// Received chain yields nothing usable.
func SenderIP(received []string, extra map[string]string) string {
	for i := len(received) - 1; i >= 0; i-- {
		if ip := firstPublicIP(receivedIPPattern.FindAllStringSubmatch(received[i], -1)); ip != "" {
			return ip
		}
	}
	for _, key := range []string{"X-Originating-IP", "X-Sender-IP"} {
		if v, ok := extra[key]; ok {
			if m := xOriginatingIPPattern.FindStringSubmatch(v); m != nil {
				if ip := net.ParseIP(m[1]); ip != nil && isPublic(ip) {
					return ip.String()
				}
			}
		}
	}
	return ""
}

func firstPublicIP(matches [][]string) string {
	for _, m := range matches {
		ip := net.ParseIP(m[1])
		if ip != nil && isPublic(ip) {
			return ip.String()
		}
	}
	return ""
}

func isPublic(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return false
	}
	return !isPrivate(ip)
}

// rfc1918 and the IPv6 unique-local block cover the ranges spec.md
// §4.2 calls out as non-public.
var privateBlocks = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"fc00::/7",
	}
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, block, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		blocks = append(blocks, block)
	}
	return blocks
}()

func isPrivate(ip net.IP) bool {
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// Normalize lowercases and trims an email address for case-insensitive
// comparison, matching net/mail's own address-parsing tolerance.
func Normalize(address string) string {
	addr, err := mail.ParseAddress(address)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(address))
	}
	return strings.ToLower(addr.Address)
}

// Domain returns the domain portion of a normalized email address, or
// "" if the address has no '@'.
func Domain(address string) string {
	normalized := Normalize(address)
	at := strings.LastIndex(normalized, "@")
	if at < 0 || at == len(normalized)-1 {
		return ""
	}
	return normalized[at+1:]
}
