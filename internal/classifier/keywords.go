package classifier

import "strings"

// blacklistedTLDs is the fixed TLD set spec.md §4.5 Tier 1 step 3 names.
var blacklistedTLDs = map[string]bool{
	".cn": true, ".ru": true, ".tk": true, ".ml": true, ".ga": true,
	".cf": true, ".cc": true, ".pw": true, ".top": true, ".click": true,
	".bid": true, ".win": true, ".download": true, ".party": true,
}

func hasBlacklistedTLD(domain string) bool {
	for tld := range blacklistedTLDs {
		if strings.HasSuffix(domain, tld) {
			return true
		}
	}
	return false
}

// adultKeywords trigger the immediate-spam verdict of spec.md §4.5
// Tier 1 step 2. Deliberately small and blunt — this is a fast
// pre-filter, not the ensemble.
var adultKeywords = []string{
	"xxx", "viagra", "cialis", "adult content", "hot singles", "nude",
}

var abuseKeywords = []string{
	"wire transfer urgent", "gift card", "irs refund", "account suspended",
	"verify your account immediately", "claim your prize",
}

func containsAdultKeyword(subject string) bool {
	return containsAnyFold(subject, adultKeywords)
}

func containsAbuseKeyword(subject string) bool {
	return containsAnyFold(subject, abuseKeywords)
}

func containsAnyFold(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// prizeFraudKeywords flag the classic "you've won" scam subject shape,
// used to pick a more specific subcategory than the bare TLD match.
var prizeFraudKeywords = []string{"congratulations", "you've won", "you won", "claim your prize"}

func isPrizeFraud(subject string) bool {
	return containsAnyFold(subject, prizeFraudKeywords)
}

// autoWarrantyKeywords flag the recurring vehicle-warranty/insurance
// spam subject shape at a fixed high confidence, the same way the
// adult-keyword and TLD-blacklist rules short-circuit the ensemble —
// a fresh, untrained ensemble never clears confidenceConsultTier2 on
// this kind of message by itself (spec.md §8 scenario 2).
var autoWarrantyKeywords = []string{
	"vehicle warranty", "auto warranty", "car warranty", "extended warranty",
	"warranty expires", "warranty is about to expire", "vehicle's warranty",
}

func isAutoWarrantySpam(subject string) bool {
	return containsAnyFold(subject, autoWarrantyKeywords)
}

// digestSubjectPatterns are the subject shapes the vendor-relationship
// heuristic (spec.md §4.5 Tier 1 step 6) treats as a known
// digest/notification pattern.
var digestSubjectPatterns = []string{
	"weekly digest", "daily summary", "your statement", "order confirmation",
	"shipping update", "receipt for", "your invoice",
}

func matchesDigestPattern(subject string) bool {
	return containsAnyFold(subject, digestSubjectPatterns)
}

// secondLevelLabel returns the second-level domain label (e.g. "bad"
// from "mail.bad.tld") the gibberish test runs its entropy check
// against, since TLDs themselves are short and low-entropy by nature.
func secondLevelLabel(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return domain
	}
	return parts[len(parts)-2]
}
