package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizeEmail lowercases and trims an email address and strips gmail-style
// plus addressing from the local part so aliases collapse to one key.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}

	local, host := email[:at], email[at+1:]
	if plus := strings.Index(local, "+"); plus > 0 {
		local = local[:plus]
	}
	return local + "@" + host
}

// NormalizePhone converts a phone number to E.164. Returns the empty string
// when the input cannot be parsed; phone is a secondary dedup signal only.
func NormalizePhone(phone, defaultRegion string) string {
	if strings.TrimSpace(phone) == "" {
		return ""
	}
	if defaultRegion == "" {
		defaultRegion = "US"
	}

	parsed, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return ""
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// DedupKey derives a lead's stable deduplication key: the normalized email
// when present, otherwise a hash of company domain plus contact name.
func DedupKey(email, companyDomain, fullName string) string {
	if normalized := NormalizeEmail(email); normalized != "" && strings.Contains(normalized, "@") {
		return normalized
	}

	raw := strings.ToLower(strings.TrimSpace(companyDomain)) + "|" + strings.ToLower(strings.TrimSpace(fullName))
	sum := sha256.Sum256([]byte(raw))
	return "h:" + hex.EncodeToString(sum[:16])
}
