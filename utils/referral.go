package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// ReferralType is the prefix of a referral code.
type ReferralType string

const MarketerType ReferralType = "MKT"

// GenerateReferralCode generates a referral code for the specified entity type
// Format: {TYPE}-{RANDOM} where RANDOM is 6 uppercase alphanumeric characters
// Example: MKT-ABC234
func GenerateReferralCode(entityType ReferralType) (string, error) {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	// 4 bytes give 7 base32 characters
	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)[:6]
	return string(entityType) + "-" + strings.ToUpper(randomStr), nil
}

func GenerateMarketerReferralCode() (string, error) {
	return GenerateReferralCode(MarketerType)
}

// NormalizeReferralCode trims and upper-cases a code typed by a customer.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
