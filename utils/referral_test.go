package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMarketerReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateMarketerReferralCode()
		require.NoError(t, err)
		assert.Regexp(t, `^MKT-[A-Z2-7]{6}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestNormalizeReferralCode(t *testing.T) {
	assert.Equal(t, "MKT-ABC234", NormalizeReferralCode("  mkt-abc234\n"))
	assert.Equal(t, "", NormalizeReferralCode("   "))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;Ada&lt;/b&gt;", SanitizeInput(" <b>Ada</b>\x00 "))
	assert.Equal(t, "ada@example.com", SanitizeEmail(" Ada@Example.COM "))
}
