package otp

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHOTPGenerator(t *testing.T) {
	t.Run("six digit codes by default", func(t *testing.T) {
		pattern := regexp.MustCompile(`^\d{6}$`)
		seen := make(map[string]bool)

		for range 50 {
			code, err := HOTPGenerator{}.Generate()
			require.NoError(t, err)
			assert.Regexp(t, pattern, code)
			seen[code] = true
		}

		assert.Greater(t, len(seen), 40)
	})

	t.Run("eight digit codes", func(t *testing.T) {
		code, err := HOTPGenerator{Digits: 8}.Generate()

		require.NoError(t, err)
		assert.Len(t, code, 8)
	})
}
