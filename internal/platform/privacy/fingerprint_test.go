package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintNIC(t *testing.T) {
	a := FingerprintNIC("199012345678")
	assert.Len(t, a, 16)
	assert.Equal(t, FingerprintNIC("123456789v"), FingerprintNIC(" 123456789V "))
	assert.NotEqual(t, a, FingerprintNIC("199012345679"))
	assert.Empty(t, FingerprintNIC("  "))
}
