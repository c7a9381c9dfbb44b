package privacy

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// FingerprintNIC returns a short stable digest of a national identity card
// number so lookups can be correlated in logs and spans without the number
// itself. Case and surrounding space do not change the result.
func FingerprintNIC(nic string) string {
	nic = strings.ToUpper(strings.TrimSpace(nic))
	if nic == "" {
		return ""
	}
	sum := blake3.Sum256([]byte("nic:" + nic))
	return hex.EncodeToString(sum[:8])
}
