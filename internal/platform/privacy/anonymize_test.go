package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ipv4", "10.20.30.40", "10.20.30.0"},
		{"ipv4 mapped ipv6", "::ffff:172.16.5.9", "172.16.5.0"},
		{"ipv6", "2001:db8:85a3:1:2:8a2e:370:7334", "2001:db8:85a3::"},
		{"loopback v6", "::1", "::"},
		{"empty", "", "unknown"},
		{"unknown marker", "unknown", "unknown"},
		{"hostname", "gn-office.local", "invalid"},
		{"with port", "10.0.0.1:8080", "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.input))
		})
	}
}

func TestAnonymizeIP_GroupsSameSubnet(t *testing.T) {
	assert.Equal(t, AnonymizeIP("192.168.7.1"), AnonymizeIP("192.168.7.254"))
	assert.NotEqual(t, AnonymizeIP("192.168.7.1"), AnonymizeIP("192.168.8.1"))
}
