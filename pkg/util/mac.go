package util

import (
	"fmt"
	"strings"
)

// NormalizeMAC canonicalizes a MAC address to lowercase colon-separated form.
// Accepts "AA:BB:CC:DD:EE:FF", "aa-bb-cc-dd-ee-ff", "aabb.ccdd.eeff" and
// bare hex. Returns an error if the input is not 12 hex digits.
func NormalizeMAC(mac string) (string, error) {
	s := strings.ToLower(mac)
	s = strings.NewReplacer(":", "", "-", "", ".", "", " ", "").Replace(s)
	if len(s) != 12 {
		return "", fmt.Errorf("invalid MAC address %q", mac)
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("invalid MAC address %q", mac)
		}
	}
	var b strings.Builder
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(s[i : i+2])
	}
	return b.String(), nil
}

// MACFromBytes formats a 6-byte MAC in canonical form.
func MACFromBytes(b []byte) (string, error) {
	if len(b) != 6 {
		return "", fmt.Errorf("invalid MAC length %d", len(b))
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5]), nil
}

// NormalizePortName canonicalizes a switch port name for comparison.
// Vendors abbreviate inconsistently ("Eth1/1", "Ethernet1/1", "Gi0/1"),
// so comparison lowercases and expands the common short forms.
func NormalizePortName(port string) string {
	p := strings.ToLower(strings.TrimSpace(port))
	for _, r := range portAliases {
		if strings.HasPrefix(p, r.short) && !strings.HasPrefix(p, r.full) {
			rest := p[len(r.short):]
			if rest == "" || (rest[0] >= '0' && rest[0] <= '9') || rest[0] == '/' {
				return r.full + rest
			}
		}
	}
	return p
}

var portAliases = []struct{ short, full string }{
	{"eth", "ethernet"},
	{"gi", "gigabitethernet"},
	{"te", "tengigabitethernet"},
	{"fo", "fortygigabitethernet"},
	{"hu", "hundredgige"},
	{"po", "portchannel"},
}
