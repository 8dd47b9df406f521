package accesslog

import (
	"fmt"
	"net/netip"
	"strings"
)

// IPPolicy controls how the client address is written to the outputs.
type IPPolicy string

const (
	IPStore IPPolicy = "store"
	IPMask  IPPolicy = "mask"
	IPHash  IPPolicy = "hash"
	IPDrop  IPPolicy = "drop"
)

// ParseIPPolicy converts a string to a supported policy. An empty string
// means IPStore.
func ParseIPPolicy(s string) (IPPolicy, error) {
	switch p := IPPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return IPStore, nil
	case IPStore, IPMask, IPHash, IPDrop:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported ip policy %q", s)
	}
}

// Hasher turns an address into a stable pseudonym.
type Hasher interface{ HashString(s string) string }

// Normalize returns rec with RemoteAddr rewritten according to policy.
// Other fields are left untouched. Under IPHash every address, IP or not,
// becomes "h:" plus its digest; a nil h yields an empty address. IPMask
// keeps the IPv4 /24 or IPv6 /64 and blanks anything that is not an IP.
func Normalize(rec Record, policy IPPolicy, h Hasher) Record {
	switch policy {
	case IPDrop:
		rec.RemoteAddr = ""
	case IPHash:
		rec.RemoteAddr = hashAddr(rec.RemoteAddr, h)
	case IPMask:
		rec.RemoteAddr = maskAddr(rec.RemoteAddr)
	}
	return rec
}

func hashAddr(addr string, h Hasher) string {
	if h == nil {
		return ""
	}
	if ip, err := netip.ParseAddr(addr); err == nil {
		addr = ip.Unmap().String()
	}
	return "h:" + h.HashString(addr)
}

func maskAddr(addr string) string {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return ""
	}
	bits := 64
	if ip = ip.Unmap(); ip.Is4() {
		bits = 24
	}
	p, err := ip.WithZone("").Prefix(bits)
	if err != nil {
		return ""
	}
	return p.Addr().String()
}
