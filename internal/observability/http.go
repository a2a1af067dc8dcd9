package observability

import (
	"net"
	"net/http"
	"strings"
)

// Identity describes the network origin of a websocket connection.
type Identity struct {
	DeviceID  string `json:"device_id,omitempty"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent,omitempty"`
}

func IdentityFromRequest(r *http.Request) Identity {
	return Identity{
		DeviceID:  DeviceIDFromRequest(r),
		IP:        IPFromRequest(r),
		UserAgent: r.UserAgent(),
	}
}

func DeviceIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}

func RequestIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Request-Id")
}

func IPFromRequest(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
