package middleware

import (
	"net"
	"strings"

	"github.com/Suhaibinator/capi/pkg/common"
)

// IPSourceType defines the source for client IP addresses
type IPSourceType string

const (
	// IPSourceRemoteAddr uses the connection's remote address
	IPSourceRemoteAddr IPSourceType = "remote_addr"

	// IPSourceXForwardedFor uses the leftmost entry of X-Forwarded-For
	IPSourceXForwardedFor IPSourceType = "x_forwarded_for"

	// IPSourceXRealIP uses the X-Real-IP header
	IPSourceXRealIP IPSourceType = "x_real_ip"

	// IPSourceCustomHeader uses the header named by IPConfig.CustomHeader
	IPSourceCustomHeader IPSourceType = "custom_header"
)

// IPConfig defines configuration for IP extraction
type IPConfig struct {
	// Source specifies where to extract the client IP from
	Source IPSourceType

	// CustomHeader is the header name used when Source is IPSourceCustomHeader
	CustomHeader string

	// TrustProxy allows proxy headers to be used. When false the remote address is
	// always used.
	TrustProxy bool
}

// DefaultIPConfig returns the default IP configuration
func DefaultIPConfig() *IPConfig {
	return &IPConfig{
		Source:     IPSourceXForwardedFor,
		TrustProxy: true,
	}
}

// ClientNamespace is the request side-channel namespace used by ClientIP.
const ClientNamespace = "client"

// ClientIP creates a middleware that resolves the client IP and stores it on the request.
func ClientIP(config *IPConfig) Middleware {
	if config == nil {
		config = DefaultIPConfig()
	}

	return func(req *common.Request, res *common.Response, next common.Next) {
		req.Set(ClientNamespace, "ip", extractClientIP(req, config))
		next()
	}
}

// ClientIPOf returns the IP stored by ClientIP. Without it, the remote address is used.
func ClientIPOf(req *common.Request) string {
	if v, ok := req.Get(ClientNamespace, "ip"); ok {
		if ip, ok := v.(string); ok && ip != "" {
			return ip
		}
	}
	return cleanIP(req.Raw().RemoteAddr)
}

func extractClientIP(req *common.Request, config *IPConfig) string {
	var ip string

	if config.TrustProxy {
		switch config.Source {
		case IPSourceXRealIP:
			ip = req.Header("X-Real-IP")
		case IPSourceCustomHeader:
			ip = req.Header(config.CustomHeader)
		case IPSourceRemoteAddr:
		default:
			ip = firstForwardedFor(req.Header("X-Forwarded-For"))
		}
	}

	if ip == "" {
		ip = req.Raw().RemoteAddr
	}
	return cleanIP(strings.TrimSpace(ip))
}

// firstForwardedFor returns the leftmost (original client) entry of X-Forwarded-For
func firstForwardedFor(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}

// cleanIP removes the port from an address if present
func cleanIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
}
