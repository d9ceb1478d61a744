package credcore

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type deviceNameContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The engine records
// it on sessions and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. It is stored
// as session device info and attached to audit events.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithDeviceName attaches a caller-chosen device label to ctx, recorded on
// the session created by Login.
func WithDeviceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, deviceNameContextKey{}, name)
}

// ClientIPFromContext returns the IP set by WithClientIP, or "" when unset.
func ClientIPFromContext(ctx context.Context) string {
	return clientIPFromContext(ctx)
}

// UserAgentFromContext returns the value set by WithUserAgent, or "" when
// unset.
func UserAgentFromContext(ctx context.Context) string {
	return userAgentFromContext(ctx)
}

// DeviceNameFromContext returns the value set by WithDeviceName, or "" when
// unset.
func DeviceNameFromContext(ctx context.Context) string {
	return deviceNameFromContext(ctx)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func deviceNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	name, _ := ctx.Value(deviceNameContextKey{}).(string)
	return name
}
