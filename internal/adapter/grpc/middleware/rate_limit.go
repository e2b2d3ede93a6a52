package middleware

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"user-query-service/internal/adapter/metrics"
)

// fixedWindowScript increments the window counter and starts the window on first use.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window = tonumber(ARGV[1])

	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('EXPIRE', key, window)
	end

	return count
`)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	WindowSeconds     int
	Enabled           bool
	// TrustedProxies lists proxy IPs or CIDRs whose x-forwarded-for and
	// x-real-ip metadata is believed. Other peers are keyed by address.
	TrustedProxies []string
}

// MaxRequests returns how many requests one client may make per window.
func (c RateLimiterConfig) MaxRequests() int64 {
	window := c.WindowSeconds
	if window <= 0 {
		window = 1
	}
	return int64(c.RequestsPerSecond * float64(window))
}

// RateLimiter implements gRPC rate limiting using a Redis fixed window.
type RateLimiter struct {
	client  *redis.Client
	config  RateLimiterConfig
	trusted []netip.Prefix
	log     *zap.Logger
}

// NewRateLimiter creates a new rate limiter interceptor.
func NewRateLimiter(client *redis.Client, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	if config.WindowSeconds <= 0 {
		config.WindowSeconds = 1
	}
	trusted, err := ParseTrustedProxies(config.TrustedProxies)
	if err != nil {
		log.Warn("ignoring invalid trusted proxies", zap.Error(err))
	}
	return &RateLimiter{
		client:  client,
		config:  config,
		trusted: trusted,
		log:     log,
	}
}

// ParseTrustedProxies parses IPs and CIDRs into prefixes.
// Valid entries are returned even when others fail to parse.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	var bad []string
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				bad = append(bad, e)
				continue
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			bad = append(bad, e)
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(bad) > 0 {
		return prefixes, fmt.Errorf("invalid trusted proxies: %s", strings.Join(bad, ", "))
	}
	return prefixes, nil
}

// Key returns the Redis key counting requests of one client to one method.
func Key(method, clientIP string) string {
	return fmt.Sprintf("ratelimit:fw:%s:%s", method, clientIP)
}

// UnaryInterceptor returns a gRPC unary interceptor for rate limiting.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !rl.config.Enabled || rl.client == nil {
			return handler(ctx, req)
		}

		clientIP := rl.clientIP(ctx)
		maxRequests := rl.config.MaxRequests()

		count, err := fixedWindowScript.Run(ctx, rl.client, []string{Key(info.FullMethod, clientIP)},
			rl.config.WindowSeconds).Int64()
		if err != nil {
			// On Redis error, allow request to proceed (fail open)
			rl.log.Warn("rate limiter redis error, allowing request",
				zap.String("client_ip", clientIP),
				zap.String("method", info.FullMethod),
				zap.Error(err),
			)
			return handler(ctx, req)
		}

		if count > maxRequests {
			metrics.RateLimitedTotal.WithLabelValues("grpc").Inc()
			rl.log.Warn("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("method", info.FullMethod),
				zap.Int64("count", count),
				zap.Int64("limit", maxRequests),
			)
			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded: %d requests in %d seconds (limit: %d)",
				count, rl.config.WindowSeconds, maxRequests)
		}

		return handler(ctx, req)
	}
}

// clientIP identifies the caller. Forwarding metadata only counts when the
// direct peer is a trusted proxy; x-forwarded-for is walked right to left
// past trusted hops so a client cannot choose its own key.
func (rl *RateLimiter) clientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	remote := hostOnly(p.Addr.String())
	if !rl.isTrusted(remote) {
		return remote
	}

	md, _ := metadata.FromIncomingContext(ctx)
	var hops []string
	for _, v := range md.Get("x-forwarded-for") {
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hops = append(hops, h)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !rl.isTrusted(hops[i]) {
			return hops[i]
		}
	}
	if xri := md.Get("x-real-ip"); len(xri) > 0 && strings.TrimSpace(xri[0]) != "" {
		return strings.TrimSpace(xri[0])
	}
	return remote
}

func (rl *RateLimiter) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// hostOnly drops the port so every connection from one host shares a key.
func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
