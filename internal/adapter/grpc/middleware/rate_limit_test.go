package middleware

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const testMethod = "/userquery.v1.UserQueryService/AverageAge"

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

// mockHandler is a simple handler that returns "success"
func mockHandler(ctx context.Context, req any) (any, error) {
	return "success", nil
}

func peerContext(ip string) context.Context {
	addr, _ := net.ResolveTCPAddr("tcp", ip+":12345")
	return peer.NewContext(context.Background(), &peer.Peer{Addr: addr})
}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 10, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext("127.0.0.1")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, info, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_ExceedLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 5, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext("127.0.0.1")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, info, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}

	// Next request should be rate limited
	resp, err := interceptor(ctx, nil, info, mockHandler)
	require.Error(t, err)
	assert.Nil(t, resp)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "rate limit exceeded")
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 1, Enabled: false}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext("127.0.0.1")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	// Should all succeed because rate limiting is disabled
	for i := 0; i < 10; i++ {
		resp, err := interceptor(ctx, nil, info, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	ctx1 := peerContext("192.168.1.1")
	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx1, nil, info, mockHandler)
		require.NoError(t, err)
	}
	_, err := interceptor(ctx1, nil, info, mockHandler)
	require.Error(t, err)

	// IP 2 has its own window
	resp, err := interceptor(peerContext("192.168.1.2"), nil, info, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiter_ForwardedHeadersIgnoredFromUntrustedPeer(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	// Rotating x-forwarded-for does not give a direct caller a fresh window
	var err error
	for i := 0; i < 3; i++ {
		md := metadata.Pairs("x-forwarded-for", fmt.Sprintf("203.0.113.%d", i), "x-real-ip", fmt.Sprintf("198.51.100.%d", i))
		_, err = interceptor(metadata.NewIncomingContext(peerContext("192.0.2.7"), md), nil, info, mockHandler)
	}
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	count, err := mr.Get(Key(testMethod, "192.0.2.7"))
	require.NoError(t, err)
	assert.Equal(t, "3", count)
	assert.False(t, mr.Exists(Key(testMethod, "203.0.113.0")))
}

func TestRateLimiter_ForwardedHeadersFromTrustedProxy(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 5,
		WindowSeconds:     1,
		Enabled:           true,
		TrustedProxies:    []string{"10.0.0.0/8"},
	}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	tests := []struct {
		name        string
		md          metadata.MD
		expectedKey string
	}{
		{
			name:        "rightmost untrusted hop",
			md:          metadata.Pairs("x-forwarded-for", "1.1.1.1, 203.0.113.1, 10.0.0.9"),
			expectedKey: "203.0.113.1",
		},
		{
			name:        "x-real-ip fallback",
			md:          metadata.Pairs("x-real-ip", "198.51.100.4"),
			expectedKey: "198.51.100.4",
		},
		{
			name:        "no forwarding metadata",
			md:          metadata.MD{},
			expectedKey: "10.1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr.FlushAll()
			_, err := interceptor(metadata.NewIncomingContext(peerContext("10.1.2.3"), tt.md), nil, info, mockHandler)
			require.NoError(t, err)

			count, err := mr.Get(Key(testMethod, tt.expectedKey))
			require.NoError(t, err)
			assert.Equal(t, "1", count)
		})
	}
}

func TestRateLimiter_KeysOnHostNotPort(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 5, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	for _, port := range []int{40001, 40002} {
		ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.9"), Port: port}})
		_, err := interceptor(ctx, nil, info, mockHandler)
		require.NoError(t, err)
	}

	count, err := mr.Get(Key(testMethod, "192.0.2.9"))
	require.NoError(t, err)
	assert.Equal(t, "2", count)
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", "", "::1"})
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "192.0.2.1/32", prefixes[1].String())
	assert.Equal(t, "::1/128", prefixes[2].String())

	prefixes, err = ParseTrustedProxies([]string{"not-an-ip", "10.0.0.0/8", "10.0.0.0/99"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-an-ip")
	assert.Contains(t, err.Error(), "10.0.0.0/99")
	assert.Len(t, prefixes, 1)
}

func TestRateLimiter_DifferentMethods(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext("127.0.0.1")

	info1 := &grpc.UnaryServerInfo{FullMethod: testMethod}
	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx, nil, info1, mockHandler)
		require.NoError(t, err)
	}

	// Method 2 has a separate window
	info2 := &grpc.UnaryServerInfo{FullMethod: "/userquery.v1.UserQueryService/CountByLastName"}
	resp, err := interceptor(ctx, nil, info2, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 2, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext("127.0.0.1")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	// 2 req/s * 2s = 4
	for i := 0; i < 4; i++ {
		_, err := interceptor(ctx, nil, info, mockHandler)
		require.NoError(t, err)
	}

	_, err := interceptor(ctx, nil, info, mockHandler)
	require.Error(t, err)

	key := Key(testMethod, "127.0.0.1:12345")
	ttl := mr.TTL(key)
	assert.Greater(t, ttl.Seconds(), 0.0)
	assert.LessOrEqual(t, ttl.Seconds(), 2.0)

	// A new window starts once the key expires
	mr.FastForward(3 * time.Second)
	resp, err := interceptor(ctx, nil, info, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiter_FailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	for i := 0; i < 3; i++ {
		resp, err := interceptor(peerContext("127.0.0.1"), nil, info, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiterConfig_MaxRequests(t *testing.T) {
	assert.Equal(t, int64(20), RateLimiterConfig{RequestsPerSecond: 10, WindowSeconds: 2}.MaxRequests())
	assert.Equal(t, int64(10), RateLimiterConfig{RequestsPerSecond: 10}.MaxRequests())
}
