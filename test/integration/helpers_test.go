package integration

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/msto63/pascal/internal/pascal/client"
	"github.com/msto63/pascal/pkg/core/logging"
)

// Test configuration from environment or defaults
type TestConfig struct {
	GRPCAddr string
	HTTPAddr string
}

func getTestConfig() TestConfig {
	return TestConfig{
		GRPCAddr: getEnv("TEST_PASCAL_GRPC_ADDR", "localhost:9310"),
		HTTPAddr: getEnv("TEST_PASCAL_HTTP_ADDR", "localhost:8310"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// skipIfServiceUnavailable skips the test if the service is not reachable
func skipIfServiceUnavailable(t *testing.T, addr string, serviceName string) {
	t.Helper()
	if !isServiceAvailable(addr) {
		t.Skipf("Skipping: %s not available at %s", serviceName, addr)
	}
}

// isServiceAvailable checks if a TCP connection can be established
func isServiceAvailable(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// dialClient creates an evaluator client closed at test cleanup
func dialClient(t *testing.T, addr string) *client.Client {
	t.Helper()

	c, err := client.Dial(client.DefaultConfig(addr), logging.New("integration"))
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", addr, err)
	}

	t.Cleanup(func() {
		c.Close()
	})

	return c
}

// testContext returns a context with timeout for tests
func testContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// requireNoError fails the test if err is not nil
func requireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// requireTrue fails the test if condition is false
func requireTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Fatalf("Expected true: %s", msg)
	}
}

// requireEqual fails the test if expected != actual
func requireEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// logTestStart logs the start of a test with service info
func logTestStart(t *testing.T, serviceName, testName string) {
	t.Helper()
	t.Logf("=== %s: %s ===", serviceName, testName)
}

// waitForService waits for a service to become available
func waitForService(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if isServiceAvailable(addr) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("service at %s not available after %v", addr, timeout)
}
