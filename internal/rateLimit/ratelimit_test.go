package rateLimit

import (
	"context"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	redisadapter "github.com/robertarktes/campus-events/internal/adapters/redis"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRateLimiter_Allow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}
	client := redisclient.NewClient(&redisclient.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	rl := NewRateLimiter(redisadapter.NewCache(client))
	start := time.Date(2025, 3, 15, 18, 30, 5, 0, time.UTC)
	rl.now = func() time.Time { return start }
	for i := 0; i < 3; i++ {
		if !rl.Allow(ctx, "device:gate-1", 3, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow(ctx, "device:gate-1", 3, time.Minute) {
		t.Fatal("fourth request should be limited")
	}
	if !rl.Allow(ctx, "device:gate-2", 3, time.Minute) {
		t.Fatal("other keys must have their own window")
	}

	rl.now = func() time.Time { return start.Add(time.Minute) }
	if !rl.Allow(ctx, "device:gate-1", 3, time.Minute) {
		t.Fatal("a new window must reset the count")
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client := redisclient.NewClient(&redisclient.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	rl := NewRateLimiter(redisadapter.NewCache(client))
	if !rl.Allow(context.Background(), "ip:10.0.0.1", 1, time.Minute) {
		t.Fatal("expected requests to pass while redis is unreachable")
	}
}
