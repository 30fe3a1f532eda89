package rabbit_test

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/campus-events/internal/adapters/rabbit"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPublishConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping rabbitmq container test in short mode")
	}
	ctx := context.Background()

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health/checks/alarms").WithPort("15672").WithBasicAuth("guest", "guest"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitContainer.Terminate(ctx)

	host, err := rabbitContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := rabbitContainer.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := amqp.Dial("amqp://guest:guest@" + host + ":" + port.Port() + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "campus.audit.test", "ticket.redeemed")
	if err != nil {
		t.Fatal(err)
	}
	defer consumer.Close()
	pub, err := rabbit.NewPublisher(conn)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	deliveries, err := consumer.Consume(cctx)
	if err != nil {
		t.Fatal(err)
	}

	// unbound key, must not arrive
	if err := pub.Publish(cctx, "registration.created", amqp.Publishing{MessageId: "skip", Body: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}
	if err := pub.Publish(cctx, "ticket.redeemed", amqp.Publishing{MessageId: "C1", Type: "ticket.redeemed", Body: []byte(`{"registration_id":"R1"}`)}); err != nil {
		t.Fatal(err)
	}

	select {
	case d := <-deliveries:
		if d.MessageId != "C1" || d.RoutingKey != "ticket.redeemed" {
			t.Fatalf("unexpected delivery %+v", d)
		}
		if err := d.Ack(false); err != nil {
			t.Fatal(err)
		}
	case <-cctx.Done():
		t.Fatal("timed out waiting for delivery")
	}
}
