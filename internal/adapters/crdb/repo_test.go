package crdb_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	"github.com/robertarktes/campus-events/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startCRDB(t *testing.T) *crdb.Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping cockroachdb container test in short mode")
	}
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	host, err := crdbContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := crdbContainer.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgresql://root@%s:%s/defaultdb?sslmode=disable", host, port.Port()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	repo := crdb.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return repo
}

func newRegistration(id, eventID, userID string) domain.Registration {
	return domain.Registration{
		ID:            id,
		EventID:       eventID,
		EventTitle:    "Hack Night",
		EventDate:     "15 MAR 2025",
		UserID:        userID,
		UserName:      "Asha",
		PaymentID:     domain.FreePayment,
		PaymentStatus: domain.PaymentNotApplicable,
		CreatedAt:     time.Now(),
	}
}

func TestRepository_RedeemRegistration(t *testing.T) {
	ctx := context.Background()
	repo := startCRDB(t)

	if err := repo.CreateRegistration(ctx, newRegistration("R1", "E1", "U1"), 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	at := time.Now().UTC().Truncate(time.Microsecond)
	if err := repo.RedeemRegistration(ctx, "R1", "C1", at); err != nil {
		t.Fatalf("expected redemption, got %v", err)
	}

	reg, err := repo.GetRegistration(ctx, "R1")
	if err != nil {
		t.Fatal(err)
	}
	if !reg.Utilized || reg.CheckInID != "C1" || reg.UtilizedAt == nil || !reg.UtilizedAt.Equal(at) {
		t.Fatalf("unexpected registration after redeem: %+v", reg)
	}

	if err := repo.RedeemRegistration(ctx, "R1", "C2", time.Now()); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict on second redeem, got %v", err)
	}
	if err := repo.RedeemRegistration(ctx, "missing", "C3", time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := repo.GetRegistration(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	reg, err = repo.GetRegistration(ctx, "R1")
	if err != nil {
		t.Fatal(err)
	}
	if reg.CheckInID != "C1" {
		t.Errorf("losing redeem must not overwrite the winner, got %q", reg.CheckInID)
	}
}

func TestRepository_ConcurrentRedeem(t *testing.T) {
	ctx := context.Background()
	repo := startCRDB(t)

	if err := repo.CreateRegistration(ctx, newRegistration("R1", "E1", "U1"), 0); err != nil {
		t.Fatal(err)
	}

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.RedeemRegistration(ctx, "R1", fmt.Sprintf("C%d", i), time.Now())
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrConflict):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner, got %d", won)
	}
}

func TestRepository_CreateRegistration(t *testing.T) {
	ctx := context.Background()
	repo := startCRDB(t)

	rec, err := crdb.NewOutboxRecord("registration", "R1", "registration.created", map[string]string{"registration_id": "R1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateRegistration(ctx, newRegistration("R1", "E1", "U1"), 2, rec); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := repo.CreateRegistration(ctx, newRegistration("R2", "E1", "U1"), 2); !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Errorf("expected already registered, got %v", err)
	}
	if err := repo.CreateRegistration(ctx, newRegistration("R3", "E1", "U2"), 2); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := repo.CreateRegistration(ctx, newRegistration("R4", "E1", "U3"), 2); !errors.Is(err, domain.ErrCapacityReached) {
		t.Errorf("expected capacity reached, got %v", err)
	}

	has, err := repo.HasRegistration(ctx, "E1", "U2")
	if err != nil || !has {
		t.Errorf("expected U2 to be registered, got %v, %v", has, err)
	}

	byEvent, err := repo.ListRegistrationsByEvents(ctx, []string{"E1", "E2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byEvent) != 2 {
		t.Errorf("expected 2 registrations, got %d", len(byEvent))
	}

	byUser, err := repo.ListRegistrationsByUser(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byUser) != 1 || byUser[0].ID != "R1" {
		t.Errorf("unexpected registrations for U1: %+v", byUser)
	}

	var seen []string
	published, err := repo.ProcessOutbox(ctx, 10, func(rec crdb.OutboxRecord) error {
		seen = append(seen, rec.EventType)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if published != 1 || len(seen) != 1 || seen[0] != "registration.created" {
		t.Errorf("expected the registration.created record to be published, got %d %v", published, seen)
	}

	published, err = repo.ProcessOutbox(ctx, 10, func(rec crdb.OutboxRecord) error { return nil })
	if err != nil || published != 0 {
		t.Errorf("expected nothing left to publish, got %d, %v", published, err)
	}
}

func TestRepository_EnqueueDropsDuplicateDedupeKey(t *testing.T) {
	ctx := context.Background()
	repo := startCRDB(t)

	for i := 0; i < 2; i++ {
		rec, err := crdb.NewOutboxRecord("event", "E1", "event.archived", map[string]string{"event_id": "E1"})
		if err != nil {
			t.Fatal(err)
		}
		rec.DedupeKey = "event.archived:E1:14 MAR 2025"
		if err := repo.Enqueue(ctx, rec); err != nil {
			t.Fatalf("enqueue %d: expected no error, got %v", i+1, err)
		}
	}

	published, err := repo.ProcessOutbox(ctx, 10, func(rec crdb.OutboxRecord) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	if published != 1 {
		t.Fatalf("expected 1 record, got %d", published)
	}
}
