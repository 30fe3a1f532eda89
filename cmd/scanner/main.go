// Command scanner is the gate operator's capture loop. It reads QR payloads
// one per line from stdin, as a keyboard-wedge scanner types them, or takes a
// single registration id via --id for manual entry.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robertarktes/campus-events/internal/checkin"
	"github.com/robertarktes/campus-events/internal/config"
	"github.com/robertarktes/campus-events/internal/domain"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	hostname, _ := os.Hostname()
	apiURL := pflag.String("api", cfg.ScannerAPIURL, "campus API base URL")
	device := pflag.String("device", hostname, "device id sent with every scan")
	manualID := pflag.String("id", "", "verify a single registration id and exit")
	timeout := pflag.Duration("timeout", 10*time.Second, "per-scan request timeout")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := checkin.NewClient(*apiURL, *device, nil)
	session := checkin.NewSession()

	if *manualID != "" {
		res := scan(ctx, session, client, checkin.ManualPayload(*manualID), *timeout)
		if res.Kind != domain.ResultValid {
			os.Exit(1)
		}
		return
	}

	if err := loop(ctx, os.Stdin, session, client, *timeout); err != nil {
		log.Fatalf("scanner stopped: %v", err)
	}
}

// loop treats every line as one capture. The session is reset after each
// result is printed, which stands in for the operator's "scan next".
func loop(ctx context.Context, in io.Reader, session *checkin.Session, c checkin.Checker, timeout time.Duration) error {
	lines := bufio.NewScanner(in)
	for lines.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		raw := strings.TrimSpace(lines.Text())
		if raw == "" {
			continue
		}
		scan(ctx, session, c, raw, timeout)
		session.Reset()
	}
	return lines.Err()
}

func scan(ctx context.Context, session *checkin.Session, c checkin.Checker, raw string, timeout time.Duration) domain.VerificationResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := session.Submit(ctx, c, raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return res
	}
	fmt.Println(render(res))
	return res
}

func render(res domain.VerificationResult) string {
	switch res.Kind {
	case domain.ResultValid:
		return fmt.Sprintf("VALID        %s  checked in at %s", res.HolderName, res.CheckTime.Format("15:04:05"))
	case domain.ResultAlreadyUsed:
		return fmt.Sprintf("ALREADY USED %s  (scanned %s)", res.HolderName, res.CheckTime.Format("15:04:05"))
	default:
		return fmt.Sprintf("INVALID      %s", res.Reason)
	}
}
