package checkin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/campus-events/internal/domain"
)

// Client is a Checker that forwards scans to the campus API.
type Client struct {
	baseURL  string
	deviceID string
	http     *http.Client
}

func NewClient(baseURL, deviceID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), deviceID: deviceID, http: httpClient}
}

// Verify reports an unreachable or misbehaving API as STORE_UNAVAILABLE.
func (c *Client) Verify(ctx context.Context, raw string) domain.VerificationResult {
	res, err := c.post(ctx, raw)
	if err != nil {
		return domain.Invalid(domain.KindStoreUnavailable, domain.ReasonStoreUnavailable)
	}
	return res
}

func (c *Client) post(ctx context.Context, raw string) (domain.VerificationResult, error) {
	body, err := json.Marshal(map[string]string{"payload": raw})
	if err != nil {
		return domain.VerificationResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkins/scan", bytes.NewReader(body))
	if err != nil {
		return domain.VerificationResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.VerificationResult{}, errors.Wrap(err, "post scan")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.VerificationResult{}, errors.Newf("scan rejected with status %d", resp.StatusCode)
	}

	var res domain.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return domain.VerificationResult{}, errors.Wrap(err, "decode scan result")
	}
	return res, nil
}
