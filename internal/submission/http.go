package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Client submits cases to the payment network over HTTP and polls the
// network's resolution feed. It implements both the Submitter contract
// and the resolution check the case workflow monitors with.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a Client against the given gateway endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit posts the case material to the gateway's dispute intake.
func (c *Client) Submit(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpoint+"/disputes",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submit case %s: %w", req.CaseID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gateway rejected case %s: status %d: %s",
			req.CaseID, resp.StatusCode, bytes.TrimSpace(payload))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode submission result: %w", err)
	}
	if result.SubmittedAt.IsZero() {
		result.SubmittedAt = time.Now().UTC()
	}
	return &result, nil
}

type resolutionPayload struct {
	Outcome string `json:"outcome"`
}

// Check queries the gateway for a submitted case's resolution. A 204
// means the network has not ruled yet.
func (c *Client) Check(ctx context.Context, caseID uuid.UUID) (string, bool, error) {
	target := c.endpoint + "/disputes/" + url.PathEscape(caseID.String()) + "/resolution"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", false, fmt.Errorf("build resolution request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", false, fmt.Errorf("check resolution for case %s: %w", caseID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return "", false, nil
	case http.StatusOK:
		var payload resolutionPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", false, fmt.Errorf("decode resolution: %w", err)
		}
		return payload.Outcome, true, nil
	default:
		return "", false, fmt.Errorf("gateway resolution check for case %s: status %d",
			caseID, resp.StatusCode)
	}
}
