package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

// Client is a Pusher speaking the server's JSON API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Push(ctx context.Context, item domain.ChecklistItem) (bool, error) {
	payload, err := json.Marshal(map[string]any{
		"section":     item.Section,
		"requirement": item.Requirement,
		"status":      item.Status,
		"evidence":    item.Evidence,
		"updated_at":  item.UpdatedAt,
	})
	if err != nil {
		return false, err
	}

	url := fmt.Sprintf("%s/v1/audits/%s/checklist/%s", c.baseURL, item.AuditID, item.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, apperr.Remote("push checklist item", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, decodeError(resp)
	}
	var envelope struct {
		Data struct {
			Applied bool `json:"applied"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return false, apperr.Remote("decode push response", err)
	}
	return envelope.Data.Applied, nil
}

func (c *Client) Fetch(ctx context.Context, auditID string) ([]domain.ChecklistItem, error) {
	url := fmt.Sprintf("%s/v1/audits/%s/checklist", c.baseURL, auditID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Remote("fetch checklist", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var envelope struct {
		Data []domain.ChecklistItem `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperr.Remote("decode checklist", err)
	}
	return envelope.Data, nil
}

// decodeError rebuilds a taxonomy error from the server's error envelope so
// the retry policy can tell transient failures from terminal ones.
func decodeError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Step    string `json:"step"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Code == "" {
		return apperr.Remote("server response", fmt.Errorf("status %d", resp.StatusCode))
	}
	return &apperr.Error{
		Code:    apperr.Code(envelope.Error.Code),
		Message: envelope.Error.Message,
		Step:    envelope.Error.Step,
	}
}
