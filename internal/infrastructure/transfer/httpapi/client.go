// Package httpapi implements the backend transfer contract over HTTP. Chunk
// bytes travel as base64 inside a JSON body; the backend assembles chunks in
// index order and links completed files to their expected slots.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/core/ports"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	chunksSent *prometheus.CounterVec
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// WithChunkCounter records every chunk successfully transferred, labeled by
// document type.
func (c *Client) WithChunkCounter(counter *prometheus.CounterVec) *Client {
	c.chunksSent = counter
	return c
}

type chunkRequestBody struct {
	Data        []byte              `json:"data"`
	ChunkIndex  int                 `json:"chunkIndex"`
	TotalChunks int                 `json:"totalChunks"`
	FileName    string              `json:"fileName"`
	Context     chunkContextPayload `json:"packageContext"`
}

type chunkContextPayload struct {
	CategoryID     string `json:"categoryId"`
	ProductID      string `json:"productId"`
	DocumentType   string `json:"documentType"`
	ExpectedSlotID string `json:"expectedSlotId,omitempty"`
}

type linkRequestBody struct {
	FileName string `json:"fileName"`
	SlotID   string `json:"slotId"`
}

type transferResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (c *Client) UploadChunk(ctx context.Context, req ports.ChunkRequest) error {
	body := chunkRequestBody{
		Data:        req.Data,
		ChunkIndex:  req.Index,
		TotalChunks: req.TotalChunks,
		FileName:    req.FileName,
		Context: chunkContextPayload{
			CategoryID:     req.Context.CategoryID,
			ProductID:      req.Context.ProductID,
			DocumentType:   string(req.Context.DocumentType),
			ExpectedSlotID: req.Context.SlotID,
		},
	}
	if err := c.postJSON(ctx, "/v1/transfer/chunks", body, "upload chunk"); err != nil {
		return err
	}
	if c.chunksSent != nil {
		c.chunksSent.WithLabelValues(string(req.Context.DocumentType)).Inc()
	}
	return nil
}

// LinkUpload binds a completed upload to its slot server-side. The backend
// treats linking an already-linked slot as a no-op success.
func (c *Client) LinkUpload(ctx context.Context, fileName, slotID string) error {
	return c.postJSON(ctx, "/v1/transfer/links", linkRequestBody{
		FileName: fileName,
		SlotID:   slotID,
	}, "link upload")
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.WrapError(domain.ErrCancelled, operation, ctx.Err())
		}
		return domain.WrapError(domain.ErrTransientNetwork, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.WrapError(domain.ErrTransientServer, operation, httpStatusError(resp))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %w", operation, httpStatusError(resp))
	}

	var parsed transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.WrapError(domain.ErrTransientServer, operation,
			fmt.Errorf("decode response: %w", err))
	}
	if !strings.EqualFold(parsed.Status, "success") {
		return domain.WrapError(domain.ErrTransientServer, operation,
			fmt.Errorf("backend reported %s: %s", parsed.Status, parsed.Message))
	}
	return nil
}

func httpStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("status %s", resp.Status)
	}
	return fmt.Errorf("status %s: %s", resp.Status, msg)
}
