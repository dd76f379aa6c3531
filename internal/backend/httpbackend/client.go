package httpbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/proto"
)

// ErrUnexpectedStatus is returned when the backend answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected backend status")

// Client talks to an answering backend over HTTP/JSON.
type Client struct {
	baseURL string
	http    *stdhttp.Client
	log     *zerolog.Logger
}

var _ core.Backend = (*Client)(nil)

// New builds a backend client for baseURL. A zero timeout leaves requests bounded only by their context.
func New(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &stdhttp.Client{Timeout: timeout},
		log:     logger,
	}
}

// DeliverQuestion hands a question to the backend.
func (c *Client) DeliverQuestion(ctx context.Context, question, room, id string) error {
	req := proto.DeliverRequest{Question: question, Room: room, ID: id}
	return c.post(ctx, proto.BackendPathDeliver, req, nil)
}

// FetchAnswer returns the room's next answer or "".
func (c *Client) FetchAnswer(ctx context.Context, room string) (string, error) {
	var resp proto.AnswerResponse
	if err := c.post(ctx, proto.BackendPathAnswer, proto.AnswerRequest{Room: room}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// DiscardQuestion rolls the backend's room history back to before id.
func (c *Client) DiscardQuestion(ctx context.Context, room, id string) error {
	return c.post(ctx, proto.BackendPathDiscard, proto.DiscardRequest{Room: room, ID: id}, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody proto.ErrorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Str("error", msg).Msg("backend request failed")
		return fmt.Errorf("post %s: %w: %d %s", path, ErrUnexpectedStatus, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
