// Package client talks to the access code server and the hospital API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const (
	defaultTimeout      = 15 * time.Second
	breakerMaxFailures  = 5
	breakerOpenInterval = 30 * time.Second
)

// Client wraps HTTP calls to the access code server and the hospital API.
type Client struct {
	ServerURL  string
	APIURL     string
	Token      string
	HTTPClient *http.Client

	breaker *gobreaker.CircuitBreaker
}

// New creates a Client. serverURL hosts /access-codes and /admin; apiURL hosts
// the hospital resources. token is the admin session token and may be empty.
func New(serverURL, apiURL, token string) *Client {
	c := &Client{
		ServerURL: strings.TrimRight(serverURL, "/"),
		APIURL:    strings.TrimRight(apiURL, "/"),
		Token:     token,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "accessgate-client",
		Timeout: breakerOpenInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
		// Only transport failures count against the server; 4xx answers are
		// the server working as intended.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrTransport)
		},
	})
	return c
}

// envelope is the { success, message, data } body the server answers with.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Reason  string          `json:"reason"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`

	raw []byte
}

func (c *Client) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

// do sends the request through the circuit breaker and returns the decoded
// envelope for 2xx answers and 400 answers with success=false.
func (c *Client) do(ctx context.Context, op, method, url string, body any) (*envelope, int, error) {
	req, err := c.newRequest(ctx, method, url, body)
	if err != nil {
		return nil, 0, err
	}

	type result struct {
		env    *envelope
		status int
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, serverMessage(data))}
		}

		env := envelope{raw: data}
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			if err := json.Unmarshal(trimmed, &env); err != nil && resp.StatusCode < 300 {
				return nil, &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
			}
		}

		if resp.StatusCode >= 300 && !(resp.StatusCode == http.StatusBadRequest && env.Reason != "") {
			return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Message: firstNonEmpty(env.Message, env.Error, string(data))}
		}
		return result{env: &env, status: resp.StatusCode}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, 0, &TransportError{Op: op, Err: err}
		}
		return nil, StatusOf(err), err
	}

	res := out.(result)
	return res.env, res.status, nil
}

func serverMessage(data []byte) string {
	var env envelope
	if json.Unmarshal(data, &env) == nil {
		if msg := firstNonEmpty(env.Message, env.Error); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(data))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
