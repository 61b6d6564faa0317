package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hospitalhub/accessgate/internal/accesscode"
	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/model"
)

var _ accesscode.Store = (*Client)(nil)

// Generate asks the server for a new code. The server takes the issuer from
// the session token; issuedBy is only checked for presence.
func (c *Client) Generate(ctx context.Context, issuedBy, note string) (*model.AccessCode, error) {
	if c.Token == "" || issuedBy == "" {
		return nil, apperrors.Unauthorized("Administrator authentication required")
	}

	env, _, err := c.do(ctx, "generate access code", http.MethodPost,
		c.ServerURL+"/access-codes/generate", map[string]string{"note": note})
	if err != nil {
		return nil, err
	}
	var code model.AccessCode
	if err := decodeData(env, &code); err != nil {
		return nil, err
	}
	return &code, nil
}

// Validate never returns an APIError: any non-success answer becomes a
// rejection carrying the server's reason.
func (c *Client) Validate(ctx context.Context, input string) (*accesscode.ValidationResult, error) {
	code := accesscode.Normalize(input)
	if code == "" {
		return accesscode.Rejected(accesscode.ReasonRequired), nil
	}

	env, status, err := c.do(ctx, "validate access code", http.MethodPost,
		c.ServerURL+"/access-codes/validate", map[string]string{"code": code})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return accesscode.Rejected(firstNonEmpty(apiErr.Message, accesscode.ReasonInvalid)), nil
		}
		return nil, err
	}

	if status != http.StatusOK || !env.Success {
		return accesscode.Rejected(firstNonEmpty(env.Reason, env.Message, accesscode.ReasonInvalid)), nil
	}

	var ac model.AccessCode
	if err := decodeData(env, &ac); err != nil {
		return nil, err
	}
	return accesscode.Accepted(&ac), nil
}

func (c *Client) List(ctx context.Context) ([]model.AccessCode, error) {
	return c.list(ctx, "/access-codes")
}

func (c *Client) ListValid(ctx context.Context) ([]model.AccessCode, error) {
	return c.list(ctx, "/access-codes/valid")
}

func (c *Client) list(ctx context.Context, path string) ([]model.AccessCode, error) {
	env, _, err := c.do(ctx, "list access codes", http.MethodGet, c.ServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	codes := []model.AccessCode{}
	if err := decodeData(env, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (c *Client) Deactivate(ctx context.Context, id string) (bool, error) {
	return c.revoke(ctx, "deactivate access code", http.MethodPut,
		fmt.Sprintf("%s/access-codes/%s/deactivate", c.ServerURL, url.PathEscape(id)))
}

func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	return c.revoke(ctx, "delete access code", http.MethodDelete,
		fmt.Sprintf("%s/access-codes/%s", c.ServerURL, url.PathEscape(id)))
}

func (c *Client) revoke(ctx context.Context, op, method, u string) (bool, error) {
	_, _, err := c.do(ctx, op, method, u, nil)
	if StatusOf(err) == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func decodeData(env *envelope, out any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{Op: "decode response", Err: err}
	}
	return nil
}
