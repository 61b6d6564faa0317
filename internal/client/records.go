package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hospitalhub/accessgate/internal/model"
)

// CreateRecord posts body to the hospital API collection for resource and
// returns the created record as sent back by the API.
func (c *Client) CreateRecord(ctx context.Context, resource model.Resource, body any) (json.RawMessage, error) {
	return c.mutate(ctx, "create "+string(resource), http.MethodPost, c.resourceURL(resource, ""), body)
}

func (c *Client) UpdateRecord(ctx context.Context, resource model.Resource, id string, body any) (json.RawMessage, error) {
	return c.mutate(ctx, "update "+string(resource), http.MethodPut, c.resourceURL(resource, id), body)
}

func (c *Client) DeleteRecord(ctx context.Context, resource model.Resource, id string) error {
	_, err := c.mutate(ctx, "delete "+string(resource), http.MethodDelete, c.resourceURL(resource, id), nil)
	return err
}

func (c *Client) resourceURL(resource model.Resource, id string) string {
	if id == "" {
		return fmt.Sprintf("%s/%s", c.APIURL, resource)
	}
	return fmt.Sprintf("%s/%s/%s", c.APIURL, resource, url.PathEscape(id))
}

// mutate accepts both enveloped and bare JSON answers from the hospital API.
func (c *Client) mutate(ctx context.Context, op, method, u string, body any) (json.RawMessage, error) {
	env, _, err := c.do(ctx, op, method, u, body)
	if err != nil {
		return nil, err
	}
	if len(env.Data) > 0 {
		return env.Data, nil
	}
	if len(env.raw) > 0 {
		return json.RawMessage(env.raw), nil
	}
	return nil, nil
}
