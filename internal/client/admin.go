package client

import (
	"context"
	"net/http"
)

// Login exchanges admin credentials for a session token and keeps it on the
// client for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	env, _, err := c.do(ctx, "login", http.MethodPost, c.ServerURL+"/admin/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	c.Token = env.Token
	return env.Token, nil
}

// Logout ends the server session. It is a no-op without a token.
func (c *Client) Logout(ctx context.Context) error {
	if c.Token == "" {
		return nil
	}
	if _, _, err := c.do(ctx, "logout", http.MethodPost, c.ServerURL+"/admin/logout", nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

// Me returns the username bound to the current token.
func (c *Client) Me(ctx context.Context) (string, error) {
	env, _, err := c.do(ctx, "whoami", http.MethodGet, c.ServerURL+"/admin/me", nil)
	if err != nil {
		return "", err
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := decodeData(env, &me); err != nil {
		return "", err
	}
	return me.Username, nil
}
