package vaultapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates an account. It does not return a credential.
func (c *Client) Register(ctx context.Context, reg driven.Registration) error {
	req := registerRequest{Username: reg.Username, Email: reg.Email, Password: reg.Password}
	return c.do(ctx, "register", http.MethodPost, "users/register", req, nil, false)
}

// Login exchanges username and password for a bearer credential.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp tokenResponse
	req := loginRequest{Username: username, Password: password}
	if err := c.do(ctx, "login", http.MethodPost, "users/login", req, &resp, false); err != nil {
		return "", err
	}

	if resp.AccessToken == "" {
		return "", &driven.ServiceError{Op: "login", Status: http.StatusOK, Message: "response carried no access token"}
	}
	if resp.TokenType != "" && !strings.EqualFold(resp.TokenType, "bearer") {
		return "", &driven.ServiceError{Op: "login", Status: http.StatusOK, Message: "unsupported token type " + resp.TokenType}
	}
	return resp.AccessToken, nil
}
