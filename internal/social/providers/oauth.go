package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

// OAuth2Config arma el oauth2.Config con credenciales en el body del POST
// (client_id/client_secret como parámetros del form).
func OAuth2Config(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Exchange hace el POST al token endpoint. Cualquier fallo (transporte, status
// no 2xx, JSON sin access_token) es ErrToken; el body del proveedor solo se loguea.
func Exchange(ctx context.Context, deps Deps, provider string, oc *oauth2.Config, code string, opts ...oauth2.AuthCodeOption) (*TokenSet, error) {
	if deps.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, deps.HTTPClient)
	}
	tok, err := oc.Exchange(ctx, code, opts...)
	if err != nil {
		log := logger.From(ctx).With(logger.Component("social.exchange"), logger.Provider(provider))
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			log.Warn("token endpoint rejected code",
				logger.Status(re.Response.StatusCode),
				logger.String("error_code", re.ErrorCode),
				logger.String("body", truncate(string(re.Body), 512)))
		} else {
			log.Warn("token exchange failed", logger.Err(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrToken, err)
	}
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if idt, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = idt
	}
	return ts, nil
}

// GetJSON hace un GET con Bearer token y decodifica el JSON en out.
// Fallos de transporte, status o decode son ErrProfile.
func GetJSON(ctx context.Context, deps Deps, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfile, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	client := deps.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.From(ctx).Warn("userinfo request failed",
			logger.Component("social.userinfo"), logger.Status(resp.StatusCode), logger.String("body", string(b)))
		return fmt.Errorf("%w: userinfo http %d", ErrProfile, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode userinfo: %v", ErrProfile, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
