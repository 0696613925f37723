package host

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/peerhelp/peerhelp/pkg/api"
)

// RelayClient calls the HTTP API of the relay.
type RelayClient struct {
	base url.URL
	http *http.Client
}

func NewRelayClient(endpoint string, timeout time.Duration) (*RelayClient, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported relay address %v", endpoint)
	}
	return &RelayClient{base: *u, http: &http.Client{Timeout: timeout}}, nil
}

func (r *RelayClient) endpoint(path string) string { return r.base.JoinPath(path).String() }

// WsAddress returns the address of the messaging channel.
func (r *RelayClient) WsAddress() url.URL {
	u := r.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return *u.JoinPath("ws")
}

func (r *RelayClient) CreateSession(ctx context.Context) (*api.CreateSessionResponse, error) {
	rq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint("/api/session/create"), nil)
	if err != nil {
		return nil, err
	}
	var out api.CreateSessionResponse
	if err = r.do(rq, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out.SessionId == "" {
		return nil, fmt.Errorf("no session id")
	}
	return &out, nil
}

func (r *RelayClient) DeleteSession(ctx context.Context, code string) error {
	rq, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.endpoint("/api/session/"+url.PathEscape(code)), nil)
	if err != nil {
		return err
	}
	return r.do(rq, http.StatusNoContent, nil)
}

func (r *RelayClient) do(rq *http.Request, status int, out any) error {
	resp, err := r.http.Do(rq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != status {
		var e api.HttpErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("%v: %v", resp.Status, e.Error)
		}
		return fmt.Errorf("%v", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
