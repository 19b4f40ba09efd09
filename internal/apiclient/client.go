package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vpntools/vpnconsole/internal/model"
)

// Client is the typed HTTP client for the console API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client. A nil httpClient gets a 10s-timeout default;
// the SSE stream has its own client without one.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// ServiceStatus fetches the current service status.
func (c *Client) ServiceStatus() (model.ServiceStatus, error) {
	var status model.ServiceStatus
	err := c.getJSON("/api/service_status", &status)
	return status, err
}

// ServicePID fetches the service PID. The second return is false when
// the server cannot determine one, which is not an error.
func (c *Client) ServicePID() (int, bool, error) {
	var body struct {
		PID *int `json:"pid"`
	}
	if err := c.getJSON("/api/service_pid", &body); err != nil {
		return 0, false, err
	}
	if body.PID == nil {
		return 0, false, nil
	}
	return *body.PID, true, nil
}

// ServiceAction runs a lifecycle action and surfaces a reported failure
// as an error.
func (c *Client) ServiceAction(action model.ServiceAction) error {
	var path string
	switch action {
	case model.ActionStart:
		path = "/api/start_server"
	case model.ActionStop:
		path = "/api/stop_server"
	case model.ActionRestart:
		path = "/api/restart_server"
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	var body struct {
		Success bool `json:"success"`
	}
	if err := c.postJSON(path, nil, &body); err != nil {
		return err
	}
	if !body.Success {
		return fmt.Errorf("%s failed on the server", action)
	}
	return nil
}

// ActiveConnections lists currently connected clients.
func (c *Client) ActiveConnections() ([]model.VPNClient, error) {
	var clients []model.VPNClient
	err := c.postJSON("/api/active_connections", nil, &clients)
	return clients, err
}

// AddClient creates a client certificate.
func (c *Client) AddClient(username string) error {
	return c.successCall("/api/add_client", username)
}

// RevokeClient revokes a client certificate.
func (c *Client) RevokeClient(username string) error {
	return c.successCall("/api/revoke_client", username)
}

// DisconnectClient kills a live client session.
func (c *Client) DisconnectClient(username string) error {
	return c.successCall("/api/disconnect_client", username)
}

// BackupConfig triggers a configuration backup and returns the archive
// path.
func (c *Client) BackupConfig() (string, error) {
	var body struct {
		Success    bool   `json:"success"`
		BackupPath string `json:"backup_path"`
	}
	if err := c.postJSON("/api/backup_config", nil, &body); err != nil {
		return "", err
	}
	if !body.Success {
		return "", fmt.Errorf("backup failed on the server")
	}
	return body.BackupPath, nil
}

// RecentLogs fetches filtered history, newest first.
func (c *Client) RecentLogs(limit int, filter model.Filter) ([]model.LogRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if list := filter.TypeList(); list != "" {
		q.Set("type", list)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}

	path := "/api/openvpn/logs"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var logs []model.LogRecord
	err := c.getJSON(path, &logs)
	return logs, err
}

func (c *Client) successCall(path, username string) error {
	var body struct {
		Success bool `json:"success"`
	}
	if err := c.postJSON(path, map[string]string{"username": username}, &body); err != nil {
		return err
	}
	if !body.Success {
		return fmt.Errorf("%s rejected for %q", path, username)
	}
	return nil
}

func (c *Client) getJSON(path string, dst any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(path, resp, dst)
}

func (c *Client) postJSON(path string, payload, dst any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", &body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(path, resp, dst)
}

func decodeResponse(path string, resp *http.Response, dst any) error {
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", path, apiErr.Error)
		}
		return fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
