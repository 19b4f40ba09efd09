package vpn

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vpntools/vpnconsole/internal/model"
)

var clientListHeader = "Common Name,Real Address,Bytes Received,Bytes Sent"

var statusFileClientSection = regexp.MustCompile(`(?s)OpenVPN CLIENT LIST.*?\n(.*?)ROUTING TABLE`)

// ActiveClients lists currently connected clients. The management
// interface is the primary source; the status log file is the fallback.
func (m *Manager) ActiveClients() ([]model.VPNClient, error) {
	lines, err := m.mgmtCommand("status")
	if err == nil {
		if clients := parseClientLines(lines); len(clients) > 0 {
			return clients, nil
		}
	} else {
		log.WithError(err).Debug("vpn: management status unavailable, trying status file")
	}

	if m.conf.StatusFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(m.conf.StatusFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	match := statusFileClientSection.FindStringSubmatch(string(data))
	if match == nil {
		return nil, nil
	}
	return parseClientLines(strings.Split(match[1], "\n")), nil
}

// parseClientLines extracts client entries from the OpenVPN status
// format. Only CSV lines after the column header count; sessions still
// negotiating show up as UNDEF and are skipped.
func parseClientLines(lines []string) []model.VPNClient {
	var clients []model.VPNClient
	inSection := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, clientListHeader):
			inSection = true
			continue
		case line == "ROUTING TABLE" || line == "GLOBAL STATS":
			return clients
		}
		if !inSection || line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			continue
		}
		name := parts[0]
		if name == "UNDEF" || name == "" {
			continue
		}
		recv, _ := strconv.ParseInt(parts[2], 10, 64)
		sent, _ := strconv.ParseInt(parts[3], 10, 64)
		client := model.VPNClient{
			CommonName:    name,
			RealAddress:   strings.Split(parts[1], ":")[0],
			BytesReceived: recv,
			BytesSent:     sent,
		}
		if len(parts) >= 5 {
			client.ConnectedSince = parts[4]
		}
		clients = append(clients, client)
	}
	return clients
}

// AddClient generates a client certificate with easyrsa and refuses
// duplicate names.
func (m *Manager) AddClient(username string) error {
	if username == "" {
		return fmt.Errorf("empty username")
	}

	easyRSADir := filepath.Join(m.conf.ConfigDir, "easy-rsa")
	issued := filepath.Join(easyRSADir, "pki", "issued", username+".crt")
	if _, err := os.Stat(issued); err == nil {
		return fmt.Errorf("client %q already exists", username)
	}

	ctx, cancel := m.cmdCtx()
	defer cancel()

	_, stderr, code := m.runner.Run(ctx, filepath.Join(easyRSADir, "easyrsa"),
		"build-client-full", username, "nopass")
	if code != 0 {
		return fmt.Errorf("easyrsa build-client-full %s: %s", username, strings.TrimSpace(stderr))
	}
	log.WithField("username", username).Info("vpn: client certificate created")
	return nil
}

// RevokeClient revokes a client certificate, regenerates the CRL and
// installs it. A connected session is killed first, best effort.
func (m *Manager) RevokeClient(username string) error {
	if username == "" {
		return fmt.Errorf("empty username")
	}

	if err := m.DisconnectClient(username); err != nil {
		log.WithError(err).WithField("username", username).
			Debug("vpn: disconnect before revoke failed")
	}

	easyRSADir := filepath.Join(m.conf.ConfigDir, "easy-rsa")
	easyrsa := filepath.Join(easyRSADir, "easyrsa")

	ctx, cancel := m.cmdCtx()
	defer cancel()

	if _, stderr, code := m.runner.Run(ctx, easyrsa, "revoke", username); code != 0 {
		return fmt.Errorf("easyrsa revoke %s: %s", username, strings.TrimSpace(stderr))
	}
	if _, stderr, code := m.runner.Run(ctx, easyrsa, "gen-crl"); code != 0 {
		return fmt.Errorf("easyrsa gen-crl: %s", strings.TrimSpace(stderr))
	}

	crlSrc := filepath.Join(easyRSADir, "pki", "crl.pem")
	crlDst := filepath.Join(m.conf.ConfigDir, "crl.pem")
	if _, stderr, code := m.runner.Run(ctx, "cp", crlSrc, crlDst); code != 0 {
		return fmt.Errorf("install crl: %s", strings.TrimSpace(stderr))
	}

	log.WithField("username", username).Info("vpn: client revoked")
	return nil
}
