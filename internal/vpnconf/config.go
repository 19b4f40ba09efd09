package vpnconf

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ServerConfig is the editable subset of an OpenVPN server.conf. Field
// names match the JSON the config API exchanges.
type ServerConfig struct {
	CACertPath     string `json:"caCertPath"`
	ServerCertPath string `json:"serverCertPath"`
	ServerKeyPath  string `json:"serverKeyPath"`
	DHParamsPath   string `json:"dhParamsPath"`
	Cipher         string `json:"cipher"`
	AuthDigest     string `json:"authDigest"`
	TLSVersion     string `json:"tlsVersion"`
	AuthType       string `json:"authType"` // cert, cert-pass or pass
	AuthScriptPath string `json:"authScriptPath"`
}

// Defaults returns the fallback configuration used when a directive is
// absent from the file.
func Defaults() ServerConfig {
	return ServerConfig{
		CACertPath:     "/etc/openvpn/server/ca.crt",
		ServerCertPath: "/etc/openvpn/server/server.crt",
		ServerKeyPath:  "/etc/openvpn/server/server.key",
		DHParamsPath:   "/etc/openvpn/server/dh.pem",
		Cipher:         "AES-256-GCM",
		AuthDigest:     "SHA512",
		TLSVersion:     "1.2",
		AuthType:       "cert",
		AuthScriptPath: "/etc/openvpn/auth-user-pass.sh",
	}
}

var directivePatterns = map[string]*regexp.Regexp{
	"ca":                    regexp.MustCompile(`(?m)^ca\s+(\S+)`),
	"cert":                  regexp.MustCompile(`(?m)^cert\s+(\S+)`),
	"key":                   regexp.MustCompile(`(?m)^key\s+(\S+)`),
	"dh":                    regexp.MustCompile(`(?m)^dh\s+(\S+)`),
	"cipher":                regexp.MustCompile(`(?m)^cipher\s+(\S+)`),
	"auth":                  regexp.MustCompile(`(?m)^auth\s+(\S+)`),
	"tls-version-min":       regexp.MustCompile(`(?m)^tls-version-min\s+(\S+)`),
	"auth-user-pass-verify": regexp.MustCompile(`(?m)^auth-user-pass-verify\s+(\S+)`),
}

// Parse reads the server config file, falling back to defaults for any
// directive it cannot find. A missing file yields pure defaults.
func Parse(path string) (ServerConfig, error) {
	conf := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		return conf, err
	}
	content := string(data)

	grab := func(directive string, dst *string) {
		if m := directivePatterns[directive].FindStringSubmatch(content); m != nil {
			*dst = m[1]
		}
	}
	grab("ca", &conf.CACertPath)
	grab("cert", &conf.ServerCertPath)
	grab("key", &conf.ServerKeyPath)
	grab("dh", &conf.DHParamsPath)
	grab("cipher", &conf.Cipher)
	grab("auth", &conf.AuthDigest)
	grab("auth-user-pass-verify", &conf.AuthScriptPath)

	if m := directivePatterns["tls-version-min"].FindStringSubmatch(content); m != nil {
		conf.TLSVersion = strings.TrimPrefix(m[1], "TLSv")
	}

	switch {
	case !strings.Contains(content, "auth-user-pass-verify"):
		conf.AuthType = "cert"
	case strings.Contains(content, "client-cert-not-required"):
		conf.AuthType = "pass"
	default:
		conf.AuthType = "cert-pass"
	}

	return conf, nil
}

// Validate checks that every referenced certificate and key file exists.
func (c ServerConfig) Validate() error {
	for _, p := range []string{c.CACertPath, c.ServerCertPath, c.ServerKeyPath, c.DHParamsPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("file not found: %s", p)
		}
	}
	return nil
}

// Write rewrites the managed directives in place, preserving everything
// else in the file. The previous content is saved next to it as a .bak
// and restored if the write fails.
func Write(path string, conf ServerConfig) error {
	original, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := os.WriteFile(path+".bak", original, 0600); err != nil {
		return fmt.Errorf("backup config: %w", err)
	}

	content := string(original)
	content = setDirective(content, "ca", conf.CACertPath)
	content = setDirective(content, "cert", conf.ServerCertPath)
	content = setDirective(content, "key", conf.ServerKeyPath)
	content = setDirective(content, "dh", conf.DHParamsPath)
	content = setDirective(content, "cipher", conf.Cipher)
	content = setDirective(content, "auth", conf.AuthDigest)
	content = setDirective(content, "tls-version-min", "TLSv"+conf.TLSVersion)

	// Auth mode lines are removed and re-added to match the selection.
	content = regexp.MustCompile(`(?m)^auth-user-pass-verify.*\n?`).ReplaceAllString(content, "")
	content = regexp.MustCompile(`(?m)^client-cert-not-required\n?`).ReplaceAllString(content, "")
	if conf.AuthType == "cert-pass" || conf.AuthType == "pass" {
		content = strings.TrimRight(content, "\n") +
			fmt.Sprintf("\nauth-user-pass-verify %s script\n", conf.AuthScriptPath)
		if conf.AuthType == "pass" {
			content += "client-cert-not-required\n"
		}
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		os.WriteFile(path, original, 0600)
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDirective(content, directive, value string) string {
	pattern := regexp.MustCompile(`(?m)^` + directive + `\s+\S+`)
	replacement := directive + " " + value
	if pattern.MatchString(content) {
		return pattern.ReplaceAllString(content, replacement)
	}
	return strings.TrimRight(content, "\n") + "\n" + replacement + "\n"
}
