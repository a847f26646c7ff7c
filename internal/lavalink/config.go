package lavalink

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/glizzus/jukebox/internal/config"
)

const (
	DefaultPort     = 2333
	DefaultPassword = "youshallnotpass"
	defaultNodeName = "lavalink-node"
)

type NodeConfig struct {
	Name     string
	Host     string
	Port     int
	Password string
	Secure   bool
}

func (c NodeConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c NodeConfig) WebsocketURL() string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/v4/websocket", scheme, c.Address())
}

func (c NodeConfig) RESTURL(path string) string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, c.Address(), path)
}

// NormalizeURL parses a node address given as ws, wss, http, https or without
// a scheme. A missing port defaults to 443 for secure schemes and 80 otherwise.
// forceSecure marks the node secure regardless of the scheme.
func NormalizeURL(raw string, forceSecure bool) (host string, port int, secure bool, err error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", 0, false, fmt.Errorf("empty node url")
	}
	lower := strings.ToLower(u)
	hasScheme := false
	for _, scheme := range []string{"ws://", "wss://", "http://", "https://"} {
		if strings.HasPrefix(lower, scheme) {
			hasScheme = true
			break
		}
	}
	if !hasScheme {
		if forceSecure {
			u = "wss://" + u
		} else {
			u = "ws://" + u
		}
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid node url %q: %w", raw, err)
	}
	host = parsed.Hostname()
	if host == "" {
		return "", 0, false, fmt.Errorf("invalid node url %q: missing host", raw)
	}
	schemeSecure := parsed.Scheme == "wss" || parsed.Scheme == "https"
	secure = forceSecure || schemeSecure

	if p := parsed.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid port in node url %q: %w", raw, err)
		}
	} else if schemeSecure {
		port = 443
	} else {
		port = 80
	}
	return host, port, secure, nil
}

type jsonNode struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Host     string `json:"host"`
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
	Auth     string `json:"auth"`
	Password string `json:"password"`
	Secure   *bool  `json:"secure"`
}

// ParseNodes builds the node list. LAVALINK_NODES (a JSON array) takes
// precedence, then LAVALINK_URL, then LAVALINK_HOST with LAVALINK_PORT.
// An empty list means no node is configured.
func ParseNodes(cfg *config.LavalinkConfig) ([]NodeConfig, error) {
	password := trimQuotes(cfg.Password)
	if password == "" {
		password = DefaultPassword
	}

	if raw := strings.TrimSpace(cfg.Nodes); strings.HasPrefix(raw, "[") {
		var nodes []jsonNode
		if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
			return nil, fmt.Errorf("failed to parse LAVALINK_NODES: %w", err)
		}
		out := make([]NodeConfig, 0, len(nodes))
		for i, n := range nodes {
			addr := n.URL
			if addr == "" {
				host := n.Hostname
				if host == "" {
					host = n.Host
				}
				port := n.Port
				if port == 0 {
					port = DefaultPort
				}
				addr = net.JoinHostPort(host, strconv.Itoa(port))
			}
			forceSecure := n.Secure != nil && *n.Secure
			host, port, secure, err := NormalizeURL(addr, forceSecure)
			if err != nil {
				return nil, fmt.Errorf("LAVALINK_NODES[%d]: %w", i, err)
			}
			if n.Secure != nil {
				secure = *n.Secure
			}
			name := n.Name
			if name == "" {
				name = defaultNodeName
			}
			auth := trimQuotes(n.Auth)
			if auth == "" {
				auth = trimQuotes(n.Password)
			}
			if auth == "" {
				auth = DefaultPassword
			}
			out = append(out, NodeConfig{Name: name, Host: host, Port: port, Password: auth, Secure: secure})
		}
		return out, nil
	}

	if cfg.URL != "" {
		host, port, secure, err := NormalizeURL(cfg.URL, cfg.Secure)
		if err != nil {
			return nil, fmt.Errorf("failed to parse LAVALINK_URL: %w", err)
		}
		return []NodeConfig{{Name: defaultNodeName, Host: host, Port: port, Password: password, Secure: secure}}, nil
	}

	if cfg.Host == "" {
		return nil, nil
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	return []NodeConfig{{Name: defaultNodeName, Host: cfg.Host, Port: port, Password: password, Secure: cfg.Secure}}, nil
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimPrefix(s, `'`)
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSuffix(s, `'`)
	return s
}
