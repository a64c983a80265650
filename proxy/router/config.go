package router

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/keymux/keymux/proxy/common"
)

// poolRoutePrefix selects a named pool when a route is given as a plain
// string, e.g. "Pool|A".
const poolRoutePrefix = "Pool|"

// PoolConfig describes one named pool of interchangeable backend servers.
type PoolConfig struct {
	// Servers lists the backend endpoints as host:port strings
	Servers []string `json:"servers"`

	// Protocol names the wire codec spoken to every server of the pool
	Protocol string `json:"protocol"`

	// TimeoutSecond bounds each request to a server of this pool; zero
	// selects the default
	TimeoutSecond int `json:"timeout,omitempty"`
}

// RouterConfig is the complete routing configuration of one internal
// connection: the named pools and the route tree that dispatches onto them.
// The route tree is kept raw here and materialized by buildRoute, which also
// performs the per-node validation.
type RouterConfig struct {
	Pools map[string]PoolConfig `json:"pools"`
	Route json.RawMessage       `json:"route"`
}

// ParseRouterConfig parses and validates a routing configuration. Everything
// that can be rejected statically is rejected here, so a successfully built
// internal connection never fails on malformed configuration at request
// time.
func ParseRouterConfig(data []byte) (*RouterConfig, error) {
	cfg := &RouterConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("router config: %v", err)
	}

	if len(cfg.Pools) == 0 {
		return nil, fmt.Errorf("router config: no pools defined")
	}
	for name, pool := range cfg.Pools {
		if len(pool.Servers) == 0 {
			return nil, fmt.Errorf("router config: pool %q has no servers", name)
		}
		for _, server := range pool.Servers {
			if _, _, err := net.SplitHostPort(server); err != nil {
				return nil, fmt.Errorf("router config: pool %q: invalid server address %q", name, server)
			}
		}
		if _, err := common.ParseProtocol(pool.Protocol); err != nil {
			return nil, fmt.Errorf("router config: pool %q: %v", name, err)
		}
	}

	if len(cfg.Route) == 0 {
		return nil, fmt.Errorf("router config: no route defined")
	}

	return cfg, nil
}

// serverOptions converts one server address of a pool into connection
// options. The address was validated by ParseRouterConfig.
func (p PoolConfig) serverOptions(server string) (common.ConnectionOptions, error) {
	host, portStr, err := net.SplitHostPort(server)
	if err != nil {
		return common.ConnectionOptions{}, fmt.Errorf("invalid server address %q", server)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return common.ConnectionOptions{}, fmt.Errorf("invalid port in server address %q", server)
	}
	protocol, err := common.ParseProtocol(p.Protocol)
	if err != nil {
		return common.ConnectionOptions{}, err
	}
	return common.ConnectionOptions{
		Host:          host,
		Port:          port,
		Protocol:      protocol,
		TimeoutSecond: p.TimeoutSecond,
	}, nil
}

// poolNameFromRoute extracts the pool name from a "Pool|NAME" route string.
func poolNameFromRoute(route string) (string, bool) {
	if !strings.HasPrefix(route, poolRoutePrefix) {
		return "", false
	}
	return strings.TrimPrefix(route, poolRoutePrefix), true
}
