package router

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/conn"
	"github.com/keymux/keymux/proxy/route"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("router")

// internalConnection carries an entire routing tree behind the plain
// connection interface: requests submitted to it traverse pools and route
// handles before reaching the network. To a caller it is indistinguishable
// from a direct connection, which is what allows routing setups to nest.
type internalConnection struct {
	name  string
	pools map[string]conn.Connection
	root  route.Handle
}

// NewInternalConnection materializes a validated routing configuration into
// a live connection: one pooled connection per named pool and the route tree
// on top. All validation errors of the tree are reported here, never at
// request time.
func NewInternalConnection(name string, cfg *RouterConfig) (conn.Connection, error) {
	pools := make(map[string]conn.Connection, len(cfg.Pools))

	for poolName, poolCfg := range cfg.Pools {
		members := make([]conn.Connection, 0, len(poolCfg.Servers))
		for _, server := range poolCfg.Servers {
			opts, err := poolCfg.serverOptions(server)
			if err != nil {
				closeAll(pools, members)
				return nil, fmt.Errorf("router %q: pool %q: %v", name, poolName, err)
			}
			member, err := conn.NewExternalConnection(opts)
			if err != nil {
				closeAll(pools, members)
				return nil, fmt.Errorf("router %q: pool %q: %v", name, poolName, err)
			}
			members = append(members, member)
		}
		pool, err := conn.NewPooledConnection(members)
		if err != nil {
			closeAll(pools, members)
			return nil, fmt.Errorf("router %q: pool %q: %v", name, poolName, err)
		}
		pools[poolName] = pool
	}

	root, err := buildRoute(cfg.Route, pools)
	if err != nil {
		closeAll(pools, nil)
		return nil, fmt.Errorf("router %q: %v", name, err)
	}

	Logger.Infof("router %q ready with %d pool(s)", name, len(pools))
	return &internalConnection{name: name, pools: pools, root: root}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see conn.Connection)
// --------------------------------------------------------------------------

func (c *internalConnection) SendRequestOne(req *common.Message, onReply conn.ReplyFunc) {
	c.root.Route(req, onReply)
}

// HealthCheck reports true only if every pool of the routing tree is
// reachable.
func (c *internalConnection) HealthCheck() bool {
	for name, pool := range c.pools {
		if !pool.HealthCheck() {
			Logger.Warningf("router %q: pool %q is unreachable", c.name, name)
			return false
		}
	}
	return true
}

func (c *internalConnection) Close() error {
	var errs []error
	for _, pool := range c.pools {
		if err := pool.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Route Tree Construction
// --------------------------------------------------------------------------

// routeNode is the generic JSON shape of a route tree node. Fields are kept
// raw so that each node type can report precise validation errors for its
// own fields.
type routeNode struct {
	Type        string          `json:"type"`
	Destination json.RawMessage `json:"destination"`
	Replicas    json.RawMessage `json:"replicas"`
	AllSync     json.RawMessage `json:"all_sync"`
	Children    json.RawMessage `json:"children"`
}

// buildRoute recursively materializes one raw route tree node into a route
// handle.
func buildRoute(raw json.RawMessage, pools map[string]conn.Connection) (route.Handle, error) {
	// A plain string selects a pool directly
	var routeStr string
	if err := json.Unmarshal(raw, &routeStr); err == nil {
		poolName, ok := poolNameFromRoute(routeStr)
		if !ok {
			return nil, fmt.Errorf("route %q is not of the form %q", routeStr, poolRoutePrefix+"NAME")
		}
		pool, ok := pools[poolName]
		if !ok {
			return nil, fmt.Errorf("route references unknown pool %q", poolName)
		}
		return route.NewDestinationRoute(pool)
	}

	node := routeNode{}
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("invalid route node: %v", err)
	}

	switch node.Type {
	case "keysplit":
		return buildKeySplitRoute(node, pools)
	case "hash":
		return buildHashRoute(node, pools)
	case "":
		return nil, fmt.Errorf("route node has no type")
	default:
		return nil, fmt.Errorf("unknown route type %q", node.Type)
	}
}

func buildKeySplitRoute(node routeNode, pools map[string]conn.Connection) (route.Handle, error) {
	if len(node.Destination) == 0 {
		return nil, fmt.Errorf("keysplit route: no destination route")
	}
	destination, err := buildRoute(node.Destination, pools)
	if err != nil {
		return nil, err
	}

	if len(node.Replicas) == 0 {
		return nil, fmt.Errorf("keysplit route: replicas missing")
	}
	var replicas int
	if err := json.Unmarshal(node.Replicas, &replicas); err != nil {
		return nil, fmt.Errorf("keysplit route: replicas is not an integer")
	}

	if len(node.AllSync) == 0 {
		return nil, fmt.Errorf("keysplit route: all_sync missing")
	}
	var allSync bool
	if err := json.Unmarshal(node.AllSync, &allSync); err != nil {
		return nil, fmt.Errorf("keysplit route: all_sync is not a boolean")
	}

	return route.NewKeySplitRoute(destination, replicas, allSync)
}

func buildHashRoute(node routeNode, pools map[string]conn.Connection) (route.Handle, error) {
	if len(node.Children) == 0 {
		return nil, fmt.Errorf("hash route: no children provided")
	}
	var rawChildren []json.RawMessage
	if err := json.Unmarshal(node.Children, &rawChildren); err != nil {
		return nil, fmt.Errorf("hash route: children is not a list")
	}

	children := make([]route.Handle, 0, len(rawChildren))
	for _, rawChild := range rawChildren {
		child, err := buildRoute(rawChild, pools)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return route.NewHashRoute(children)
}

// closeAll tears down partially constructed pools and members after a
// construction failure.
func closeAll(pools map[string]conn.Connection, members []conn.Connection) {
	for _, pool := range pools {
		pool.Close()
	}
	for _, member := range members {
		member.Close()
	}
}
