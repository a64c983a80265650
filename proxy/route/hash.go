package route

import (
	"fmt"
	"hash/fnv"

	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/conn"
)

// hashRoute selects exactly one child per request by a stable hash of the
// logical key, so the same key always lands on the same child.
type hashRoute struct {
	children []Handle
}

// NewHashRoute creates a route handle that partitions the key space over
// the given children.
func NewHashRoute(children []Handle) (Handle, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("hash route: no children provided")
	}
	return &hashRoute{children: children}, nil
}

func (r *hashRoute) Route(req *common.Message, onReply conn.ReplyFunc) {
	index := hashKey(req.Key) % uint64(len(r.children))
	r.children[index].Route(req, onReply)
}

// hashKey computes the stable FNV-1a hash used for all deterministic key
// placement decisions in the routing tree.
func hashKey(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}
