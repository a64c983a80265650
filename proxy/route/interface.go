package route

import (
	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/conn"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("route")

// Handle is a node in the routing tree. Given a request it decides how to
// dispatch it (to one child, several children, or derived requests) and
// how replies are combined and forwarded.
//
// The tree is built once from validated configuration and is immutable
// afterwards: routing is a pure function of the request, the tree shape and
// a deterministic hash of the key, so any number of in-flight requests may
// share a tree without locking.
type Handle interface {
	// Route dispatches the request. onReply is invoked exactly once with
	// the combined reply; the same exactly-once contract as
	// conn.Connection.SendRequestOne.
	Route(req *common.Message, onReply conn.ReplyFunc)
}

// HandleFunc adapts a function to the Handle interface.
type HandleFunc func(req *common.Message, onReply conn.ReplyFunc)

func (f HandleFunc) Route(req *common.Message, onReply conn.ReplyFunc) {
	f(req, onReply)
}
