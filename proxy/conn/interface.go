package conn

import (
	"github.com/keymux/keymux/proxy/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("conn")

// ReplyFunc is the callback through which a reply crosses back out of the
// proxy core. It receives the originally submitted request and the reply.
type ReplyFunc func(req *common.Message, reply *common.Message)

// Connection is the common capability of all connection kinds: send one
// request, get one reply asynchronously.
type Connection interface {
	// SendRequestOne submits exactly one request asynchronously. onReply is
	// invoked exactly once, either with the backend's reply or with a
	// local-error reply (ResLocalError); a failure never crosses this
	// boundary as a panic or an out-of-band error value.
	SendRequestOne(req *common.Message, onReply ReplyFunc)

	// HealthCheck determines reachability via a zero-payload ping round
	// trip. It does not mutate cache state and is not part of the normal
	// request dispatch path.
	HealthCheck() bool

	// Close releases the underlying resources. Requests still in flight
	// complete with a local-error reply; no callback fires after Close
	// returns with state that has been released.
	Close() error
}

// SendRequestSync submits a request and blocks until its reply arrives.
// Helper for callers without an asynchronous dispatch loop (CLI commands,
// the proxy server handler, tests).
func SendRequestSync(c Connection, req *common.Message) *common.Message {
	replyCh := make(chan *common.Message, 1)
	c.SendRequestOne(req, func(_ *common.Message, reply *common.Message) {
		replyCh <- reply
	})
	return <-replyCh
}
