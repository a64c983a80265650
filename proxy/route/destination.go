package route

import (
	"fmt"

	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/conn"
)

// destinationRoute forwards every request unchanged to a single connection.
// It is the leaf of every routing tree.
type destinationRoute struct {
	destination conn.Connection
}

// NewDestinationRoute creates a route handle that forwards to the given
// connection.
func NewDestinationRoute(destination conn.Connection) (Handle, error) {
	if destination == nil {
		return nil, fmt.Errorf("destination route: no connection provided")
	}
	return &destinationRoute{destination: destination}, nil
}

func (r *destinationRoute) Route(req *common.Message, onReply conn.ReplyFunc) {
	r.destination.SendRequestOne(req, onReply)
}
