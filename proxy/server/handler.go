package server

import (
	"fmt"

	"github.com/keymux/keymux/lib/cache"
	"github.com/keymux/keymux/proxy/common"
)

// NewCacheHandler adapts a cache engine to the server handler contract: one
// decoded request in, one reply out. Unknown message types are answered with
// a remote-error reply rather than dropped, so the client side never waits
// on a missing frame.
func NewCacheHandler(c cache.ICache) HandleFunc {
	return func(req *common.Message) *common.Message {
		switch req.MsgType {
		case common.MsgTGet:
			value, ok := c.Get(req.Key)
			if !ok {
				return common.NewNotFoundReply(req.MsgType)
			}
			return common.NewFoundReply(value)

		case common.MsgTSet:
			c.Set(req.Key, req.Value)
			return common.NewStoredReply(req.MsgType)

		case common.MsgTSetE:
			c.SetE(req.Key, req.Value, req.ExpireIn)
			return common.NewStoredReply(req.MsgType)

		case common.MsgTDelete:
			if !c.Delete(req.Key) {
				return common.NewNotFoundReply(req.MsgType)
			}
			return common.NewDeletedReply()

		case common.MsgTPing:
			return common.NewPongReply()

		default:
			return common.NewRemoteErrorReply(req.MsgType, fmt.Sprintf("unsupported message type %q", req.MsgType))
		}
	}
}
