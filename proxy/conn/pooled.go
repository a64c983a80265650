package conn

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/keymux/keymux/proxy/common"
)

// pooledConnection load-balances over a fixed set of interchangeable member
// connections. The member set is immutable after construction; the pool owns
// its members and destroys them on Close. A single request is always served
// by exactly one member.
type pooledConnection struct {
	members  []Connection
	nextConn atomic.Uint64 // Atomic cursor for round robin
}

// NewPooledConnection creates a connection pool from the given members. The
// members may be external, internal or a mix, as long as they address the
// same logical target set.
func NewPooledConnection(members []Connection) (Connection, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("pooled connection: no members provided")
	}
	return &pooledConnection{members: members}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see conn.Connection)
// --------------------------------------------------------------------------

func (p *pooledConnection) SendRequestOne(req *common.Message, onReply ReplyFunc) {
	p.pick().SendRequestOne(req, onReply)
}

// HealthCheck reports true if at least one member is reachable.
func (p *pooledConnection) HealthCheck() bool {
	for _, member := range p.members {
		if member.HealthCheck() {
			return true
		}
	}
	return false
}

func (p *pooledConnection) Close() error {
	var errs []error
	for _, member := range p.members {
		if err := member.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// pick selects the next member via round robin. The cursor is the only
// mutable state of the pool and is advanced atomically, so concurrent
// requests never serialize on each other.
func (p *pooledConnection) pick() Connection {
	if len(p.members) == 1 {
		// optimize for single member
		return p.members[0]
	}
	index := p.nextConn.Add(1) % uint64(len(p.members))
	return p.members[index]
}
