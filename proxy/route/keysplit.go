package route

import (
	"fmt"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/keymux/keymux/proxy/common"
	"github.com/keymux/keymux/proxy/conn"
)

const (
	// MinReplicaCount and MaxReplicaCount bound the replica count accepted
	// at construction time.
	MinReplicaCount = 2
	MaxReplicaCount = 1000

	// ReplicaSeparator is appended to the logical key together with the
	// decimal replica index to form a replica key. It must not occur in
	// legitimate key content of the same deployment.
	ReplicaSeparator = "|#|"

	// defaultJoinTimeout bounds the all-sync completion barrier. Every
	// derived request already carries its own connection timeout, so the
	// barrier only fires if a destination violates the exactly-once reply
	// contract.
	defaultJoinTimeout = 30 * time.Second
)

var (
	splitReplicaErrors   = metrics.NewCounter("keymux_keysplit_replica_errors_total")
	splitBarrierTimeouts = metrics.NewCounter("keymux_keysplit_barrier_timeouts_total")
)

// keySplitRoute replicates a logical key over a fixed number of replica
// keys. Reads go to one deterministically selected replica; mutations fan
// out to all replicas, either fully synchronously or primary-only
// synchronously. All state is set at construction and never mutated.
type keySplitRoute struct {
	destination Handle
	replicas    int
	allSync     bool
	joinTimeout time.Duration
}

// NewKeySplitRoute creates a replica-splitting route. destination receives
// every derived request; replicas must be in [2, 1000]. With allSync the
// caller's reply is withheld until every replica write has completed; the
// reply itself always mirrors replica 0, the primary.
func NewKeySplitRoute(destination Handle, replicas int, allSync bool) (Handle, error) {
	if destination == nil {
		return nil, fmt.Errorf("keysplit route: no destination route")
	}
	if replicas < MinReplicaCount {
		return nil, fmt.Errorf("keysplit route: there should at least be %d replicas", MinReplicaCount)
	}
	if replicas > MaxReplicaCount {
		return nil, fmt.Errorf("keysplit route: there should be no more than %d replicas", MaxReplicaCount)
	}
	return &keySplitRoute{
		destination: destination,
		replicas:    replicas,
		allSync:     allSync,
		joinTimeout: defaultJoinTimeout,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see route.Handle)
// --------------------------------------------------------------------------

func (r *keySplitRoute) Route(req *common.Message, onReply conn.ReplyFunc) {
	if !req.Mutating() {
		r.routeRead(req, onReply)
		return
	}
	if r.allSync {
		r.routeWriteAllSync(req, onReply)
		return
	}
	r.routeWritePrimary(req, onReply)
}

// --------------------------------------------------------------------------
// Dispatch Policies
// --------------------------------------------------------------------------

// routeRead dispatches a read to the one replica the key hashes to. The
// selection is a pure function of the key, so repeated reads observe a
// consistent replica.
func (r *keySplitRoute) routeRead(req *common.Message, onReply conn.ReplyFunc) {
	derived := req.WithKey(r.replicaKey(req.Key, r.replicaIndex(req.Key)))
	r.destination.Route(derived, func(_ *common.Message, reply *common.Message) {
		onReply(req, reply)
	})
}

// routeWriteAllSync dispatches all replica writes concurrently and releases
// the combined reply only after every one of them has completed. The
// combined reply is the primary's; non-primary failures are counted but not
// surfaced.
func (r *keySplitRoute) routeWriteAllSync(req *common.Message, onReply conn.ReplyFunc) {
	primaryCh := make(chan *common.Message, 1)
	doneCh := make(chan struct{}, r.replicas)

	for i := 0; i < r.replicas; i++ {
		index := i
		derived := req.WithKey(r.replicaKey(req.Key, index))
		r.destination.Route(derived, func(_ *common.Message, reply *common.Message) {
			if index == 0 {
				primaryCh <- reply
			} else if reply.Result.Error() {
				splitReplicaErrors.Inc()
				Logger.Warningf("replica %d write for key %q failed: %s", index, req.Key, reply.Err)
			}
			doneCh <- struct{}{}
		})
	}

	// Join barrier over the N independent completions. Each derived request
	// is bounded by its connection timeout, so the extra bound here only
	// guards against a destination that never calls back.
	go func() {
		deadline := time.NewTimer(r.joinTimeout)
		defer deadline.Stop()

		for completed := 0; completed < r.replicas; {
			select {
			case <-doneCh:
				completed++
			case <-deadline.C:
				splitBarrierTimeouts.Inc()
				Logger.Errorf("replica write barrier for key %q timed out after %s", req.Key, r.joinTimeout)
				r.releasePrimary(req, primaryCh, onReply)
				return
			}
		}
		r.releasePrimary(req, primaryCh, onReply)
	}()
}

// routeWritePrimary awaits only the primary replica; the remaining writes
// are dispatched best-effort and their outcomes never reach the caller.
func (r *keySplitRoute) routeWritePrimary(req *common.Message, onReply conn.ReplyFunc) {
	primary := req.WithKey(r.replicaKey(req.Key, 0))
	r.destination.Route(primary, func(_ *common.Message, reply *common.Message) {
		onReply(req, reply)
	})

	for i := 1; i < r.replicas; i++ {
		index := i
		derived := req.WithKey(r.replicaKey(req.Key, index))
		r.destination.Route(derived, func(_ *common.Message, reply *common.Message) {
			if reply.Result.Error() {
				splitReplicaErrors.Inc()
				Logger.Warningf("replica %d write for key %q failed: %s", index, req.Key, reply.Err)
			}
		})
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// releasePrimary hands the primary's reply to the caller, or a local error
// if the primary never completed within the barrier bound.
func (r *keySplitRoute) releasePrimary(req *common.Message, primaryCh chan *common.Message, onReply conn.ReplyFunc) {
	select {
	case reply := <-primaryCh:
		onReply(req, reply)
	default:
		onReply(req, common.NewLocalErrorReply(req.MsgType, fmt.Errorf("primary replica reply missing for key %q", req.Key)))
	}
}

// replicaIndex deterministically maps a logical key to the replica that
// serves its reads.
func (r *keySplitRoute) replicaIndex(key string) int {
	return int(hashKey(key) % uint64(r.replicas))
}

// replicaKey derives the physical key for one replica.
func (r *keySplitRoute) replicaKey(key string, index int) string {
	return key + ReplicaSeparator + strconv.Itoa(index)
}
