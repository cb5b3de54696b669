// Package network bridges framed peer bytes and the consensus worker's
// event queue: inbound bytes become HandleMessages events, outbound
// messages from the worker are encoded and queued per peer with bounded
// buffers. The subscribe-goroutine-stop-on-close shape generalizes the
// chain-head-subscription pattern used throughout autonity's eth/protocols
// tree, applied here to worker output instead of chain-head events.
package network

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/clearmatics/tendercore/internal/log"
	"github.com/clearmatics/tendercore/tendermint/core"
	"github.com/clearmatics/tendercore/tendermint/message"
)

// peerQueueCap bounds each peer's outbound queue; reconnection drops
// whatever was still queued rather than growing unbounded (spec.md §4.F
// "lossy, does not persist").
const peerQueueCap = 256

// Peer is the narrow sink the extension writes framed bytes to; the real
// transport (libp2p stream, devp2p peer, websocket) implements this.
type Peer interface {
	ID() string
	Send(frame []byte) error
}

// Extension owns per-peer session state and forwards decoded peer
// messages into the worker (spec.md §4.F).
type Extension struct {
	log    log.Logger
	worker *core.Worker

	mu    sync.Mutex
	peers map[string]*peerSession
}

type peerSession struct {
	peer  Peer
	queue chan []byte
	done  chan struct{}
}

// New returns an Extension forwarding decoded messages to worker.
func New(worker *core.Worker, logger log.Logger) *Extension {
	return &Extension{worker: worker, log: logger, peers: make(map[string]*peerSession)}
}

// AddPeer registers p and starts its outbound drain goroutine.
func (e *Extension) AddPeer(p Peer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.peers[p.ID()]; ok {
		return
	}
	sess := &peerSession{peer: p, queue: make(chan []byte, peerQueueCap), done: make(chan struct{})}
	e.peers[p.ID()] = sess
	go e.drain(sess)
}

// RemovePeer drops a disconnected peer's queue without attempting to
// persist or replay it (spec.md §4.F "reconnection is lossy").
func (e *Extension) RemovePeer(id string) {
	e.mu.Lock()
	sess, ok := e.peers[id]
	delete(e.peers, id)
	e.mu.Unlock()
	if ok {
		close(sess.done)
	}
}

func (e *Extension) drain(sess *peerSession) {
	for {
		select {
		case <-sess.done:
			return
		case frame := <-sess.queue:
			if err := sess.peer.Send(frame); err != nil {
				e.log.Warn("failed to send frame to peer", "peer", sess.peer.ID(), "err", err)
			}
		}
	}
}

// HandleInbound forwards framed bytes received from peerID to the worker,
// undecoded, as a HandleMessages event; the worker decodes each frame into
// a Proposal or Vote.
func (e *Extension) HandleInbound(peerID string, frames [][]byte) {
	e.worker.Submit(core.Event{Kind: core.EvHandleMessages, RawMessages: frames})
}

// Gossip encodes msg and enqueues it on every connected peer except
// exclude, dropping it for any peer whose queue is already full rather
// than blocking the worker's broadcast callback.
func (e *Extension) Gossip(msg interface{}, exclude common.Address, peerOf func(common.Address) string) {
	frame, err := rlp.EncodeToBytes(msg)
	if err != nil {
		e.log.Error("failed to encode outbound message", "err", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, sess := range e.peers {
		if peerOf != nil && id == peerOf(exclude) {
			continue
		}
		select {
		case sess.queue <- frame:
		default:
			e.log.Warn("dropping outbound frame, peer queue full", "peer", id)
		}
	}
}

// Broadcast is the core.Config.Broadcast callback: it gossips a step's
// payload (a *message.Proposal or *message.Vote) to every connected peer.
func (e *Extension) Broadcast(step message.Step, height *big.Int, round int64, payload interface{}) {
	e.Gossip(payload, common.Address{}, nil)
}
