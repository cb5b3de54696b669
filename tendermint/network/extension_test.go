package network

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clearmatics/tendercore/internal/log"
)

type recordingPeer struct {
	id   string
	mu   sync.Mutex
	sent [][]byte
}

func (p *recordingPeer) ID() string { return p.id }
func (p *recordingPeer) Send(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, frame)
	return nil
}
func (p *recordingPeer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func TestGossipDeliversToConnectedPeers(t *testing.T) {
	ext := New(nil, log.New())
	peer := &recordingPeer{id: "p1"}
	ext.AddPeer(peer)

	ext.Gossip([]byte("hello"), [20]byte{}, nil)

	require.Eventually(t, func() bool { return peer.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRemovePeerStopsDelivery(t *testing.T) {
	ext := New(nil, log.New())
	peer := &recordingPeer{id: "p1"}
	ext.AddPeer(peer)
	ext.RemovePeer("p1")

	ext.Gossip([]byte("hello"), [20]byte{}, nil)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, peer.count())
}
