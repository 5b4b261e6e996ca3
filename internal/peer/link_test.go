package peer

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenobeee/mettta-space/internal/negotiation"
)

func newTestActor(self, peer string) (*linkActor, *fakeConn, func() []negotiation.Payload) {
	conn := &fakeConn{}
	var mu sync.Mutex
	var sent []negotiation.Payload
	a := newLinkActor(self, peer, conn, func(p negotiation.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, p)
		return nil
	}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	return a, conn, func() []negotiation.Payload {
		mu.Lock()
		defer mu.Unlock()
		return append([]negotiation.Payload(nil), sent...)
	}
}

func TestLinkActorCloseIsFinal(t *testing.T) {
	a, conn, _ := newTestActor("a", "b")
	go a.run()

	a.close()
	a.close()
	select {
	case <-a.stopped:
	case <-time.After(time.Second):
		t.Fatal("actor did not stop")
	}
	assert.True(t, conn.isClosed())
	assert.False(t, a.post(negotiation.Renegotiate{}))
}

func TestLinkActorAnswerCompletesOffer(t *testing.T) {
	a, conn, sent := newTestActor("a", "b")
	go a.run()
	defer a.close()

	require.True(t, a.post(negotiation.Start{}))
	require.Eventually(t, func() bool { return len(sent()) == 1 }, time.Second, 5*time.Millisecond)

	a.post(negotiation.RemoteAnswer{Description: negotiation.Description{Type: negotiation.SDPAnswer, SDP: "x"}})
	a.post(negotiation.RemoteCandidate{Candidate: negotiation.Candidate{Candidate: "c1"}})
	require.Eventually(t, func() bool { return len(conn.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"createOffer", "setRemote:answer", "candidate:c1"}, conn.snapshot())
}
