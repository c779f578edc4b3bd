package mcp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// notifyMinInterval throttles intermediate progress notifications; the final
// update is always sent.
const notifyMinInterval = 120 * time.Millisecond

// generationCounter gives each request's notifier its own generation number.
// The number is kept on the notifier and is not sent in notifications.
var generationCounter atomic.Uint64

// notifier forwards progress to the client when it supplied a progress
// token. Progress values are monotonically increasing.
type notifier struct {
	mu         sync.Mutex
	session    *mcp.ServerSession
	token      any
	generation uint64
	last       time.Time
	progress   float64
}

// newNotifier builds a notifier from a tool request; returns an inert
// notifier when the client provided no token.
func newNotifier(req *mcp.CallToolRequest) *notifier {
	n := &notifier{generation: generationCounter.Add(1)}
	if req == nil || req.Params == nil {
		return n
	}
	if meta := req.Params.Meta; meta != nil {
		if token, ok := meta["progressToken"]; ok {
			n.token = token
			n.session = req.Session
		}
	}
	return n
}

// send delivers a progress notification. Intermediate updates are throttled
// to one per 120 ms; final updates always go out.
func (n *notifier) send(ctx context.Context, message string, final bool) {
	if n.session == nil || n.token == nil {
		return
	}

	n.mu.Lock()
	now := time.Now()
	if !final && now.Sub(n.last) < notifyMinInterval {
		n.mu.Unlock()
		return
	}
	n.last = now
	n.progress++
	progress := n.progress
	n.mu.Unlock()

	_ = n.session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: n.token,
		Progress:      progress,
		Message:       message,
	})
}
