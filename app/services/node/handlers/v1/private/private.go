// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/p2p"
	"github.com/ardanlabs/powchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	State   *state.State
	Network *p2p.Network
}

// Peer upgrades the request to the websocket connection a peer uses to
// exchange messages with this node. The call blocks until the peer goes away.
func (h Handlers) Peer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.Log.Infow("peer connected", "traceid", v.TraceID, "peer", r.Header.Get(p2p.HostHeader), "remoteaddr", r.RemoteAddr)

	if err := h.Network.Accept(w, r); err != nil {
		return err
	}

	web.SetStatusCode(ctx, http.StatusSwitchingProtocols)
	h.Log.Infow("peer disconnected", "traceid", v.TraceID, "peer", r.Header.Get(p2p.HostHeader))

	return nil
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status, err := h.State.Status()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
