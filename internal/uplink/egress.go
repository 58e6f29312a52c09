package uplink

import (
	"context"
	"errors"

	"github.com/park285/cheese-fics/pkg/ficsdto"
	"go.uber.org/zap"
)

// Egress forwards events to the UI over HTTP or the hub link.
type Egress interface {
	Publish(ctx context.Context, ev ficsdto.Event) error
}

type transportMode string

const (
	transportHTTP transportMode = "http"
	transportWS   transportMode = "ws"
	transportAuto transportMode = "auto"
)

// NewEgress picks the transport by mode. In auto mode the hub is used while
// connected and a failed hub write falls back to HTTP once.
func NewEgress(mode string, dryrun bool, c *Client, hub Hub, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	ws := &wsEgress{hub: hub, dryrun: dryrun, logger: logger}
	h := &httpEgress{c: c, dryrun: dryrun, logger: logger}
	switch transportMode(mode) {
	case transportWS:
		return ws
	case transportAuto:
		return &autoEgress{ws: ws, http: h, logger: logger}
	default:
		return h
	}
}

type httpEgress struct {
	c      *Client
	dryrun bool
	logger *zap.Logger
}

func (h *httpEgress) Publish(ctx context.Context, ev ficsdto.Event) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	if h.dryrun {
		h.logger.Info("http_egress_dryrun", zap.String("type", ev.Type))
		return nil
	}
	return h.c.PostEvent(ctx, ev)
}

type wsEgress struct {
	hub    Hub
	dryrun bool
	logger *zap.Logger
}

func (w *wsEgress) connected() bool {
	return w != nil && w.hub != nil && w.hub.State() == StateConnected
}

func (w *wsEgress) Publish(ctx context.Context, ev ficsdto.Event) error {
	if w == nil || w.hub == nil {
		return errors.New("ws egress not available")
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", ev.Type))
		return nil
	}
	return w.hub.Send(ctx, ev)
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) Publish(ctx context.Context, ev ficsdto.Event) error {
	if a.ws.connected() {
		err := a.ws.Publish(ctx, ev)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", ev.Type), zap.Error(err))
	}
	return a.http.Publish(ctx, ev)
}
