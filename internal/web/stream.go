package web

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tbertin/photobooth/internal/debug"
)

// FrameSource pulls the current frame from the live feed. It returns an
// error while no feed is live.
type FrameSource func() (image.Image, error)

// previewQuality keeps preview frames small; captures stay lossless.
const previewQuality = 70

// Preview pushes JPEG-encoded preview frames to WebSocket clients while the
// camera feed is live. The feed itself stays unfiltered; clients apply the
// selected filter's CSS expression, so preview and capture match.
type Preview struct {
	source   FrameSource
	interval time.Duration
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewPreview creates a preview hub pulling frames at the given interval.
func NewPreview(source FrameSource, interval time.Duration) *Preview {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Preview{
		source:   source,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handle upgrades a client connection and keeps it registered until it
// closes.
func (p *Preview) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Verbose("preview upgrade failed: %v", err)
		return
	}
	debug.Verbose("preview client connected: %s", r.RemoteAddr)

	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.mu.Unlock()

	defer func() {
		conn.Close()
		p.mu.Lock()
		delete(p.conns, conn)
		p.mu.Unlock()
		debug.Verbose("preview client disconnected: %s", r.RemoteAddr)
	}()

	// Drain control messages; exit on close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Run pulls and broadcasts frames until ctx is cancelled. Pulling pauses
// while no client is connected or no feed is live.
func (p *Preview) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if p.clientCount() == 0 {
				continue
			}
			frame, err := p.source()
			if err != nil {
				continue
			}
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: previewQuality}); err != nil {
				debug.Trace("preview encode: %v", err)
				continue
			}
			p.broadcast(buf.Bytes())
		}
	}
}

func (p *Preview) clientCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// broadcast sends one frame to every client, dropping clients whose write
// fails.
func (p *Preview) broadcast(frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for conn := range p.conns {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			conn.Close()
			delete(p.conns, conn)
		}
	}
}
