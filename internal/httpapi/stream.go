package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/orbiter/core"
	"github.com/signalsfoundry/orbiter/internal/logging"
	"github.com/signalsfoundry/orbiter/internal/orbiter"
	"github.com/signalsfoundry/orbiter/timectrl"
)

const (
	streamSink   = "websocket"
	writeTimeout = 5 * time.Second
)

// streamMessage is either the opening scene or one body position.
type streamMessage struct {
	Type      string             `json:"type"` // "scene" or "frame"
	Scene     *orbiter.SceneView `json:"scene,omitempty"`
	ElapsedMs int64              `json:"elapsed_ms,omitempty"`
	X         float64            `json:"x,omitempty"`
	Y         float64            `json:"y,omitempty"`
}

// handleStream upgrades to a websocket, sends the scene once, then a frame
// per FrameInterval until the client leaves or the frame budget is spent.
func (a *api) handleStream(w http.ResponseWriter, r *http.Request) {
	scene, err := a.sceneFromQuery(r)
	if err != nil {
		a.writeSceneError(w, r, err)
		return
	}
	maxFrames := a.cfg.MaxFrames
	if s := r.URL.Query().Get("frames"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "frames must be a non-negative integer")
			return
		}
		if maxFrames == 0 || (n > 0 && n < maxFrames) {
			maxFrames = n
		}
	}

	log := logging.FromContext(r.Context(), a.log)
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	a.anim.StreamOpened()
	defer a.anim.StreamClosed()

	// The request context is detached from a hijacked connection, so a
	// reader goroutine notices when the client goes away.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	view := scene.View()
	if err := a.send(conn, streamMessage{Type: "scene", Scene: &view}); err != nil {
		log.Debug(ctx, "stream closed before scene was sent", logging.Err(err))
		return
	}

	sent := a.streamFrames(ctx, conn, scene.MotionModel(), maxFrames)
	log.Debug(ctx, "stream finished", logging.Int("frames", sent))
}

func (a *api) streamFrames(ctx context.Context, conn *websocket.Conn, motion core.MotionModel, maxFrames int) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tc := timectrl.NewTimeController(a.cfg.FrameInterval, timectrl.RealTime)
	ticks := make(chan time.Duration, 1)
	tc.AddListener(func(elapsed time.Duration) {
		// Drop frames rather than queue them behind a slow client.
		select {
		case ticks <- elapsed:
		default:
		}
	})
	done := tc.Start(ctx, 0)
	defer func() {
		cancel()
		<-done
	}()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			return sent
		case elapsed := <-ticks:
			start := time.Now()
			p := motion.Position(elapsed)
			msg := streamMessage{Type: "frame", ElapsedMs: elapsed.Milliseconds(), X: p.X, Y: p.Y}
			if err := a.send(conn, msg); err != nil {
				return sent
			}
			a.anim.ObserveFrame(streamSink, time.Since(start))
			sent++
			if maxFrames > 0 && sent >= maxFrames {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "frame budget reached"),
					time.Now().Add(writeTimeout))
				return sent
			}
		}
	}
}

func (a *api) send(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
