package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxeledit.ai/internal/editor"
	"voxeledit.ai/internal/octree"
	"voxeledit.ai/internal/persistence/store"
	"voxeledit.ai/internal/protocol"
)

type Config struct {
	// MaxQueue is the upper bound on a client's outbound queue.
	MaxQueue       int
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	ReadLimit      int64
	RequestTimeout time.Duration
}

func (c *Config) normalize() {
	if c.MaxQueue <= 0 {
		c.MaxQueue = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 4 << 20
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

type Server struct {
	editor *editor.Editor
	log    *zap.Logger
	cfg    Config

	upgrader websocket.Upgrader
}

func NewServer(ed *editor.Editor, cfg Config, logger *zap.Logger) *Server {
	cfg.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		editor: ed,
		log:    logger,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(s.cfg.ReadLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sessionID, out := s.handshake(ctx, conn)
		if sessionID == "" {
			return
		}
		log := s.log.With(zap.String("session", sessionID))
		log.Info("client connected", zap.String("remote", r.RemoteAddr))
		instrumentConnect()
		defer instrumentDisconnect()

		// Writer goroutine.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						instrumentSendError()
						cancel()
						return
					}
					instrumentSent(len(b))
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					instrumentReceiveError()
				}
				break
			}
			res := s.handle(ctx, msg)
			instrumentReceived(res.Op)
			b, err := json.Marshal(res)
			if err != nil {
				log.Error("marshal result", zap.String("op", res.Op), zap.Error(err))
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			default:
				log.Warn("outbound queue full; closing", zap.Int("max_queue", cap(out)))
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "queue full"), time.Now().Add(time.Second))
				cancel()
			}
			if ctx.Err() != nil {
				break
			}
		}

		cancel()
		<-writerDone
		log.Info("client disconnected")
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 || maxQ > s.cfg.MaxQueue {
		maxQ = s.cfg.MaxQueue
	}

	info, err := s.editor.Info(ctx)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "editor unavailable"), time.Now().Add(time.Second))
		return "", nil
	}

	sessionID = uuid.NewString()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Scene:           info.Scene,
		Levels:          info.Levels,
		Range:           info.Range,
		MaxQueue:        maxQ,
	}
	if err := writeJSON(conn, welcome, s.cfg.WriteTimeout); err != nil {
		return "", nil
	}
	return sessionID, make(chan []byte, maxQ)
}

// handle decodes and executes one request. Every outcome, including a
// malformed frame, produces a RESULT.
func (s *Server) handle(ctx context.Context, msg []byte) protocol.ResultMsg {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.Fail("", "", protocol.ErrProtoBadRequest, "invalid json")
	}
	var req protocol.RequestMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		return protocol.Fail("", base.Type, protocol.ErrProtoBadRequest, err.Error())
	}
	if req.ProtocolVersion != "" && req.ProtocolVersion != protocol.Version {
		return protocol.Fail(req.ID, req.Type, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	if err := req.Validate(); err != nil {
		return protocol.Fail(req.ID, req.Type, protocol.ErrBadRequest, err.Error())
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	data, err := s.dispatch(rctx, req)
	if err != nil {
		code := errorCode(err)
		if code == protocol.ErrInternal {
			s.log.Error("request failed", zap.String("op", req.Type), zap.String("id", req.ID), zap.Error(err))
		}
		return protocol.Fail(req.ID, req.Type, code, err.Error())
	}
	return protocol.OK(req, data)
}

func (s *Server) dispatch(ctx context.Context, req protocol.RequestMsg) (any, error) {
	switch req.Type {
	case protocol.TypeToggle:
		n, err := s.editor.Toggle(ctx, coordsOf(req.Coords), req.Value, materialOf(req.Material))
		if err != nil {
			return nil, err
		}
		return protocol.ToggleResult{Applied: n}, nil
	case protocol.TypeQuery:
		all, err := s.editor.AllActive(ctx, coordsOf(req.Coords))
		if err != nil {
			return nil, err
		}
		return protocol.QueryResult{AllActive: all}, nil
	case protocol.TypeClear:
		return nil, s.editor.Clear(ctx)
	case protocol.TypeDrawables:
		ds, err := s.editor.Drawables(ctx)
		if ds == nil {
			ds = []octree.Drawable{}
		}
		return ds, err
	case protocol.TypeActive:
		recs, err := s.editor.ActiveNodes(ctx)
		if recs == nil {
			recs = []octree.NodeRecord{}
		}
		return recs, err
	case protocol.TypeInfo:
		return s.editor.Info(ctx)
	case protocol.TypeNew:
		return nil, s.editor.NewScene(ctx, req.Name)
	case protocol.TypeSave:
		return nil, s.editor.Save(ctx, req.Name)
	case protocol.TypeLoad:
		var cam octree.Vec3
		if req.Camera != nil {
			cam = octree.Vec3{X: req.Camera[0], Y: req.Camera[1], Z: req.Camera[2]}
		}
		n, err := s.editor.Load(ctx, req.Name, cam)
		if err != nil {
			return nil, err
		}
		return protocol.LoadResult{Scene: req.Name, Applied: n}, nil
	case protocol.TypeDelete:
		return nil, s.editor.Delete(ctx, req.Name)
	case protocol.TypeList:
		names, err := s.editor.List(ctx)
		if names == nil {
			names = []string{}
		}
		return protocol.ListResult{Scenes: names}, err
	}
	return nil, errors.New("unhandled request type")
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, store.ErrBadName), errors.Is(err, octree.ErrDepthMismatch):
		return protocol.ErrBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, editor.ErrStopped):
		return protocol.ErrBusy
	default:
		return protocol.ErrInternal
	}
}

func coordsOf(in [][3]int) []octree.Coord {
	out := make([]octree.Coord, len(in))
	for i, c := range in {
		out[i] = octree.CoordOf(c)
	}
	return out
}

// materialOf defaults to opaque white when the client sends none.
func materialOf(m *protocol.Material) octree.Material {
	if m == nil {
		return octree.Material{Color: [4]float32{1, 1, 1, 1}}
	}
	return octree.Material{Color: m.Color, Fluid: m.Fluid, Noise: m.Noise}
}

func writeJSON(conn *websocket.Conn, v any, timeout time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
