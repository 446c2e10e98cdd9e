package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxeledit.ai/internal/logger"
	"voxeledit.ai/internal/protocol"
)

// bot connects to a running server and builds a shape in the current scene.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "client name")
		shape  = flag.String("shape", "sphere", "shape to build: sphere|box|floor")
		radius = flag.Int("radius", 8, "shape radius in voxels")
		color  = flag.String("color", "0.8,0.3,0.2,1", "rgba color, components in 0..1")
		erase  = flag.Bool("erase", false, "deactivate the shape instead of building it")
		saveAs = flag.String("save", "", "save the scene under this name when done")
		batch  = flag.Int("batch", 4096, "coordinates per TOGGLE request")
		debug  = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log, closeLog := logger.Stdout(level, logger.FileConfig{})
	defer func() { _ = closeLog() }()

	rgba, err := parseColor(*color)
	if err != nil {
		log.Fatal("bad -color", zap.Error(err))
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Fatal("dial", zap.String("url", *url), zap.Error(err))
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		MaxQueue:        8,
	}
	if err := conn.WriteJSON(hello); err != nil {
		log.Fatal("send HELLO", zap.Error(err))
	}
	var welcome protocol.WelcomeMsg
	if err := readJSON(conn, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		log.Fatal("read WELCOME", zap.String("type", welcome.Type), zap.Error(err))
	}
	log.Info("connected",
		zap.String("session", welcome.SessionID),
		zap.String("scene", welcome.Scene),
		zap.Int("levels", welcome.Levels),
		zap.Int("range", welcome.Range),
	)

	coords, err := buildShape(*shape, *radius, welcome.Range)
	if err != nil {
		log.Fatal("shape", zap.Error(err))
	}
	mat := &protocol.Material{Color: rgba}

	start := time.Now()
	applied := 0
	for i, part := range chunk(coords, *batch) {
		res, err := call(conn, protocol.RequestMsg{
			Type:     protocol.TypeToggle,
			ID:       fmt.Sprintf("toggle-%d", i),
			Coords:   part,
			Value:    !*erase,
			Material: mat,
		})
		if err != nil {
			log.Fatal("toggle", zap.Error(err))
		}
		var tr protocol.ToggleResult
		_ = json.Unmarshal(res.Data, &tr)
		applied += tr.Applied
		log.Debug("batch applied", zap.Int("batch", i), zap.Int("applied", tr.Applied))
	}
	log.Info("shape done",
		zap.String("shape", *shape),
		zap.Int("voxels", len(coords)),
		zap.Int("applied", applied),
		zap.Duration("took", time.Since(start)),
	)

	if *saveAs != "" {
		if _, err := call(conn, protocol.RequestMsg{Type: protocol.TypeSave, ID: "save", Name: *saveAs}); err != nil {
			log.Fatal("save", zap.Error(err))
		}
		log.Info("scene saved", zap.String("scene", *saveAs))
	}

	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

type rawResult struct {
	Type  string              `json:"type"`
	ID    string              `json:"id"`
	OK    bool                `json:"ok"`
	Error *protocol.ErrorBody `json:"error"`
	Data  json.RawMessage     `json:"data"`
}

// call sends one request and waits for its RESULT.
func call(conn *websocket.Conn, req protocol.RequestMsg) (rawResult, error) {
	req.ProtocolVersion = protocol.Version
	if err := conn.WriteJSON(req); err != nil {
		return rawResult{}, err
	}
	for {
		var res rawResult
		if err := readJSON(conn, &res); err != nil {
			return rawResult{}, err
		}
		if res.Type != protocol.TypeResult || res.ID != req.ID {
			continue
		}
		if !res.OK {
			if res.Error != nil {
				return res, fmt.Errorf("%s: %s", res.Error.Code, res.Error.Message)
			}
			return res, fmt.Errorf("request %s failed", req.ID)
		}
		return res, nil
	}
}

func readJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	return conn.ReadJSON(v)
}
