package protocol

import "fmt"

// MaxCoords bounds the coordinates carried by one request.
const MaxCoords = 1 << 16

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	// MaxQueue caps outbound messages buffered for this client.
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	Scene           string `json:"scene"`
	Levels          int    `json:"levels"`
	Range           int    `json:"range"`
	MaxQueue        int    `json:"max_queue"`
}

type Material struct {
	Color [4]float32 `json:"color"`
	Fluid uint8      `json:"fluid,omitempty"`
	Noise uint8      `json:"noise,omitempty"`
}

// RequestMsg is every client request after HELLO. Which fields matter
// depends on Type.
type RequestMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version,omitempty"`
	ID              string      `json:"id"`
	Coords          [][3]int    `json:"coords,omitempty"`
	Value           bool        `json:"value,omitempty"`
	Material        *Material   `json:"material,omitempty"`
	Name            string      `json:"name,omitempty"`
	Camera          *[3]float32 `json:"camera,omitempty"`
}

func (r RequestMsg) Validate() error {
	if !IsRequestType(r.Type) {
		return fmt.Errorf("unknown request type %q", r.Type)
	}
	if r.ID == "" {
		return fmt.Errorf("missing id")
	}
	if len(r.Coords) > MaxCoords {
		return fmt.Errorf("too many coords: %d > %d", len(r.Coords), MaxCoords)
	}
	switch r.Type {
	case TypeToggle:
		if len(r.Coords) == 0 {
			return fmt.Errorf("%s requires coords", r.Type)
		}
	case TypeNew, TypeLoad, TypeDelete:
		if r.Name == "" {
			return fmt.Errorf("%s requires name", r.Type)
		}
	}
	return nil
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ID              string     `json:"id,omitempty"`
	Op              string     `json:"op,omitempty"`
	OK              bool       `json:"ok"`
	Error           *ErrorBody `json:"error,omitempty"`
	Data            any        `json:"data,omitempty"`
}

func OK(req RequestMsg, data any) ResultMsg {
	return ResultMsg{
		Type:            TypeResult,
		ProtocolVersion: Version,
		ID:              req.ID,
		Op:              req.Type,
		OK:              true,
		Data:            data,
	}
}

func Fail(id, op, code, msg string) ResultMsg {
	return ResultMsg{
		Type:            TypeResult,
		ProtocolVersion: Version,
		ID:              id,
		Op:              op,
		Error:           &ErrorBody{Code: code, Message: msg},
	}
}

// Result payloads.
type ToggleResult struct {
	Applied int `json:"applied"`
}

type QueryResult struct {
	AllActive bool `json:"all_active"`
}

type LoadResult struct {
	Scene   string `json:"scene"`
	Applied int    `json:"applied"`
}

type ListResult struct {
	Scenes []string `json:"scenes"`
}
