package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeResult  = "RESULT"

	TypeToggle    = "TOGGLE"
	TypeQuery     = "QUERY"
	TypeClear     = "CLEAR"
	TypeDrawables = "DRAWABLES"
	TypeActive    = "ACTIVE"
	TypeInfo      = "INFO"
	TypeNew       = "NEW"
	TypeSave      = "SAVE"
	TypeLoad      = "LOAD"
	TypeDelete    = "DELETE"
	TypeList      = "LIST"
)

var requestTypes = map[string]struct{}{
	TypeToggle:    {},
	TypeQuery:     {},
	TypeClear:     {},
	TypeDrawables: {},
	TypeActive:    {},
	TypeInfo:      {},
	TypeNew:       {},
	TypeSave:      {},
	TypeLoad:      {},
	TypeDelete:    {},
	TypeList:      {},
}

func IsRequestType(t string) bool {
	_, ok := requestTypes[t]
	return ok
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
