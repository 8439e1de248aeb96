package transport

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Client frame types.
const (
	frameJoin = "join"
	frameSend = "send"
)

// clientFrame is the envelope every inbound frame shares; the type
// field selects which payload fields matter.
type clientFrame struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Content string `json:"content,omitempty"`
}

// The colon is the store's key delimiter; a room name containing one
// would alias another room's key space.
type joinFrame struct {
	Room string `validate:"required,max=64,excludesall=:"`
}

type sendFrame struct {
	Content string `validate:"required,max=4096"`
}
