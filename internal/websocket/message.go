package websocket

// OutgoingMessage is one directive: a name and its ordered arguments.
type OutgoingMessage struct {
	Event string `json:"event"`
	Data  []any  `json:"data"`
}

// IncomingMessage is one command sent by a client.
type IncomingMessage struct {
	From  string   `json:"-"` // connection id, filled by the read pump
	Event string   `json:"event"`
	Data  []string `json:"data"`
}

// NewMessage builds a directive. Data is never nil so it always encodes as a list.
func NewMessage(event string, args ...any) OutgoingMessage {
	if args == nil {
		args = []any{}
	}
	return OutgoingMessage{Event: event, Data: args}
}
