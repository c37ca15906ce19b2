package ws

const (
	TypeInit   = "INIT"
	TypeUpdate = "UPDATE"
)

// Envelope is the only frame shape the server sends: a full state
// snapshot tagged INIT on connect or UPDATE on every later tick.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
