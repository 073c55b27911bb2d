package ipc

// Commands accepted by a running rhea daemon.
const (
	CommandStatus     = "status"
	CommandNewSession = "new-session"
	CommandStop       = "stop"
)

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Session string `json:"session,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
