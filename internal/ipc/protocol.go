// Package ipc carries control commands to the running workout over a unix socket.
//
// Each connection exchanges exactly one JSON line in each direction.
package ipc

// Control commands understood by the workout owner.
const (
	CommandStatus    = "status"
	CommandStart     = "start"
	CommandPause     = "pause"
	CommandResume    = "resume"
	CommandStop      = "stop"
	CommandSkip      = "skip"
	CommandTerminate = "terminate"
)

// Commands lists every control command in help order.
var Commands = []string{
	CommandStart,
	CommandPause,
	CommandResume,
	CommandStop,
	CommandSkip,
	CommandTerminate,
	CommandStatus,
}

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Round   *Round `json:"round,omitempty"`
}

// Round describes the active round in a status response.
type Round struct {
	Workout   string `json:"workout"`
	Index     int    `json:"index"`
	Count     int    `json:"count"`
	Title     string `json:"title"`
	Remaining int    `json:"remaining"`
	Duration  int    `json:"duration"`
}
