package models

// PlayState represents the playback lifecycle state of a player
type PlayState int

const (
	StateIdle PlayState = iota
	StateLoading
	StatePlaying
	StatePaused
	StateStopped
	StateError
	StateEnded
)

// String returns the state name
func (s PlayState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// IsActive returns true if the player holds a loaded source (playing or paused)
func (s PlayState) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// LoopMode represents a playlist repeat policy
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopSingle
	LoopList
	LoopRandom
)

// String returns the loop mode name
func (m LoopMode) String() string {
	switch m {
	case LoopNone:
		return "none"
	case LoopSingle:
		return "single"
	case LoopList:
		return "list"
	case LoopRandom:
		return "random"
	default:
		return "unknown"
	}
}

// ParseLoopMode maps a mode name to a LoopMode, defaulting to LoopNone
func ParseLoopMode(s string) LoopMode {
	switch s {
	case "single":
		return LoopSingle
	case "list":
		return LoopList
	case "random":
		return LoopRandom
	default:
		return LoopNone
	}
}
