package app

// Message is the only value crossing the cores.
type Message uint8

const (
	SinkOn Message = iota + 1
	SinkOff
)

func (m Message) String() string {
	switch m {
	case SinkOn:
		return "SinkOn"
	case SinkOff:
		return "SinkOff"
	default:
		return "Message(?)"
	}
}
