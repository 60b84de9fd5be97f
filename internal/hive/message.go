package hive

// MessageKind tags an event sent to the queen's mailbox.
type MessageKind uint8

const (
	// MsgDeath reports that a bee's lifespan elapsed. The queen prunes it
	// from the registry and spawns a same-role replacement.
	MsgDeath MessageKind = iota
	// MsgIdle reports a storer that found the nectar queue empty too many
	// cycles in a row.
	MsgIdle
	// MsgHungry reports a nurse that could not feed a larva too many cycles
	// in a row.
	MsgHungry
	// MsgNeedNectar is the queen's internal forward of a hungry report.
	MsgNeedNectar
)

func (k MessageKind) String() string {
	switch k {
	case MsgDeath:
		return "death"
	case MsgIdle:
		return "idle"
	case MsgHungry:
		return "hungry"
	case MsgNeedNectar:
		return "need_nectar"
	default:
		return "unknown"
	}
}

// Message is one event in the queen's mailbox. Messages are ephemeral and
// consumed only by the queen.
type Message struct {
	Kind     MessageKind
	Role     Role
	BeeID    string
	Attempts int // empty-dequeue streak, set on MsgIdle only
}
