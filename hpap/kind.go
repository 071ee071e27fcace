package hpap

// Kind is the message kind carried in the low nibble of payload byte 0.
type Kind uint8

const (
	KindWrite    Kind = 0x0
	KindRequest  Kind = 0x1
	KindResponse Kind = 0x2
	KindRegister Kind = 0x6
	// All other nibble values are reserved; decodeKind reports ok=false
	// for them so callers can log and drop rather than misinterpret.
)

func decodeKind(nibble uint8) (Kind, bool) {
	switch Kind(nibble) {
	case KindWrite, KindRequest, KindResponse, KindRegister:
		return Kind(nibble), true
	default:
		return 0, false
	}
}

func (k Kind) String() string {
	switch k {
	case KindWrite:
		return "write"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindRegister:
		return "register"
	default:
		return "reserved"
	}
}
