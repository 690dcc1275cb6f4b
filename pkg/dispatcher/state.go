package dispatcher

// State is a stage of a single request's lifecycle. Stages only move forward;
// any stage may end the cycle early with an error response.
type State int

const (
	Received State = iota
	Parsed
	MethodResolved
	ParamsBound
	Invoked
	Responded
)

func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case Parsed:
		return "parsed"
	case MethodResolved:
		return "method-resolved"
	case ParamsBound:
		return "params-bound"
	case Invoked:
		return "invoked"
	case Responded:
		return "responded"
	default:
		return "unknown"
	}
}
