package command

// Kind tags an Outcome.
type Kind int

// Outcome kinds.
const (
	KindSuccess Kind = iota
	KindEngineError
	KindTimeout
	KindNotFound
	KindBadRequest
	KindUnavailable
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindEngineError:
		return "engine_error"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of dispatching a command.
type Outcome struct {
	Kind    Kind
	Payload any
	Message string
}

// Success wraps a payload.
func Success(payload any) Outcome {
	return Outcome{Kind: KindSuccess, Payload: payload}
}

// EngineError reports that the command ran and failed.
func EngineError(msg string) Outcome {
	return Outcome{Kind: KindEngineError, Message: msg}
}

// Timeout reports that the engine did not answer in time.
func Timeout() Outcome {
	return Outcome{Kind: KindTimeout, Message: "engine did not respond in time"}
}

// NotFound reports a missing route or operation.
func NotFound(msg string) Outcome {
	return Outcome{Kind: KindNotFound, Message: msg}
}

// BadRequest reports malformed or missing input.
func BadRequest(msg string) Outcome {
	return Outcome{Kind: KindBadRequest, Message: msg}
}

// Unavailable reports that the engine refused the command because it is
// shutting down.
func Unavailable(msg string) Outcome {
	return Outcome{Kind: KindUnavailable, Message: msg}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}
