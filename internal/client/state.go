package client

// ConnectionState represents the state machine for a client session.
type ConnectionState int

const (
	StateConnected ConnectionState = iota // TCP connected, login not sent
	StateLoggingIn                        // login sent, waiting for SIGNATURE
	StateLoggedIn                         // SIGNATURE received, cipher re-keyed
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateLoggingIn:
		return "LOGGING_IN"
	case StateLoggedIn:
		return "LOGGED_IN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
