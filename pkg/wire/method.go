package wire

// Method represents a request method carried by a Command.
type Method uint8

const (
	// MethodFetch reads a resource (CoAP GET).
	MethodFetch Method = 1

	// MethodReplace writes a resource (CoAP PUT).
	MethodReplace Method = 2

	// MethodCreate submits to a resource (CoAP POST).
	// Used for provisioning and gateway maintenance actions.
	MethodCreate Method = 3
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodFetch:
		return "fetch"
	case MethodReplace:
		return "replace"
	case MethodCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Verb returns the CoAP verb used on the wire.
func (m Method) Verb() string {
	switch m {
	case MethodFetch:
		return "GET"
	case MethodReplace:
		return "PUT"
	case MethodCreate:
		return "POST"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the method is one the gateway accepts.
func (m Method) IsValid() bool {
	return m >= MethodFetch && m <= MethodCreate
}
