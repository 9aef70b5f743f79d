package wire

import "fmt"

// Code is a CoAP response code: a 3-bit class and a 5-bit detail,
// written as "c.dd" (for example 2.05 Content or 4.04 Not Found).
type Code uint8

// Response code classes.
const (
	ClassSuccess     uint8 = 2
	ClassClientError uint8 = 4
	ClassServerError uint8 = 5
)

// Well-known response codes.
const (
	CodeEmpty Code = 0

	CodeCreated Code = 2<<5 | 1
	CodeDeleted Code = 2<<5 | 2
	CodeValid   Code = 2<<5 | 3
	CodeChanged Code = 2<<5 | 4
	CodeContent Code = 2<<5 | 5

	CodeBadRequest            Code = 4<<5 | 0
	CodeUnauthorized          Code = 4<<5 | 1
	CodeBadOption             Code = 4<<5 | 2
	CodeForbidden             Code = 4<<5 | 3
	CodeNotFound              Code = 4<<5 | 4
	CodeMethodNotAllowed      Code = 4<<5 | 5
	CodeNotAcceptable         Code = 4<<5 | 6
	CodePreconditionFailed    Code = 4<<5 | 12
	CodeRequestEntityTooLarge Code = 4<<5 | 13
	CodeUnsupportedMediaType  Code = 4<<5 | 15

	CodeInternalServerError  Code = 5<<5 | 0
	CodeNotImplemented       Code = 5<<5 | 1
	CodeBadGateway           Code = 5<<5 | 2
	CodeServiceUnavailable   Code = 5<<5 | 3
	CodeGatewayTimeout       Code = 5<<5 | 4
	CodeProxyingNotSupported Code = 5<<5 | 5
)

// NewCode builds a code from its class and detail.
func NewCode(class, detail uint8) Code {
	return Code(class<<5 | detail&0x1f)
}

// Class returns the code class (2, 4 or 5 for responses).
func (c Code) Class() uint8 {
	return uint8(c) >> 5
}

// Detail returns the code detail.
func (c Code) Detail() uint8 {
	return uint8(c) & 0x1f
}

// IsSuccess returns true for 2.xx codes.
func (c Code) IsSuccess() bool {
	return c.Class() == ClassSuccess
}

// IsClientError returns true for 4.xx codes.
func (c Code) IsClientError() bool {
	return c.Class() == ClassClientError
}

// IsServerError returns true for 5.xx codes.
func (c Code) IsServerError() bool {
	return c.Class() == ClassServerError
}

// String returns the dotted form followed by the code name when known.
func (c Code) String() string {
	dotted := fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
	if name := c.name(); name != "" {
		return dotted + " " + name
	}
	return dotted
}

func (c Code) name() string {
	switch c {
	case CodeEmpty:
		return "Empty"
	case CodeCreated:
		return "Created"
	case CodeDeleted:
		return "Deleted"
	case CodeValid:
		return "Valid"
	case CodeChanged:
		return "Changed"
	case CodeContent:
		return "Content"
	case CodeBadRequest:
		return "Bad Request"
	case CodeUnauthorized:
		return "Unauthorized"
	case CodeBadOption:
		return "Bad Option"
	case CodeForbidden:
		return "Forbidden"
	case CodeNotFound:
		return "Not Found"
	case CodeMethodNotAllowed:
		return "Method Not Allowed"
	case CodeNotAcceptable:
		return "Not Acceptable"
	case CodePreconditionFailed:
		return "Precondition Failed"
	case CodeRequestEntityTooLarge:
		return "Request Entity Too Large"
	case CodeUnsupportedMediaType:
		return "Unsupported Content-Format"
	case CodeInternalServerError:
		return "Internal Server Error"
	case CodeNotImplemented:
		return "Not Implemented"
	case CodeBadGateway:
		return "Bad Gateway"
	case CodeServiceUnavailable:
		return "Service Unavailable"
	case CodeGatewayTimeout:
		return "Gateway Timeout"
	case CodeProxyingNotSupported:
		return "Proxying Not Supported"
	default:
		return ""
	}
}
