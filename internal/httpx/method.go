package httpx

// Method is a bitflag encoding of an HTTP request method: each method is a
// distinct power of two so that a set of methods is a plain bitwise OR and
// matching a request against a set is `(mask & request.Method) != 0`.
type Method uint16

const (
	MethodGET Method = 1 << iota
	MethodHEAD
	MethodPOST
	MethodPUT
	MethodDELETE
	MethodCONNECT
	MethodOPTIONS
	MethodTRACE
	MethodPATCH
)

// MethodMask is a set of methods built by OR-ing individual Method values.
type MethodMask = Method

// AllMethods is the mask matching every enumerated method.
const AllMethods = MethodGET | MethodHEAD | MethodPOST | MethodPUT |
	MethodDELETE | MethodCONNECT | MethodOPTIONS | MethodTRACE | MethodPATCH

var methodNames = map[string]Method{
	"GET":     MethodGET,
	"HEAD":    MethodHEAD,
	"POST":    MethodPOST,
	"PUT":     MethodPUT,
	"DELETE":  MethodDELETE,
	"CONNECT": MethodCONNECT,
	"OPTIONS": MethodOPTIONS,
	"TRACE":   MethodTRACE,
	"PATCH":   MethodPATCH,
}

var methodStrings = map[Method]string{
	MethodGET:     "GET",
	MethodHEAD:    "HEAD",
	MethodPOST:    "POST",
	MethodPUT:     "PUT",
	MethodDELETE:  "DELETE",
	MethodCONNECT: "CONNECT",
	MethodOPTIONS: "OPTIONS",
	MethodTRACE:   "TRACE",
	MethodPATCH:   "PATCH",
}

// parseMethod maps a wire method token to its bitflag value. Any method not
// in the enumerated set is rejected — the request line is malformed.
func parseMethod(s string) (Method, bool) {
	m, ok := methodNames[s]
	return m, ok
}

// String returns the wire representation of m, or "" if m is not one of the
// nine enumerated single-bit values.
func (m Method) String() string {
	return methodStrings[m]
}

// Match reports whether mask contains m.
func (mask Method) Match(m Method) bool {
	return mask&m != 0
}
