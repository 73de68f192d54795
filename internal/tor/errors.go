package tor

import "errors"

var (
	ErrProxyNotTor         = errors.New("proxy is not a Tor SOCKS5 proxy")
	ErrProxyCannotConnect  = errors.New("cannot connect to Tor proxy")
	ErrProxyTimeout        = errors.New("timeout connecting to Tor proxy")
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	errUnknownProxyStatus = errors.New("unknown proxy status")
)

// ProxyStatus is the outcome of Client.CheckConnection.
type ProxyStatus int

const (
	ProxyStatusOK ProxyStatus = iota
	// ProxyStatusWrongType: something answered, but not as a no-auth SOCKS5
	// proxy able to relay a CONNECT.
	ProxyStatusWrongType
	ProxyStatusCannotConnect
	ProxyStatusTimeout
)

var proxyStatusText = [...]struct {
	label string
	err   error
}{
	ProxyStatusOK:            {"OK", nil},
	ProxyStatusWrongType:     {"wrong type (not Tor)", ErrProxyNotTor},
	ProxyStatusCannotConnect: {"cannot connect", ErrProxyCannotConnect},
	ProxyStatusTimeout:       {"timeout", ErrProxyTimeout},
}

func (s ProxyStatus) known() bool {
	return s >= 0 && int(s) < len(proxyStatusText)
}

func (s ProxyStatus) String() string {
	if !s.known() {
		return "unknown"
	}
	return proxyStatusText[s].label
}

// Error maps the status to its sentinel error; ProxyStatusOK maps to nil.
func (s ProxyStatus) Error() error {
	if !s.known() {
		return errUnknownProxyStatus
	}
	return proxyStatusText[s].err
}
