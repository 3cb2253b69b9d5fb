package types

import (
	"net"
	"strconv"

	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/utils"
)

// ForwardTarget is the address of the remote listener.
type ForwardTarget struct {
	Host string
	Port int
}

var (
	ErrInvalidHost = gperr.New("invalid forward host")
	ErrInvalidPort = gperr.New("invalid forward port")
)

// NewForwardTarget validates host and port, failures are ErrConfiguration.
func NewForwardTarget(host string, port int) (ForwardTarget, gperr.Error) {
	t, err := newForwardTarget(host, port)
	if err != nil {
		return t, gperr.ErrConfiguration.With(err)
	}
	return t, nil
}

// ParseForwardTarget parses "host:port", failures are ErrConfiguration.
func ParseForwardTarget(addr string) (ForwardTarget, gperr.Error) {
	t, err := parseForwardTarget(addr)
	if err != nil {
		return t, gperr.ErrConfiguration.With(err)
	}
	return t, nil
}

func newForwardTarget(host string, port int) (ForwardTarget, gperr.Error) {
	if err := utils.Validator().Var(host, "required,hostname_rfc1123|ip"); err != nil {
		return ForwardTarget{}, ErrInvalidHost.Subject(strconv.Quote(host))
	}
	if port < 1 || port > 65535 {
		return ForwardTarget{}, ErrInvalidPort.Subject(strconv.Itoa(port))
	}
	return ForwardTarget{Host: host, Port: port}, nil
}

func parseForwardTarget(addr string) (ForwardTarget, gperr.Error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return ForwardTarget{}, gperr.Wrap(err).Subject("forward_to")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return ForwardTarget{}, ErrInvalidPort.Subject(strconv.Quote(portStr))
	}
	return newForwardTarget(host, port)
}

func (t ForwardTarget) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}
