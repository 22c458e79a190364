// internal/poller/probe.go
package poller

import (
	"errors"
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ErrUnreachable is returned by Ping when no echo reply came back.
var ErrUnreachable = errors.New("poller: host unreachable")

// Ping returns a probe that sends one unprivileged ICMP echo to the host
// part of endpoint.
func Ping(endpoint string, timeout time.Duration) func() error {
	host := endpoint
	if h, _, err := net.SplitHostPort(endpoint); err == nil {
		host = h
	}

	return func() error {
		pinger, err := probing.NewPinger(host)
		if err != nil {
			return err
		}

		pinger.Count = 1
		pinger.Timeout = timeout
		pinger.SetPrivileged(false) // UDP-based, no root needed

		if err := pinger.Run(); err != nil {
			return err
		}
		if pinger.Statistics().PacketsRecv == 0 {
			return ErrUnreachable
		}
		return nil
	}
}
