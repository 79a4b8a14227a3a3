package probe

import (
	"context"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

// TCP opens a TCP connection to addr (host:port) and closes it again.
func TCP(ctx context.Context, addr string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log.Debugf("probe: tcp connect %s", addr)

	d := net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", addr)

	result := Result{
		Kind:      KindTCP,
		Target:    addr,
		Elapsed:   time.Since(start),
		Timestamp: time.Now(),
	}

	if err != nil {
		result.Err = err.Error()
		log.Debugf("probe: tcp %s failed: %s", addr, err)
		return result
	}
	conn.Close()

	log.Debugf("probe: tcp %s connected elapsed=%s", addr, result.Elapsed)
	return result
}
