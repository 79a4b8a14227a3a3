package probe

import (
	"context"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

// DNS resolves host and returns its addresses in Result.Addrs.
func DNS(ctx context.Context, host string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log.Debugf("probe: dns lookup %s", host)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)

	result := Result{
		Kind:      KindDNS,
		Target:    host,
		Elapsed:   time.Since(start),
		Timestamp: time.Now(),
	}

	if err != nil {
		result.Err = err.Error()
		log.Debugf("probe: dns %s failed: %s", host, err)
		return result
	}
	if len(addrs) == 0 {
		result.Err = "no addresses resolved"
		return result
	}

	result.Addrs = addrs
	log.Debugf("probe: dns %s resolved addrs=%d elapsed=%s", host, len(addrs), result.Elapsed)
	return result
}
