package api

import (
	"fmt"
	"net"
	"strconv"
)

// DefaultMaxPortAttempts bounds the sequential probe when the caller
// does not say otherwise.
const DefaultMaxPortAttempts = 100

// FindAvailablePort returns the first port at or above start that can
// actually be bound on host. Availability is verified by binding a
// throwaway listener and releasing it, not by heuristics, so another
// process can still steal the port between the probe and the real
// listener coming up; callers must treat the later bind failure as a
// failed start rather than a crash.
func FindAvailablePort(start int, host string, maxAttempts int) (int, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPortAttempts
	}

	for i := 0; i < maxAttempts; i++ {
		port := start + i
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}

	return 0, fmt.Errorf("no available port found starting from %d after %d attempts", start, maxAttempts)
}
