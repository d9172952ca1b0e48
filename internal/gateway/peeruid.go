package gateway

import (
	"fmt"
	"net"
	"os"
)

// peerUIDMatchesCurrentUser reports whether the unix socket peer runs as the
// same uid as this process. The per-platform credential fetch lives in
// peerUID.
func peerUIDMatchesCurrentUser(conn net.Conn) (bool, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return false, fmt.Errorf("connection is not unix")
	}

	raw, err := unixConn.SyscallConn()
	if err != nil {
		return false, err
	}

	var uid uint32
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		uid, credErr = peerUID(fd)
	}); err != nil {
		return false, err
	}
	if credErr != nil {
		return false, credErr
	}

	return uid == uint32(os.Getuid()), nil
}
