// Package ipc is the local socket the CLI uses to reach a running cloudclip
// daemon. The daemon listens; copy, paste, peek, status and history probe
// for it and fall back to standalone operation when it is absent, so that a
// copy through a running daemon arms that daemon's echo guard.
package ipc

import (
	"errors"
	"net"
	"os"
	"time"
)

// EnvSocket overrides the socket path.
const EnvSocket = "CLOUDCLIP_SOCKET"

const dialTimeout = 500 * time.Millisecond

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux:   $XDG_RUNTIME_DIR/cloudclip.sock, else $TMPDIR/cloudclip.sock
//   - macOS:   $TMPDIR/cloudclip.sock
//   - Windows: \\.\pipe\cloudclip
//
// $CLOUDCLIP_SOCKET wins on every platform.
func SocketPath() string {
	if s := os.Getenv(EnvSocket); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on the socket.
// It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := Dial()
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Dial connects to the daemon.
func Dial() (net.Conn, error) {
	return dialIPC(SocketPath(), dialTimeout)
}

// Listen creates a listener on the socket path. A socket file left behind by
// a crashed run is replaced; a live daemon is reported as ErrRunning.
func Listen() (net.Listener, error) {
	if IsRunning() {
		return nil, ErrRunning
	}
	return listenIPC(SocketPath())
}

// ErrRunning is returned by Listen when another daemon owns the socket.
var ErrRunning = errors.New("ipc: a cloudclip daemon is already running")
