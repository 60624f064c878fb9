// Package terminal implements interactive shell sessions inside running
// containers, bridged to browser clients over WebSocket.
//
// A session is one PTY-backed `docker exec` process plus two relay pumps
// (socket→process stdin, process stdout→socket). The Registry caps the number
// of concurrent sessions, and the Supervisor evicts sessions that have been
// idle past a configured threshold and drains everything on shutdown.
package terminal
