// Package logs reads daemon logs for the CLI: StreamClient pulls structured
// events from the daemon's /api/logs endpoint, and Tail reads the plain log
// file directly when the daemon is not reachable.
//
// Tail keeps memory bounded by scanning line by line and holding at most the
// requested number of lines. Follow mode polls the file until new lines
// appear or the caller's context ends.
package logs
