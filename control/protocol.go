// Package control implements the line-delimited JSON control protocol of
// spec §6.3: a request/response exchange over a TCP or Unix-domain socket
// that lets an external HMI/tooling process read and write the I/O image,
// force and unforce individual addresses, and list the current force
// table, plus an open-ended "hmi.…" extension surface a caller registers
// its own handlers under.
package control

import "encoding/json"

// Request is one decoded control-protocol request line (§6.3).
type Request struct {
	ID     uint32          `json:"id"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one encoded control-protocol response line (§6.3). Exactly
// one of Result/Error is populated, selected by OK.
type Response struct {
	ID     uint32 `json:"id"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
