package server

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/reflow-dev/reflow/pkg/dom"
)

// Frame types exchanged over the live WebSocket connection.
const (
	// FramePatch carries DOM patches from server to client.
	FramePatch = "patch"

	// FrameEvent carries a client-side DOM event to the server.
	FrameEvent = "event"

	// FrameSet carries a direct client state write.
	FrameSet = "set"

	// FrameError reports a server-side processing error to the client.
	FrameError = "error"

	// FramePing and FramePong keep the connection alive at the
	// application level for clients behind buffering proxies.
	FramePing = "ping"
	FramePong = "pong"
)

// Frame is the envelope for every live-connection message.
type Frame struct {
	Type string `json:"t"`

	// Patches is set for FramePatch.
	Patches []dom.Patch `json:"patches,omitempty"`

	// Handle, Event, and Value are set for FrameEvent.
	Handle dom.Handle `json:"h,omitempty"`
	Event  string     `json:"e,omitempty"`
	Value  any        `json:"v,omitempty"`

	// Path is set for FrameSet alongside Value.
	Path string `json:"p,omitempty"`

	// Message is set for FrameError.
	Message string `json:"msg,omitempty"`
}

// EncodeFrame serializes a frame for the wire.
func EncodeFrame(f *Frame) ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFrame parses a wire message into a frame.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("decode frame: missing type")
	}
	return &f, nil
}

// patchFrame builds an outbound patch frame.
func patchFrame(patches []dom.Patch) *Frame {
	return &Frame{Type: FramePatch, Patches: patches}
}

// errorFrame builds an outbound error frame.
func errorFrame(msg string) *Frame {
	return &Frame{Type: FrameError, Message: msg}
}
