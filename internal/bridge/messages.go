package bridge

import (
	"github.com/cwbudde/algo-patchbay/snapshot"
)

// Request types an editor may send.
const (
	TypeLoad       = "load"
	TypeAddNode    = "addNode"
	TypeRemoveNode = "removeNode"
	TypeMoveNode   = "moveNode"
	TypeSetEdges   = "setEdges"
	TypeSetParam   = "setParam"
	TypeSnapshot   = "snapshot"
	TypeSpectrum   = "spectrum"
	TypeSockets    = "sockets"
)

// Reply types.
const (
	TypeAck   = "ack"
	TypeError = "error"
)

// Request is one editor message. Which fields are read depends on Type.
type Request struct {
	Type     string             `json:"type"`
	Seq      int64              `json:"seq,omitempty"`
	Doc      *snapshot.Document `json:"doc,omitempty"`
	Node     *snapshot.Node     `json:"node,omitempty"`
	NodeID   string             `json:"nodeId,omitempty"`
	Position *snapshot.Position `json:"position,omitempty"`
	Edges    []snapshot.Edge    `json:"edges,omitempty"`
	Name     string             `json:"name,omitempty"`
	Value    any                `json:"value,omitempty"`
	// Role filters a sockets request; empty lists every socket.
	Role string `json:"role,omitempty"`
}

// Reply answers one Request; Seq echoes the request's.
type Reply struct {
	Type    string             `json:"type"`
	Seq     int64              `json:"seq,omitempty"`
	Error   string             `json:"error,omitempty"`
	NodeID  string             `json:"nodeId,omitempty"`
	Doc     *snapshot.Document `json:"doc,omitempty"`
	Bins    []float64          `json:"bins,omitempty"`
	Sockets []string           `json:"sockets,omitempty"`
	Report  *ReportSummary     `json:"report,omitempty"`
}

// ReportSummary is the outcome of the reconciliation pass a request caused.
type ReportSummary struct {
	Connected    int `json:"connected"`
	Disconnected int `json:"disconnected"`
	Skipped      int `json:"skipped"`
	Rejected     int `json:"rejected"`
	Failures     int `json:"failures"`
}
