// Package widget provides the node widgets of the editor. A widget owns the
// audio units behind one node, registers them under the node's socket ids
// when mounted and applies parameter changes to them, either live or by
// rebuilding the units and registering the replacements under the same ids.
package widget

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/cwbudde/algo-patchbay/audio"
	"github.com/cwbudde/algo-patchbay/patch"
)

var (
	// ErrUnknownType is returned for a node type with no registered factory.
	ErrUnknownType = errors.New("widget: unknown node type")
	// ErrUnknownParam is returned when setting a parameter a widget lacks.
	ErrUnknownParam = errors.New("widget: unknown parameter")
	// ErrNotMounted is returned by operations that need live units.
	ErrNotMounted = errors.New("widget: not mounted")
)

// Socket ports. A socket id is the node id and the port joined by a dash.
const (
	PortIn       = "in"
	PortOut      = "out"
	PortFreq     = "freq"
	PortDetune   = "detune"
	PortQ        = "q"
	PortGain     = "gain"
	PortTime     = "time"
	PortFeedback = "feedback"
	PortOffset   = "offset"
	PortBits     = "bits"
	PortRate     = "rate"
)

// SocketID names the socket of a node port.
func SocketID(nodeID, port string) string {
	return nodeID + "-" + port
}

// Registrar is where widgets publish their sockets. *patch.Patchbay
// implements it.
type Registrar interface {
	Register(id string, s patch.Socket)
	Unregister(ids ...string)
	Batch(fn func())
}

// Env is what a widget needs to go live.
type Env struct {
	Audio   *audio.Context
	Sockets Registrar
	Logger  *slog.Logger
	// Devices opens capture devices for input nodes. Nil means none exist.
	Devices audio.DeviceOpener
}

// Widget is a node's live presence in the audio graph.
type Widget interface {
	ID() string
	Type() string
	// Mount creates the widget's units and registers its sockets.
	Mount(env Env) error
	// Unmount stops and disconnects the units best-effort and unregisters
	// every socket.
	Unmount()
	// Set changes one parameter. Before Mount it only updates the bag.
	Set(name string, value any) error
	// Sockets returns the socket ids currently registered, sorted.
	Sockets() []string
	// Data returns the parameter bag in its saved form.
	Data() map[string]any
}

// base carries the bookkeeping every widget shares.
type base struct {
	params  Params
	schema  Schema
	env     Env
	live    bool
	sockets []string
}

func newBase(p Params, schema Schema) base {
	p = p.Clone()
	if p.Num == nil {
		p.Num = map[string]float64{}
	}

	if p.Str == nil {
		p.Str = map[string]string{}
	}

	return base{params: p, schema: schema}
}

func (b *base) ID() string { return b.params.ID }

func (b *base) Type() string { return b.params.Type }

func (b *base) Data() map[string]any { return b.params.Data() }

func (b *base) Sockets() []string { return slices.Clone(b.sockets) }

func (b *base) attach(env Env) error {
	if env.Audio == nil || env.Sockets == nil {
		return errors.New("widget: env needs an audio context and a registrar")
	}

	if env.Logger == nil {
		env.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b.env = env
	b.live = true

	return nil
}

// store validates name and the kind of value against the widget's schema
// and records value.
func (b *base) store(name string, value any) error {
	err := b.schema.check(b.params.Type, name, value)
	if err != nil {
		return err
	}

	return b.params.set(name, value)
}

// publish registers sockets, keyed by port, in one pass and unregisters any
// socket of a previous publish that is no longer present.
func (b *base) publish(sockets map[string]patch.Socket) {
	ids := make([]string, 0, len(sockets))
	byID := make(map[string]patch.Socket, len(sockets))

	for _, port := range slices.Sorted(maps.Keys(sockets)) {
		id := SocketID(b.params.ID, port)
		ids = append(ids, id)
		byID[id] = sockets[port]
	}

	b.publishIDs(ids, byID)
}

func (b *base) publishIDs(ids []string, byID map[string]patch.Socket) {
	var stale []string

	for _, id := range b.sockets {
		if _, ok := byID[id]; !ok {
			stale = append(stale, id)
		}
	}

	b.env.Sockets.Batch(func() {
		if len(stale) > 0 {
			b.env.Sockets.Unregister(stale...)
		}

		for _, id := range ids {
			b.env.Sockets.Register(id, byID[id])
		}
	})

	b.sockets = slices.Sorted(slices.Values(ids))
}

// withdraw unregisters every socket and marks the widget unmounted.
func (b *base) withdraw() {
	if len(b.sockets) > 0 {
		b.env.Sockets.Unregister(b.sockets...)
	}

	b.sockets = nil
	b.live = false
}

// retire disconnects units that are being replaced or unmounted. Benign
// failures are expected and dropped.
func (b *base) retire(units ...audio.Output) {
	for _, u := range units {
		if u == nil {
			continue
		}

		err := u.Disconnect()
		if err != nil && !audio.IsBenign(err) {
			b.env.Logger.Debug("retire unit",
				slog.String("node", b.params.ID), slog.Any("error", err))
		}
	}
}
