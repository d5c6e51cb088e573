//go:build js && wasm

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"syscall/js"

	"github.com/cwbudde/algo-patchbay/internal/studio"
	"github.com/cwbudde/algo-patchbay/snapshot"
)

var (
	live  *studio.Studio
	funcs []js.Func
)

func main() {
	api := js.Global().Get("Object").New()
	api.Set("init", export(func(args []js.Value) any {
		opts := studio.Options{SampleRate: 48000}
		if len(args) > 0 {
			opts.SampleRate = args[0].Float()
		}
		if len(args) > 1 {
			opts.BlockSize = args[1].Int()
		}
		if live != nil {
			_ = live.Close()
		}
		live = studio.New(opts)
		return js.Null()
	}))

	api.Set("load", export(func(args []js.Value) any {
		if live == nil || len(args) < 1 {
			return "init has not been called"
		}
		return result(live.LoadReader(strings.NewReader(args[0].String())))
	}))

	api.Set("addNode", export(func(args []js.Value) any {
		if live == nil || len(args) < 1 {
			return js.Null()
		}
		var n snapshot.Node
		if err := json.Unmarshal([]byte(args[0].String()), &n); err != nil {
			return js.Null()
		}
		id, err := live.AddNode(n)
		if err != nil {
			return js.Null()
		}
		return id
	}))

	api.Set("removeNode", export(func(args []js.Value) any {
		if live == nil || len(args) < 1 {
			return js.Null()
		}
		return result(live.RemoveNode(args[0].String()))
	}))

	api.Set("moveNode", export(func(args []js.Value) any {
		if live == nil || len(args) < 3 {
			return js.Null()
		}
		pos := snapshot.Position{X: args[1].Float(), Y: args[2].Float()}
		return result(live.MoveNode(args[0].String(), pos))
	}))

	api.Set("setEdges", export(func(args []js.Value) any {
		if live == nil || len(args) < 1 {
			return js.Null()
		}
		var edges []snapshot.Edge
		if err := json.Unmarshal([]byte(args[0].String()), &edges); err != nil {
			return err.Error()
		}
		live.SetEdges(edges)
		return js.Null()
	}))

	api.Set("setParam", export(func(args []js.Value) any {
		if live == nil || len(args) < 3 {
			return js.Null()
		}
		return result(live.SetParam(args[0].String(), args[1].String(), goValue(args[2])))
	}))

	api.Set("snapshot", export(func(args []js.Value) any {
		if live == nil {
			return js.Null()
		}
		var buf bytes.Buffer
		if err := snapshot.Encode(&buf, live.Snapshot()); err != nil {
			return js.Null()
		}
		return buf.String()
	}))

	api.Set("render", export(func(args []js.Value) any {
		if live == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		n := args[0].Int()
		buf := make([]float64, n)
		if err := live.Render(buf); err != nil {
			clear(buf)
		}
		return float32Array(buf)
	}))

	api.Set("spectrum", export(func(args []js.Value) any {
		if live == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		bins, err := live.Spectrum(args[0].String())
		if err != nil {
			return js.Global().Get("Float32Array").New(0)
		}
		return float32Array(bins)
	}))

	api.Set("sockets", export(func(args []js.Value) any {
		if live == nil {
			return js.Global().Get("Array").New(0)
		}
		ids := live.Sockets()
		if len(args) > 0 && args[0].Type() == js.TypeString {
			var err error
			if ids, err = live.SocketsWithRole(args[0].String()); err != nil {
				return js.Global().Get("Array").New(0)
			}
		}

		arr := js.Global().Get("Array").New(len(ids))
		for i, id := range ids {
			arr.SetIndex(i, id)
		}
		return arr
	}))

	js.Global().Set("Patchbay", api)
	select {}
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}

// result maps an error to its message, or null.
func result(err error) any {
	if err != nil {
		return err.Error()
	}
	return js.Null()
}

func goValue(v js.Value) any {
	switch v.Type() {
	case js.TypeNumber:
		return v.Float()
	case js.TypeBoolean:
		return v.Bool()
	default:
		return v.String()
	}
}

func float32Array(src []float64) js.Value {
	arr := js.Global().Get("Float32Array").New(len(src))
	for i, x := range src {
		arr.SetIndex(i, float32(x))
	}
	return arr
}
