// Package patch keeps a live audio graph in step with an editable patch.
//
// Widgets register the units behind their sockets in a Registry, tagged with
// a Role. An editor publishes its edges as a list of Connections. A
// Reconciler pass then disconnects every registered source and connects each
// listed pair whose ends resolve, skipping the rest silently. Patchbay ties the
// three together and reruns the pass whenever either side changes.
//
// # Usage
//
//	bay := patch.New(patch.WithLogger(logger))
//	bay.RegisterSource("osc1-out", osc)
//	bay.RegisterTarget(patch.DestinationID, ctx.Destination())
//	bay.SetConnections([]patch.Connection{{Source: "osc1-out", Target: patch.DestinationID}})
//
// Wrap bulk changes, such as loading a saved patch, in Batch so they cost a
// single pass.
package patch
