// Package command defines the unit of work sent to the gateway.
//
// A Command describes one protocol operation: its method, resource path,
// optional JSON payload, whether the response is parsed as JSON, and whether
// the operation observes the resource instead of reading it once. It also
// carries the callbacks that shape and receive its result:
//
//	cmd := command.New(wire.MethodFetch, []string{wire.RootDevices, "65536"},
//	    command.WithProcessor(func(raw any) any { return model.NewDevice(raw) }),
//	)
//
// # Results
//
// Results are written exclusively through SetResult, which stores the raw
// value and the output of the processor. Observing commands have SetResult
// called once per pushed update.
//
// # Merging
//
// Partial updates against the same resource can be merged into one write:
//
//	on := model.SetState(light, true)
//	dim := model.SetDimmer(light, 128)
//	both := on.Combine(dim) // neither input is modified
//
// Mappings merge recursively. A single-element list holding a mapping merges
// into the first mapping of an existing list (the gateway's control blocks
// have that shape). Anything else is replaced by the incoming value.
package command
