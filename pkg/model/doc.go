// Package model maps gateway resources onto typed records and builds the
// Commands that read, change and observe them.
//
// # Resources
//
// The gateway exposes numeric resource roots:
//
//	15001  devices      (lights, sockets, blinds, remotes, sensors, repeaters, purifiers)
//	15004  groups
//	15005  moods        (per group: 15005/<group>/<mood>)
//	15006  notifications
//	15010  smart tasks
//	15011  gateway      (info, auth, reboot, factory reset)
//
// Records are parsed from the JSON attribute maps the gateway returns.
// Attribute keys are the numeric strings in package wire.
//
// # Capabilities
//
// A Device carries a Capability bit set derived from the control blocks
// present in its representation:
//
//	if dev.Capabilities.Has(model.CapLight) {
//	    cmd, _ := model.SetDimmer(dev.ID, 128, 0)
//	    gw.Request(ctx, cmd)
//	}
//
// # List Then Fetch
//
// List commands (ListDevices, ListGroups, ...) return resource IDs.
// The Get*s variants return a command whose result is one Command per
// ID, to be executed with RequestAll or RequestAsync.
package model
