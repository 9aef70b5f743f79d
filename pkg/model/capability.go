package model

import "strings"

// Capability is a bit in a device's capability set.
type Capability uint16

// Capabilities, one per control block a device can expose.
const (
	CapLight Capability = 1 << iota
	CapSocket
	CapBlind
	CapSignalRepeater
	CapAirPurifier
	CapRemote
	CapSensor
)

var capabilityNames = []struct {
	bit  Capability
	name string
}{
	{CapLight, "LIGHT"},
	{CapSocket, "SOCKET"},
	{CapBlind, "BLIND"},
	{CapSignalRepeater, "SIGNAL_REPEATER"},
	{CapAirPurifier, "AIR_PURIFIER"},
	{CapRemote, "REMOTE"},
	{CapSensor, "SENSOR"},
}

// Has reports whether every bit in want is set.
func (c Capability) Has(want Capability) bool {
	return want != 0 && c&want == want
}

// String returns the set bits joined by "|", or "NONE".
func (c Capability) String() string {
	var names []string
	for _, n := range capabilityNames {
		if c&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}
