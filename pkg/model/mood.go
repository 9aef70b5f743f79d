package model

import (
	"github.com/tradfri-go/tradfri/pkg/wire"
)

// MoodLight is the stored state of one device in a mood.
type MoodLight struct {
	DeviceID    int
	State       bool
	Dimmer      int
	ColorHex    string
	ColorMireds int
}

// Mood is a named scene belonging to a group.
type Mood struct {
	ID      int
	Name    string
	GroupID int
	Lights  []MoodLight
	Raw     map[string]any
}

// ParseMood builds a Mood from its JSON representation. groupID is the
// group the mood was fetched under.
func ParseMood(groupID int, raw any) (*Mood, error) {
	a, err := asAttrs(raw)
	if err != nil {
		return nil, err
	}
	m := &Mood{
		ID:      a.integer(wire.AttrID),
		Name:    a.str(wire.AttrName),
		GroupID: groupID,
		Raw:     a,
	}
	if parent := a.integer(wire.AttrMoodParent); parent != 0 && groupID == 0 {
		m.GroupID = parent
	}
	for _, l := range a.list(wire.AttrLightSetting) {
		m.Lights = append(m.Lights, MoodLight{
			DeviceID:    l.integer(wire.AttrID),
			State:       l.flag(wire.AttrState),
			Dimmer:      l.integer(wire.AttrDimmer),
			ColorHex:    l.str(wire.AttrColorHex),
			ColorMireds: l.integer(wire.AttrColorMireds),
		})
	}
	return m, nil
}

// Path returns the route segments of the mood.
func (m *Mood) Path() []string {
	return moodPath(m.GroupID, m.ID)
}

func moodPath(groupID, moodID int) []string {
	return []string{wire.RootMoods, itoa(groupID), itoa(moodID)}
}
