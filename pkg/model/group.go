package model

import (
	"time"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

// Group is a set of devices switched together.
type Group struct {
	ID        int
	Name      string
	CreatedAt time.Time
	State     bool
	Dimmer    int
	MoodID    int
	MemberIDs []int

	Raw map[string]any
}

// ParseGroup builds a Group from its JSON representation.
func ParseGroup(raw any) (*Group, error) {
	a, err := asAttrs(raw)
	if err != nil {
		return nil, err
	}
	links := a.object(wire.AttrGroupMembers).object(wire.AttrHSLink)
	return &Group{
		ID:        a.integer(wire.AttrID),
		Name:      a.str(wire.AttrName),
		CreatedAt: a.unix(wire.AttrCreatedAt),
		State:     a.flag(wire.AttrState),
		Dimmer:    a.integer(wire.AttrDimmer),
		MoodID:    a.integer(wire.AttrMoodID),
		MemberIDs: links.ints(wire.AttrID),
		Raw:       a,
	}, nil
}

// Path returns the route segments of the group.
func (g *Group) Path() []string {
	return groupPath(g.ID)
}

func groupPath(id int) []string {
	return []string{wire.RootGroups, itoa(id)}
}

// SetGroupState switches every member of the group.
func SetGroupState(groupID int, on bool) *command.Command {
	return command.Replace(groupPath(groupID), map[string]any{wire.AttrState: boolInt(on)})
}

// SetGroupDimmer sets the brightness of every member.
func SetGroupDimmer(groupID, level, transition int) (*command.Command, error) {
	if err := checkRange("dimmer", level, DimmerMin, DimmerMax); err != nil {
		return nil, err
	}
	values, err := withTransition(map[string]any{wire.AttrDimmer: level}, transition)
	if err != nil {
		return nil, err
	}
	return command.Replace(groupPath(groupID), values), nil
}

// SetGroupColorTemp sets the colour temperature of every member.
func SetGroupColorTemp(groupID, mireds, transition int) (*command.Command, error) {
	if err := checkRange("color temperature", mireds, MiredsMin, MiredsMax); err != nil {
		return nil, err
	}
	values, err := withTransition(map[string]any{wire.AttrColorMireds: mireds}, transition)
	if err != nil {
		return nil, err
	}
	return command.Replace(groupPath(groupID), values), nil
}

// ActivateMood switches the group on with the given mood.
func ActivateMood(groupID, moodID int) *command.Command {
	return command.Replace(groupPath(groupID), map[string]any{
		wire.AttrMoodID: moodID,
		wire.AttrState:  1,
	})
}
