package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

// TaskType is the kind of a smart task.
type TaskType int

// Task types.
const (
	TaskNotAtHome TaskType = 1
	TaskLightsOff TaskType = 2
	TaskWakeUp    TaskType = 4
)

// String returns the task type name.
func (t TaskType) String() string {
	switch t {
	case TaskNotAtHome:
		return "NOT_AT_HOME"
	case TaskLightsOff:
		return "LIGHTS_OFF"
	case TaskWakeUp:
		return "WAKE_UP"
	default:
		return "UNKNOWN"
	}
}

// Weekdays is a bit set of days, Monday first.
type Weekdays int

// Days.
const (
	Monday Weekdays = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Includes reports whether d is set.
func (w Weekdays) Includes(d time.Weekday) bool {
	bit := Weekdays(1) << ((int(d) + 6) % 7)
	return w&bit != 0
}

// String lists the set days, e.g. "Mon,Wed".
func (w Weekdays) String() string {
	names := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	var set []string
	for i, n := range names {
		if w&(1<<i) != 0 {
			set = append(set, n)
		}
	}
	return strings.Join(set, ",")
}

// TaskAction is the state a device is moved to when a task fires.
type TaskAction struct {
	DeviceID       int
	Dimmer         int
	TransitionTime int
}

// SmartTask is a scheduled action.
type SmartTask struct {
	ID          int
	Type        TaskType
	Enabled     bool
	RepeatDays  Weekdays
	StartHour   int
	StartMinute int
	Actions     []TaskAction

	Raw map[string]any
}

// StartTime returns the trigger time formatted as HH:MM.
func (t *SmartTask) StartTime() string {
	return fmt.Sprintf("%02d:%02d", t.StartHour, t.StartMinute)
}

// ParseSmartTask builds a SmartTask from its JSON representation.
func ParseSmartTask(raw any) (*SmartTask, error) {
	a, err := asAttrs(raw)
	if err != nil {
		return nil, err
	}
	t := &SmartTask{
		ID:         a.integer(wire.AttrID),
		Type:       TaskType(a.integer(wire.AttrSmartTaskType)),
		Enabled:    a.flag(wire.AttrState),
		RepeatDays: Weekdays(a.integer(wire.AttrRepeatDays)),
		Raw:        a,
	}
	if trig := a.list(wire.AttrTriggerTime); len(trig) > 0 {
		t.StartHour = trig[0].integer(wire.AttrTriggerHour)
		t.StartMinute = trig[0].integer(wire.AttrTriggerMinute)
	}
	for _, act := range a.object(wire.AttrStartAction).list(wire.AttrTaskDeviceState) {
		t.Actions = append(t.Actions, TaskAction{
			DeviceID:       act.integer(wire.AttrID),
			Dimmer:         act.integer(wire.AttrDimmer),
			TransitionTime: act.integer(wire.AttrTransitionTime),
		})
	}
	return t, nil
}

// Path returns the route segments of the task.
func (t *SmartTask) Path() []string {
	return smartTaskPath(t.ID)
}

func smartTaskPath(id int) []string {
	return []string{wire.RootSmartTasks, itoa(id)}
}

// SetSmartTaskState enables or disables a task.
func SetSmartTaskState(taskID int, enabled bool) *command.Command {
	return command.Replace(smartTaskPath(taskID), map[string]any{wire.AttrState: boolInt(enabled)})
}

// SetSmartTaskTime moves the trigger time of a task.
func SetSmartTaskTime(taskID, hour, minute int) (*command.Command, error) {
	if err := checkRange("hour", hour, 0, 23); err != nil {
		return nil, err
	}
	if err := checkRange("minute", minute, 0, 59); err != nil {
		return nil, err
	}
	return command.Replace(smartTaskPath(taskID), map[string]any{
		wire.AttrTriggerTime: []any{map[string]any{
			wire.AttrTriggerHour:   hour,
			wire.AttrTriggerMinute: minute,
		}},
	}), nil
}
