package mqtt

import (
	"fmt"
	"strings"
)

// Command names accepted on command topics.
const (
	CmdTargetState       = "target_state"
	CmdTargetTemperature = "target_temperature"
	CmdDisplayUnit       = "display_unit"
	CmdDelay             = "delay"
	CmdCancelDelay       = "cancel_delay"
	CmdHeatStep          = "heat_step"
	CmdCoolStep          = "cool_step"
	CmdDelaySeconds      = "delay_seconds"
	CmdPresence          = "presence"
	CmdIdentify          = "identify"
	CmdSwitch            = "switch"
	CmdWindowSwitch      = "window_switch"
)

// Topics builds the topic hierarchy below a prefix:
//
//	{prefix}/{slug}/state
//	{prefix}/{slug}/set/{command}
//	{prefix}/bridge/status
type Topics struct {
	Prefix string
}

// State returns the retained state topic of a device.
func (t Topics) State(slug string) string {
	return fmt.Sprintf("%s/%s/state", t.Prefix, slug)
}

// Command returns the command topic of a device.
func (t Topics) Command(slug, command string) string {
	return fmt.Sprintf("%s/%s/set/%s", t.Prefix, slug, command)
}

// AllCommands is the subscription pattern for every command topic.
func (t Topics) AllCommands() string {
	return t.Prefix + "/+/set/+"
}

// Status is the bridge availability topic.
func (t Topics) Status() string {
	return t.Prefix + "/bridge/status"
}

// ParseCommand splits a command topic into device slug and command.
func (t Topics) ParseCommand(topic string) (slug, command string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.Prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "set" || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}
