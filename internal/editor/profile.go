// Package editor describes the supported editors and runs their native
// accept commands.
package editor

import (
	"fmt"
	"slices"
)

// Native command identifiers exposed by the antigravity editor.
const (
	CmdAcceptAgentStep = "antigravity.agent.acceptAgentStep"
	CmdTerminalAccept  = "antigravity.terminal.accept"
)

// Profile is the capability set of one editor.
type Profile struct {
	Name string

	// NativeCommands are invoked in order on every native tick.
	NativeCommands []string

	// CDP is true when the editor is automated over remote debugging.
	CDP bool

	// InstanceLock limits non-entitled sessions to one running instance.
	InstanceLock bool
}

// HasNative reports whether the profile has any native commands.
func (p Profile) HasNative() bool {
	return len(p.NativeCommands) > 0
}

var profiles = map[string]Profile{
	"cursor": {
		Name: "cursor",
		CDP:  true,
	},
	"antigravity": {
		Name:           "antigravity",
		NativeCommands: []string{CmdAcceptAgentStep, CmdTerminalAccept},
		InstanceLock:   true,
	},
}

// Lookup returns the profile registered under name.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown editor profile %q", name)
	}
	p.NativeCommands = slices.Clone(p.NativeCommands)
	return p, nil
}

// Names lists the registered profile names in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
