package pipeline

import "fmt"

// ConfigurationError reports a bad config value or a command invoked
// against an incompatible state. It always names both sides.
type ConfigurationError struct {
	Command string
	State   StateKind
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("command %q cannot run in state %q: %s", e.Command, e.State, e.Reason)
	}
	return fmt.Sprintf("command %q cannot run in state %q", e.Command, e.State)
}

func mismatch(command string, s State) error {
	return &ConfigurationError{
		Command: command,
		State:   s.Kind(),
		Reason:  "state kind mismatch",
	}
}
