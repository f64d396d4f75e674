package config

// Limits defines operational boundaries for a supervised run.
type Limits struct {
	MaxIterations         int `yaml:"max_iterations"`
	IterationPauseSeconds int `yaml:"iteration_pause_seconds"`
}

// AgentConfig describes how the external agent is invoked.
type AgentConfig struct {
	Command   string   `yaml:"command"`
	ExtraArgs []string `yaml:"extra_args"`
}

// Config represents the .minder/config.yaml file.
type Config struct {
	Limits Limits      `yaml:"limits"`
	Agent  AgentConfig `yaml:"agent"`
}

// HookConfig registers one hook command with the agent runtime.
type HookConfig struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// HookMatcher routes a class of tool calls to a list of hooks.
type HookMatcher struct {
	Matcher string       `json:"matcher"`
	Hooks   []HookConfig `json:"hooks"`
}

// Permissions defines the agent's coarse allow/deny rules. These are the
// primary control; the safety gate layers on top of them.
type Permissions struct {
	Deny []string `json:"deny"`
}

// Settings represents the .minder/settings.json file handed to the agent.
type Settings struct {
	Permissions Permissions              `json:"permissions"`
	Hooks       map[string][]HookMatcher `json:"hooks,omitempty"`
}
