package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eldris/minder/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the .minder/ directory structure",
	Long: `Creates .minder/ with default configuration and working files:

  - config.yaml with operational limits and the agent command
  - prompt.md with the per-iteration instruction template
  - tasks.json with an example task ledger (replace with your own)
  - progress.md seeded for the agent's progress narrative
  - settings.json with permission denies and the safety-gate hook
  - logs/ for iteration transcripts and records`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing .minder/ directory")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	minderDir := filepath.Join(cwd, ".minder")
	if _, err := os.Stat(minderDir); err == nil && !initForce {
		return fmt.Errorf(".minder/ already exists (use --force to overwrite)")
	}

	if err := os.MkdirAll(filepath.Join(minderDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	files := map[string]string{
		"config.yaml": configYAMLContent,
		"prompt.md":   promptMDContent,
		"progress.md": progressMDContent,
		"tasks.json":  tasksJSONContent,
		".gitignore":  gitignoreContent,
	}
	for name, content := range files {
		path := filepath.Join(minderDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := writeSettingsJSON(minderDir); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Initialized .minder/ directory")
	fmt.Fprintln(cmd.OutOrStdout(), "Edit .minder/tasks.json with your task ledger, then run: minder run")
	return nil
}

func writeSettingsJSON(minderDir string) error {
	settings := config.Settings{
		Permissions: config.Permissions{
			Deny: []string{
				"Read(~/.ssh/**)", "Edit(~/.ssh/**)",
				"Read(~/.aws/**)", "Edit(~/.aws/**)",
				"Read(**/.env)", "Edit(**/.env)",
				"Read(**/.env.*)", "Edit(**/.env.*)",
				"Bash(git push:*)",
				"Bash(rm:*)",
				"Bash(sudo:*)",
			},
		},
		Hooks: map[string][]config.HookMatcher{
			"PreToolUse": {
				{
					Matcher: "Bash",
					Hooks: []config.HookConfig{
						{Type: "command", Command: "minder hook"},
					},
				},
			},
		},
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return os.WriteFile(filepath.Join(minderDir, "settings.json"), data, 0o644)
}

const configYAMLContent = `# Minder configuration

limits:
  # Ceiling on agent invocations per run
  max_iterations: 20

  # Settle time between iterations, in seconds
  iteration_pause_seconds: 3

agent:
  # The agent binary to invoke
  command: claude

  # Extra arguments appended to the built invocation
  extra_args: []
`

const promptMDContent = `# Iteration Instructions

You are one iteration of a supervised, unattended coding session. Complete
exactly one task, then stop.

## Steps

1. Read .minder/tasks.json and find the task with the lowest id where
   "passes" is false.
2. Implement it by following its steps in order. The last step is a
   verification directive: run it and make it succeed.
3. Only when verification succeeds, edit .minder/tasks.json and set that
   task's "passes" to true. Never change any other field, and never set a
   true flag back to false.
4. Append a short dated note of what you did to .minder/progress.md.
5. Commit your changes with a descriptive message.

## Completion

When every task in .minder/tasks.json has "passes": true, append this exact
line on its own to .minder/progress.md:

ALL TASKS COMPLETE
`

const progressMDContent = `# Progress

One dated entry per iteration, appended by the agent.
`

const tasksJSONContent = `[
  {
    "id": 1,
    "category": "foundation",
    "description": "Example task: replace this ledger with your own",
    "steps": [
      "Describe the work as concrete steps",
      "End with a verification directive, e.g.: run the test suite and confirm it passes"
    ],
    "passes": false
  }
]
`

const gitignoreContent = `logs/
`
