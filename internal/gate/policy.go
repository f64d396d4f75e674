package gate

import "regexp"

// Rule tags group deny predicates by the kind of damage they prevent.
const (
	TagVersionControl = "version-control"
	TagNetwork        = "network"
	TagDeployment     = "deployment"
	TagFilesystem     = "filesystem"
	TagPrivilege      = "privilege"
)

// Rule is one tagged deny predicate. Match is evaluated against the raw
// text of each pipeline candidate, so reordered flags and wrapper
// indirection are caught without a shell parser. When Exempt is non-nil and
// matches, the rule does not apply (the sanctioned path through a pattern
// the rule would otherwise catch).
type Rule struct {
	Tag    string
	Reason string
	Match  *regexp.Regexp
	Exempt *regexp.Regexp
}

func (r Rule) matches(candidate string) bool {
	if !r.Match.MatchString(candidate) {
		return false
	}
	if r.Exempt != nil && r.Exempt.MatchString(candidate) {
		return false
	}
	return true
}

// pkgManager exempts sanctioned package-manager installs from the network
// egress rules.
var pkgManager = regexp.MustCompile(`\b(pip|pip3|npm|yarn|pnpm)\b`)

// DefaultRules returns the ordered deny table for unattended operation.
// First match wins. The table is defense-in-depth on top of the agent's own
// permission configuration; it targets semantic intent (any flag order, any
// clustering) rather than canonical spellings.
func DefaultRules() []Rule {
	return []Rule{
		// Version control: no pushes, no history rewrites, no discarding work.
		{
			Tag:    TagVersionControl,
			Reason: "git push is blocked; commit locally only",
			Match:  regexp.MustCompile(`\bgit\b.*\bpush\b`),
		},
		{
			Tag:    TagVersionControl,
			Reason: "git reset --hard is blocked (destructive)",
			Match:  regexp.MustCompile(`\bgit\b.*\breset\b.*--hard`),
		},
		{
			Tag:    TagVersionControl,
			Reason: "git clean -f is blocked (deletes untracked files)",
			Match:  regexp.MustCompile(`\bgit\b.*\bclean\b.*\s-[a-zA-Z]*f`),
		},
		{
			Tag:    TagVersionControl,
			Reason: "git checkout . is blocked (discards changes)",
			Match:  regexp.MustCompile(`\bgit\b.*\bcheckout\b\s+\.`),
		},
		{
			Tag:    TagVersionControl,
			Reason: "git restore . is blocked (discards changes)",
			Match:  regexp.MustCompile(`\bgit\b.*\brestore\b\s+\.`),
		},
		{
			Tag:    TagVersionControl,
			Reason: "git branch -D is blocked (force-deletes branch)",
			Match:  regexp.MustCompile(`\bgit\b.*\bbranch\b.*\s-[a-zA-Z]*D`),
		},
		{
			Tag:    TagVersionControl,
			Reason: "git stash drop/clear is blocked",
			Match:  regexp.MustCompile(`\bgit\b.*\bstash\b\s+(drop|clear)\b`),
		},
		{
			Tag:    TagVersionControl,
			Reason: "interactive git rebase is blocked",
			Match:  regexp.MustCompile(`\bgit\b.*\brebase\b.*\s-[a-z]*i\b`),
		},

		// Network egress: no remote shells, no raw downloads or listeners.
		{
			Tag:    TagNetwork,
			Reason: "ssh is blocked (no remote access)",
			Match:  regexp.MustCompile(`\bssh\b`),
		},
		{
			Tag:    TagNetwork,
			Reason: "scp is blocked (no remote access)",
			Match:  regexp.MustCompile(`\bscp\b`),
		},
		{
			Tag:    TagNetwork,
			Reason: "rsync to remote hosts is blocked",
			Match:  regexp.MustCompile(`\brsync\b.*:`),
		},
		{
			Tag:    TagNetwork,
			Reason: "curl is blocked (use pip/npm for packages)",
			Match:  regexp.MustCompile(`\bcurl\b`),
			Exempt: pkgManager,
		},
		{
			Tag:    TagNetwork,
			Reason: "wget is blocked (use pip/npm for packages)",
			Match:  regexp.MustCompile(`\bwget\b`),
			Exempt: pkgManager,
		},
		{
			Tag:    TagNetwork,
			Reason: "nc/ncat is blocked (no raw network access)",
			Match:  regexp.MustCompile(`\b(nc|ncat)\b`),
			Exempt: pkgManager,
		},

		// Deployment triggers and container teardown.
		{
			Tag:    TagDeployment,
			Reason: "deploy.sh is blocked",
			Match:  regexp.MustCompile(`\bdeploy\.sh\b`),
		},
		{
			Tag:    TagDeployment,
			Reason: "deployment commands are blocked",
			Match:  regexp.MustCompile(`\bdeploy\s+(staging|production|prod|all)\b`),
		},
		{
			Tag:    TagDeployment,
			Reason: "docker rm is blocked",
			Match:  regexp.MustCompile(`\bdocker\s+rm\b`),
		},
		{
			Tag:    TagDeployment,
			Reason: "docker stop/kill is blocked",
			Match:  regexp.MustCompile(`\bdocker\s+(stop|kill)\b`),
		},
		{
			Tag:    TagDeployment,
			Reason: "docker compose down is blocked",
			Match:  regexp.MustCompile(`\bdocker(-|\s+)compose\s+down\b`),
		},

		// Filesystem deletion, including destructive SQL and management
		// commands smuggled through docker exec.
		{
			Tag:    TagFilesystem,
			Reason: "rm is blocked (no file deletion)",
			Match:  regexp.MustCompile(`\brm(\s|$)`),
		},
		{
			Tag:    TagFilesystem,
			Reason: "rmdir is blocked (no directory deletion)",
			Match:  regexp.MustCompile(`\brmdir\b`),
		},
		{
			Tag:    TagFilesystem,
			Reason: "unlink is blocked (no file deletion)",
			Match:  regexp.MustCompile(`\bunlink\b`),
		},
		{
			Tag:    TagFilesystem,
			Reason: "shred is blocked (no file deletion)",
			Match:  regexp.MustCompile(`\bshred\b`),
		},
		{
			Tag:    TagFilesystem,
			Reason: "DROP TABLE/DATABASE/INDEX via docker exec is blocked",
			Match:  regexp.MustCompile(`(?i)\bdocker\s+exec\b.*\bdrop\s+(table|database|index)\b`),
		},
		{
			Tag:    TagFilesystem,
			Reason: "DELETE FROM via docker exec is blocked",
			Match:  regexp.MustCompile(`(?i)\bdocker\s+exec\b.*\bdelete\s+from\b`),
		},
		{
			Tag:    TagFilesystem,
			Reason: "TRUNCATE via docker exec is blocked",
			Match:  regexp.MustCompile(`(?i)\bdocker\s+exec\b.*\btruncate\s+(table\s+)?\w`),
		},
		{
			Tag:    TagFilesystem,
			Reason: "ALTER TABLE ... DROP via docker exec is blocked",
			Match:  regexp.MustCompile(`(?i)\bdocker\s+exec\b.*\balter\s+table\b.*\bdrop\b`),
		},
		{
			Tag:    TagFilesystem,
			Reason: "destructive manage.py commands via docker exec are blocked",
			Match:  regexp.MustCompile(`(?i)\bdocker\s+exec\b.*manage\.py\s+(flush|reset_db|dbshell)\b`),
		},

		// Privilege escalation.
		{
			Tag:    TagPrivilege,
			Reason: "sudo is blocked (no privilege escalation)",
			Match:  regexp.MustCompile(`\bsudo\b`),
		},
		{
			Tag:    TagPrivilege,
			Reason: "su is blocked (no privilege escalation)",
			Match:  regexp.MustCompile(`\bsu\s|^su$`),
		},
		{
			Tag:    TagPrivilege,
			Reason: "doas is blocked (no privilege escalation)",
			Match:  regexp.MustCompile(`\bdoas\b`),
		},
	}
}
