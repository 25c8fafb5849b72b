package permission

import (
	"strings"
)

// MatchBashPermission resolves the configured action for a parsed command by
// trying patterns from most to least specific, falling back to ActionAsk
// when nothing in permissions matches at all.
func MatchBashPermission(cmd BashCommand, permissions map[string]PermissionAction) PermissionAction {
	for _, candidate := range bashPermissionCandidates(cmd) {
		if action, ok := permissions[candidate]; ok {
			return action
		}
	}
	return ActionAsk
}

// bashPermissionCandidates lists the permission keys that could govern cmd,
// ordered from most specific ("git commit *") to least ("*").
func bashPermissionCandidates(cmd BashCommand) []string {
	candidates := make([]string, 0, 4)

	if cmd.Subcommand != "" {
		candidates = append(candidates, cmd.Name+" "+cmd.Subcommand+" *")
	}
	candidates = append(candidates, cmd.Name+" *", cmd.Name, "*")

	return candidates
}

// MatchPattern reports whether cmd matches a permission pattern of the form
// "command subcommand *", "command *", "command", or "*".
func MatchPattern(pattern string, cmd BashCommand) bool {
	parts := strings.Split(pattern, " ")
	if len(parts) == 0 {
		return false
	}

	if parts[0] == "*" && len(parts) == 1 {
		return true
	}
	if parts[0] != "*" && parts[0] != cmd.Name {
		return false
	}
	if len(parts) == 1 {
		return cmd.Name == parts[0] && len(cmd.Args) == 0
	}

	if parts[len(parts)-1] == "*" {
		return matchesPrefix(parts[1:len(parts)-1], cmd.Args)
	}
	return matchesExact(parts[1:], cmd.Args)
}

// matchesPrefix reports whether each of wantArgs matches the corresponding
// leading entry of gotArgs ("*" matches anything); gotArgs may have
// additional trailing entries, since the caller's pattern ended in "*".
func matchesPrefix(wantArgs, gotArgs []string) bool {
	for i, want := range wantArgs {
		if i >= len(gotArgs) {
			return false
		}
		if want != "*" && want != gotArgs[i] {
			return false
		}
	}
	return true
}

// matchesExact reports whether wantArgs and gotArgs are the same length and
// equal element-wise.
func matchesExact(wantArgs, gotArgs []string) bool {
	if len(wantArgs) != len(gotArgs) {
		return false
	}
	for i, want := range wantArgs {
		if want != gotArgs[i] {
			return false
		}
	}
	return true
}

// BuildPattern derives the permission pattern a command would need to be
// pre-approved by: "git commit -m msg" yields "git commit *", "ls -la"
// yields "ls *".
func BuildPattern(cmd BashCommand) string {
	if cmd.Subcommand != "" {
		return cmd.Name + " " + cmd.Subcommand + " *"
	}
	return cmd.Name + " *"
}

// BuildPatterns derives the deduplicated set of permission patterns that
// would cover every command in commands. "cd" is excluded: directory
// changes are tracked separately from permission scoping.
func BuildPatterns(commands []BashCommand) []string {
	seen := make(map[string]bool)
	var patterns []string

	for _, cmd := range commands {
		if cmd.Name == "cd" {
			continue
		}

		pattern := BuildPattern(cmd)
		if seen[pattern] {
			continue
		}
		seen[pattern] = true
		patterns = append(patterns, pattern)
	}

	return patterns
}
