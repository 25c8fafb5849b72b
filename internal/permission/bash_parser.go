package permission

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// BashCommand is one parsed invocation within a (possibly compound) shell
// command line.
type BashCommand struct {
	Name       string   // Command name (e.g., "rm", "git")
	Args       []string // Command arguments
	Subcommand string   // First non-flag argument (e.g., "commit" in "git commit")
}

// ParseBashCommand splits a shell command line — which may chain several
// invocations with "|", "&&", "||", ";", or a subshell — into the
// BashCommand for each individual call, so permission matching can be
// applied per-call rather than to the line as a whole.
func ParseBashCommand(command string) ([]BashCommand, error) {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)

	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}

	var commands []BashCommand
	syntax.Walk(file, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok {
			if cmd := extractCommand(call); cmd != nil {
				commands = append(commands, *cmd)
			}
		}
		return true
	})

	return commands, nil
}

// extractCommand converts a single CallExpr AST node into a BashCommand.
func extractCommand(call *syntax.CallExpr) *BashCommand {
	if len(call.Args) == 0 {
		return nil
	}

	name := wordToString(call.Args[0])
	if name == "" {
		return nil
	}

	cmd := &BashCommand{Name: name}
	for _, arg := range call.Args[1:] {
		argStr := wordToString(arg)
		cmd.Args = append(cmd.Args, argStr)

		if cmd.Subcommand == "" && !strings.HasPrefix(argStr, "-") {
			cmd.Subcommand = argStr
		}
	}

	return cmd
}

// wordToString flattens a shell word's literal, quoted, and (best-effort)
// expansion parts into the string permission matching operates on. Param
// expansions render as "$name" and command substitutions as "$()" — neither
// can be resolved statically, and collapsing them to a stable placeholder
// keeps pattern matching from panicking on dynamic input.
func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		writeWordPart(&sb, part)
	}
	return sb.String()
}

func writeWordPart(sb *strings.Builder, part syntax.WordPart) {
	switch p := part.(type) {
	case *syntax.Lit:
		sb.WriteString(p.Value)
	case *syntax.SglQuoted:
		sb.WriteString(p.Value)
	case *syntax.DblQuoted:
		for _, qp := range p.Parts {
			if lit, ok := qp.(*syntax.Lit); ok {
				sb.WriteString(lit.Value)
			}
		}
	case *syntax.ParamExp:
		sb.WriteString("$" + p.Param.Value)
	case *syntax.CmdSubst:
		sb.WriteString("$()")
	}
}

// DangerousCommands modify the filesystem and so need path validation
// (e.g. confinement to the project directory) beyond plain pattern matching.
var DangerousCommands = map[string]bool{
	"cd":    true,
	"rm":    true,
	"cp":    true,
	"mv":    true,
	"mkdir": true,
	"touch": true,
	"chmod": true,
	"chown": true,
	"rmdir": true,
	"dd":    true,
}

// IsDangerousCommand reports whether name is in DangerousCommands.
func IsDangerousCommand(name string) bool {
	return DangerousCommands[name]
}

// ExtractPaths pulls the path-like arguments out of a parsed command,
// skipping flags and (for chmod) the mode argument.
func ExtractPaths(cmd BashCommand) []string {
	var paths []string
	for _, arg := range cmd.Args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if cmd.Name == "chmod" && looksLikeChmodMode(arg) {
			continue
		}
		paths = append(paths, arg)
	}
	return paths
}

// looksLikeChmodMode reports whether arg looks like a chmod mode rather
// than a path: numeric (e.g. "755") or symbolic (e.g. "u+x", "go=r").
func looksLikeChmodMode(arg string) bool {
	if arg == "" {
		return false
	}
	switch c := arg[0]; {
	case c >= '0' && c <= '9':
		return true
	case c == 'u' || c == 'g' || c == 'o' || c == 'a':
		return true
	case c == '+' || c == '=':
		return true
	default:
		return false
	}
}

// ResolvePath makes path absolute relative to workDir, preferring the
// system's realpath (which also collapses "..") and falling back to plain
// joining if realpath is unavailable.
func ResolvePath(ctx context.Context, path, workDir string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	if strings.HasPrefix(path, "~") {
		// Can't safely expand ~ without knowing the user.
		return path, nil
	}

	cmd := exec.CommandContext(ctx, "realpath", "-m", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return filepath.Clean(filepath.Join(workDir, path)), nil
	}
	return strings.TrimSpace(string(output)), nil
}

// IsWithinDir reports whether path is dir itself or somewhere beneath it.
func IsWithinDir(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}
