// Package process runs external programs for build tasks: argv construction,
// availability probes and log-captured execution.
package process

import "strings"

// Command is a single external invocation. Args are passed to the program
// as-is, without a shell, so no token ever needs quoting.
type Command struct {
	Name string
	Args []string
}

// NewCommand copies args so later changes to the caller's slice cannot leak in.
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: append([]string(nil), args...)}
}

// Argv returns the program name followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// Equal reports token-for-token equality.
func (c Command) Equal(o Command) bool {
	if c.Name != o.Name || len(c.Args) != len(o.Args) {
		return false
	}
	for i := range c.Args {
		if c.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

// String renders the command for logs, quoting tokens a POSIX shell would split.
func (c Command) String() string {
	argv := c.Argv()
	quoted := make([]string, len(argv))
	for i, tok := range argv {
		quoted[i] = shellQuote(tok)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
