package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/sphinxctl/internal/gitinfo"
)

// InfoCmd implements the 'info' command.
type InfoCmd struct {
	Raw bool `help:"Show property values without expanding $references"`
}

func (i *InfoCmd) Run(g *Global, root *CLI) error {
	s, err := openSession(root)
	if err != nil {
		return err
	}
	defer s.Close()

	// Initializers fill plugin defaults, so run them before printing.
	if err := s.executor.Initialize(); err != nil {
		return err
	}
	p := s.project

	w := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Project:\t%s\n", p.Name)
	_, _ = fmt.Fprintf(w, "Version:\t%s\n", p.VersionOrDefault())
	_, _ = fmt.Fprintf(w, "Directory:\t%s\n", p.BaseDir)
	_, _ = fmt.Fprintf(w, "Plugins:\t%s\n", strings.Join(s.plugins, ", "))
	if head, err := gitinfo.ReadHead(p.BaseDir); err == nil {
		_, _ = fmt.Fprintf(w, "Git:\t%s %s\n", head.Branch, head.ShortHash())
	}
	_, _ = fmt.Fprintf(w, "Build dependencies:\t%s\n", strings.Join(p.BuildDependencies(), ", "))
	_, _ = fmt.Fprintln(w, "\nProperties:\t")
	for _, key := range p.PropertyKeys() {
		value := p.GetString(key)
		if !i.Raw {
			value = p.Expand(value)
		}
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", key, value)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write project info: %w", err)
	}
	return nil
}
