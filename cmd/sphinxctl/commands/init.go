package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/sphinxctl/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing project file"`
	Name  string `help:"Project name (default: the project directory name)"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	return RunInit(g, root.ProjectFile, i.Name, i.Force)
}

// RunInit writes the starter project file to path.
func RunInit(g *Global, path, name string, force bool) error {
	if name == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve project file: %w", err)
		}
		name = filepath.Base(filepath.Dir(abs))
	}

	out := g.out()
	_, _ = fmt.Fprintf(out, "Writing project file to %s\n", path)
	if err := config.Init(path, name, force); err != nil {
		_, _ = fmt.Fprintln(out, "Initialization failed")
		return err
	}
	_, _ = fmt.Fprintf(out, "Initialized project %s\n", name)
	return nil
}
