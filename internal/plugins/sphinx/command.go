package sphinx

import (
	"strings"

	"git.home.luguber.info/inful/sphinxctl/internal/gitinfo"
	"git.home.luguber.info/inful/sphinxctl/internal/process"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

// QuickstartCommand builds the scaffold invocation:
//
//	sphinx-quickstart -q -p <name> -a <author> -v <version> <source dir>
//
// The source directory is resolved against the project directory.
func QuickstartCommand(p *project.Project, s Settings, projectName, author, version string) process.Command {
	return process.NewCommand(s.quickstartExecutable(),
		"-q",
		"-p", projectName,
		"-a", author,
		"-v", version,
		p.ExpandPath(s.SourceDir),
	)
}

// GenerateCommand builds the documentation invocation:
//
//	sphinx-build -b <builder> -c <config dir> <source dir> <output dir>
//
// All paths are resolved against the project directory.
func GenerateCommand(p *project.Project, s Settings) process.Command {
	return process.NewCommand(s.buildExecutable(),
		"-b", s.Builder,
		"-c", p.ExpandPath(s.ConfigPath),
		p.ExpandPath(s.SourceDir),
		p.ExpandPath(s.OutputDir),
	)
}

// AuthorResolver returns a fallback author for the project directory, or "".
type AuthorResolver func(dir string) string

// ResolveAuthor joins the project authors. When there are none it asks
// fallback (may be nil) and finally returns project.DefaultAuthor.
func ResolveAuthor(p *project.Project, fallback AuthorResolver) string {
	var names []string
	for _, a := range p.Authors {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	if len(names) > 0 {
		return strings.Join(names, ", ")
	}
	if fallback != nil {
		if a := strings.TrimSpace(fallback(p.BaseDir)); a != "" {
			return a
		}
	}
	return project.DefaultAuthor
}

// GitAuthor resolves the author of the HEAD commit in dir's repository.
func GitAuthor(dir string) string { return gitinfo.HeadAuthor(dir) }
