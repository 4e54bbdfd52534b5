package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of builds to show" default:"10"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	s, err := openSession(root)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.openHistory(); err != nil {
		return err
	}
	if s.store == nil {
		return berrors.ValidationFailed(PropBuildHistoryDB, "build history is disabled")
	}

	proj := eventstore.NewBuildHistoryProjection(s.store, h.Limit)
	if err := proj.Rebuild(context.Background()); err != nil {
		return err
	}
	builds := proj.GetHistory(h.Limit)
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(g.out(), "No builds recorded")
		return nil
	}

	w := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BUILD\tSTARTED\tSTATUS\tDURATION\tTASKS\tCOMMIT")
	for _, b := range builds {
		status := b.Status
		if b.FailedTask != "" {
			status += " (" + b.FailedTask + ")"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(b.BuildID),
			humanize.Time(b.StartedAt),
			status,
			b.Duration.Round(time.Millisecond),
			strings.Join(b.Plan, ","),
			shortID(b.GitCommit),
		)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write build history: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
