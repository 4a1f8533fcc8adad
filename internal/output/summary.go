package output

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

var (
	repoStyle = lipgloss.NewStyle().Bold(true)
	shaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func (s *Splog) render(style lipgloss.Style, text string) string {
	if !s.decorate {
		return text
	}
	return style.Render(text)
}

// Landed prints one line per repository that received a commit
func (s *Splog) Landed(shas map[string]string) {
	if len(shas) == 0 {
		s.Info("Nothing to land.")
		return
	}
	names := make([]string, 0, len(shas))
	for name := range shas {
		names = append(names, name)
	}
	sort.Strings(names)

	s.Info("%s", s.render(okStyle, fmt.Sprintf("Landed in %d repositories:", len(names))))
	for _, name := range names {
		s.Info("  %s %s", s.render(repoStyle, name), s.render(shaStyle, shortSHA(shas[name])))
	}
}

// Imported prints the branch an import was pushed to
func (s *Splog) Imported(hub, branch string) {
	s.Info("%s %s %s",
		s.render(okStyle, "Imported into"),
		s.render(repoStyle, hub),
		s.render(dimStyle, "on branch "+branch),
	)
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
