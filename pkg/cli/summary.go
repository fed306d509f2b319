package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
)

var riskColors = map[model.RiskLevel]*color.Color{
	model.RiskLow:    color.New(color.FgGreen, color.Bold),
	model.RiskMedium: color.New(color.FgYellow, color.Bold),
	model.RiskHigh:   color.New(color.FgRed, color.Bold),
}

// printSummary writes a short human readable view of an assessment
func printSummary(w io.Writer, a *model.Assessment) {
	v := a.Verdict
	label := color.New(color.Faint)

	level := riskColors[v.RiskLevel]
	if level == nil {
		level = color.New(color.Bold)
	}

	fmt.Fprintln(w)
	label.Fprint(w, "Risk level : ")
	level.Fprintln(w, v.RiskLevel)

	if c := v.Changes; c != nil {
		label.Fprint(w, "Dependency : ")
		fmt.Fprintf(w, "%s:%s %s -> %s\n", c.GroupID, c.ArtifactID, c.OldVersion, c.NewVersion)
	}
	if v.Comments != "" {
		label.Fprint(w, "Comments   : ")
		fmt.Fprintln(w, v.Comments)
	}

	label.Fprintf(w, "Usage      : %d class(es)\n", len(v.Usage))
	for _, u := range v.Usage {
		fmt.Fprintf(w, "  - %s ", color.CyanString(u.Class))
		label.Fprintf(w, "(%s)\n", u.Path)
		if info := u.LastCommitInfo; info != nil && info.CommitID != "" {
			fmt.Fprintf(w, "      %s %s %s\n", color.YellowString(info.CommitID), info.Author, color.MagentaString(info.JiraID))
		}
	}

	label.Fprintf(w, "Assessment : %s (%d risk steps, %d enrich steps)\n", a.ID, len(a.RiskSteps), len(a.EnrichSteps))
}
