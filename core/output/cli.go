package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rut31337/cloudforge/core/engine"
	"github.com/rut31337/cloudforge/core/types"
)

// CLIFormatter renders a ranking table per instance. The winner is
// marked, every other candidate is shown with its effective cost, and
// rejections and advisories follow so a reader can see why any provider
// was not chosen.
type CLIFormatter struct{}

// NewCLIFormatter creates a CLI table formatter
func NewCLIFormatter() *CLIFormatter {
	return &CLIFormatter{}
}

// Format returns the format type
func (f *CLIFormatter) Format() Format {
	return FormatCLI
}

// Render writes the result as text tables
func (f *CLIFormatter) Render(w io.Writer, result *engine.Result) error {
	fmt.Fprintf(w, "Resolution %s (catalog %s)\n", result.ID, shortHash(result.CatalogHash))
	for i := range result.Instances {
		if err := f.renderInstance(w, &result.Instances[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *CLIFormatter) renderInstance(w io.Writer, ir *engine.InstanceResult) error {
	fmt.Fprintf(w, "\n%s (%s)\n", ir.Name, ir.Kind)
	if ir.Failed() {
		fmt.Fprintf(w, "  FAILED: %s\n", ir.Error)
		return nil
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  \tPROVIDER\tMACHINE TYPE\tVCPU\tMEM MB\tIMAGE\tCOST/HR\tEFFECTIVE\tTAGS")
	if ir.Ranking != nil {
		for _, rc := range ir.Ranking.Ranked {
			marker := " "
			if ir.Optimized && rc.Rank == 1 {
				marker = "*"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
				marker,
				rc.Descriptor.Provider,
				rc.Descriptor.MachineType,
				rc.Descriptor.VCPUs,
				rc.Descriptor.MemoryMB,
				imageCell(&rc.ResolvedCandidate),
				rc.Cost.Base.StringFixed(4),
				rc.Cost.Effective.StringFixed(4),
				tagsCell(rc.Descriptor.Tags))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if ir.Ranking != nil {
		for _, rej := range ir.Ranking.Rejected {
			fmt.Fprintf(w, "  - %s: %s (%s)\n", rej.Provider, rej.Message, rej.Reason)
		}
	}
	for _, adv := range collectAdvisories(ir) {
		fmt.Fprintf(w, "  ! %s\n", advisoryLine(adv))
	}
	return nil
}

func tagsCell(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}

func imageCell(c *types.ResolvedCandidate) string {
	if c.ImageRef == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", c.ImageRef, c.ImageProvenance)
}

// collectAdvisories merges instance-level and per-candidate advisories,
// de-duplicated on code+provider+message.
func collectAdvisories(ir *engine.InstanceResult) []types.Advisory {
	seen := map[string]bool{}
	var out []types.Advisory
	add := func(a types.Advisory) {
		key := string(a.Code) + "|" + string(a.Provider) + "|" + a.Message
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, a)
	}
	for _, a := range ir.Advisories {
		add(a)
	}
	for _, c := range ir.Candidates {
		for _, a := range c.Advisories {
			add(a)
		}
	}
	return out
}

func advisoryLine(a types.Advisory) string {
	var b strings.Builder
	b.WriteString(string(a.Code))
	if a.Provider != "" {
		b.WriteString("[")
		b.WriteString(string(a.Provider))
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(a.Message)
	return b.String()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
