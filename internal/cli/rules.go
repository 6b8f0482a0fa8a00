package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/formtree/internal/form"
	"github.com/roach88/formtree/internal/rules"
	"github.com/roach88/formtree/internal/validators"
)

// Segment statuses reported by the rules command.
const (
	SegmentOK       = "ok"
	SegmentUnknown  = "unknown"
	SegmentRejected = "rejected"
)

// SegmentReport describes one parsed segment of a rule string.
type SegmentReport struct {
	Raw    string `json:"raw"`
	Name   string `json:"name"`
	Args   []any  `json:"args,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RuleReport describes one rule string.
type RuleReport struct {
	Rule     string          `json:"rule"`
	Segments []SegmentReport `json:"segments"`
	Error    string          `json:"error,omitempty"`
}

// OK reports whether the rule parsed and every segment resolved.
func (r RuleReport) OK() bool {
	if r.Error != "" {
		return false
	}
	for _, seg := range r.Segments {
		if seg.Status != SegmentOK {
			return false
		}
	}
	return true
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules <rule>...",
		Short: "Parse rule strings and resolve them against the built-in validators",
		Long: `Parse each rule string into segments and resolve every segment
against the built-in validators.

Exit codes:
  0 - Every rule resolved
  1 - A rule is malformed, names an unknown validator, or passes
      arguments its validator rejects

Examples:
  formtree rules 'required|minLength(3)'
  formtree rules 'between(1, 10)' 'pattern("^[a-z]+$")' --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runRules(opts *RootOptions, ruleArgs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	registry := validators.Default()

	reports := make([]RuleReport, 0, len(ruleArgs))
	failed := 0
	for _, rule := range ruleArgs {
		report := inspectRule(registry, rule)
		formatter.VerboseLog("rule %q: %d segment(s)", rule, len(report.Segments))
		if !report.OK() {
			failed++
		}
		reports = append(reports, report)
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: reports}
		if failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ruleErrorCode(reports),
				Message: fmt.Sprintf("%d rule(s) failed to resolve", failed),
			}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
	} else {
		writeRulesText(cmd.OutOrStdout(), reports)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d rule(s) failed to resolve", failed))
	}
	return nil
}

// inspectRule parses rule and resolves each segment on its own so every
// problem in the string is reported, not just the first.
func inspectRule(registry *form.ValidatorRegistry, rule string) RuleReport {
	report := RuleReport{Rule: rule, Segments: []SegmentReport{}}

	segments, err := rules.Parse(rule)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	for _, seg := range segments {
		sr := SegmentReport{Raw: seg.Raw, Name: seg.Name, Args: seg.Args, Status: SegmentOK}
		if !registry.Has(seg.Name) {
			sr.Status = SegmentUnknown
			sr.Error = fmt.Sprintf("validator %q is not registered", seg.Name)
		} else if _, err := registry.Resolve(seg.Raw); err != nil {
			sr.Status = SegmentRejected
			sr.Error = resolutionCause(err)
		}
		report.Segments = append(report.Segments, sr)
	}
	return report
}

// resolutionCause strips the rule resolution wrapper down to the
// validator's own complaint.
func resolutionCause(err error) string {
	var fe *form.Error
	if errors.As(err, &fe) {
		if fe.Err != nil {
			return fe.Err.Error()
		}
		return fe.Message
	}
	return err.Error()
}

func ruleErrorCode(reports []RuleReport) string {
	for _, r := range reports {
		if r.Error != "" {
			return ErrCodeRuleSyntax
		}
	}
	return ErrCodeRuleResolution
}

func writeRulesText(w io.Writer, reports []RuleReport) {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		mark := "✓"
		if !r.OK() {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, r.Rule)
		if r.Error != "" {
			fmt.Fprintf(w, "  %s\n", r.Error)
			continue
		}
		if len(r.Segments) == 0 {
			fmt.Fprintln(w, "  (no segments)")
		}
		for _, seg := range r.Segments {
			line := "  " + seg.Name
			if len(seg.Args) > 0 {
				line += fmt.Sprintf(" args=%v", seg.Args)
			}
			if seg.Status != SegmentOK {
				line += fmt.Sprintf(" [%s: %s]", seg.Status, seg.Error)
			}
			fmt.Fprintln(w, line)
		}
	}
}
