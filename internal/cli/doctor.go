package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shellkey/shellkey/internal/config"
	"github.com/shellkey/shellkey/internal/doctor"
	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/internal/ui"
	"github.com/spf13/cobra"
)

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

func newDoctorCmd(a *app, flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the local setup without connecting anywhere",
		Long: `Diagnose problems before they show up halfway through a run.

Checks the config file, the local key pair and its permissions, the key
generator, known_hosts and, when use_agent is on, ssh-agent.

Exits 1 when any check fails.

Examples:
  shellkey doctor
  shellkey doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks, err := a.collectChecks(cmd, flags)
			if err != nil {
				return err
			}
			results := doctor.RunAll(checks)

			out := cmd.OutOrStdout()
			if asJSON {
				err = outputDoctorJSON(out, checks, results)
			} else {
				outputDoctorText(out, checks, results)
			}
			if err != nil {
				return err
			}
			if doctor.HasFailures(results) {
				return errors.NewExitError(errors.ExitFailure)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

// collectChecks loads the config and builds the check list. A config that
// fails to load is reported as a failed check, and the rest run on defaults.
func (a *app) collectChecks(cmd *cobra.Command, flags *rootFlags) ([]doctor.Check, error) {
	cfg, home, path, loadErr := a.loadConfig(cmd, flags)
	if loadErr != nil {
		if errors.IsCode(loadErr, errors.ErrPlatform) {
			return nil, loadErr
		}
		home, _ = ResolveHome(a.homeDir)
		cfg = config.DefaultConfig(home)
	}

	return []doctor.Check{
		&doctor.ConfigCheck{Path: path, LoadErr: loadErr},
		&doctor.KeyPairCheck{Dir: cfg.KeyDir},
		&doctor.KeyPermissionsCheck{Dir: cfg.KeyDir},
		&doctor.GeneratorCheck{Generator: cfg.Generator, LookPath: a.lookPath},
		&doctor.KnownHostsCheck{Path: cfg.KnownHosts, Strict: cfg.StrictHostKey},
		&doctor.AgentCheck{Enabled: cfg.UseAgent, Socket: a.getenv("SSH_AUTH_SOCK")},
	}, nil
}

// groupResults returns result indices per category, in CategoryOrder.
func groupResults(checks []doctor.Check) ([]string, map[string][]int) {
	grouped := make(map[string][]int)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], i)
	}
	var order []string
	for _, cat := range doctor.CategoryOrder {
		if len(grouped[cat]) > 0 {
			order = append(order, cat)
		}
	}
	return order, grouped
}

func outputDoctorJSON(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) error {
	order, grouped := groupResults(checks)

	output := DoctorOutput{Categories: make([]CategoryOutput, 0, len(order))}
	for _, cat := range order {
		co := CategoryOutput{Name: cat}
		for _, idx := range grouped[cat] {
			co.Results = append(co.Results, results[idx])
		}
		output.Categories = append(output.Categories, co)
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func outputDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w, headerStyle.Render("shellkey diagnostic report"))
	fmt.Fprintln(w)

	order, grouped := groupResults(checks)
	for _, cat := range order {
		fmt.Fprintln(w, ui.InfoStyle().Bold(true).Render(cat))
		for _, idx := range grouped[cat] {
			renderCheckResult(w, results[idx])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	if doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
	} else {
		fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
	}
}

func renderCheckResult(w io.Writer, result doctor.CheckResult) {
	var symbol string
	var style lipgloss.Style
	switch result.Status {
	case doctor.StatusPass:
		symbol, style = ui.SymbolComplete, ui.SuccessStyle()
	case doctor.StatusWarn:
		symbol, style = ui.SymbolWarning, ui.WarningStyle()
	default:
		symbol, style = ui.SymbolFail, ui.ErrorStyle()
	}

	fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), result.Message)
	if result.Suggestion != "" && result.Status != doctor.StatusPass {
		for _, line := range strings.Split(result.Suggestion, "\n") {
			fmt.Fprintf(w, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
