package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/ppiankov/yojana/internal/flow"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/render"
	"github.com/ppiankov/yojana/internal/resolver"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var (
	profileFile string
	outJSON     string
	outMD       string
	minLoading  time.Duration
	quiet       bool

	draft struct {
		name, state, district, category, subcategory string
		caste, education, business, marital          string
		age                                          int
		income, land                                 float64
	}
)

// recommendCmd represents the recommend command
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend schemes for one profile",
	Long: `Recommend walks a profile through the onboarding steps:
- Personal Details (name, age)
- Location & Category (state, district, student/farmer/women)
- Background Info (caste, education)
- Financial Details (annual income)

Each step is checked in order; the first incomplete step is reported.
The complete profile is then resolved into schemes, with loading stages
shown for at least --min-loading.

Example:
  yojana recommend --name Ravi --age 40 --state Telangana --district Warangal \
    --category farmer --caste OBC --education "10th Pass" --income 200000
  yojana recommend --profile ravi.yaml --md ravi.md
  yojana recommend --profile ravi.yaml --json - --min-loading 0`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	f := recommendCmd.Flags()

	// Profile flags
	f.StringVar(&profileFile, "profile", "", "YAML file with the profile (flags override its fields)")
	f.StringVar(&draft.name, "name", "", "full name")
	f.IntVar(&draft.age, "age", 0, "age in years")
	f.StringVar(&draft.state, "state", "", "state of residence")
	f.StringVar(&draft.district, "district", "", "district")
	f.StringVar(&draft.category, "category", "", "category (student, farmer, women)")
	f.StringVar(&draft.subcategory, "subcategory", "", "subcategory (optional)")
	f.Float64Var(&draft.income, "income", 0, "annual parent/household income in rupees")
	f.StringVar(&draft.caste, "caste", "", "caste (General, OBC, SC, ST, EWS)")
	f.StringVar(&draft.education, "education", "", "highest education level")
	f.Float64Var(&draft.land, "land", 0, "land owned in acres (farmers)")
	f.StringVar(&draft.business, "business", "", "business type (women)")
	f.StringVar(&draft.marital, "marital-status", "", "marital status (optional)")

	// Output flags
	f.StringVar(&outJSON, "json", "", "output JSON path (- for stdout)")
	f.StringVar(&outMD, "md", "", "output Markdown path (- for stdout)")
	f.DurationVar(&minLoading, "min-loading", -1, "minimum loading time (default from config, 3s)")
	f.BoolVarP(&quiet, "quiet", "q", false, "do not print loading stages")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	p, err := buildProfile(profileFile, cmd.Flags())
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	if err := walkSteps(stderr, p); err != nil {
		return err
	}

	res := newResolver(cfg, log)
	if verbose {
		if res.Enabled() {
			fmt.Fprintf(stderr, "Provider: %s/%s\n", res.ProviderName(), cfg.LLM.Model)
		} else {
			fmt.Fprintf(stderr, "Provider: none (built-in catalog)\n")
		}
	}

	floor := cfg.Flow.MinResolving
	if minLoading >= 0 {
		floor = minLoading
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	outcome := make(chan resolver.Outcome, 1)
	ctl := flow.New(flow.ResolverFunc(func(ctx context.Context, p model.Profile) []model.SchemeRecord {
		out := res.Decide(ctx, p)
		outcome <- out
		return out.Schemes
	}), flow.WithMinResolving(floor), flow.WithLogger(log))
	defer ctl.Close()

	if err := ctl.SubmitProfile(p); err != nil {
		return err
	}

	snap, err := showStages(ctx, stderr, ctl)
	if err != nil {
		return fmt.Errorf("recommendation interrupted: %w", err)
	}

	result := &render.Result{Profile: *snap.Profile, Schemes: snap.Result}
	select {
	case out := <-outcome:
		result.Source = string(out.Source)
		result.Reason = string(out.Reason)
	default:
	}

	return writeResult(cmd.OutOrStdout(), result)
}

// buildProfile reads the optional profile file and applies the flags that were set
func buildProfile(path string, flags *pflag.FlagSet) (model.Profile, error) {
	var p model.Profile
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return p, fmt.Errorf("read profile: %w", err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("parse profile %s: %w", path, err)
		}
	}

	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("name", func() { p.Name = draft.name })
	set("age", func() { p.Age = draft.age })
	set("state", func() { p.State = draft.state })
	set("district", func() { p.District = draft.district })
	set("category", func() { p.Category = model.Category(draft.category) })
	set("subcategory", func() { p.Subcategory = draft.subcategory })
	set("income", func() { p.ParentIncome = draft.income })
	set("caste", func() { p.Caste = draft.caste })
	set("education", func() { p.Education = draft.education })
	set("land", func() { p.LandOwnership = &draft.land })
	set("business", func() { p.BusinessType = &draft.business })
	set("marital-status", func() { p.MaritalStatus = &draft.marital })

	p.Category = model.ParseCategory(string(p.Category))
	return p, nil
}

// walkSteps checks each step in order the way the onboarding form does
func walkSteps(w io.Writer, p model.Profile) error {
	c := flow.NewCollector(p)
	for {
		step, last := c.Current(), c.Last()
		if err := c.Next(); err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(w, "✓ %s\n", step.Title())
		}
		if last {
			return nil
		}
	}
}

// showStages prints loading stages as they are reached until the
// controller presents its result
func showStages(ctx context.Context, w io.Writer, ctl *flow.Controller) (flow.Snapshot, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	shown := 0
	show := func(started time.Time) {
		if quiet {
			return
		}
		stages := flow.StagesAt(time.Since(started), ctl.MinResolving())
		for ; shown < len(stages); shown++ {
			fmt.Fprintf(w, "⚙️  %s...\n", stages[shown].Text)
		}
	}

	for {
		snap := ctl.Snapshot()
		switch snap.State {
		case flow.StatePresenting:
			if !quiet {
				fmt.Fprintln(w)
			}
			return snap, nil
		case flow.StateResolving:
			show(snap.EnteredAt)
		default:
			return snap, fmt.Errorf("unexpected state %s", snap.State)
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ctl.Changed():
		case <-ticker.C:
		}
	}
}

func writeResult(stdout io.Writer, r *render.Result) error {
	if outJSON != "" {
		if err := render.ToFile(outJSON, r, render.JSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if outMD != "" {
		if err := render.ToFile(outMD, r, render.Markdown); err != nil {
			return fmt.Errorf("render Markdown: %w", err)
		}
	}
	if outJSON == "-" || outMD == "-" {
		return nil
	}
	return render.Text(stdout, r)
}
