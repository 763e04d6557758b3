package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/orion-content/orion/internal/cms"
	"github.com/orion-content/orion/internal/config"
	"github.com/orion-content/orion/internal/database"
	"github.com/orion-content/orion/internal/enrich"
	"github.com/orion-content/orion/internal/models"
	"github.com/orion-content/orion/internal/pipeline"
	"github.com/orion-content/orion/internal/publish"
	"github.com/orion-content/orion/internal/quality"
	"github.com/orion-content/orion/internal/report"
	"github.com/orion-content/orion/internal/research"
	"github.com/orion-content/orion/internal/rulebook"
	"github.com/orion-content/orion/internal/scheduler"
	"github.com/orion-content/orion/internal/topics"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "orion",
	Short:   "Multi-site article generation with quality gating",
	Long:    "Orion plans weekly topics, generates articles, scores them against a governed rulebook, and publishes what passes the quality gate.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(rulebookCmd)
	rootCmd.AddCommand(checkCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("orion", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/orion/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the content API, sites, and trend feeds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Pipeline runs:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Failed: %d\n", stats.FailedRuns)
		fmt.Printf("  Published: %d\n", stats.PublishedRuns)
		fmt.Printf("  Sites seen: %d\n", stats.Sites)
		fmt.Printf("  Average quality score: %.1f\n", stats.AvgQualityScore)
		fmt.Println("\nRulebook:")
		fmt.Printf("  Stored versions: %d\n", stats.RulebookVersions)
		return nil
	},
}

// --- run command ---

var (
	runSites      []string
	runTopicCount string
	runPublish    bool
	runDryRunWP   bool
	runSequential bool
	runMaxWorkers int
	runNoJitter   bool
	runJSON       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the content pipeline across sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		store := rulebook.NewStore(db)
		current, err := store.Current()
		if err != nil {
			return err
		}
		fmt.Printf("Using rulebook version %d\n", current.Version)

		api := cms.NewClient(cfg.API.BaseURL, cfg.API.Token())
		if err := api.Health(cmd.Context()); err != nil {
			return fmt.Errorf("content API not reachable: %w", err)
		}

		factory := func(sc scheduler.SiteConfig) scheduler.SiteRunner {
			seed := time.Now().UnixNano()
			creds := sc.Credentials
			if runDryRunWP {
				creds = publish.Credentials{}
			}
			opts := pipeline.Options{
				SiteKey:        sc.Key,
				TopicCount:     sc.TopicCount,
				PromptStrategy: sc.PromptStrategy,
				Strategy:       sc.Strategy,
				Rules:          current.Rules,
				Publish:        runPublish,
			}
			return pipeline.New(
				api,
				publish.NewPublisher(creds),
				db,
				topics.NewGenerator(seed, cfg.Trends.FeedURLs()),
				enrich.NewBuilder(seed),
				opts,
			)
		}

		opts := scheduler.Options{
			Sequential:       runSequential || !cfg.Scheduler.Parallel,
			MaxWorkers:       cfg.Scheduler.MaxWorkers,
			JitterMaxSeconds: cfg.Scheduler.JitterMaxSeconds,
			NoJitter:         runNoJitter,
		}
		if runMaxWorkers > 0 {
			opts.MaxWorkers = runMaxWorkers
			opts.Sequential = runSequential
		}
		if runTopicCount != "" {
			if _, _, err := config.ParseTopicCount(runTopicCount); err != nil {
				return err
			}
			cfg.Sites.Defaults.TopicCount = runTopicCount
		}

		sched := scheduler.New(cfg, api, factory, opts)
		siteKeys := scheduler.ResolveSites(runSites, cfg, os.Environ())
		fmt.Printf("Running %d site(s): %v\n\n", len(siteKeys), siteKeys)

		summary := sched.RunAll(cmd.Context(), siteKeys)

		if runJSON {
			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		} else {
			printSummary(summary)
		}

		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d sites failed", summary.Failed, summary.TotalSites)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runSites, "sites", nil, "Sites to run (default: discover from config and environment)")
	runCmd.Flags().StringVar(&runTopicCount, "topics", "", "Topics per site, a count (\"5\") or range (\"3-7\")")
	runCmd.Flags().BoolVar(&runPublish, "publish", false, "Publish posts live instead of creating drafts")
	runCmd.Flags().BoolVar(&runDryRunWP, "dry-run-wp", false, "Skip WordPress calls even when credentials are configured")
	runCmd.Flags().BoolVar(&runSequential, "sequential", false, "Run sites one at a time")
	runCmd.Flags().IntVar(&runMaxWorkers, "max-workers", 0, "Parallel site workers (overrides config)")
	runCmd.Flags().BoolVar(&runNoJitter, "no-jitter", false, "Skip the random startup delay")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the summary as JSON")
}

func printSummary(s scheduler.Summary) {
	tbl := report.NewTable("SITE", "TOPICS", "STAGES", "FAILED", "DURATION", "STATUS")
	for _, r := range s.PerSite {
		status := "ok"
		if r.Failed() {
			status = "failed"
		}
		tbl.AddRow(
			r.SiteKey,
			strconv.Itoa(r.TopicsCreated),
			strconv.Itoa(r.TotalStages),
			strconv.Itoa(r.FailedStages),
			r.Duration.Round(time.Millisecond).String(),
			status,
		)
	}
	fmt.Print(tbl.Render())
	fmt.Printf("\n%d/%d sites succeeded, %d stages (%d failed), avg duration %s\n",
		s.Successful, s.TotalSites, s.TotalStages, s.FailedStages,
		s.AvgDuration.Round(time.Millisecond))
}

// --- runs command ---

var (
	runsSite   string
	runsFailed bool
	runsLimit  uint64
	runsSince  string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.GetRuns(database.RunFilter{
			SiteKey:    runsSite,
			Since:      runsSince,
			FailedOnly: runsFailed,
			Limit:      runsLimit,
		})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		tbl := report.NewTable("ID", "SITE", "TOPIC", "SCORE", "DECISION", "PUBLISH", "STARTED")
		for _, r := range records {
			publishStatus := "-"
			if r.PublishStatus != nil {
				publishStatus = *r.PublishStatus
			}
			title := r.TopicTitle
			if rs := []rune(title); len(rs) > 40 {
				title = string(rs[:40]) + "..."
			}
			tbl.AddRow(
				strconv.FormatInt(r.ID, 10),
				r.SiteKey,
				title,
				strconv.Itoa(r.QualityScore),
				r.Decision,
				publishStatus,
				r.StartedAt,
			)
		}
		fmt.Print(tbl.Render())
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsSite, "site", "", "Filter by site key")
	runsCmd.Flags().BoolVar(&runsFailed, "failed", false, "Only failed runs")
	runsCmd.Flags().Uint64Var(&runsLimit, "limit", 20, "Maximum runs to list")
	runsCmd.Flags().StringVar(&runsSince, "since", "", "Only runs on or after this date (YYYY-MM-DD)")
}

// --- sites command ---

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List resolved sites and their settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		siteKeys := scheduler.ResolveSites(nil, cfg, os.Environ())

		tbl := report.NewTable("SITE", "TOPICS", "STRATEGY", "CRON")
		for _, key := range siteKeys {
			topicCount := cfg.Sites.Defaults.TopicCount
			strategy := cfg.Sites.Defaults.PromptStrategy
			cronSpec := "-"
			if entry := cfg.Sites.Entry(key); entry != nil {
				if entry.TopicCount != "" {
					topicCount = entry.TopicCount
				}
				if entry.PromptStrategy != "" {
					strategy = entry.PromptStrategy
				}
				if entry.Cron != "" {
					cronSpec = entry.Cron
				}
			}
			tbl.AddRow(key, topicCount, strategy, cronSpec)
		}
		fmt.Print(tbl.Render())
		return nil
	},
}

// --- topics command ---

var (
	topicsSite  string
	topicsCount int
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Preview generated topics for a site without creating them",
	RunE: func(cmd *cobra.Command, args []string) error {
		api := cms.NewClient(cfg.API.BaseURL, cfg.API.Token())
		site, err := api.GetSiteByKey(cmd.Context(), topicsSite)
		if err != nil {
			return err
		}
		if site == nil {
			return fmt.Errorf("site %q not found", topicsSite)
		}

		categories := make([]topics.Category, 0, len(site.Categories))
		for _, c := range site.Categories {
			categories = append(categories, topics.Category{ID: c.ID, Name: c.Name})
		}

		gen := topics.NewGenerator(time.Now().UnixNano(), cfg.Trends.FeedURLs())
		gen.LoadTrends(cmd.Context())
		batch := topics.Deduplicate(gen.Generate(site.ID, categories, topicsCount))

		tbl := report.NewTable("CATEGORY", "SCORE", "TITLE")
		for _, t := range batch {
			tbl.AddRow(t.Category, fmt.Sprintf("%.2f", t.Score), t.Title)
		}
		fmt.Print(tbl.Render())
		return nil
	},
}

func init() {
	topicsCmd.Flags().StringVar(&topicsSite, "site", "my-site", "Site key")
	topicsCmd.Flags().IntVar(&topicsCount, "count", 5, "Number of topics to generate")
}

// --- rulebook commands ---

var rulebookCmd = &cobra.Command{
	Use:   "rulebook",
	Short: "Inspect and govern the quality rulebook",
}

var rulebookShowCmd = &cobra.Command{
	Use:   "show [version]",
	Short: "Print a rulebook version (default: current)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		store := rulebook.NewStore(db)

		var v rulebook.Version
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version: %s", args[0])
			}
			v, err = store.Version(n)
			if err != nil {
				return err
			}
		} else {
			v, err = store.Current()
			if err != nil {
				return err
			}
		}

		out, err := json.MarshalIndent(v.Rules, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("Version %d", v.Version)
		if v.Notes != "" {
			fmt.Printf(" (%s)", v.Notes)
		}
		fmt.Printf("\n%s\n", out)
		return nil
	},
}

var rulebookHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored rulebook versions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		versions, err := rulebook.NewStore(db).History()
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Println("No stored versions; the built-in defaults (version 0) are active.")
			return nil
		}

		tbl := report.NewTable("VERSION", "CREATED", "NOTES")
		for _, v := range versions {
			notes := v.Notes
			if rs := []rune(notes); len(rs) > 70 {
				notes = string(rs[:70]) + "..."
			}
			tbl.AddRow(strconv.Itoa(v.Version), v.CreatedAt, notes)
		}
		fmt.Print(tbl.Render())
		return nil
	},
}

var rulebookUpdateForce bool

var rulebookUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Merge researched rule updates into a new rulebook version",
	Long:  "Fetches research insights, validates them, conservatively merges the proposed changes into the current rules, and appends the result as a new version. Conservative merging only ever tightens rules.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		store := rulebook.NewStore(db)

		client := research.NewClient(research.Options{
			Enabled: cfg.Research.Enabled,
			APIKey:  os.Getenv(cfg.Research.APIKeyEnv),
			Topics:  cfg.Research.Topics,
		})
		insights := client.FetchUpdates()

		validation := client.ValidateQuality(insights)
		for _, issue := range validation.Issues {
			fmt.Printf("[%s] %s (%s)\n", issue.Severity, issue.Message, issue.Suggestion)
		}
		if validation.Recommendation != "apply" && !rulebookUpdateForce {
			return fmt.Errorf("research validation recommends review (confidence %.2f); use --force to apply anyway", validation.Confidence)
		}

		current, err := store.Current()
		if err != nil {
			return err
		}
		merged, changes := rulebook.Merge(current.Rules, insights.Proposed)
		if len(changes) == 0 {
			fmt.Println("No rule changes to apply; current rules already satisfy the proposal.")
			return nil
		}

		meta := map[string]any{
			"update_method":     "conservative_merge",
			"conservative_mode": true,
			"research_date":     insights.ResearchDate,
			"confidence":        insights.Confidence,
		}
		next, err := store.Append(merged, insights.Sources, rulebook.FormatNotes(changes), meta)
		if err != nil {
			return err
		}

		fmt.Printf("Applied %d change(s) as version %d:\n", len(changes), next)
		for _, ch := range changes {
			fmt.Printf("  %s: %v -> %v\n", ch.Field, ch.From, ch.To)
		}
		return nil
	},
}

var rulebookRollbackCmd = &cobra.Command{
	Use:   "rollback [version]",
	Short: "Restore an earlier version's rules as a new version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		next, err := rulebook.NewStore(db).Rollback(target)
		if err != nil {
			return err
		}
		fmt.Printf("Rolled back to version %d rules as new version %d\n", target, next)
		return nil
	},
}

func init() {
	rulebookUpdateCmd.Flags().BoolVar(&rulebookUpdateForce, "force", false, "Apply despite validation concerns")
	rulebookCmd.AddCommand(rulebookShowCmd)
	rulebookCmd.AddCommand(rulebookHistoryCmd)
	rulebookCmd.AddCommand(rulebookUpdateCmd)
	rulebookCmd.AddCommand(rulebookRollbackCmd)
}

// --- check command ---

var (
	checkKeyword string
	checkTitle   string
	checkMeta    string
)

var checkCmd = &cobra.Command{
	Use:   "check [file.html]",
	Short: "Assess a local HTML file against the current rulebook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		current, err := rulebook.NewStore(db).Current()
		if err != nil {
			return err
		}

		article := models.Article{
			Title:           checkTitle,
			MetaDescription: checkMeta,
			PrimaryKeyword:  checkKeyword,
			HTML:            string(data),
		}
		strategy := models.DefaultStrategy()
		strategy.OriginalityProvider = cfg.Quality.OriginalityProvider

		rep := quality.NewAssessor().Assess(article, checkKeyword, strategy, current.Rules)
		decision := quality.Decide(rep.OverallScore, current.Rules.Enforcement)

		out, err := json.MarshalIndent(struct {
			Report   quality.Report   `json:"report"`
			Decision quality.Decision `json:"decision"`
		}{rep, decision}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		if !decision.Publishable() {
			return fmt.Errorf("quality gate: %s", decision.Reason)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkKeyword, "keyword", "", "Primary keyword to check placement for")
	checkCmd.Flags().StringVar(&checkTitle, "title", "", "Article title")
	checkCmd.Flags().StringVar(&checkMeta, "meta", "", "Meta description")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "orion.db")
	return database.Open(dbPath)
}
