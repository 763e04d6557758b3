// Package scheduler fans the pipeline out across sites: it resolves which
// sites to run, assembles each site's effective configuration from
// environment, config file, and central secrets, and runs them sequentially
// or through a bounded worker pool.
package scheduler

import (
	"context"
	"log"
	"math/rand"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/orion-content/orion/internal/cms"
	"github.com/orion-content/orion/internal/config"
	"github.com/orion-content/orion/internal/models"
	"github.com/orion-content/orion/internal/pipeline"
	"github.com/orion-content/orion/internal/publish"
)

// Options control one multisite batch.
type Options struct {
	Sequential       bool
	MaxWorkers       int
	JitterMaxSeconds int
	NoJitter         bool
}

// SiteConfig is the fully resolved configuration for one site run.
type SiteConfig struct {
	Key            string
	TopicCount     int
	PromptStrategy string
	Strategy       models.Strategy
	Credentials    publish.Credentials
}

// SiteRunner runs the pipeline for one site.
type SiteRunner interface {
	Run(ctx context.Context) pipeline.SiteResult
}

// RunnerFactory builds a runner for a resolved site config. The config is
// passed by value so workers never share mutable state.
type RunnerFactory func(site SiteConfig) SiteRunner

// SecretsAPI is the central credential lookup.
type SecretsAPI interface {
	GetSiteSecrets(ctx context.Context, siteKey string) (*cms.SiteSecrets, error)
}

// Summary aggregates a batch of site results.
type Summary struct {
	TotalSites   int
	Successful   int
	Failed       int
	TotalStages  int
	FailedStages int
	AvgDuration  time.Duration
	PerSite      []pipeline.SiteResult
}

// Scheduler resolves site configs and runs batches.
type Scheduler struct {
	cfg     *config.Config
	secrets SecretsAPI
	factory RunnerFactory
	opts    Options

	rng   *rand.Rand
	sleep func(time.Duration)
}

// New builds a scheduler. secrets may be nil to skip central credential
// lookup.
func New(cfg *config.Config, secrets SecretsAPI, factory RunnerFactory, opts Options) *Scheduler {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 3
	}
	if opts.JitterMaxSeconds == 0 {
		opts.JitterMaxSeconds = 180
	}
	return &Scheduler{
		cfg:     cfg,
		secrets: secrets,
		factory: factory,
		opts:    opts,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   time.Sleep,
	}
}

// siteEnvRe matches per-site environment overrides such as
// WP_BASE_URL__MY_SITE.
var siteEnvRe = regexp.MustCompile(`^(WP_BASE_URL|WP_URL|WP_USERNAME|WP_APP_PASSWORD|TOPIC_COUNT|PROMPT_STRATEGY)__(.+)$`)

// ResolveSites decides which sites to run: an explicit list wins, then the
// config file plus sites discovered from per-site environment variables,
// then a single default site. The result is sorted and de-duplicated.
func ResolveSites(explicit []string, cfg *config.Config, environ []string) []string {
	if len(explicit) > 0 {
		return sortedUnique(explicit)
	}

	var sites []string
	sites = append(sites, cfg.Sites.List...)
	for _, entry := range cfg.Sites.Entries {
		sites = append(sites, entry.Key)
	}
	for _, kv := range environ {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if m := siteEnvRe.FindStringSubmatch(name); m != nil {
			key := strings.ToLower(strings.ReplaceAll(m[2], "_", "-"))
			sites = append(sites, key)
		}
	}

	if len(sites) == 0 {
		return []string{"my-site"}
	}
	return sortedUnique(sites)
}

// SiteConfigFor resolves one site's effective settings. Credential priority:
// site-specific environment, config file entry, plain environment, central
// secrets. Missing credentials leave the site in dry-run mode.
func (s *Scheduler) SiteConfigFor(ctx context.Context, key string) SiteConfig {
	suffix := strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	entry := s.cfg.Sites.Entry(key)

	sc := SiteConfig{Key: key, Strategy: models.DefaultStrategy()}
	if entry != nil && entry.Strategy.SitePersona != "" {
		sc.Strategy = entry.Strategy
	}
	if s.cfg.Quality.OriginalityProvider != "" && sc.Strategy.OriginalityProvider == "" {
		sc.Strategy.OriginalityProvider = s.cfg.Quality.OriginalityProvider
	}

	creds := publish.Credentials{
		BaseURL:     firstNonEmpty(os.Getenv("WP_BASE_URL__"+suffix), os.Getenv("WP_URL__"+suffix)),
		Username:    os.Getenv("WP_USERNAME__" + suffix),
		AppPassword: os.Getenv("WP_APP_PASSWORD__" + suffix),
	}
	if !creds.Complete() && entry != nil {
		creds = fillCredentials(creds, publish.Credentials{
			BaseURL:     entry.WordPress.BaseURL,
			Username:    entry.WordPress.Username,
			AppPassword: entry.WordPress.AppPassword,
		})
	}
	if !creds.Complete() {
		creds = fillCredentials(creds, publish.Credentials{
			BaseURL:     firstNonEmpty(os.Getenv("WP_BASE_URL"), os.Getenv("WP_URL")),
			Username:    os.Getenv("WP_USERNAME"),
			AppPassword: os.Getenv("WP_APP_PASSWORD"),
		})
	}
	if !creds.Complete() && s.secrets != nil {
		if stored, err := s.secrets.GetSiteSecrets(ctx, key); err != nil {
			log.Printf("[%s] secrets lookup failed: %v", key, err)
		} else if stored != nil {
			creds = fillCredentials(creds, publish.Credentials{
				BaseURL:     stored.BaseURL,
				Username:    stored.Username,
				AppPassword: stored.AppPassword,
			})
		}
	}
	sc.Credentials = creds
	if !creds.Complete() {
		log.Printf("[%s] no wordpress credentials, running dry", key)
	}

	countSpec := firstNonEmpty(
		os.Getenv("TOPIC_COUNT__"+suffix),
		entryTopicCount(entry),
		os.Getenv("TOPIC_COUNT"),
		s.cfg.Sites.Defaults.TopicCount,
		"5",
	)
	sc.TopicCount = s.pickTopicCount(key, countSpec)

	sc.PromptStrategy = firstNonEmpty(
		os.Getenv("PROMPT_STRATEGY__"+suffix),
		entryPromptStrategy(entry),
		os.Getenv("PROMPT_STRATEGY"),
		s.cfg.Sites.Defaults.PromptStrategy,
		"default",
	)
	return sc
}

// pickTopicCount parses a count spec and draws from the range. Invalid
// specs are logged and fall back to 5.
func (s *Scheduler) pickTopicCount(key, spec string) int {
	min, max, err := config.ParseTopicCount(spec)
	if err != nil {
		log.Printf("[%s] %v, using 5", key, err)
		return 5
	}
	if min == max {
		return min
	}
	return min + s.rng.Intn(max-min+1)
}

// RunAll runs the batch over the given sites. A single jitter sleep spreads
// scheduled batches; all site configs resolve before any worker starts, then
// per-site work runs sequentially or through the worker pool.
func (s *Scheduler) RunAll(ctx context.Context, siteKeys []string) Summary {
	if !s.opts.NoJitter && s.opts.JitterMaxSeconds > 0 {
		wait := time.Duration(s.rng.Intn(s.opts.JitterMaxSeconds+1)) * time.Second
		log.Printf("jitter: waiting %s before batch", wait)
		s.sleep(wait)
	}

	// Configs resolve on this goroutine only. The rng draw behind range
	// topic counts is not safe for concurrent use, so workers receive
	// fully resolved values.
	configs := make([]SiteConfig, len(siteKeys))
	for i, key := range siteKeys {
		configs[i] = s.SiteConfigFor(ctx, key)
	}

	results := make([]pipeline.SiteResult, len(configs))
	if s.opts.Sequential || s.opts.MaxWorkers == 1 {
		for i := range configs {
			results[i] = s.runSite(ctx, configs[i])
		}
	} else {
		type job struct {
			index int
			site  SiteConfig
		}
		jobs := make(chan job)
		var wg sync.WaitGroup

		workers := s.opts.MaxWorkers
		if workers > len(configs) {
			workers = len(configs)
		}
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range jobs {
					results[j.index] = s.runSite(ctx, j.site)
				}
			}()
		}
		for i := range configs {
			jobs <- job{index: i, site: configs[i]}
		}
		close(jobs)
		wg.Wait()
	}

	return summarize(results)
}

func (s *Scheduler) runSite(ctx context.Context, sc SiteConfig) pipeline.SiteResult {
	log.Printf("[%s] running with %d topics, strategy %s", sc.Key, sc.TopicCount, sc.PromptStrategy)
	return s.factory(sc).Run(ctx)
}

func summarize(results []pipeline.SiteResult) Summary {
	summary := Summary{TotalSites: len(results), PerSite: results}
	var total time.Duration
	for _, r := range results {
		if r.Failed() {
			summary.Failed++
		} else {
			summary.Successful++
		}
		summary.TotalStages += r.TotalStages
		summary.FailedStages += r.FailedStages
		total += r.Duration
	}
	if len(results) > 0 {
		summary.AvgDuration = total / time.Duration(len(results))
	}
	return summary
}

func entryTopicCount(e *config.SiteEntry) string {
	if e == nil {
		return ""
	}
	return e.TopicCount
}

func entryPromptStrategy(e *config.SiteEntry) string {
	if e == nil {
		return ""
	}
	return e.PromptStrategy
}

func fillCredentials(base, fallback publish.Credentials) publish.Credentials {
	if base.BaseURL == "" {
		base.BaseURL = fallback.BaseURL
	}
	if base.Username == "" {
		base.Username = fallback.Username
	}
	if base.AppPassword == "" {
		base.AppPassword = fallback.AppPassword
	}
	return base
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
