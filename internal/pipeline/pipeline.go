// Package pipeline runs the per-site content pipeline: plan the week,
// generate topics, build each article, assess it, gate it, and publish
// what passes. Stage events and run outcomes are persisted for the status
// and runs commands.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/orion-content/orion/internal/cms"
	"github.com/orion-content/orion/internal/database"
	"github.com/orion-content/orion/internal/enrich"
	"github.com/orion-content/orion/internal/models"
	"github.com/orion-content/orion/internal/publish"
	"github.com/orion-content/orion/internal/quality"
	"github.com/orion-content/orion/internal/rulebook"
	"github.com/orion-content/orion/internal/topics"
)

// Stage names recorded in run events.
const (
	StageWeekSetup    = "week_setup"
	StageTopics       = "topics"
	StageOutline      = "outline"
	StageSections     = "sections"
	StageEEAT         = "eeat_enrichment"
	StageQualityCheck = "quality_check"
	StagePublishGate  = "publish_gate"
	StagePublish      = "publish"
)

// StageError ties a failure to the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ContentAPI is the slice of the central API the orchestrator needs.
type ContentAPI interface {
	EnsureWeek(ctx context.Context, start time.Time) (*cms.Week, error)
	GetSiteByKey(ctx context.Context, key string) (*cms.Site, error)
	BulkCreateTopics(ctx context.Context, weekID string, batch []cms.TopicPayload) (int, error)
	JobRunStart(ctx context.Context, kind string, meta map[string]string) (*cms.JobRun, error)
	JobRunFinish(ctx context.Context, runID, status string, meta map[string]string) error
}

// Publisher creates posts on the site's WordPress instance.
type Publisher interface {
	CreatePost(ctx context.Context, req publish.PostRequest) (*publish.PostResult, error)
	DryRun() bool
}

// Options configure one site run.
type Options struct {
	SiteKey        string
	TopicCount     int
	PromptStrategy string
	Strategy       models.Strategy
	Rules          rulebook.Rules

	// Publish posts live instead of as drafts. The quality gate can still
	// block or tag individual articles.
	Publish bool
}

// TopicResult is the outcome for one topic.
type TopicResult struct {
	Topic    models.Topic
	Report   quality.Report
	Decision quality.Decision
	Post     *publish.PostResult
	Stages   int
	Duration time.Duration
	Err      error
}

// SiteResult summarizes one site run.
type SiteResult struct {
	SiteKey       string
	WeekID        string
	TopicsCreated int
	TotalStages   int
	FailedStages  int
	Duration      time.Duration
	Topics        []TopicResult
	Err           error
}

// Failed reports whether the run aborted or any topic failed.
func (r SiteResult) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, t := range r.Topics {
		if t.Err != nil {
			return true
		}
	}
	return false
}

// Orchestrator drives the pipeline for one site. Not safe for concurrent
// use; the scheduler builds one per site worker.
type Orchestrator struct {
	api       ContentAPI
	publisher Publisher
	db        *database.DB
	generator *topics.Generator
	builder   *enrich.Builder
	assessor  *quality.Assessor
	opts      Options

	now func() time.Time
}

// New builds an orchestrator. db may be nil to skip run persistence.
func New(api ContentAPI, publisher Publisher, db *database.DB,
	generator *topics.Generator, builder *enrich.Builder, opts Options) *Orchestrator {
	return &Orchestrator{
		api:       api,
		publisher: publisher,
		db:        db,
		generator: generator,
		builder:   builder,
		assessor:  quality.NewAssessor(),
		opts:      opts,
		now:       time.Now,
	}
}

// Run executes the full site pipeline: week setup, topic generation, then
// one article build per topic. Topic failures are isolated; a failed topic
// never stops the rest of the batch.
func (o *Orchestrator) Run(ctx context.Context) SiteResult {
	start := o.now()
	result := SiteResult{SiteKey: o.opts.SiteKey}

	// Job-run bookkeeping is best effort; a missing endpoint is tolerated.
	jobRun, err := o.api.JobRunStart(ctx, "multisite", map[string]string{"site": o.opts.SiteKey})
	if err != nil {
		log.Printf("[%s] jobrun start failed: %v", o.opts.SiteKey, err)
	}

	week, err := o.api.EnsureWeek(ctx, start)
	if err != nil {
		result.Err = &StageError{Stage: StageWeekSetup, Err: err}
		result.FailedStages++
		o.recordEvent(0, StageWeekSetup, false, err.Error())
		return o.finish(ctx, jobRun, result, start)
	}
	result.WeekID = week.ID
	result.TotalStages++
	o.recordEvent(0, StageWeekSetup, true, "week "+week.ISOWeek)

	site, err := o.api.GetSiteByKey(ctx, o.opts.SiteKey)
	if err == nil && site == nil {
		err = fmt.Errorf("site %q not found", o.opts.SiteKey)
	}
	if err != nil {
		result.Err = &StageError{Stage: StageTopics, Err: err}
		result.FailedStages++
		o.recordEvent(0, StageTopics, false, err.Error())
		return o.finish(ctx, jobRun, result, start)
	}

	categories := make([]topics.Category, 0, len(site.Categories))
	for _, c := range site.Categories {
		categories = append(categories, topics.Category{ID: c.ID, Name: c.Name})
	}

	o.generator.LoadTrends(ctx)
	batch := topics.Deduplicate(o.generator.Generate(site.ID, categories, o.opts.TopicCount))
	if len(batch) == 0 {
		result.Err = &StageError{Stage: StageTopics, Err: fmt.Errorf("no topics generated (site has %d categories)", len(categories))}
		result.FailedStages++
		o.recordEvent(0, StageTopics, false, result.Err.Error())
		return o.finish(ctx, jobRun, result, start)
	}

	payload := make([]cms.TopicPayload, len(batch))
	for i, t := range batch {
		payload[i] = cms.TopicPayload{
			SiteID:     t.SiteID,
			CategoryID: t.CategoryID,
			Title:      t.Title,
			Angle:      t.Angle,
			Score:      t.Score,
			Approved:   true,
		}
	}
	created, err := o.api.BulkCreateTopics(ctx, week.ID, payload)
	if err != nil {
		result.Err = &StageError{Stage: StageTopics, Err: err}
		result.FailedStages++
		o.recordEvent(0, StageTopics, false, err.Error())
		return o.finish(ctx, jobRun, result, start)
	}
	result.TopicsCreated = created
	result.TotalStages++
	o.recordEvent(0, StageTopics, true, fmt.Sprintf("%d topics created", created))

	for _, topic := range batch {
		tr := o.RunTopic(ctx, topic)
		result.Topics = append(result.Topics, tr)
		result.TotalStages += tr.Stages
		if tr.Err != nil {
			result.FailedStages++
			log.Printf("[%s] topic %q failed: %v", o.opts.SiteKey, topic.Title, tr.Err)
		}
	}

	return o.finish(ctx, jobRun, result, start)
}

// RunTopic builds, assesses, gates, and possibly publishes one article.
func (o *Orchestrator) RunTopic(ctx context.Context, topic models.Topic) (tr TopicResult) {
	start := o.now()
	tr.Topic = topic
	defer func() { tr.Duration = o.now().Sub(start) }()

	type stageEvent struct {
		stage  string
		ok     bool
		detail string
	}
	var events []stageEvent

	built, err := o.builder.Build(topic, o.opts.Strategy, o.opts.Rules, o.opts.PromptStrategy)
	if err != nil {
		tr.Err = &StageError{Stage: StageOutline, Err: err}
		tr.Stages = 1
		o.persistTopic(topic, tr, built.TotalTokens, built.TotalCostUSD, nil,
			[]database.RunEvent{{Stage: StageOutline, Detail: ptrOrNil(err.Error())}})
		return tr
	}
	for _, s := range built.Stages {
		events = append(events, stageEvent{stage: s.Stage, ok: true,
			detail: fmt.Sprintf("%s tokens=%d", s.Model, s.Tokens)})
	}

	tr.Report = o.assessor.Assess(built.Article, built.Article.PrimaryKeyword, o.opts.Strategy, o.opts.Rules)
	events = append(events, stageEvent{stage: StageQualityCheck, ok: true,
		detail: fmt.Sprintf("score=%d", tr.Report.OverallScore)})

	tr.Decision = quality.Decide(tr.Report.OverallScore, o.opts.Rules.Enforcement)
	events = append(events, stageEvent{stage: StagePublishGate, ok: tr.Decision.Publishable(), detail: tr.Decision.Reason})

	var publishStatus *string
	if !tr.Decision.Publishable() {
		publishStatus = ptrOrNil("blocked")
		log.Printf("[%s] blocked %q: %s", o.opts.SiteKey, topic.Title, tr.Decision.Reason)
	} else {
		status := "draft"
		if o.opts.Publish {
			status = "publish"
		}
		post, err := o.publisher.CreatePost(ctx, publish.PostRequest{
			Title:      built.Article.Title,
			Content:    built.Article.HTML,
			Status:     status,
			Categories: built.Article.Categories,
			Tags:       tr.Decision.Tags,
		})
		if err != nil {
			tr.Err = &StageError{Stage: StagePublish, Err: err}
			publishStatus = ptrOrNil("failed")
			events = append(events, stageEvent{stage: StagePublish, ok: false, detail: err.Error()})
		} else {
			tr.Post = post
			switch post.Status {
			case "publish":
				publishStatus = ptrOrNil("published")
			default:
				publishStatus = ptrOrNil(post.Status)
			}
			events = append(events, stageEvent{stage: StagePublish, ok: true,
				detail: fmt.Sprintf("post %s (%s)", post.ID, post.Status)})
		}
	}

	tr.Stages = len(events)
	runEvents := make([]database.RunEvent, len(events))
	for i, e := range events {
		runEvents[i] = database.RunEvent{Stage: e.stage, OK: e.ok, Detail: ptrOrNil(e.detail)}
	}
	record := database.RunRecord{
		SiteKey:       o.opts.SiteKey,
		TopicTitle:    topic.Title,
		Tokens:        built.TotalTokens,
		CostUSD:       built.TotalCostUSD,
		QualityScore:  tr.Report.OverallScore,
		Decision:      tr.Decision.State,
		PublishStatus: publishStatus,
		ContentHTML:   ptrOrNil(built.Article.HTML),
	}
	if tr.Err != nil {
		record.Error = ptrOrNil(tr.Err.Error())
	}
	if report, err := json.Marshal(struct {
		Report   quality.Report   `json:"report"`
		Decision quality.Decision `json:"decision"`
	}{tr.Report, tr.Decision}); err == nil {
		record.Report = ptrOrNil(string(report))
	}
	record.DurationMS = o.now().Sub(start).Milliseconds()
	o.persistRun(record, runEvents)

	return tr
}

func (o *Orchestrator) finish(ctx context.Context, jobRun *cms.JobRun, result SiteResult, start time.Time) SiteResult {
	result.Duration = o.now().Sub(start)

	if jobRun != nil {
		status := "success"
		if result.Failed() {
			status = "failed"
		}
		meta := map[string]string{
			"site":   o.opts.SiteKey,
			"topics": fmt.Sprintf("%d", result.TopicsCreated),
		}
		if err := o.api.JobRunFinish(ctx, jobRun.ID, status, meta); err != nil {
			log.Printf("[%s] jobrun finish failed: %v", o.opts.SiteKey, err)
		}
	}
	return result
}

// persistTopic records a run that failed before assessment produced a report.
func (o *Orchestrator) persistTopic(topic models.Topic, tr TopicResult, tokens int, cost float64,
	publishStatus *string, events []database.RunEvent) {
	record := database.RunRecord{
		SiteKey:       o.opts.SiteKey,
		TopicTitle:    topic.Title,
		Tokens:        tokens,
		CostUSD:       cost,
		Decision:      tr.Decision.State,
		PublishStatus: publishStatus,
	}
	if tr.Err != nil {
		record.Error = ptrOrNil(tr.Err.Error())
	}
	o.persistRun(record, events)
}

func (o *Orchestrator) persistRun(record database.RunRecord, events []database.RunEvent) {
	if o.db == nil {
		return
	}
	runID, err := o.db.InsertRun(record)
	if err != nil {
		log.Printf("[%s] persisting run for %q: %v", o.opts.SiteKey, record.TopicTitle, err)
		return
	}
	for _, e := range events {
		detail := ""
		if e.Detail != nil {
			detail = *e.Detail
		}
		if err := o.db.InsertEvent(runID, o.opts.SiteKey, e.Stage, e.OK, detail); err != nil {
			log.Printf("[%s] persisting event %s: %v", o.opts.SiteKey, e.Stage, err)
		}
	}
}

// recordEvent stores a site-level event not tied to a topic run.
func (o *Orchestrator) recordEvent(runID int64, stage string, ok bool, detail string) {
	if o.db == nil {
		return
	}
	if err := o.db.InsertEvent(runID, o.opts.SiteKey, stage, ok, detail); err != nil {
		log.Printf("[%s] persisting event %s: %v", o.opts.SiteKey, stage, err)
	}
}

func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
