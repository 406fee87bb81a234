package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Past-Tang/x/internal/database"
	"github.com/Past-Tang/x/internal/metrics"
	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pool"
	"github.com/Past-Tang/x/internal/selection"
	"github.com/Past-Tang/x/internal/settings"
	"github.com/Past-Tang/x/internal/social"
	"github.com/Past-Tang/x/internal/vault"
)

// fakeClient scripts gateway behavior and records outbound calls.
type fakeClient struct {
	mu           sync.Mutex
	fetchResult  social.Result
	replySuccess bool
	publishID    string
	publishFail  bool

	replies   []string // post ids replied to
	published []string // texts published
}

func (f *fakeClient) FetchUserPosts(ctx context.Context, userID string, count int) social.Result {
	return f.fetchResult
}

func (f *fakeClient) Reply(ctx context.Context, authToken, postID, text string) social.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.replies = append(f.replies, postID)
	if !f.replySuccess {
		return social.Result{ErrorText: "reply rejected", StatusCode: 403}
	}
	return social.Result{Success: true, StatusCode: 200, PostID: "r-" + postID}
}

func (f *fakeClient) Publish(ctx context.Context, authToken, text string) social.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.published = append(f.published, text)
	if f.publishFail {
		return social.Result{ErrorText: "publish rejected", StatusCode: 403}
	}
	return social.Result{Success: true, StatusCode: 200, PostID: f.publishID}
}

type fixture struct {
	accounts  *database.MemoryAccountRepository
	targets   *database.MemoryTargetRepository
	templates *database.MemoryTemplateRepository
	contents  *database.MemoryContentRepository
	jobs      *database.MemoryJobRepository
	ledger    *database.MemoryReplyLedger
	logs      *database.MemoryExecutionLogRepository
	pool      *pool.Pool
	engine    *selection.Engine
	tokens    *vault.Vault
	runtime   settings.Runtime
	collector *metrics.PipelineCollector
	logger    *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	httpCollector, err := metrics.NewHTTPCollector()
	if err != nil {
		t.Fatalf("NewHTTPCollector: %v", err)
	}
	collector, err := metrics.NewPipelineCollector(httpCollector)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}

	key, err := vault.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tokens, err := vault.New(key)
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := database.NewMemoryAccountRepository()

	return &fixture{
		accounts:  accounts,
		targets:   database.NewMemoryTargetRepository(),
		templates: database.NewMemoryTemplateRepository(),
		contents:  database.NewMemoryContentRepository(),
		jobs:      database.NewMemoryJobRepository(),
		ledger:    database.NewMemoryReplyLedger(),
		logs:      database.NewMemoryExecutionLogRepository(),
		pool:      pool.New(accounts, 10, 3, collector, logger),
		engine:    selection.NewEngine(selection.NewCursorStore()),
		tokens:    tokens,
		runtime: settings.Runtime{
			AccountHourlyLimit:      10,
			AccountFailureThreshold: 3,
			AccountStrategy:         models.StrategyRoundRobin,
			TemplateStrategy:        models.StrategyRoundRobin,
		},
		collector: collector,
		logger:    logger,
	}
}

func (f *fixture) monitor(client social.Client) *Monitor {
	return NewMonitor(f.targets, f.templates, f.ledger, f.logs, f.pool, f.engine, client, f.tokens, f.runtime, f.collector, f.logger)
}

func (f *fixture) post(client social.Client) *Post {
	return NewPost(f.jobs, f.contents, f.logs, f.pool, f.engine, client, f.tokens, f.runtime, f.collector, f.logger)
}

func (f *fixture) addAccount(t *testing.T, name string) *models.Account {
	t.Helper()

	sealed, err := f.tokens.Seal("token-" + name)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	account := &models.Account{
		Name:        name,
		Status:      models.AccountStatusActive,
		SealedToken: sealed,
		MaxSlots:    3,
		Weight:      1,
	}
	if err := f.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("Create account: %v", err)
	}
	return account
}

func (f *fixture) addTarget(t *testing.T, lastSeen string) *models.MonitorTarget {
	t.Helper()

	target := &models.MonitorTarget{
		UserID:               "remote-1",
		Username:             "remote",
		Status:               models.EntityStatusActive,
		CheckIntervalMinutes: 30,
		FetchCount:           20,
		MaxNewPerCheck:       5,
		LastSeenPostID:       lastSeen,
	}
	if err := f.targets.Create(context.Background(), target); err != nil {
		t.Fatalf("Create target: %v", err)
	}
	return target
}

func (f *fixture) addGlobalTemplate(t *testing.T, content string) *models.ReplyTemplate {
	t.Helper()

	tpl := &models.ReplyTemplate{
		Content: content,
		Status:  models.EntityStatusActive,
		Scope:   models.ScopeGlobal,
	}
	if err := f.templates.Create(context.Background(), tpl); err != nil {
		t.Fatalf("Create template: %v", err)
	}
	return tpl
}

func successfulFetch(posts ...social.Post) social.Result {
	return social.Result{Success: true, StatusCode: 200, Posts: posts}
}

func TestMonitorDetectsNewPostsAndAdvancesWatermark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAccount(t, "alpha")
	f.addGlobalTemplate(t, "nice post")
	target := f.addTarget(t, "100")

	client := &fakeClient{
		replySuccess: true,
		fetchResult: successfulFetch(
			social.Post{ID: "110", AuthorID: "remote-1"},
			social.Post{ID: "95", AuthorID: "remote-1"},
			social.Post{ID: "105", AuthorID: "remote-1"},
		),
	}

	outcome := f.monitor(client).CheckTarget(ctx, target)

	if outcome.Result != models.RunResultSuccess {
		t.Fatalf("check failed: %s", outcome.Error)
	}
	if outcome.NewPosts != 2 {
		t.Fatalf("new posts = %d, want 2", outcome.NewPosts)
	}
	if outcome.RepliesSent != 2 {
		t.Fatalf("replies sent = %d, want 2", outcome.RepliesSent)
	}

	// Oldest first within the fan-out.
	if len(client.replies) != 2 || client.replies[0] != "105" || client.replies[1] != "110" {
		t.Fatalf("replied to %v, want [105 110]", client.replies)
	}

	got, err := f.targets.GetByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LastSeenPostID != "110" {
		t.Fatalf("watermark = %q, want 110", got.LastSeenPostID)
	}
	if got.NextCheckAt == nil {
		t.Fatal("next_check_at not set")
	}
	if got.TotalRepliesSent != 2 {
		t.Fatalf("total_replies_sent = %d, want 2", got.TotalRepliesSent)
	}
}

func TestMonitorComparesPostIDsNumerically(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAccount(t, "alpha")
	f.addGlobalTemplate(t, "hi")
	target := f.addTarget(t, "99")

	// Lexicographically "100" < "99"; numerically it is newer.
	client := &fakeClient{
		replySuccess: true,
		fetchResult:  successfulFetch(social.Post{ID: "100", AuthorID: "remote-1"}),
	}

	outcome := f.monitor(client).CheckTarget(ctx, target)
	if outcome.NewPosts != 1 {
		t.Fatalf("new posts = %d, want 1 (numeric comparison)", outcome.NewPosts)
	}

	got, _ := f.targets.GetByID(ctx, target.ID)
	if got.LastSeenPostID != "100" {
		t.Fatalf("watermark = %q, want 100", got.LastSeenPostID)
	}
}

func TestMonitorFetchFailureLeavesWatermarkAndReschedules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAccount(t, "alpha")
	target := f.addTarget(t, "100")

	client := &fakeClient{fetchResult: social.Result{ErrorText: "gateway down", StatusCode: 502}}

	outcome := f.monitor(client).CheckTarget(ctx, target)
	if outcome.Result != models.RunResultFailed {
		t.Fatal("check should fail when fetch fails")
	}

	got, _ := f.targets.GetByID(ctx, target.ID)
	if got.LastSeenPostID != "100" {
		t.Fatalf("watermark = %q, want unchanged 100", got.LastSeenPostID)
	}
	if got.NextCheckAt == nil {
		t.Fatal("failed check must still reschedule")
	}
	if got.LastCheckError != "gateway down" {
		t.Fatalf("last_check_error = %q", got.LastCheckError)
	}
	if len(client.replies) != 0 {
		t.Fatal("no replies should be attempted after a failed fetch")
	}
}

func TestMonitorWatermarkAdvancesWithoutUsableAccounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// No accounts at all.
	f.addGlobalTemplate(t, "hi")
	target := f.addTarget(t, "100")

	client := &fakeClient{
		replySuccess: true,
		fetchResult:  successfulFetch(social.Post{ID: "120", AuthorID: "remote-1"}),
	}

	outcome := f.monitor(client).CheckTarget(ctx, target)
	if outcome.Result != models.RunResultSuccess {
		t.Fatalf("check failed: %s", outcome.Error)
	}
	if outcome.RepliesSent != 0 {
		t.Fatalf("replies = %d, want 0", outcome.RepliesSent)
	}

	got, _ := f.targets.GetByID(ctx, target.ID)
	if got.LastSeenPostID != "120" {
		t.Fatalf("watermark = %q, want 120 (posts marked seen even unreplied)", got.LastSeenPostID)
	}
}

func TestMonitorWatermarkAdvancesWhenRepliesFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account := f.addAccount(t, "alpha")
	f.addGlobalTemplate(t, "hi")
	target := f.addTarget(t, "100")

	client := &fakeClient{
		replySuccess: false,
		fetchResult:  successfulFetch(social.Post{ID: "130", AuthorID: "remote-1"}),
	}

	outcome := f.monitor(client).CheckTarget(ctx, target)
	if outcome.Result != models.RunResultSuccess {
		t.Fatalf("check failed: %s", outcome.Error)
	}
	if outcome.RepliesSent != 0 {
		t.Fatalf("replies = %d, want 0", outcome.RepliesSent)
	}

	got, _ := f.targets.GetByID(ctx, target.ID)
	if got.LastSeenPostID != "130" {
		t.Fatalf("watermark = %q, want 130 (independent of reply outcomes)", got.LastSeenPostID)
	}

	// The failed reply counts against the account.
	a, _ := f.accounts.GetByID(ctx, account.ID)
	if a.ConsecutiveFailures != 1 {
		t.Fatalf("consecutive_failures = %d, want 1", a.ConsecutiveFailures)
	}

	// No ledger record for a failed reply, so it can be retried.
	replied, _ := f.ledger.HasReplied(ctx, target.UserID, "130", account.ID)
	if replied {
		t.Fatal("failed reply must not be recorded in the ledger")
	}
}

func TestMonitorLedgerBlocksSecondReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAccount(t, "alpha")
	f.addGlobalTemplate(t, "hi")
	target := f.addTarget(t, "")

	client := &fakeClient{
		replySuccess: true,
		fetchResult:  successfulFetch(social.Post{ID: "200", AuthorID: "remote-1"}),
	}
	monitor := f.monitor(client)

	monitor.CheckTarget(ctx, target)
	if len(client.replies) != 1 {
		t.Fatalf("first check replies = %d, want 1", len(client.replies))
	}

	// Reset the watermark to simulate an overlapping fetch window.
	if err := f.targets.AdvanceWatermark(ctx, target.ID, "100"); err != nil {
		t.Fatalf("AdvanceWatermark: %v", err)
	}
	fresh, _ := f.targets.GetByID(ctx, target.ID)

	monitor.CheckTarget(ctx, fresh)
	if len(client.replies) != 1 {
		t.Fatalf("replies after overlap re-check = %d, want still 1", len(client.replies))
	}
}

func TestMonitorFanOutUsesEveryUsableAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addAccount(t, "alpha")
	b := f.addAccount(t, "beta")
	f.addGlobalTemplate(t, "hi")
	target := f.addTarget(t, "100")

	client := &fakeClient{
		replySuccess: true,
		fetchResult:  successfulFetch(social.Post{ID: "150", AuthorID: "remote-1"}),
	}

	outcome := f.monitor(client).CheckTarget(ctx, target)
	if outcome.RepliesSent != 2 {
		t.Fatalf("replies = %d, want one per account", outcome.RepliesSent)
	}

	for _, id := range []string{a.ID, b.ID} {
		replied, _ := f.ledger.HasReplied(ctx, target.UserID, "150", id)
		if !replied {
			t.Fatalf("account %s missing from ledger", id)
		}
	}
}

func TestMonitorCapsNewPostsPerCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAccount(t, "alpha")
	f.addGlobalTemplate(t, "hi")

	target := f.addTarget(t, "100")
	target.MaxNewPerCheck = 2
	if err := f.targets.Update(ctx, target); err != nil {
		t.Fatalf("Update: %v", err)
	}

	client := &fakeClient{
		replySuccess: true,
		fetchResult: successfulFetch(
			social.Post{ID: "101", AuthorID: "remote-1"},
			social.Post{ID: "102", AuthorID: "remote-1"},
			social.Post{ID: "103", AuthorID: "remote-1"},
			social.Post{ID: "104", AuthorID: "remote-1"},
		),
	}

	outcome := f.monitor(client).CheckTarget(ctx, target)
	if outcome.NewPosts != 2 {
		t.Fatalf("new posts = %d, want capped at 2", outcome.NewPosts)
	}
	// Cap keeps the oldest posts.
	if client.replies[0] != "101" || client.replies[1] != "102" {
		t.Fatalf("replied to %v, want [101 102]", client.replies)
	}

	// Watermark still reflects everything fetched.
	got, _ := f.targets.GetByID(ctx, target.ID)
	if got.LastSeenPostID != "104" {
		t.Fatalf("watermark = %q, want 104", got.LastSeenPostID)
	}
}

func TestMonitorReleasesSlotsOnAllPaths(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account := f.addAccount(t, "alpha")
	f.addGlobalTemplate(t, "hi")
	target := f.addTarget(t, "100")

	for _, replySuccess := range []bool{true, false} {
		client := &fakeClient{
			replySuccess: replySuccess,
			fetchResult:  successfulFetch(social.Post{ID: "500", AuthorID: "remote-1"}),
		}
		f.monitor(client).CheckTarget(ctx, target)

		got, _ := f.accounts.GetByID(ctx, account.ID)
		if got.SlotsInUse != 0 {
			t.Fatalf("slots_in_use = %d after check (success=%v), want 0", got.SlotsInUse, replySuccess)
		}
	}
}

func TestMonitorWritesExecutionLogs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAccount(t, "alpha")
	f.addGlobalTemplate(t, "hi")
	target := f.addTarget(t, "100")

	client := &fakeClient{
		replySuccess: true,
		fetchResult:  successfulFetch(social.Post{ID: "300", AuthorID: "remote-1"}),
	}
	f.monitor(client).CheckTarget(ctx, target)

	monitorLogs, total, err := f.logs.List(ctx, models.LogFilter{Type: models.LogTypeMonitor})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(monitorLogs) != 1 {
		t.Fatalf("monitor logs = %d, want 1", total)
	}

	replyLogs, total, err := f.logs.List(ctx, models.LogFilter{Type: models.LogTypeReply})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Fatalf("reply logs = %d, want 1", total)
	}
	if replyLogs[0].PostID != "300" || replyLogs[0].ContentText != "hi" {
		t.Fatalf("reply log = %+v", replyLogs[0])
	}
}

func TestPostPipelinePointerRotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAccount(t, "alpha")

	for _, text := range []string{"first", "second"} {
		if err := f.contents.Create(ctx, &models.PostContent{Text: text, Status: models.EntityStatusActive}); err != nil {
			t.Fatalf("Create content: %v", err)
		}
	}

	job := &models.PostJob{
		Name:            "promo",
		Status:          models.EntityStatusActive,
		IntervalMinutes: 60,
		ContentIndex:    2,
		AccountStrategy: models.StrategyRoundRobin,
	}
	if err := f.jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create job: %v", err)
	}
	job.ContentIndex = 2
	if err := f.jobs.Update(ctx, job); err != nil {
		t.Fatalf("Update job: %v", err)
	}

	// Failure first: pointer must stay at 2.
	failing := &fakeClient{publishFail: true}
	outcome := f.post(failing).RunJob(ctx, job)
	if outcome.Result != models.RunResultFailed {
		t.Fatal("run should fail")
	}
	got, _ := f.jobs.GetByID(ctx, job.ID)
	if got.ContentIndex != 2 {
		t.Fatalf("pointer after failure = %d, want 2", got.ContentIndex)
	}
	if got.NextRunAt == nil {
		t.Fatal("failed run must still reschedule")
	}
	// Index 2 mod 2 selects the first content.
	if failing.published[0] != "first" {
		t.Fatalf("published %q, want first content", failing.published[0])
	}

	// Success: pointer becomes selected index + 1 = 1.
	succeeding := &fakeClient{publishID: "900"}
	outcome = f.post(succeeding).RunJob(ctx, got)
	if outcome.Result != models.RunResultSuccess {
		t.Fatalf("run failed: %s", outcome.Error)
	}
	got, _ = f.jobs.GetByID(ctx, job.ID)
	if got.ContentIndex != 1 {
		t.Fatalf("pointer after success = %d, want 1", got.ContentIndex)
	}
	if got.TotalPosts != 1 || got.LastPostID != "900" {
		t.Fatalf("counters: posts=%d last=%q", got.TotalPosts, got.LastPostID)
	}
}

func TestPostPipelineNoActiveContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAccount(t, "alpha")

	job := &models.PostJob{
		Name:            "promo",
		Status:          models.EntityStatusActive,
		IntervalMinutes: 60,
		AccountStrategy: models.StrategyRoundRobin,
	}
	if err := f.jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create job: %v", err)
	}

	client := &fakeClient{publishID: "1"}
	outcome := f.post(client).RunJob(ctx, job)
	if outcome.Result != models.RunResultFailed {
		t.Fatal("run without content should fail")
	}
	if len(client.published) != 0 {
		t.Fatal("nothing should be published")
	}

	got, _ := f.jobs.GetByID(ctx, job.ID)
	if got.NextRunAt == nil {
		t.Fatal("job must still reschedule")
	}
	if got.LastRunError != "no active post contents" {
		t.Fatalf("last_run_error = %q", got.LastRunError)
	}
}

func TestPostPipelineNoUsableAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.contents.Create(ctx, &models.PostContent{Text: "c", Status: models.EntityStatusActive}); err != nil {
		t.Fatalf("Create content: %v", err)
	}
	job := &models.PostJob{
		Name:            "promo",
		Status:          models.EntityStatusActive,
		IntervalMinutes: 60,
		AccountStrategy: models.StrategyRoundRobin,
	}
	if err := f.jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create job: %v", err)
	}

	outcome := f.post(&fakeClient{}).RunJob(ctx, job)
	if outcome.Result != models.RunResultFailed {
		t.Fatal("run without accounts should fail")
	}

	got, _ := f.jobs.GetByID(ctx, job.ID)
	if got.ContentIndex != 0 {
		t.Fatalf("pointer = %d, want unchanged 0", got.ContentIndex)
	}
}

func TestPostPipelineReleasesSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account := f.addAccount(t, "alpha")

	if err := f.contents.Create(ctx, &models.PostContent{Text: "c", Status: models.EntityStatusActive}); err != nil {
		t.Fatalf("Create content: %v", err)
	}
	job := &models.PostJob{
		Name:            "promo",
		Status:          models.EntityStatusActive,
		IntervalMinutes: 60,
		AccountStrategy: models.StrategyRoundRobin,
	}
	if err := f.jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create job: %v", err)
	}

	for _, fail := range []bool{false, true} {
		f.post(&fakeClient{publishID: "1", publishFail: fail}).RunJob(ctx, job)
		got, _ := f.accounts.GetByID(ctx, account.ID)
		if got.SlotsInUse != 0 {
			t.Fatalf("slots_in_use = %d after run (fail=%v), want 0", got.SlotsInUse, fail)
		}
	}
}

func TestPostPipelineAppendsLinkToText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAccount(t, "alpha")

	if err := f.contents.Create(ctx, &models.PostContent{
		Text:   "check this out",
		Link:   "https://example.com",
		Status: models.EntityStatusActive,
	}); err != nil {
		t.Fatalf("Create content: %v", err)
	}
	job := &models.PostJob{
		Name:            "promo",
		Status:          models.EntityStatusActive,
		IntervalMinutes: 60,
		AccountStrategy: models.StrategyRoundRobin,
	}
	if err := f.jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create job: %v", err)
	}

	client := &fakeClient{publishID: "2"}
	f.post(client).RunJob(ctx, job)

	if len(client.published) != 1 || client.published[0] != "check this out\nhttps://example.com" {
		t.Fatalf("published = %v", client.published)
	}
}

func TestDetectNewEmptyFetchKeepsWatermark(t *testing.T) {
	fresh, watermark := detectNew(nil, "100")
	if len(fresh) != 0 {
		t.Fatalf("fresh = %v, want empty", fresh)
	}
	if watermark != "" {
		t.Fatalf("watermark = %q, want empty (no posts fetched)", watermark)
	}
}

func TestDetectNewFirstFetchTreatsAllAsNew(t *testing.T) {
	posts := []social.Post{{ID: "5"}, {ID: "3"}}
	fresh, watermark := detectNew(posts, "")
	if len(fresh) != 2 {
		t.Fatalf("fresh = %d, want 2", len(fresh))
	}
	if watermark != "5" {
		t.Fatalf("watermark = %q, want 5", watermark)
	}
	if fresh[0].ID != "3" {
		t.Fatal("fresh posts should be sorted oldest first")
	}
}

func TestDetectNewSkipsUnparseableIDs(t *testing.T) {
	posts := []social.Post{{ID: "abc"}, {ID: "200"}}
	fresh, watermark := detectNew(posts, "100")
	if len(fresh) != 1 || fresh[0].ID != "200" {
		t.Fatalf("fresh = %v", fresh)
	}
	if watermark != "200" {
		t.Fatalf("watermark = %q", watermark)
	}
}
