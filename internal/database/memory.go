package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Past-Tang/x/internal/models"
)

// In-memory repository implementations for testing and development. They
// mirror the semantics of the PostgreSQL repositories, including the
// mutex-guarded slot acquisition that the SQL versions get from a
// conditional UPDATE.

// MemoryAccountRepository implements AccountRepository in memory.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	order    []string
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]*models.Account)}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	cp := *account
	r.accounts[account.ID] = &cp
	r.order = append(r.order, account.ID)
	return nil
}

func (r *MemoryAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *account
	return &cp, nil
}

func (r *MemoryAccountRepository) ListAll(ctx context.Context) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.Account, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.accounts[id]
		result = append(result, &cp)
	}
	return result, nil
}

func (r *MemoryAccountRepository) ListByStatus(ctx context.Context, status models.AccountStatus) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.Account
	for _, id := range r.order {
		if r.accounts[id].Status == status {
			cp := *r.accounts[id]
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *MemoryAccountRepository) Update(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.accounts[account.ID]
	if !ok {
		return fmt.Errorf("account %s not found", account.ID)
	}
	account.CreatedAt = existing.CreatedAt
	account.UpdatedAt = time.Now()

	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *MemoryAccountRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.accounts, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryAccountRepository) SetStatus(ctx context.Context, id string, status models.AccountStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account %s not found", id)
	}
	account.Status = status
	if status == models.AccountStatusActive {
		account.ConsecutiveFailures = 0
	}
	account.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryAccountRepository) AcquireSlot(ctx context.Context, id string, hourlyLimit int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return false, nil
	}
	if !account.Usable(time.Now(), hourlyLimit) {
		return false, nil
	}
	account.SlotsInUse++
	account.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryAccountRepository) ReleaseSlot(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil
	}
	if account.SlotsInUse > 0 {
		account.SlotsInUse--
	}
	account.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryAccountRepository) RecordSuccess(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account %s not found", id)
	}

	now := time.Now()
	account.LastUsedAt = &now
	account.LastSuccessAt = &now
	account.ConsecutiveFailures = 0

	if account.HourlyWindowStart == nil || now.Sub(*account.HourlyWindowStart) > models.HourlyWindow {
		start := now
		account.HourlyWindowStart = &start
		account.HourlyActionCount = 1
	} else {
		account.HourlyActionCount++
	}

	account.UpdatedAt = now
	return nil
}

func (r *MemoryAccountRepository) RecordFailure(ctx context.Context, id string, reason string, threshold int) (models.AccountStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return "", fmt.Errorf("account %s not found", id)
	}

	now := time.Now()
	account.LastUsedAt = &now
	account.LastFailureAt = &now
	account.LastFailureReason = reason
	account.ConsecutiveFailures++
	if account.Status == models.AccountStatusActive && account.ConsecutiveFailures >= threshold {
		account.Status = models.AccountStatusSuspect
	}
	if account.HourlyWindowStart == nil || now.Sub(*account.HourlyWindowStart) > models.HourlyWindow {
		start := now
		account.HourlyWindowStart = &start
		account.HourlyActionCount = 1
	} else {
		account.HourlyActionCount++
	}
	account.UpdatedAt = now
	return account.Status, nil
}

// MemoryTargetRepository implements TargetRepository in memory.
type MemoryTargetRepository struct {
	mu      sync.Mutex
	targets map[string]*models.MonitorTarget
	order   []string
}

func NewMemoryTargetRepository() *MemoryTargetRepository {
	return &MemoryTargetRepository{targets: make(map[string]*models.MonitorTarget)}
}

func (r *MemoryTargetRepository) Create(ctx context.Context, target *models.MonitorTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.targets {
		if existing.UserID == target.UserID {
			return fmt.Errorf("target for user %s already exists", target.UserID)
		}
	}

	if target.ID == "" {
		target.ID = uuid.New().String()
	}
	now := time.Now()
	target.CreatedAt = now
	target.UpdatedAt = now

	cp := *target
	r.targets[target.ID] = &cp
	r.order = append(r.order, target.ID)
	return nil
}

func (r *MemoryTargetRepository) GetByID(ctx context.Context, id string) (*models.MonitorTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.targets[id]
	if !ok {
		return nil, nil
	}
	cp := *target
	return &cp, nil
}

func (r *MemoryTargetRepository) ListAll(ctx context.Context) ([]*models.MonitorTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.MonitorTarget, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.targets[id]
		result = append(result, &cp)
	}
	return result, nil
}

func (r *MemoryTargetRepository) ListDue(ctx context.Context, now time.Time) ([]*models.MonitorTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.MonitorTarget
	for _, id := range r.order {
		t := r.targets[id]
		if t.Status != models.EntityStatusActive {
			continue
		}
		if t.NextCheckAt == nil || !t.NextCheckAt.After(now) {
			cp := *t
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *MemoryTargetRepository) Update(ctx context.Context, target *models.MonitorTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.targets[target.ID]
	if !ok {
		return fmt.Errorf("target %s not found", target.ID)
	}
	target.CreatedAt = existing.CreatedAt
	target.UpdatedAt = time.Now()

	cp := *target
	r.targets[target.ID] = &cp
	return nil
}

func (r *MemoryTargetRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.targets, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryTargetRepository) SetStatus(ctx context.Context, id string, status models.EntityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.targets[id]
	if !ok {
		return fmt.Errorf("target %s not found", id)
	}
	target.Status = status
	target.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryTargetRepository) UpdateAfterCheck(ctx context.Context, id string, result models.RunResult, checkErr string, postsFound int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.targets[id]
	if !ok {
		return fmt.Errorf("target %s not found", id)
	}

	now := time.Now()
	next := now.Add(time.Duration(target.CheckIntervalMinutes) * time.Minute)
	target.LastCheckAt = &now
	target.NextCheckAt = &next
	target.LastCheckResult = result
	target.LastCheckError = checkErr
	target.TotalPostsFound += postsFound
	target.UpdatedAt = now
	return nil
}

func (r *MemoryTargetRepository) AdvanceWatermark(ctx context.Context, id string, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.targets[id]
	if !ok {
		return fmt.Errorf("target %s not found", id)
	}
	target.LastSeenPostID = postID
	target.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryTargetRepository) IncrementReplies(ctx context.Context, id string, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.targets[id]
	if !ok {
		return fmt.Errorf("target %s not found", id)
	}
	target.TotalRepliesSent += n
	target.UpdatedAt = time.Now()
	return nil
}

// MemoryTemplateRepository implements TemplateRepository in memory.
type MemoryTemplateRepository struct {
	mu        sync.Mutex
	templates map[string]*models.ReplyTemplate
	order     []string
}

func NewMemoryTemplateRepository() *MemoryTemplateRepository {
	return &MemoryTemplateRepository{templates: make(map[string]*models.ReplyTemplate)}
}

func (r *MemoryTemplateRepository) Create(ctx context.Context, tpl *models.ReplyTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	cp := *tpl
	r.templates[tpl.ID] = &cp
	r.order = append(r.order, tpl.ID)
	return nil
}

func (r *MemoryTemplateRepository) GetByID(ctx context.Context, id string) (*models.ReplyTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tpl, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *tpl
	return &cp, nil
}

func (r *MemoryTemplateRepository) ListAll(ctx context.Context) ([]*models.ReplyTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.ReplyTemplate, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.templates[id]
		result = append(result, &cp)
	}
	return result, nil
}

func (r *MemoryTemplateRepository) ListForTarget(ctx context.Context, targetID string) ([]*models.ReplyTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.ReplyTemplate
	for _, id := range r.order {
		tpl := r.templates[id]
		if tpl.Status != models.EntityStatusActive {
			continue
		}
		if tpl.Scope == models.ScopeGlobal || tpl.TargetID == targetID {
			cp := *tpl
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryTemplateRepository) Update(ctx context.Context, tpl *models.ReplyTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.templates[tpl.ID]
	if !ok {
		return fmt.Errorf("template %s not found", tpl.ID)
	}
	tpl.CreatedAt = existing.CreatedAt
	tpl.UpdatedAt = time.Now()

	cp := *tpl
	r.templates[tpl.ID] = &cp
	return nil
}

func (r *MemoryTemplateRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.templates, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryTemplateRepository) SetStatus(ctx context.Context, id string, status models.EntityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tpl, ok := r.templates[id]
	if !ok {
		return fmt.Errorf("template %s not found", id)
	}
	tpl.Status = status
	tpl.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryTemplateRepository) RecordUsage(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tpl, ok := r.templates[id]
	if !ok {
		return fmt.Errorf("template %s not found", id)
	}
	now := time.Now()
	tpl.UsageCount++
	tpl.LastUsedAt = &now
	tpl.UpdatedAt = now
	return nil
}

// MemoryContentRepository implements ContentRepository in memory.
type MemoryContentRepository struct {
	mu       sync.Mutex
	contents map[string]*models.PostContent
	order    []string
}

func NewMemoryContentRepository() *MemoryContentRepository {
	return &MemoryContentRepository{contents: make(map[string]*models.PostContent)}
}

func (r *MemoryContentRepository) Create(ctx context.Context, content *models.PostContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if content.ID == "" {
		content.ID = uuid.New().String()
	}
	now := time.Now()
	content.CreatedAt = now
	content.UpdatedAt = now

	cp := *content
	r.contents[content.ID] = &cp
	r.order = append(r.order, content.ID)
	return nil
}

func (r *MemoryContentRepository) GetByID(ctx context.Context, id string) (*models.PostContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	content, ok := r.contents[id]
	if !ok {
		return nil, nil
	}
	cp := *content
	return &cp, nil
}

func (r *MemoryContentRepository) ListAll(ctx context.Context) ([]*models.PostContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.PostContent, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.contents[id]
		result = append(result, &cp)
	}
	return result, nil
}

func (r *MemoryContentRepository) ListActive(ctx context.Context) ([]*models.PostContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.PostContent
	for _, id := range r.order {
		if r.contents[id].Status == models.EntityStatusActive {
			cp := *r.contents[id]
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryContentRepository) Update(ctx context.Context, content *models.PostContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.contents[content.ID]
	if !ok {
		return fmt.Errorf("content %s not found", content.ID)
	}
	content.CreatedAt = existing.CreatedAt
	content.UpdatedAt = time.Now()

	cp := *content
	r.contents[content.ID] = &cp
	return nil
}

func (r *MemoryContentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.contents, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryContentRepository) SetStatus(ctx context.Context, id string, status models.EntityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	content, ok := r.contents[id]
	if !ok {
		return fmt.Errorf("content %s not found", id)
	}
	content.Status = status
	content.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryContentRepository) RecordUsage(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	content, ok := r.contents[id]
	if !ok {
		return fmt.Errorf("content %s not found", id)
	}
	now := time.Now()
	content.UsageCount++
	content.LastUsedAt = &now
	content.UpdatedAt = now
	return nil
}

// MemoryJobRepository implements JobRepository in memory.
type MemoryJobRepository struct {
	mu    sync.Mutex
	jobs  map[string]*models.PostJob
	order []string
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]*models.PostJob)}
}

func (r *MemoryJobRepository) Create(ctx context.Context, job *models.PostJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	cp := *job
	r.jobs[job.ID] = &cp
	r.order = append(r.order, job.ID)
	return nil
}

func (r *MemoryJobRepository) GetByID(ctx context.Context, id string) (*models.PostJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (r *MemoryJobRepository) ListAll(ctx context.Context) ([]*models.PostJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.PostJob, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.jobs[id]
		result = append(result, &cp)
	}
	return result, nil
}

func (r *MemoryJobRepository) ListDue(ctx context.Context, now time.Time) ([]*models.PostJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.PostJob
	for _, id := range r.order {
		j := r.jobs[id]
		if j.Status != models.EntityStatusActive {
			continue
		}
		if j.NextRunAt == nil || !j.NextRunAt.After(now) {
			cp := *j
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *MemoryJobRepository) Update(ctx context.Context, job *models.PostJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %s not found", job.ID)
	}
	job.CreatedAt = existing.CreatedAt
	job.UpdatedAt = time.Now()

	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *MemoryJobRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryJobRepository) SetStatus(ctx context.Context, id string, status models.EntityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryJobRepository) UpdateAfterRun(ctx context.Context, id string, result models.RunResult, runErr string, postID string, contentIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}

	now := time.Now()
	next := now.Add(time.Duration(job.IntervalMinutes) * time.Minute)
	job.LastRunAt = &now
	job.NextRunAt = &next
	job.LastRunResult = result
	job.LastRunError = runErr
	if result == models.RunResultSuccess {
		job.ContentIndex = contentIndex
		job.TotalPosts++
		job.LastPostID = postID
	}
	job.UpdatedAt = now
	return nil
}

// MemoryReplyLedger implements ReplyLedger in memory.
type MemoryReplyLedger struct {
	mu      sync.Mutex
	records []*models.ReplyRecord
	seen    map[string]bool
}

func NewMemoryReplyLedger() *MemoryReplyLedger {
	return &MemoryReplyLedger{seen: make(map[string]bool)}
}

func ledgerKey(targetUserID, postID, accountID string) string {
	return targetUserID + "|" + postID + "|" + accountID
}

func (l *MemoryReplyLedger) HasReplied(ctx context.Context, targetUserID, postID, accountID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.seen[ledgerKey(targetUserID, postID, accountID)], nil
}

func (l *MemoryReplyLedger) Record(ctx context.Context, rec *models.ReplyRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(rec.TargetUserID, rec.PostID, rec.AccountID)
	if l.seen[key] {
		return nil
	}
	l.seen[key] = true

	cp := *rec
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.RepliedAt.IsZero() {
		cp.RepliedAt = time.Now()
	}
	l.records = append(l.records, &cp)
	return nil
}

func (l *MemoryReplyLedger) ListByTarget(ctx context.Context, targetUserID string, limit int) ([]*models.ReplyRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []*models.ReplyRecord
	for i := len(l.records) - 1; i >= 0 && len(result) < limit; i-- {
		if l.records[i].TargetUserID == targetUserID {
			cp := *l.records[i]
			result = append(result, &cp)
		}
	}
	return result, nil
}

// MemoryExecutionLogRepository implements ExecutionLogRepository in memory.
type MemoryExecutionLogRepository struct {
	mu      sync.Mutex
	entries []*models.ExecutionLog
}

func NewMemoryExecutionLogRepository() *MemoryExecutionLogRepository {
	return &MemoryExecutionLogRepository{}
}

func (r *MemoryExecutionLogRepository) Log(ctx context.Context, entry *models.ExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MemoryExecutionLogRepository) List(ctx context.Context, filter models.LogFilter) ([]*models.ExecutionLog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.ExecutionLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.AccountID != "" && e.AccountID != filter.AccountID {
			continue
		}
		if filter.TargetID != "" && e.TargetID != filter.TargetID {
			continue
		}
		if filter.JobID != "" && e.JobID != filter.JobID {
			continue
		}
		if filter.PostID != "" && e.PostID != filter.PostID {
			continue
		}
		if filter.Result != "" && e.Result != filter.Result {
			continue
		}
		if filter.Since != nil && e.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && e.CreatedAt.After(*filter.Until) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}

	total := len(matched)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}

	start := (page - 1) * perPage
	if start >= total {
		return nil, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// MemorySettingRepository implements SettingRepository in memory.
type MemorySettingRepository struct {
	mu       sync.Mutex
	settings map[string]*models.Setting
}

func NewMemorySettingRepository() *MemorySettingRepository {
	return &MemorySettingRepository{settings: make(map[string]*models.Setting)}
}

func (r *MemorySettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	setting, ok := r.settings[key]
	if !ok {
		return nil, nil
	}
	cp := *setting
	return &cp, nil
}

func (r *MemorySettingRepository) ListAll(ctx context.Context) ([]*models.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.settings))
	for key := range r.settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]*models.Setting, 0, len(keys))
	for _, key := range keys {
		cp := *r.settings[key]
		result = append(result, &cp)
	}
	return result, nil
}

func (r *MemorySettingRepository) Upsert(ctx context.Context, setting *models.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.settings[setting.Key]; ok {
		setting.CreatedAt = existing.CreatedAt
	} else {
		setting.CreatedAt = now
	}
	setting.UpdatedAt = now

	cp := *setting
	r.settings[setting.Key] = &cp
	return nil
}
