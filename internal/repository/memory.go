// internal/repository/memory.go
//
// In-memory repositories for testing/fallback. All four repositories share a
// single store guarded by one mutex so the check-then-write sequences (owner
// count, task position) hold under concurrent callers the same way the
// row-locked SQL paths do.
package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu            sync.Mutex
	organizations map[string]*Organization
	members       map[string]*Member // key: orgID + "/" + userID
	projects      map[string]*Project
	tasks         map[string]*Task
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		organizations: make(map[string]*Organization),
		members:       make(map[string]*Member),
		projects:      make(map[string]*Project),
		tasks:         make(map[string]*Task),
	}
}

func memberKey(orgID, userID string) string {
	return orgID + "/" + userID
}

func (s *memoryStore) ownerCount(orgID string) int {
	count := 0
	for _, m := range s.members {
		if m.OrganizationID == orgID && m.Role == "owner" {
			count++
		}
	}
	return count
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	cp := make(map[string]interface{}, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func copyMember(m *Member) *Member {
	cp := *m
	return &cp
}

func copyOrganization(o *Organization) *Organization {
	cp := *o
	cp.Settings = copyMap(o.Settings)
	return &cp
}

func copyProject(p *Project) *Project {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Settings = copyMap(p.Settings)
	return &cp
}

func copyTask(t *Task) *Task {
	cp := *t
	cp.Tags = append([]string(nil), t.Tags...)
	cp.Metadata = copyMap(t.Metadata)
	return &cp
}

// ============================================
// In-Memory Organization Repository
// ============================================

type memOrganizationRepository struct {
	store *memoryStore
}

func (r *memOrganizationRepository) Create(ctx context.Context, org *Organization, owner *Member) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.organizations {
		if existing.Slug == org.Slug {
			return ErrSlugTaken
		}
	}

	now := time.Now()
	org.ID = uuid.NewString()
	org.CreatedAt = now
	org.UpdatedAt = now
	if org.Settings == nil {
		org.Settings = map[string]interface{}{}
	}
	s.organizations[org.ID] = copyOrganization(org)

	owner.ID = uuid.NewString()
	owner.OrganizationID = org.ID
	owner.JoinedAt = now
	s.members[memberKey(org.ID, owner.UserID)] = copyMember(owner)
	return nil
}

func (r *memOrganizationRepository) FindByID(ctx context.Context, id string) (*Organization, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	org, ok := r.store.organizations[id]
	if !ok {
		return nil, nil
	}
	return copyOrganization(org), nil
}

func (r *memOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*Organization, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, org := range r.store.organizations {
		if org.Slug == slug {
			return copyOrganization(org), nil
		}
	}
	return nil, nil
}

func (r *memOrganizationRepository) FindByUserID(ctx context.Context, userID string) ([]*Organization, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var orgs []*Organization
	for _, m := range r.store.members {
		if m.UserID == userID {
			if org, ok := r.store.organizations[m.OrganizationID]; ok {
				orgs = append(orgs, copyOrganization(org))
			}
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs, nil
}

func (r *memOrganizationRepository) Update(ctx context.Context, org *Organization) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.organizations[org.ID]
	if !ok {
		return ErrNotFound
	}
	for _, other := range r.store.organizations {
		if other.ID != org.ID && other.Slug == org.Slug {
			return ErrSlugTaken
		}
	}
	existing.Name = org.Name
	existing.Slug = org.Slug
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *memOrganizationRepository) UpdateSettings(ctx context.Context, id string, settings map[string]interface{}) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.organizations[id]
	if !ok {
		return ErrNotFound
	}
	existing.Settings = copyMap(settings)
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *memOrganizationRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.organizations, id)
	for k, m := range s.members {
		if m.OrganizationID == id {
			delete(s.members, k)
		}
	}
	for pid, p := range s.projects {
		if p.OrganizationID == id {
			delete(s.projects, pid)
		}
	}
	for tid, t := range s.tasks {
		if t.OrganizationID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

// ============================================
// In-Memory Member Repository
// ============================================

type memMemberRepository struct {
	store *memoryStore
}

func (r *memMemberRepository) Add(ctx context.Context, member *Member) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey(member.OrganizationID, member.UserID)
	if _, exists := s.members[key]; exists {
		return ErrDuplicateMember
	}
	member.ID = uuid.NewString()
	member.JoinedAt = time.Now()
	s.members[key] = copyMember(member)
	return nil
}

func (r *memMemberRepository) FindByOrgAndUser(ctx context.Context, orgID, userID string) (*Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.members[memberKey(orgID, userID)]
	if !ok {
		return nil, nil
	}
	return copyMember(m), nil
}

func (r *memMemberRepository) FindByOrganization(ctx context.Context, orgID string) ([]*Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var members []*Member
	for _, m := range r.store.members {
		if m.OrganizationID == orgID {
			members = append(members, copyMember(m))
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })
	return members, nil
}

func (r *memMemberRepository) CountOwners(ctx context.Context, orgID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.ownerCount(orgID), nil
}

func (r *memMemberRepository) UpdateRole(ctx context.Context, orgID, userID, role string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.members[memberKey(orgID, userID)]
	if !ok {
		return ErrNotFound
	}
	m.Role = role
	return nil
}

func (r *memMemberRepository) DemoteOwner(ctx context.Context, orgID, userID, newRole string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey(orgID, userID)]
	if !ok || m.Role != "owner" {
		return ErrNotFound
	}
	if s.ownerCount(orgID) <= 1 {
		return ErrOwnerRequired
	}
	m.Role = newRole
	return nil
}

func (r *memMemberRepository) UpdatePermissions(ctx context.Context, orgID, userID string, perms PermissionSet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.members[memberKey(orgID, userID)]
	if !ok {
		return ErrNotFound
	}
	m.Permissions = perms
	return nil
}

func (r *memMemberRepository) Remove(ctx context.Context, orgID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := memberKey(orgID, userID)
	if _, ok := r.store.members[key]; !ok {
		return ErrNotFound
	}
	delete(r.store.members, key)
	return nil
}

func (r *memMemberRepository) RemoveOwner(ctx context.Context, orgID, userID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey(orgID, userID)
	m, ok := s.members[key]
	if !ok || m.Role != "owner" {
		return ErrNotFound
	}
	if s.ownerCount(orgID) <= 1 {
		return ErrOwnerRequired
	}
	delete(s.members, key)
	return nil
}

// ============================================
// In-Memory Project Repository
// ============================================

type memProjectRepository struct {
	store *memoryStore
}

func (r *memProjectRepository) Create(ctx context.Context, project *Project) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	project.ID = uuid.NewString()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.Status == "" {
		project.Status = "planning"
	}
	if project.Settings == nil {
		project.Settings = map[string]interface{}{}
	}
	if project.Tags == nil {
		project.Tags = []string{}
	}
	r.store.projects[project.ID] = copyProject(project)
	return nil
}

func (r *memProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.projects[id]
	if !ok {
		return nil, nil
	}
	return copyProject(p), nil
}

func (r *memProjectRepository) FindByOrganization(ctx context.Context, orgID string) ([]*Project, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var projects []*Project
	for _, p := range r.store.projects {
		if p.OrganizationID == orgID {
			projects = append(projects, copyProject(p))
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

func (r *memProjectRepository) Search(ctx context.Context, orgID, query string, tags []string, limit, offset int) ([]*Project, error) {
	all, err := r.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var out []*Project
	for _, p := range all {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			continue
		}
		if !containsAllTags(p.Tags, tags) {
			continue
		}
		out = append(out, p)
	}
	return page(out, limit, offset), nil
}

func (r *memProjectRepository) Update(ctx context.Context, project *Project) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.projects[project.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = project.Name
	existing.Status = project.Status
	existing.Progress = project.Progress
	existing.Budget = project.Budget
	existing.Settings = copyMap(project.Settings)
	existing.Tags = append([]string(nil), project.Tags...)
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *memProjectRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, id)
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

func (r *memProjectRepository) RecomputeProgress(ctx context.Context) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	total := map[string]int{}
	done := map[string]int{}
	for _, t := range s.tasks {
		if t.Status == "cancelled" {
			continue
		}
		total[t.ProjectID]++
		if t.Status == "done" {
			done[t.ProjectID]++
		}
	}

	updated := 0
	for pid, n := range total {
		p, ok := s.projects[pid]
		if !ok || n == 0 {
			continue
		}
		pct := done[pid] * 100 / n
		if p.Progress != pct {
			p.Progress = pct
			p.UpdatedAt = time.Now()
			updated++
		}
	}
	return updated, nil
}

// ============================================
// In-Memory Task Repository
// ============================================

type memTaskRepository struct {
	store *memoryStore
}

func (r *memTaskRepository) Create(ctx context.Context, task *Task) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[task.ProjectID]
	if !ok {
		return ErrNotFound
	}
	task.OrganizationID = project.OrganizationID

	maxPos := -1
	for _, t := range s.tasks {
		if t.ProjectID == task.ProjectID && t.Position > maxPos {
			maxPos = t.Position
		}
	}
	task.Position = maxPos + 1

	now := time.Now()
	task.ID = uuid.NewString()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = "todo"
	}
	if task.Priority == "" {
		task.Priority = "medium"
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if task.Metadata == nil {
		task.Metadata = map[string]interface{}{}
	}
	s.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *memTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tasks[id]
	if !ok {
		return nil, nil
	}
	return copyTask(t), nil
}

func (r *memTaskRepository) FindByProject(ctx context.Context, projectID string, filters *TaskFilters) ([]*Task, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var tasks []*Task
	for _, t := range r.store.tasks {
		if t.ProjectID != projectID {
			continue
		}
		if filters != nil && !matchesFilters(t, filters) {
			continue
		}
		tasks = append(tasks, copyTask(t))
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	if filters != nil {
		tasks = page(tasks, filters.Limit, filters.Offset)
	}
	return tasks, nil
}

func (r *memTaskRepository) Search(ctx context.Context, orgID, query string, tags []string, limit, offset int) ([]*Task, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var tasks []*Task
	for _, t := range r.store.tasks {
		if t.OrganizationID != orgID {
			continue
		}
		if query != "" {
			q := strings.ToLower(query)
			desc := ""
			if t.Description != nil {
				desc = strings.ToLower(*t.Description)
			}
			if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(desc, q) {
				continue
			}
		}
		if !containsAllTags(t.Tags, tags) {
			continue
		}
		tasks = append(tasks, copyTask(t))
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return page(tasks, limit, offset), nil
}

func (r *memTaskRepository) Update(ctx context.Context, task *Task) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.tasks[task.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = task.Title
	existing.Description = task.Description
	existing.Status = task.Status
	existing.Priority = task.Priority
	existing.DueDate = task.DueDate
	existing.EstimatedHours = task.EstimatedHours
	existing.ActualHours = task.ActualHours
	existing.Tags = append([]string(nil), task.Tags...)
	existing.Metadata = copyMap(task.Metadata)
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *memTaskRepository) UpdatePosition(ctx context.Context, id string, position int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Position = position
	t.UpdatedAt = time.Now()
	return nil
}

func (r *memTaskRepository) UpdateAssignee(ctx context.Context, id string, assigneeID *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.AssigneeID = assigneeID
	t.UpdatedAt = time.Now()
	return nil
}

func (r *memTaskRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.tasks, id)
	return nil
}

// ============================================
// Helpers
// ============================================

func matchesFilters(t *Task, f *TaskFilters) bool {
	if len(f.Status) > 0 && !containsString(f.Status, t.Status) {
		return false
	}
	if len(f.Priority) > 0 && !containsString(f.Priority, t.Priority) {
		return false
	}
	if f.AssigneeID != nil {
		if t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID {
			return false
		}
	}
	if !containsAllTags(t.Tags, f.Tags) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		desc := ""
		if t.Description != nil {
			desc = strings.ToLower(*t.Description)
		}
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(desc, q) {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsAllTags(have, want []string) bool {
	for _, w := range want {
		if !containsString(have, w) {
			return false
		}
	}
	return true
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
