// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"database/sql"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/repository"
)

// Store backs every repository with maps guarded by one mutex.
type Store struct {
	mu sync.Mutex

	nextID int64

	users     map[int64]models.User
	platforms map[int64]models.ConnectedPlatform
	posts     map[int64]models.Post
	targets   map[int64][]models.PostPlatform
	media     map[int64][]int64
	assets    map[int64]models.MediaAsset
	mentions  map[int64]models.Mention

	// Failure injection.
	ListPlatformsErr error
	UpsertErr        error

	MentionQueries int
	Upserts        int
}

func NewStore() *Store {
	return &Store{
		users:     map[int64]models.User{},
		platforms: map[int64]models.ConnectedPlatform{},
		posts:     map[int64]models.Post{},
		targets:   map[int64][]models.PostPlatform{},
		media:     map[int64][]int64{},
		assets:    map[int64]models.MediaAsset{},
		mentions:  map[int64]models.Mention{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Transactor() repository.Transactor { return transactor{} }
func (s *Store) Users() repository.UserRepository  { return userRepo{s} }
func (s *Store) Platforms() repository.PlatformRepository {
	return platformRepo{s}
}
func (s *Store) Posts() repository.PostRepository                 { return postRepo{s} }
func (s *Store) PostPlatforms() repository.PostPlatformRepository { return postPlatformRepo{s} }
func (s *Store) PostMedia() repository.PostMediaRepository        { return postMediaRepo{s} }
func (s *Store) Assets() repository.MediaAssetRepository          { return assetRepo{s} }
func (s *Store) Mentions() repository.MentionRepository           { return mentionRepo{s} }

// AddMention seeds a mention and returns its id.
func (s *Store) AddMention(m models.Mention) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	s.mentions[m.ID] = m
	return m.ID
}

func (s *Store) Mention(id int64) (models.Mention, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mentions[id]
	return m, ok
}

func (s *Store) AddUser(u models.User) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	s.users[u.ID] = u
	return u.ID
}

func (s *Store) PostCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

func (s *Store) PlatformCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.platforms)
}

type transactor struct{}

func (transactor) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id int64) (*models.User, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (r userRepo) UpsertGoogle(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, u := range r.s.users {
		if u.Email != user.Email {
			continue
		}
		if u.GoogleID == "" {
			u.GoogleID = user.GoogleID
			u.Name = user.Name
			u.ProfilePicture = user.ProfilePicture
		}
		u.UpdatedAt = time.Now()
		r.s.users[id] = u
		return &u, nil
	}
	u := *user
	u.ID = r.s.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = u
	return &u, nil
}

type platformRepo struct{ s *Store }

func (r platformRepo) Upsert(_ context.Context, _ *sql.Tx, p *models.ConnectedPlatform) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.UpsertErr != nil {
		return 0, r.s.UpsertErr
	}
	r.s.Upserts++

	for id, existing := range r.s.platforms {
		if existing.UserID == p.UserID && existing.PlatformID == p.PlatformID {
			next := *p
			next.ID = id
			next.SyncFrequency = existing.SyncFrequency
			next.Notifications = existing.Notifications
			next.CreatedAt = existing.CreatedAt
			next.UpdatedAt = time.Now()
			r.s.platforms[id] = next
			return id, nil
		}
	}

	next := *p
	next.ID = r.s.id()
	next.CreatedAt = time.Now()
	next.UpdatedAt = next.CreatedAt
	r.s.platforms[next.ID] = next
	return next.ID, nil
}

func (r platformRepo) GetByPlatform(_ context.Context, userID int64, platformID string) (*models.ConnectedPlatform, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.platforms {
		if p.UserID == userID && p.PlatformID == platformID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r platformRepo) filter(keep func(p models.ConnectedPlatform) bool) []*models.ConnectedPlatform {
	var out []*models.ConnectedPlatform
	for _, p := range r.s.platforms {
		if keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r platformRepo) ListByUserID(_ context.Context, userID int64) ([]*models.ConnectedPlatform, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ListPlatformsErr != nil {
		return nil, r.s.ListPlatformsErr
	}
	return r.filter(func(p models.ConnectedPlatform) bool { return p.UserID == userID }), nil
}

func (r platformRepo) ListConnected(_ context.Context, userID int64) ([]*models.ConnectedPlatform, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ListPlatformsErr != nil {
		return nil, r.s.ListPlatformsErr
	}
	return r.filter(func(p models.ConnectedPlatform) bool { return p.UserID == userID && p.IsConnected }), nil
}

func (r platformRepo) ListExpiring(_ context.Context, platformID string, before time.Time) ([]*models.ConnectedPlatform, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(p models.ConnectedPlatform) bool {
		return p.PlatformID == platformID && p.IsConnected && p.TokenExpiresAt != nil && p.TokenExpiresAt.Before(before)
	}), nil
}

func (r platformRepo) SetToken(_ context.Context, id int64, accessToken string, expiresAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.platforms[id]
	if !ok {
		return nil
	}
	p.AccessToken = accessToken
	p.TokenExpiresAt = expiresAt
	r.s.platforms[id] = p
	return nil
}

func (r platformRepo) UpdateSettings(_ context.Context, userID int64, platformID string, st *repository.PlatformSettings) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.platforms {
		if p.UserID != userID || p.PlatformID != platformID {
			continue
		}
		if st.SyncFrequency != nil {
			p.SyncFrequency = *st.SyncFrequency
		}
		if st.NotifyMentions != nil {
			p.Notifications.Mentions = *st.NotifyMentions
		}
		if st.NotifyMessages != nil {
			p.Notifications.Messages = *st.NotifyMessages
		}
		if st.AccountName != nil {
			p.AccountName = *st.AccountName
		}
		r.s.platforms[id] = p
		return true, nil
	}
	return false, nil
}

func (r platformRepo) Remove(_ context.Context, userID int64, platformID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.platforms {
		if p.UserID == userID && p.PlatformID == platformID {
			delete(r.s.platforms, id)
			for mid, m := range r.s.mentions {
				if m.PlatformID == id {
					m.PlatformID = 0
					r.s.mentions[mid] = m
				}
			}
			return true, nil
		}
	}
	return false, nil
}

type postRepo struct{ s *Store }

func (r postRepo) GetByID(_ context.Context, id int64) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r postRepo) Create(_ context.Context, _ *sql.Tx, post *models.Post) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := *post
	p.ID = r.s.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	p.Platforms = nil
	p.MediaIDs = nil
	r.s.posts[p.ID] = p
	return p.ID, nil
}

func (r postRepo) list(keep func(p models.Post) bool, less func(a, b *models.Post) bool) []*models.Post {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Post
	for _, p := range r.s.posts {
		if keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func bySchedule(a, b *models.Post) bool {
	return a.ScheduledFor.Before(*b.ScheduledFor)
}

func (r postRepo) GetByUserID(_ context.Context, userID int64) ([]*models.Post, error) {
	return r.list(func(p models.Post) bool { return p.UserID == userID },
		func(a, b *models.Post) bool { return a.ID > b.ID }), nil
}

func (r postRepo) ListScheduled(_ context.Context, userID int64) ([]*models.Post, error) {
	return r.list(func(p models.Post) bool {
		return p.UserID == userID && p.Status == models.PostStatusScheduled
	}, bySchedule), nil
}

func (r postRepo) ListDue(_ context.Context, before time.Time) ([]*models.Post, error) {
	return r.list(func(p models.Post) bool {
		return p.Status == models.PostStatusScheduled && p.ScheduledFor != nil && !p.ScheduledFor.After(before)
	}, bySchedule), nil
}

func editable(status string) bool {
	return status == models.PostStatusDraft || status == models.PostStatusScheduled
}

func (r postRepo) Update(_ context.Context, post *models.Post) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[post.ID]
	if !ok || !editable(p.Status) {
		return false, nil
	}
	p.Title = post.Title
	p.Content = post.Content
	p.ScheduledFor = post.ScheduledFor
	p.Status = post.Status
	p.UpdatedAt = time.Now()
	r.s.posts[post.ID] = p
	return true, nil
}

func (r postRepo) UpdatePostStatus(_ context.Context, status string, postID int64, publishedAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return nil
	}
	p.Status = status
	if publishedAt != nil {
		p.PublishedAt = publishedAt
	}
	r.s.posts[postID] = p
	return nil
}

func (r postRepo) ClaimScheduled(_ context.Context, postID int64, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok || p.Status != models.PostStatusScheduled || p.ScheduledFor == nil || p.ScheduledFor.After(now) {
		return false, nil
	}
	p.Status = models.PostStatusPublishing
	r.s.posts[postID] = p
	return true, nil
}

func (r postRepo) Transition(_ context.Context, postID int64, to string, from ...string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok || !slices.Contains(from, p.Status) {
		return false, nil
	}
	p.Status = to
	r.s.posts[postID] = p
	return true, nil
}

func (r postRepo) Remove(_ context.Context, _ *sql.Tx, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok || !editable(p.Status) {
		return false, nil
	}
	delete(r.s.posts, id)
	delete(r.s.targets, id)
	delete(r.s.media, id)
	return true, nil
}

// Post returns a copy of the stored post.
func (s *Store) Post(id int64) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	return p, ok
}

// SetPostStatus overwrites a post's status, bypassing every guard.
func (s *Store) SetPostStatus(id int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		p.Status = status
		s.posts[id] = p
	}
}

type postPlatformRepo struct{ s *Store }

func (r postPlatformRepo) Create(_ context.Context, _ *sql.Tx, pp *models.PostPlatform) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	next := *pp
	next.CreatedAt = time.Now()
	next.UpdatedAt = next.CreatedAt
	r.s.targets[pp.PostID] = append(r.s.targets[pp.PostID], next)
	return nil
}

func (r postPlatformRepo) ListByPostID(_ context.Context, postID int64) ([]*models.PostPlatform, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.PostPlatform
	for _, pp := range r.s.targets[postID] {
		pp := pp
		out = append(out, &pp)
	}
	return out, nil
}

func (r postPlatformRepo) update(postID int64, platformID string, fn func(pp *models.PostPlatform)) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.targets[postID]
	for i := range list {
		if list[i].PlatformID == platformID {
			fn(&list[i])
			list[i].UpdatedAt = time.Now()
		}
	}
}

func (r postPlatformRepo) SetStatus(_ context.Context, postID int64, platformID, status string) error {
	r.update(postID, platformID, func(pp *models.PostPlatform) { pp.Status = status })
	return nil
}

func (r postPlatformRepo) MarkPublished(_ context.Context, postID int64, platformID, externalPostID string) error {
	r.update(postID, platformID, func(pp *models.PostPlatform) {
		now := time.Now()
		pp.Status = models.PostStatusPublished
		pp.ExternalPostID = externalPostID
		pp.ErrorMessage = ""
		pp.PublishedAt = &now
	})
	return nil
}

func (r postPlatformRepo) MarkFailed(_ context.Context, postID int64, platformID, errorMessage string) error {
	r.update(postID, platformID, func(pp *models.PostPlatform) {
		pp.Status = models.PostStatusFailed
		pp.ErrorMessage = errorMessage
	})
	return nil
}

type postMediaRepo struct{ s *Store }

func (r postMediaRepo) Attach(_ context.Context, _ *sql.Tx, postID int64, assetIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range assetIDs {
		if !slices.Contains(r.s.media[postID], id) {
			r.s.media[postID] = append(r.s.media[postID], id)
		}
	}
	return nil
}

func (r postMediaRepo) AssetIDs(_ context.Context, postID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.media[postID]), nil
}

func (r postMediaRepo) URLs(_ context.Context, postID int64) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var urls []string
	for _, id := range r.s.media[postID] {
		if a, ok := r.s.assets[id]; ok && a.FileURL != "" {
			urls = append(urls, a.FileURL)
		}
	}
	return urls, nil
}

type assetRepo struct{ s *Store }

func (r assetRepo) Create(_ context.Context, _ *sql.Tx, ma *models.MediaAsset) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a := *ma
	a.ID = r.s.id()
	a.CreatedAt = time.Now()
	r.s.assets[a.ID] = a
	return a.ID, nil
}

func (r assetRepo) ListOwned(_ context.Context, userID int64, ids []int64) ([]*models.MediaAsset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.MediaAsset
	for _, id := range ids {
		if a, ok := r.s.assets[id]; ok && a.UserID == userID {
			out = append(out, &a)
		}
	}
	return out, nil
}

type mentionRepo struct{ s *Store }

func (r mentionRepo) ListUnread(_ context.Context, platformIDs []int64) ([]*models.Mention, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.MentionQueries++
	var out []*models.Mention
	for _, m := range r.s.mentions {
		if !m.IsRead && slices.Contains(platformIDs, m.PlatformID) {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r mentionRepo) MarkRead(_ context.Context, mentionID int64, platformIDs []int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mentions[mentionID]
	if !ok || m.IsRead || !slices.Contains(platformIDs, m.PlatformID) {
		return false, nil
	}
	m.IsRead = true
	r.s.mentions[mentionID] = m
	return true, nil
}
