package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/functions/graph"
	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/repository/repotest"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-0123456789abcdef"

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[int64]time.Time
	removed   []int64
	err       error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[int64]time.Time{}}
}

func (f *fakeScheduler) Schedule(_ context.Context, postID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.scheduled[postID] = at
	return nil
}

func (f *fakeScheduler) Unschedule(_ context.Context, postID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, postID)
	f.removed = append(f.removed, postID)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeStore) Put(_ context.Context, key string, body []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

// recorder wraps a Registry and counts invocations by name.
type recorder struct {
	*functions.Registry
	mu    sync.Mutex
	calls map[string]int
}

func newRecorder() *recorder {
	return &recorder{Registry: functions.NewRegistry(), calls: map[string]int{}}
}

func (r *recorder) Invoke(ctx context.Context, name string, in, out any) error {
	r.mu.Lock()
	r.calls[name]++
	r.mu.Unlock()
	return r.Registry.Invoke(ctx, name, in, out)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

// exchange registers an oauth function that accepts exactly one code once.
func (r *recorder) exchange(platformID, code string, token functions.TokenResponse) {
	used := false
	r.Register(functions.OAuth(platformID), func(_ context.Context, payload json.RawMessage) (any, error) {
		var req functions.OAuthRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		if req.Code != code || used {
			return nil, errors.New("invalid authorization code")
		}
		used = true
		return token, nil
	})
}

func (r *recorder) publishOK(platformID, externalID string) {
	r.Register(functions.Publish(platformID), func(context.Context, json.RawMessage) (any, error) {
		return functions.PublishResponse{ExternalPostID: externalID}, nil
	})
}

func (r *recorder) publishFail(platformID, message string) {
	r.Register(functions.Publish(platformID), func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New(message)
	})
}

type testEnv struct {
	store     *repotest.Store
	fn        *recorder
	scheduler *fakeScheduler
	objects   *fakeStore
	now       time.Time

	platforms PlatformService
	oauth     OAuthService
	media     MediaService
	publisher Publisher
	posts     PostService
	mentions  MentionService
	dashboard DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{
		store:     repotest.NewStore(),
		fn:        newRecorder(),
		scheduler: newFakeScheduler(),
		objects:   &fakeStore{objects: map[string][]byte{}},
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return e.now }

	ps := NewPlatformService(e.store.Platforms(), e.fn).(*platformService)
	ps.now = clock
	e.platforms = ps

	e.oauth = NewOAuthService(OAuthConfig{
		AppURL:    "https://app.example.com",
		SecretKey: testSecret,
		ClientIDs: map[string]string{
			platforms.Facebook:  "fb-client",
			platforms.Instagram: "ig-client",
		},
	}, e.fn, e.platforms)

	e.media = NewMediaService(e.objects, e.store.Assets(), e.store.PostMedia(), "https://media.example.com")

	pub := NewPublisher(e.fn, e.store.Platforms(), e.store.Posts(), e.store.PostPlatforms(), e.media).(*publisher)
	pub.now = clock
	e.publisher = pub

	posts := NewPostService(
		e.store.Transactor(),
		e.store.Posts(),
		e.store.PostPlatforms(),
		e.store.PostMedia(),
		e.store.Platforms(),
		e.media,
		e.publisher,
		e.scheduler,
	).(*postService)
	posts.now = clock
	e.posts = posts

	ms := NewMentionService(e.store.Platforms(), e.store.Mentions()).(*mentionService)
	ms.now = clock
	e.mentions = ms

	e.dashboard = NewDashboardService(e.platforms, e.mentions, e.posts, e.oauth)
	return e
}

// connect stores a connected platform for userID directly.
func (e *testEnv) connect(t *testing.T, userID int64, platformID string) *models.ConnectedPlatform {
	t.Helper()
	p, err := e.platforms.Save(context.Background(), userID, platformID, &functions.TokenResponse{
		AccessToken: platformID + "-token",
		AccountID:   platformID + "-account",
		AccountName: "Acme " + platformID,
	})
	require.NoError(t, err)
	return p
}

type fakeSession struct {
	status   *graph.LoginStatus
	login    *graph.LoginStatus
	loginErr error
	scopes   []string
}

func (s *fakeSession) LoginStatus(context.Context) (*graph.LoginStatus, error) {
	if s.status == nil {
		return &graph.LoginStatus{}, nil
	}
	return s.status, nil
}

func (s *fakeSession) Login(_ context.Context, scopes []string) (*graph.LoginStatus, error) {
	s.scopes = scopes
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.login, nil
}

type fakeGraph struct {
	session *fakeSession
	user    *graph.User
	pages   []graph.Page
}

func (g *fakeGraph) Session(string, string, string) graph.Session { return g.session }

func (g *fakeGraph) Me(context.Context, string) (*graph.User, error) {
	return g.user, nil
}

func (g *fakeGraph) Pages(context.Context, string) ([]graph.Page, error) {
	return g.pages, nil
}

type fakeLoader struct {
	client GraphClient
	err    error
}

func (l *fakeLoader) Load(context.Context) (GraphClient, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.client, nil
}
