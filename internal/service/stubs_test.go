package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"microblog/internal/models"
	"microblog/internal/sentiment"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

// usersByName serves lookups from a fixed set of users.
func usersByName(users ...*models.User) *userRepoStub {
	byName := make(map[string]*models.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			for _, u := range users {
				if u.ID == id {
					return u, nil
				}
			}
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			for _, u := range users {
				if u.Email == email {
					return u, nil
				}
			}
			return nil, nil
		},
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return byName[username], nil
		},
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = uint(len(users) + 1)
			return nil
		},
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn  func(context.Context, *models.Post) error
	getByIDFn func(context.Context, uint) (*models.Post, error)
	listFn    func(context.Context, int, int) ([]*models.Post, error)
	feedFn    func(context.Context, uint, int, int) ([]*models.Post, error)
	updateFn  func(context.Context, *models.Post) error
	deleteFn  func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.feedFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return nil, models.NewNotFoundError("Post", id) },
		listFn:    func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		feedFn:    func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil },
		updateFn:  func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:  func(_ context.Context, _ uint) error { return nil },
	}
}

// followRepoStub keeps edges in memory.
type followRepoStub struct {
	edges map[[2]uint]bool
	err   error
}

func newFollowRepoStub() *followRepoStub {
	return &followRepoStub{edges: map[[2]uint]bool{}}
}

func (s *followRepoStub) Create(_ context.Context, followerID, followedID uint) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	key := [2]uint{followerID, followedID}
	if s.edges[key] {
		return false, nil
	}
	s.edges[key] = true
	return true, nil
}
func (s *followRepoStub) Delete(_ context.Context, followerID, followedID uint) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	key := [2]uint{followerID, followedID}
	if !s.edges[key] {
		return false, nil
	}
	delete(s.edges, key)
	return true, nil
}
func (s *followRepoStub) Exists(_ context.Context, followerID, followedID uint) (bool, error) {
	return s.edges[[2]uint{followerID, followedID}], s.err
}
func (s *followRepoStub) FollowerIDs(_ context.Context, followedID uint) ([]uint, error) {
	if s.err != nil {
		return nil, s.err
	}
	var ids []uint
	for edge := range s.edges {
		if edge[1] == followedID {
			ids = append(ids, edge[0])
		}
	}
	return ids, nil
}

// fakeHasher avoids bcrypt cost in unit tests.
type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("password must not be empty")
	}
	return "hashed:" + plaintext, nil
}
func (fakeHasher) Verify(plaintext, digest string) bool {
	return digest == "hashed:"+plaintext
}

type fakeTokens struct {
	subjects []string
	err      error
}

func (f *fakeTokens) Issue(subject string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	f.subjects = append(f.subjects, subject)
	return "token-for-" + subject, time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC), nil
}

// keywordClassifier labels by the first keyword it finds.
type keywordClassifier struct{}

func (keywordClassifier) Classify(text string) sentiment.Label {
	switch {
	case strings.Contains(text, "love"):
		return sentiment.Positive
	case strings.Contains(text, "hate"):
		return sentiment.Negative
	default:
		return sentiment.Neutral
	}
}

type publishedPost struct {
	followerIDs []uint
	post        models.PostResponse
}

type recordingPublisher struct {
	calls []publishedPost
	err   error
}

func (p *recordingPublisher) PublishNewPost(_ context.Context, followerIDs []uint, post models.PostResponse) error {
	p.calls = append(p.calls, publishedPost{followerIDs: followerIDs, post: post})
	return p.err
}
