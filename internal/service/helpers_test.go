package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/gin-blog/internal/identity"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
)

type store struct {
	db    *gorm.DB
	posts repository.PostRepository
	users repository.UserRepository
}

func newStore(t *testing.T) store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Post{}, &model.User{}, &model.UsernameReservation{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return store{db: db, posts: repository.NewPostRepository(db), users: repository.NewUserRepository(db)}
}

func (s store) seedUser(t *testing.T, uid, username string) *model.User {
	t.Helper()
	u := &model.User{UID: uid, Username: username, Email: uid + "@example.com", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.users.Register(context.Background(), u))
	return u
}

// clock 每次调用前进一秒，保证创建时间彼此不同
func clock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	args := m.Called(ctx, email, password, displayName)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) DeleteAccount(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *mockGateway) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	args := m.Called(ctx, email, password)
	sess, _ := args.Get(0).(*identity.Session)
	return sess, args.Error(1)
}

func (m *mockGateway) SignOut(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockGateway) Verify(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) LinkFederated(ctx context.Context, id identity.FederatedIdentity) (*identity.Session, error) {
	args := m.Called(ctx, id)
	sess, _ := args.Get(0).(*identity.Session)
	return sess, args.Error(1)
}

type stubVerifier struct {
	id  identity.FederatedIdentity
	err error
}

func (v stubVerifier) Verify(string) (identity.FederatedIdentity, error) { return v.id, v.err }
