package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/cache"
	"github.com/d60-Lab/gin-blog/internal/identity"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
)

const (
	// ProfilePostLimit 主页展示的文章数
	ProfilePostLimit = 20
	// maxDerivedUsernames 联合登录自动生成用户名时最多尝试的后缀数
	maxDerivedUsernames = 50
)

// TokenVerifier 校验外部身份提供方签发的 ID token
type TokenVerifier interface {
	Verify(idToken string) (identity.FederatedIdentity, error)
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	SignOut(ctx context.Context, token string) error
	FederatedSignIn(ctx context.Context, idToken string) (*identity.Session, *model.User, error)
	Get(ctx context.Context, uid string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetUsers(ctx context.Context, uids []string) ([]*model.User, error)
	Profile(ctx context.Context, username string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, uid string, in ProfileInput) (*model.User, error)
	Rename(ctx context.Context, uid, username string) (*model.User, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
}

// UserDeps 用户服务依赖。Cache / Reaper / Verifier 可以为空。
type UserDeps struct {
	Users            repository.UserRepository
	Posts            repository.PostRepository
	Gateway          identity.Gateway
	Verifier         TokenVerifier
	Cache            *cache.Cache
	Reaper           *AccountReaper
	DefaultAvatarURL string
}

type userService struct {
	UserDeps
	now func() time.Time
}

func NewUserService(deps UserDeps) UserService {
	return &userService{UserDeps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// Register 校验 -> 用户名预检 -> 创建身份账号 -> 事务内预留用户名并写资料。
// 第四步失败时删除刚创建的账号；删除也失败则交给 Reaper 后台重试。
func (s *userService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := check(in); err != nil {
		return nil, fail("users.register", err)
	}
	normalized := model.NormalizeUsername(in.Username)
	if err := check(usernameInput{Username: normalized}); err != nil {
		return nil, fail("users.register", err)
	}

	taken, err := s.Users.UsernameTaken(ctx, normalized)
	if err != nil {
		return nil, fail("users.register", err)
	}
	if taken {
		return nil, fail("users.register", apperr.Conflictf("username %q is already taken", normalized))
	}

	uid, err := s.Gateway.CreateAccount(ctx, in.Email, in.Password, in.DisplayName)
	if err != nil {
		return nil, fail("users.register", err)
	}

	user := &model.User{
		UID:         uid,
		Username:    in.Username,
		Email:       strings.ToLower(in.Email),
		DisplayName: in.DisplayName,
		PhotoURL:    s.DefaultAvatarURL,
		CreatedAt:   s.now(),
	}
	if err := s.Users.Register(ctx, user); err != nil {
		s.compensate(uid)
		return nil, fail("users.register", err, zap.String("uid", uid))
	}
	return user, nil
}

// compensate 使用独立 context，请求被取消时依然执行。
func (s *userService) compensate(uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Gateway.DeleteAccount(ctx, uid)
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		return
	}
	_ = fail("users.register.compensate", err, zap.String("uid", uid))
	if s.Reaper != nil {
		s.Reaper.Enqueue(uid)
	}
}

func (s *userService) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fail("users.sign_in", apperr.Invalid("email", "email and password are required"))
	}
	sess, err := s.Gateway.SignIn(ctx, email, password)
	if err != nil {
		return nil, fail("users.sign_in", err)
	}
	return sess, nil
}

func (s *userService) SignOut(ctx context.Context, token string) error {
	return fail("users.sign_out", s.Gateway.SignOut(ctx, token))
}

// FederatedSignIn 首次登录时创建资料文档，用户名由邮箱前缀或姓名派生：base, base1, base2...
func (s *userService) FederatedSignIn(ctx context.Context, idToken string) (*identity.Session, *model.User, error) {
	if s.Verifier == nil {
		return nil, nil, fail("users.federated_sign_in", apperr.ErrUnauthenticated)
	}
	fid, err := s.Verifier.Verify(idToken)
	if err != nil {
		return nil, nil, fail("users.federated_sign_in", err)
	}
	sess, err := s.Gateway.LinkFederated(ctx, fid)
	if err != nil {
		return nil, nil, fail("users.federated_sign_in", err)
	}

	user, err := s.Users.Get(ctx, sess.Principal)
	if err == nil {
		return sess, user, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, fail("users.federated_sign_in", err, zap.String("uid", sess.Principal))
	}

	photo := fid.Picture
	if photo == "" {
		photo = s.DefaultAvatarURL
	}
	base := deriveUsername(fid.Email, fid.Name)
	for i := 0; i < maxDerivedUsernames; i++ {
		candidate := withSuffix(base, i)
		user = &model.User{
			UID:         sess.Principal,
			Username:    candidate,
			Email:       strings.ToLower(fid.Email),
			DisplayName: fid.Name,
			PhotoURL:    photo,
			CreatedAt:   s.now(),
		}
		taken, err := s.Users.UsernameTaken(ctx, candidate)
		if err != nil {
			return nil, nil, fail("users.federated_sign_in", err)
		}
		if taken {
			continue
		}
		err = s.Users.Register(ctx, user)
		if err == nil {
			return sess, user, nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return nil, nil, fail("users.federated_sign_in", err, zap.String("uid", sess.Principal))
		}
	}
	return nil, nil, fail("users.federated_sign_in",
		apperr.Conflictf("no free username derived from %q", base), zap.String("uid", sess.Principal))
}

// deriveUsername 取邮箱前缀（没有则用姓名），转换为合法用户名。
func deriveUsername(email, name string) string {
	src := name
	if at := strings.IndexByte(email, '@'); at > 0 {
		src = email[:at]
	}
	var b strings.Builder
	last := byte(0)
	for _, r := range strings.ToLower(src) {
		var c byte
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			c = byte(r)
		default:
			c = '_'
		}
		if c == '_' && (last == '_' || b.Len() == 0) {
			continue
		}
		b.WriteByte(c)
		last = c
	}
	out := strings.TrimRight(b.String(), "_")
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "user" + out
	}
	for len(out) < 3 {
		out += "0"
	}
	// 给数字后缀留位置
	if len(out) > 17 {
		out = strings.TrimRight(out[:17], "_")
	}
	return out
}

func withSuffix(base string, i int) string {
	if i == 0 {
		return base
	}
	return base + strconv.Itoa(i)
}

func (s *userService) Get(ctx context.Context, uid string) (*model.User, error) {
	if u, ok := s.Cache.GetUser(ctx, uid); ok {
		return u, nil
	}
	u, err := s.Users.Get(ctx, uid)
	if err != nil {
		return nil, fail("users.get", err, zap.String("uid", uid))
	}
	s.Cache.SetUsers(ctx, u)
	return u, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fail("users.get_by_username", err, zap.String("username", username))
	}
	return u, nil
}

// GetUsers 先批量读缓存，未命中的一次回源。结果按输入顺序，缺失的用户被跳过。
func (s *userService) GetUsers(ctx context.Context, uids []string) ([]*model.User, error) {
	found, missing := s.Cache.GetUsers(ctx, uids)
	if len(missing) > 0 {
		loaded, err := s.Users.GetMany(ctx, missing)
		if err != nil {
			return nil, fail("users.get_users", err)
		}
		for _, u := range loaded {
			found[u.UID] = u
		}
		s.Cache.SetUsers(ctx, loaded...)
	}
	out := make([]*model.User, 0, len(uids))
	for _, id := range uids {
		if u, ok := found[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *userService) Profile(ctx context.Context, username string) (*model.Profile, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	posts, err := s.Posts.List(ctx, repository.ListQuery{AuthorID: u.UID, Limit: ProfilePostLimit})
	if err != nil {
		return nil, fail("users.profile", err, zap.String("uid", u.UID))
	}
	return &model.Profile{User: u, Posts: posts}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, uid string, in ProfileInput) (*model.User, error) {
	if in.DisplayName != nil {
		v := strings.TrimSpace(*in.DisplayName)
		in.DisplayName = &v
	}
	if in.PhotoURL != nil {
		v := strings.TrimSpace(*in.PhotoURL)
		in.PhotoURL = &v
	}
	if err := check(in); err != nil {
		return nil, fail("users.update_profile", err)
	}
	upd := model.ProfileUpdate{DisplayName: in.DisplayName, PhotoURL: in.PhotoURL}
	if err := s.Users.UpdateProfile(ctx, uid, upd); err != nil {
		return nil, fail("users.update_profile", err, zap.String("uid", uid))
	}
	s.Cache.InvalidateUser(ctx, uid)
	return s.Get(ctx, uid)
}

// Rename 已发布文章里的作者名是快照，不跟随改名。
func (s *userService) Rename(ctx context.Context, uid, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if err := check(usernameInput{Username: model.NormalizeUsername(username)}); err != nil {
		return nil, fail("users.rename", err)
	}
	if err := s.Users.Rename(ctx, uid, username); err != nil {
		return nil, fail("users.rename", err, zap.String("uid", uid))
	}
	s.Cache.InvalidateUser(ctx, uid)
	return s.Get(ctx, uid)
}

// CheckUsername 只是提示，注册时以事务预留为准。
func (s *userService) CheckUsername(ctx context.Context, username string) (bool, error) {
	normalized := model.NormalizeUsername(username)
	if err := check(usernameInput{Username: normalized}); err != nil {
		return false, fail("users.check_username", err)
	}
	taken, err := s.Users.UsernameTaken(ctx, normalized)
	if err != nil {
		return false, fail("users.check_username", err)
	}
	return !taken, nil
}
