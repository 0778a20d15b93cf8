package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	userentity "debt_backend/internal/feature/user/domain/entity"
	userusecase "debt_backend/internal/feature/user/usecase"
)

// dummyHash はユーザーが存在しない場合でもbcrypt比較を行うためのハッシュです。
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserRepository はログインに必要なユーザー検索を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// FindByEmail は指定されたメールアドレスに一致するユーザーを取得します。
	FindByEmail(ctx context.Context, email string) (*userentity.User, error)
}

// UserService は登録とプロフィール取得をuserフィーチャーに委譲します。
type UserService interface {
	Register(ctx context.Context, in userusecase.RegisterInput) (*userusecase.Profile, error)
	GetByID(ctx context.Context, id uint) (*userusecase.Profile, error)
}

// JWTGenerator はJWTトークン生成のインターフェースを定義します。
type JWTGenerator interface {
	// GenerateToken は指定されたユーザーの署名済みJWTトークンを生成します。
	GenerateToken(userID uint, email string) (string, error)
	Expiration() time.Duration
}

// TokenRevoker はログアウトしたトークンを有効期限まで失効させます。
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, userID uint, expiresAt time.Time) error
}

// AuthResult は登録・ログイン成功時の応答です。
type AuthResult struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expiresAt"`
	User      *userusecase.Profile `json:"user"`
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users        UserRepository
	userService  UserService
	jwtGenerator JWTGenerator
	revoker      TokenRevoker
	now          func() time.Time
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
// revoker が nil の場合、ログアウトはサーバー側でトークンを失効させません。
func NewAuthUsecase(users UserRepository, userService UserService, jwtGenerator JWTGenerator, revoker TokenRevoker) *authUsecase {
	return &authUsecase{
		users:        users,
		userService:  userService,
		jwtGenerator: jwtGenerator,
		revoker:      revoker,
		now:          time.Now,
	}
}

// Register は新規ユーザーを登録し、そのままログイン済みのトークンを発行します。
func (u *authUsecase) Register(ctx context.Context, in userusecase.RegisterInput) (*AuthResult, error) {
	p, err := u.userService.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return u.issue(p)
}

// Login はユーザーを認証し、成功時にJWTトークンを返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *authUsecase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := u.users.FindByEmail(ctx, userusecase.NormalizeEmail(email))
	if err != nil && !errors.Is(err, userusecase.ErrUserNotFound) {
		return nil, err
	}

	passwordHash := dummyHash
	if err == nil {
		passwordHash = user.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	// ユーザー未検出またはパスワード不一致の場合、汎用エラーを返す
	if err != nil || compareErr != nil {
		return nil, ErrInvalidCredentials
	}
	return u.issue(userusecase.NewProfile(user))
}

// Logout はトークンIDを有効期限まで失効リストに登録します。
func (u *authUsecase) Logout(ctx context.Context, tokenID string, userID uint, expiresAt time.Time) error {
	if tokenID == "" {
		return ErrTokenNotRevocable
	}
	if u.revoker == nil {
		// Redisなしの構成ではクライアント側のトークン破棄のみになる
		slog.Warn("token revocation unavailable", "user_id", userID)
		return nil
	}
	if err := u.revoker.Revoke(ctx, tokenID, userID, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	slog.Info("token revoked", "user_id", userID)
	return nil
}

// Validate はトークンの持ち主がまだ存在することを確認し、そのプロフィールを返します。
func (u *authUsecase) Validate(ctx context.Context, userID uint) (*userusecase.Profile, error) {
	return u.userService.GetByID(ctx, userID)
}

func (u *authUsecase) issue(p *userusecase.Profile) (*AuthResult, error) {
	token, err := u.jwtGenerator.GenerateToken(p.ID, p.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{
		Token:     token,
		ExpiresAt: u.now().Add(u.jwtGenerator.Expiration()).UTC(),
		User:      p,
	}, nil
}
