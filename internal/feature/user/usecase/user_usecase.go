package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"debt_backend/internal/feature/user/domain/entity"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 8
	// userCacheTTL はプロフィールキャッシュの有効期間です。
	userCacheTTL = 30 * time.Minute
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーを永続化します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error
	// FindByID はIDに一致するユーザーを取得します。存在しない場合はErrUserNotFound。
	FindByID(ctx context.Context, id uint) (*entity.User, error)
	// FindByEmail は正規化済みのメールアドレスに一致するユーザーを取得します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// Update は名前とパスワードハッシュを書き換えます。
	Update(ctx context.Context, user *entity.User) error
}

// Cache is the subset of the key-value cache used for profiles.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Profile はパスワードを含まない公開用のユーザー情報です。
type Profile struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProfile converts a stored user into its public form.
func NewProfile(u *entity.User) *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// RegisterInput は新規登録の入力です。
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileInput はプロフィール更新の入力です。
type ProfileInput struct {
	FirstName string
	LastName  string
}

// userUsecase はユーザー管理のビジネスロジックを実装します。
type userUsecase struct {
	users UserRepository
	cache Cache
	cost  int
}

// NewUserUsecase はuserUsecaseの新しいインスタンスを生成します。
func NewUserUsecase(users UserRepository, cache Cache) *userUsecase {
	return &userUsecase{users: users, cache: cache, cost: bcrypt.DefaultCost}
}

// NormalizeEmail はメールアドレスを小文字化し前後の空白を除去します。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func idKey(id uint) string         { return fmt.Sprintf("user:id:%d", id) }
func emailKey(email string) string { return "user:email:" + email }

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Register はハッシュ化されたパスワードで新規ユーザーを登録します。
func (u *userUsecase) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	email := NormalizeEmail(in.Email)

	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &entity.User{
		Email:     email,
		Password:  string(hashed),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}

	p := NewProfile(user)
	u.store(ctx, p)
	slog.Info("user registered", "user_id", user.ID)
	return p, nil
}

// GetByID はキャッシュを優先してプロフィールを取得します。
func (u *userUsecase) GetByID(ctx context.Context, id uint) (*Profile, error) {
	var cached Profile
	if u.cache.Get(ctx, idKey(id), &cached) {
		return &cached, nil
	}
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := NewProfile(user)
	u.store(ctx, p)
	return p, nil
}

// GetByEmail はキャッシュを優先してプロフィールを取得します。
func (u *userUsecase) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	email = NormalizeEmail(email)
	var cached Profile
	if u.cache.Get(ctx, emailKey(email), &cached) {
		return &cached, nil
	}
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	p := NewProfile(user)
	u.store(ctx, p)
	return p, nil
}

// UpdateProfile は氏名を更新し、キャッシュを入れ替えます。
func (u *userUsecase) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*Profile, error) {
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	if err := u.users.Update(ctx, user); err != nil {
		return nil, err
	}

	u.invalidate(ctx, user)
	p := NewProfile(user)
	u.store(ctx, p)
	return p, nil
}

// ChangePassword は現在のパスワードを検証してから新しいパスワードに置き換えます。
func (u *userUsecase) ChangePassword(ctx context.Context, id uint, current, next string) error {
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return ErrInvalidPassword
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), u.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	if err := u.users.Update(ctx, user); err != nil {
		return err
	}
	u.invalidate(ctx, user)
	slog.Info("password changed", "user_id", id)
	return nil
}

func (u *userUsecase) store(ctx context.Context, p *Profile) {
	u.cache.Set(ctx, idKey(p.ID), p, userCacheTTL)
	u.cache.Set(ctx, emailKey(p.Email), p, userCacheTTL)
}

func (u *userUsecase) invalidate(ctx context.Context, user *entity.User) {
	u.cache.Delete(ctx, idKey(user.ID))
	u.cache.Delete(ctx, emailKey(user.Email))
}
