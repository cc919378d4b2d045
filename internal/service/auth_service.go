package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

// AuthService регистрация, вход и проверка bearer-токенов
type AuthService struct {
	users      repository.UserRepository
	wallets    repository.WalletRepository
	carts      repository.CartRepository
	tx         repository.TxManager
	saver      StateSaver
	log        *logrus.Logger
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
}

func NewAuthService(
	users repository.UserRepository,
	wallets repository.WalletRepository,
	carts repository.CartRepository,
	tx repository.TxManager,
	saver StateSaver,
	log *logrus.Logger,
	secret string,
	tokenTTL time.Duration,
	bcryptCost int,
) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		wallets:    wallets,
		carts:      carts,
		tx:         tx,
		saver:      saver,
		log:        log,
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
	}
}

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
)

// Claims полезная нагрузка JWT
type Claims struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Register создаёт пользователя с уникальным username.
// Пациенту сразу заводятся пустая корзина и нулевой кошелёк.
func (s *AuthService) Register(ctx context.Context, username, password, fullName string, role domain.Role) (*domain.User, error) {
	if len(username) < 3 || len(password) < 6 || !role.Valid() {
		return nil, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         role,
	}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByUsername(ctx, username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := s.users.Create(ctx, &user); err != nil {
			return err
		}
		if role == domain.RolePatient {
			if err := s.wallets.Save(ctx, &domain.Wallet{PatientID: user.ID}); err != nil {
				return err
			}
			if err := s.carts.Save(ctx, &domain.Cart{PatientID: user.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"username": username, "role": role}).Info("user registered")
	persist(ctx, s.saver, s.log, "auth.register")
	return &user, nil
}

// RegisterSelf открытая саморегистрация: допускается только роль пациента.
// Единственное исключение — первый администратор в пустой базе пользователей.
func (s *AuthService) RegisterSelf(ctx context.Context, username, password, fullName string, role domain.Role) (*domain.User, error) {
	if role == "" {
		role = domain.RolePatient
	}
	if role != domain.RolePatient {
		if role != domain.RoleAdmin {
			return nil, ErrForbidden
		}
		existing, err := s.users.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return nil, ErrForbidden
		}
	}
	return s.Register(ctx, username, password, fullName, role)
}

// ListUsers список всех пользователей
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Login проверяет пароль и выдаёт подписанный токен
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "apteka",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// VerifyToken разбирает и валидирует bearer-токен
func (s *AuthService) VerifyToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// GetUser возвращает пользователя по id
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.users.GetByID(ctx, id)
}
