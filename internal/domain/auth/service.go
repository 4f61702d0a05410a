package auth

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultTokenTTL = 12 * time.Hour

type Service struct {
	Store  StoreAPI
	Secret string
	TTL    time.Duration
	Log    logrus.FieldLogger
	Now    func() time.Time
}

func NewService(store StoreAPI, secret string, log logrus.FieldLogger) *Service {
	return &Service{Store: store, Secret: secret, TTL: DefaultTokenTTL, Log: log, Now: time.Now}
}

// Login checks the password and issues a signed token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Store.FindActiveUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.Now()
	token, err := GenerateToken(s.Secret, Claims{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		RoleName:  user.Role,
	}, now, s.TTL)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.Log.WithError(err).WithField("userId", user.ID).Warn("last login update failed")
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: now.Add(s.TTL),
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Role:      user.Role,
	}, nil
}
