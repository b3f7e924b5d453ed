// Package auth signs callers in with a password or an emailed one-time link and resolves session tokens
// back into principals.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"campusrx/m/domain"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/config"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
	"campusrx/m/internal/logger"
	"campusrx/m/internal/session"
)

// Service owns user credentials. Its facade must act with admin rights since users are never readable by
// callers directly.
type Service struct {
	f        *facade.Facade
	jwt      config.JWTConfig
	links    LinkStore
	mailer   Mailer
	linkTTL  time.Duration
	linkBase string
	log      *logger.Logger
}

func NewService(f *facade.Facade, jwtCfg config.JWTConfig, linkCfg config.LinkConfig, links LinkStore, mailer Mailer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		f:        f,
		jwt:      jwtCfg,
		links:    links,
		mailer:   mailer,
		linkTTL:  linkCfg.TTL,
		linkBase: linkCfg.BaseURL,
		log:      log,
	}
}

var errBadCredentials = apperr.New(apperr.KindUnauthorized, "invalid email or password")

// Login checks the password of email and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (Token, session.Principal, error) {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Token{}, session.Principal{}, errBadCredentials
		}
		return Token{}, session.Principal{}, err
	}
	ok, err := CheckPassword(u.PasswordHash, password)
	if err != nil {
		return Token{}, session.Principal{}, apperr.Wrap(apperr.KindInternal, err, "checking password")
	}
	if !ok {
		return Token{}, session.Principal{}, errBadCredentials
	}
	return s.issue(ctx, u)
}

// RequestLink emails a one-time login link to email. Unknown addresses succeed silently.
func (s *Service) RequestLink(ctx context.Context, email string) error {
	u, err := s.userByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		s.log.Info(ctx, "login link requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := randomToken()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "generating login link")
	}
	if err := s.links.Put(ctx, token, u.ID, s.linkTTL); err != nil {
		return apperr.Wrap(apperr.KindRemoteUnavailable, err, "storing login link")
	}

	link := s.linkBase + "?token=" + url.QueryEscape(token)
	body := fmt.Sprintf("Sign in to CampusRx with this link. It expires in %s and works once.\n\n%s\n", s.linkTTL, link)
	if err := s.mailer.Send(ctx, u.Email, "Your CampusRx sign-in link", body); err != nil {
		return apperr.Wrap(apperr.KindRemoteUnavailable, err, "sending login link")
	}
	s.log.Info(s.log.WithField(ctx, "user_id", u.ID), "login link sent")
	return nil
}

// ConsumeLink exchanges a one-time token for a session token. A token works once.
func (s *Service) ConsumeLink(ctx context.Context, token string) (Token, session.Principal, error) {
	userID, err := s.links.Take(ctx, token)
	if errors.Is(err, ErrLinkNotFound) {
		return Token{}, session.Principal{}, apperr.New(apperr.KindUnauthorized, "login link is invalid or expired")
	}
	if err != nil {
		return Token{}, session.Principal{}, apperr.Wrap(apperr.KindRemoteUnavailable, err, "reading login link")
	}
	u, err := s.f.Users.Get(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Token{}, session.Principal{}, apperr.New(apperr.KindUnauthorized, "account no longer exists")
		}
		return Token{}, session.Principal{}, err
	}
	return s.issue(ctx, u)
}

// Principal verifies a session token and loads its user. It implements session.Source.
func (s *Service) Principal(ctx context.Context, token string) (session.Principal, error) {
	claims, err := ParseToken(s.jwt, token)
	if err != nil {
		return session.Principal{}, apperr.Wrap(apperr.KindUnauthorized, err, "invalid session token")
	}
	u, err := s.f.Users.Get(ctx, claims.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return session.Principal{}, apperr.New(apperr.KindUnauthorized, "account no longer exists")
		}
		return session.Principal{}, err
	}
	return s.principal(ctx, u)
}

// CreateUser registers an account. Password may be empty for link-only accounts.
func (s *Service) CreateUser(ctx context.Context, u domain.User, password string) (domain.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return domain.User{}, apperr.Wrap(apperr.KindInternal, err, "hashing password")
		}
		u.PasswordHash = hash
	}
	return s.f.Users.Create(ctx, u)
}

func (s *Service) issue(ctx context.Context, u domain.User) (Token, session.Principal, error) {
	p, err := s.principal(ctx, u)
	if err != nil {
		return Token{}, session.Principal{}, err
	}
	tok, err := MintToken(s.jwt, s.f.Now(), u)
	if err != nil {
		return Token{}, session.Principal{}, apperr.Wrap(apperr.KindInternal, err, "issuing session token")
	}
	return tok, p, nil
}

func (s *Service) principal(ctx context.Context, u domain.User) (session.Principal, error) {
	p := session.Principal{
		UserID:      u.ID,
		Email:       u.Email,
		Role:        u.Role,
		DisplayName: u.DisplayName,
	}
	if u.Role != domain.RolePharmacy {
		return p, nil
	}
	pharmacy, err := s.f.Pharmacies.Get(ctx, u.PharmacyID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return session.Principal{}, apperr.New(apperr.KindUnauthorized, "pharmacy account has no pharmacy")
		}
		return session.Principal{}, err
	}
	p.PharmacyID = pharmacy.ID
	p.PharmacyName = pharmacy.Name
	return p, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, apperr.New(apperr.KindValidation, "email is required")
	}
	users, err := s.f.Users.List(ctx, facade.Query{
		Filters: []datastore.Cond{datastore.Eq("email", email)},
		Limit:   1,
	})
	if err != nil {
		return domain.User{}, err
	}
	if len(users) == 0 {
		return domain.User{}, apperr.New(apperr.KindNotFound, "user not found")
	}
	return users[0], nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
