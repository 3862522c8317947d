package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/encryption"
	"github.com/slipway-sh/slipway/repository"
)

// Service implements registration, login and credential verification.
type Service struct {
	repos      *repository.Repositories
	encryption *encryption.Service
	sessionTTL time.Duration
}

func NewService(repos *repository.Repositories, encryptionSvc *encryption.Service) *Service {
	return &Service{
		repos:      repos,
		encryption: encryptionSvc,
		sessionTTL: DefaultSessionTTL,
	}
}

// Register creates a user together with their mirror owner and the
// membership joining the two. The username doubles as the owner name, so it
// must satisfy the owner naming rules.
func (s *Service) Register(username, name, password string) (*domain.User, error) {
	if err := domain.ValidateOwnerName(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, &domain.ValidationError{Message: "password must not be empty"}
	}

	hash, err := GenerateHash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.NewUser(username, name, hash)
	owner := domain.NewOwner(username)

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		created, err := tx.Users.Create(&user)
		if err != nil {
			return err
		}
		createdOwner, err := tx.Owners.Create(&owner)
		if err != nil {
			return err
		}
		return tx.Memberships.Create(&domain.Membership{
			UserID:  created.ID,
			OwnerID: createdOwner.ID,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	slog.Info("User registered",
		"layer", "auth",
		"operation", "register",
		"username", username)
	return &user, nil
}

// Login verifies the password and mints a session token for the cookie.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(username, password string) (string, error) {
	user, err := s.repos.Users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := CompareHash(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		slog.Warn("Login rejected",
			"layer", "auth",
			"operation", "login",
			"username", username)
		return "", domain.ErrUnauthorized
	}

	return MintSession(s.encryption, user.ID, user.Username)
}

// VerifySession resolves a session token to a live principal. The user is
// re-read so revoked accounts and stale permissions drop out immediately.
func (s *Service) VerifySession(token string) (*domain.Principal, error) {
	payload := openSession(s.encryption, token, s.sessionTTL)
	if payload == nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.repos.Users.FindByID(payload.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	return &domain.Principal{
		UserID:      user.ID,
		Username:    user.Username,
		Permissions: user.Permissions,
	}, nil
}

// VerifyProjectToken reports whether the plaintext matches any token issued
// for the project.
func (s *Service) VerifyProjectToken(projectID uuid.UUID, token string) (bool, error) {
	hashes, err := s.repos.Tokens.ListByProjectID(projectID)
	if err != nil {
		return false, fmt.Errorf("failed to list project tokens: %w", err)
	}

	for _, stored := range hashes {
		ok, err := CompareHash(token, stored.Hash)
		if err != nil {
			slog.Error("Skipping malformed token hash",
				"layer", "auth",
				"token_id", stored.ID,
				"error", err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// AuthorizeOwner checks that the principal may act for the named owner.
func (s *Service) AuthorizeOwner(principal domain.Principal, ownerName string) error {
	if principal.HasPermission("admin") {
		return nil
	}

	owner, err := s.repos.Owners.FindByName(ownerName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		return fmt.Errorf("failed to look up owner: %w", err)
	}

	member, err := s.repos.Memberships.Exists(principal.UserID, owner.ID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return domain.ErrUnauthorized
	}
	return nil
}
