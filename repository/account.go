package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/storage"
	"github.com/ariebrainware/sehatec/util"
)

var (
	ErrAccountExists      = errors.New("an account with this email and role already exists")
	ErrInvalidCredentials = errors.New("invalid email, password or role")
)

// AccountStore keeps the registered doctor and pharmacist accounts.
type AccountStore struct {
	mu       sync.Mutex
	store    storage.Storage
	accounts []model.Account
}

// NewAccountStore loads the stored accounts. A missing document yields no accounts.
func NewAccountStore(ctx context.Context, store storage.Storage) (*AccountStore, error) {
	var accounts []model.Account
	if _, err := storage.LoadJSON(ctx, store, storage.KeyAccounts, &accounts); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	if accounts == nil {
		accounts = []model.Account{}
	}
	return &AccountStore{store: store, accounts: accounts}, nil
}

func (s *AccountStore) indexOf(email string, role model.Role) int {
	for i := range s.accounts {
		if s.accounts[i].Email == email && s.accounts[i].Role == role {
			return i
		}
	}
	return -1
}

func (s *AccountStore) commit(ctx context.Context, next []model.Account) error {
	if err := storage.SaveJSON(ctx, s.store, storage.KeyAccounts, next); err != nil {
		return fmt.Errorf("persist accounts: %w", err)
	}
	s.accounts = next
	return nil
}

// Register stores a new account with an argon2id hash of password.
func (s *AccountStore) Register(ctx context.Context, account model.Account, password string) error {
	account.Email = strings.TrimSpace(account.Email)
	account.FullName = strings.TrimSpace(account.FullName)

	salt, err := util.GenerateSalt()
	if err != nil {
		return err
	}
	hash, err := util.HashPasswordArgon2(password, salt)
	if err != nil {
		return err
	}
	account.Password = hash
	account.PasswordSalt = salt

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(account.Email, account.Role) >= 0 {
		return fmt.Errorf("register %s as %s: %w", account.Email, account.Role, ErrAccountExists)
	}

	next := make([]model.Account, len(s.accounts), len(s.accounts)+1)
	copy(next, s.accounts)
	return s.commit(ctx, append(next, account))
}

// Authenticate returns the account matching email, password and role, without
// its password fields. Legacy plain-text passwords are rehashed on success.
func (s *AccountStore) Authenticate(ctx context.Context, email, password string, role model.Role) (model.Account, error) {
	email = strings.TrimSpace(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(email, role)
	if i < 0 {
		return model.Account{}, ErrInvalidCredentials
	}
	account := s.accounts[i]

	ok, err := util.VerifyPassword(password, account.Password, account.PasswordSalt)
	if err != nil {
		return model.Account{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return model.Account{}, ErrInvalidCredentials
	}

	if !util.IsHashedPassword(account.Password) {
		s.upgradeLegacyPasswordLocked(ctx, i, password)
	}

	account.Password = ""
	account.PasswordSalt = ""
	return account, nil
}

// upgradeLegacyPasswordLocked rehashes a plain-text password. Failures are
// logged and the login still succeeds.
func (s *AccountStore) upgradeLegacyPasswordLocked(ctx context.Context, i int, password string) {
	salt, err := util.GenerateSalt()
	if err != nil {
		log.Printf("legacy password upgrade: %v", err)
		return
	}
	hash, err := util.HashPasswordArgon2(password, salt)
	if err != nil {
		log.Printf("legacy password upgrade: %v", err)
		return
	}

	next := make([]model.Account, len(s.accounts))
	copy(next, s.accounts)
	next[i].Password = hash
	next[i].PasswordSalt = salt
	if err := s.commit(ctx, next); err != nil {
		log.Printf("legacy password upgrade: %v", err)
		return
	}
	util.LogPasswordUpgraded(next[i].Email, string(next[i].Role))
}
