// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/ledger/lib/accountstore"
	"github.com/bureau-foundation/ledger/lib/identity"
)

// Fixture is a set of users and their opening accounts.
type Fixture struct {
	Users []FixtureUser `json:"users"`
}

// FixtureUser is one user in a Fixture.
type FixtureUser struct {
	Email    string           `json:"email"`
	Name     string           `json:"name"`
	Password string           `json:"password"`
	Accounts []FixtureAccount `json:"accounts"`
}

// FixtureAccount is an account with its opening balance in minor
// units.
type FixtureAccount struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

// DefaultFixture is the demonstration data set: alice with accounts
// 100 and 190, bob with account 998.
func DefaultFixture() Fixture {
	return Fixture{Users: []FixtureUser{
		{
			Email:    "alice@example.com",
			Name:     "Alice Xu",
			Password: "123456",
			Accounts: []FixtureAccount{{ID: "100", Balance: 7500}, {ID: "190", Balance: 200}},
		},
		{
			Email:    "bob@example.com",
			Name:     "Bobby Tables",
			Password: "123456",
			Accounts: []FixtureAccount{{ID: "998", Balance: 1000}},
		},
	}}
}

// ParseFixture parses JSON with comments and trailing commas. Unknown
// fields are rejected.
func ParseFixture(data []byte) (Fixture, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()

	var fixture Fixture
	if err := decoder.Decode(&fixture); err != nil {
		return Fixture{}, fmt.Errorf("parsing fixture: %w", err)
	}
	if err := fixture.Validate(); err != nil {
		return Fixture{}, err
	}
	return fixture, nil
}

// ReadFixture reads and parses a fixture file.
func ReadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("reading %s: %w", path, err)
	}
	fixture, err := ParseFixture(data)
	if err != nil {
		return Fixture{}, fmt.Errorf("%s: %w", path, err)
	}
	return fixture, nil
}

// Validate reports every malformed user or account in f.
func (f Fixture) Validate() error {
	var errs []error
	emails := make(map[string]bool)
	accounts := make(map[string]bool)
	for index, user := range f.Users {
		email := strings.TrimSpace(user.Email)
		switch {
		case email == "":
			errs = append(errs, fmt.Errorf("users[%d]: email is required", index))
		case emails[email]:
			errs = append(errs, fmt.Errorf("users[%d]: duplicate email %s", index, email))
		}
		emails[email] = true
		if user.Password == "" {
			errs = append(errs, fmt.Errorf("users[%d]: password is required", index))
		}
		for accountIndex, account := range user.Accounts {
			id := strings.TrimSpace(account.ID)
			switch {
			case id == "":
				errs = append(errs, fmt.Errorf("users[%d].accounts[%d]: id is required", index, accountIndex))
			case accounts[id]:
				errs = append(errs, fmt.Errorf("users[%d].accounts[%d]: duplicate account %s", index, accountIndex, id))
			}
			accounts[id] = true
			if account.Balance < 0 {
				errs = append(errs, fmt.Errorf("users[%d].accounts[%d]: balance must not be negative", index, accountIndex))
			}
		}
	}
	return errors.Join(errs...)
}

// SeedReport counts what Seed created and what already existed.
type SeedReport struct {
	UsersCreated    int `json:"users_created"`
	UsersSkipped    int `json:"users_skipped"`
	AccountsCreated int `json:"accounts_created"`
	AccountsSkipped int `json:"accounts_skipped"`
}

// Seed creates the users and accounts in fixture. Users and accounts
// that already exist are left untouched and counted as skipped, so
// seeding twice is harmless.
func (l *Ledger) Seed(ctx context.Context, fixture Fixture) (SeedReport, error) {
	if err := fixture.Validate(); err != nil {
		return SeedReport{}, err
	}

	var report SeedReport
	for _, user := range fixture.Users {
		email := strings.TrimSpace(user.Email)
		err := l.Directory.CreateUser(ctx, identity.User{Email: email, Name: user.Name}, []byte(user.Password))
		switch {
		case errors.Is(err, identity.ErrUserExists):
			report.UsersSkipped++
		case err != nil:
			return report, err
		default:
			report.UsersCreated++
		}

		for _, account := range user.Accounts {
			err := l.Store.CreateAccount(ctx, accountstore.Account{
				ID:      strings.TrimSpace(account.ID),
				Owner:   email,
				Balance: account.Balance,
			})
			switch {
			case errors.Is(err, accountstore.ErrAccountExists):
				report.AccountsSkipped++
			case err != nil:
				return report, err
			default:
				report.AccountsCreated++
			}
		}
	}
	return report, nil
}
