// Package provision loads account rosters from YAML and upserts them into the
// ledger without touching stored passwords.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
	"gopkg.in/yaml.v3"
)

// File is the roster document.
type File struct {
	Accounts []Entry `yaml:"accounts"`
}

// Entry is one provisioned account.
type Entry struct {
	Name        string `yaml:"name"`
	Email       string `yaml:"email"`
	Passes      int64  `yaml:"passes"`
	CDNAs       int64  `yaml:"cdnas"`
	IsAdmin     bool   `yaml:"is_admin"`
	OnProbation bool   `yaml:"on_probation"`
}

// ProfileWriter upserts account profiles.
type ProfileWriter interface {
	PutAccountProfile(ctx context.Context, profile storage.AccountProfile) error
}

// LoadFile reads a roster from path.
func LoadFile(path string) ([]storage.AccountProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a roster. Unknown keys, blank emails, negative
// balances, and duplicate emails are rejected.
func Load(r io.Reader) ([]storage.AccountProfile, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var file File
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	seen := make(map[string]int, len(file.Accounts))
	profiles := make([]storage.AccountProfile, 0, len(file.Accounts))
	for i, entry := range file.Accounts {
		email := account.NormalizeEmail(entry.Email)
		if email == "" {
			return nil, fmt.Errorf("account %d: email is required", i+1)
		}
		if prev, ok := seen[email]; ok {
			return nil, fmt.Errorf("account %d: %s duplicates account %d", i+1, email, prev)
		}
		seen[email] = i + 1
		if entry.Passes < 0 || entry.CDNAs < 0 {
			return nil, fmt.Errorf("account %d: %s has a negative balance", i+1, email)
		}
		profiles = append(profiles, storage.AccountProfile{
			Email:       email,
			Name:        entry.Name,
			PassBalance: entry.Passes,
			CDNABalance: entry.CDNAs,
			IsAdmin:     entry.IsAdmin,
			OnProbation: entry.OnProbation,
		})
	}
	return profiles, nil
}

// Apply upserts every profile and returns how many were written. It stops
// at the first failure.
func Apply(ctx context.Context, writer ProfileWriter, profiles []storage.AccountProfile) (int, error) {
	for i, profile := range profiles {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := writer.PutAccountProfile(ctx, profile); err != nil {
			return i, fmt.Errorf("provision %s: %w", profile.Email, err)
		}
	}
	return len(profiles), nil
}
