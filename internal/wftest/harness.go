// Package wftest provides scaffolding for tests that need a scratch run
// directory and, optionally, a connection to the workflow database. Tests
// that ask for the database are skipped when it is unreachable, so the suite
// stays runnable on machines without a database server.
package wftest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 5 * time.Second

// Credentials locates the workflow database, following the usual db.json
// layout.
type Credentials struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Database      string `json:"database"`
	Collection    string `json:"collection"`
	AdminUser     string `json:"admin_user,omitempty"`
	AdminPassword string `json:"admin_password,omitempty"`
}

// LoadCredentials reads a db.json credentials file.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("wftest: read %s: %w", path, err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("wftest: parse %s: %w", path, err)
	}
	if creds.Host == "" || creds.Database == "" {
		return Credentials{}, fmt.Errorf("wftest: %s must set host and database", path)
	}
	if creds.Port == 0 {
		creds.Port = 27017
	}
	return creds, nil
}

// URI builds the connection string, including auth when configured.
func (c Credentials) URI() string {
	if c.AdminUser != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", c.AdminUser, c.AdminPassword, c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", c.Host, c.Port)
}

// Option customizes harness construction.
type Option func(*Harness)

// WithCredentialsFile attaches the workflow database described by the db.json
// at path. The test is skipped when the database cannot be reached.
func WithCredentialsFile(path string) Option {
	return func(h *Harness) { h.credsPath = path }
}

// WithDebug keeps the scratch directory and database contents at teardown.
func WithDebug() Option {
	return func(h *Harness) { h.Debug = true }
}

// Harness owns a scratch directory the test runs in and, optionally, a
// handle on the workflow database.
type Harness struct {
	ScratchDir string
	Debug      bool

	t         *testing.T
	prevDir   string
	credsPath string
	creds     Credentials
	client    *mongo.Client
}

// New creates the scratch directory (removing a stale one), changes into it,
// and connects to the workflow database when credentials were supplied.
// Teardown is registered with t.Cleanup.
func New(t *testing.T, opts ...Option) *Harness {
	t.Helper()
	h := &Harness{t: t}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("wftest: determine working directory: %v", err)
	}
	h.prevDir = prev
	h.ScratchDir = filepath.Join(prev, "scratch")
	if err := os.RemoveAll(h.ScratchDir); err != nil {
		t.Fatalf("wftest: remove stale scratch: %v", err)
	}
	if err := os.MkdirAll(h.ScratchDir, 0o755); err != nil {
		t.Fatalf("wftest: create scratch: %v", err)
	}
	if err := os.Chdir(h.ScratchDir); err != nil {
		t.Fatalf("wftest: enter scratch: %v", err)
	}

	if h.credsPath != "" {
		h.connect()
	}
	t.Cleanup(h.teardown)
	return h
}

func (h *Harness) connect() {
	h.t.Helper()
	creds, err := LoadCredentials(h.credsPath)
	if err != nil {
		h.t.Fatal(err)
	}
	h.creds = creds
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(creds.URI()))
	if err == nil {
		err = client.Ping(ctx, nil)
	}
	if err != nil {
		h.t.Skipf("wftest: cannot connect to workflow database at %s:%d; is the server running? (%v)",
			creds.Host, creds.Port, err)
	}
	h.client = client
}

// HasDatabase reports whether a workflow database is attached.
func (h *Harness) HasDatabase() bool {
	return h.client != nil
}

// Database returns the attached workflow database.
func (h *Harness) Database() *mongo.Database {
	if h.client == nil {
		h.t.Fatal("wftest: no workflow database attached; use WithCredentialsFile")
	}
	return h.client.Database(h.creds.Database)
}

// Collection returns the named collection, defaulting to the one from the
// credentials file.
func (h *Harness) Collection(name string) *mongo.Collection {
	if name == "" {
		name = h.creds.Collection
	}
	return h.Database().Collection(name)
}

// Reset drops every non-system collection in the workflow database.
func (h *Harness) Reset() error {
	if h.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	db := h.client.Database(h.creds.Database)
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("wftest: list collections: %w", err)
	}
	for _, name := range names {
		if strings.HasPrefix(name, "system.") {
			continue
		}
		if err := db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("wftest: drop %s: %w", name, err)
		}
	}
	return nil
}

func (h *Harness) teardown() {
	if !h.Debug {
		if err := h.Reset(); err != nil {
			h.t.Logf("%v", err)
		}
	}
	if h.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		_ = h.client.Disconnect(ctx)
		cancel()
	}
	if h.prevDir != "" {
		_ = os.Chdir(h.prevDir)
	}
	if !h.Debug {
		_ = os.RemoveAll(h.ScratchDir)
	}
}
