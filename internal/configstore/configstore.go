// Package configstore persists one JSON configuration document per
// environment under a config directory. Documents are only ever written
// whole; partial updates happen at a higher layer by read-merge-write.
//
// Concurrent writers are not serialized: two processes racing on the same
// environment's read-modify-write can lose an update. Multi-writer
// deployments need an advisory lock around mutations.
package configstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	eserrors "github.com/systmms/envsync/internal/errors"
)

// DefaultEnvironment is the reserved record name for the shared base
// document. It is merged into every environment's view and is never itself
// enumerable or deletable as an environment.
const DefaultEnvironment = "default"

// Document is an environment's configuration: string keys to JSON values.
type Document map[string]interface{}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	// Round-trip through JSON; values are JSON-typed by construction.
	data, err := json.Marshal(d)
	if err != nil {
		out := make(Document, len(d))
		for k, v := range d {
			out[k] = v
		}
		return out
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		out = make(Document, len(d))
		for k, v := range d {
			out[k] = v
		}
	}
	return out
}

// Store reads and writes environment documents in a single directory.
type Store struct {
	dir string
}

// New creates a store over the given config directory. The directory is
// created lazily on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// ValidateName rejects environment names that cannot name a file.
func ValidateName(env string) error {
	if env == "" {
		return eserrors.E(eserrors.KindValidation, "environment name must not be empty")
	}
	if env == "." || env == ".." || strings.ContainsAny(env, "/\\") {
		return eserrors.E(eserrors.KindValidation, "invalid environment name '%s'", env).
			WithSuggestion("Environment names must not contain path separators")
	}
	return nil
}

func (s *Store) path(env string) string {
	return filepath.Join(s.dir, env+".json")
}

// Read loads the document for env. Returns a NotFound error if no document
// exists for that environment.
func (s *Store) Read(env string) (Document, error) {
	if err := ValidateName(env); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(env))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eserrors.E(eserrors.KindNotFound, "no configuration found for environment '%s'", env).
				WithSuggestion("Run 'envsync env create " + env + "' to create it")
		}
		return nil, eserrors.Wrap(eserrors.KindIO, err, "failed to read configuration for environment '%s'", env)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eserrors.Wrap(eserrors.KindIO, err, "configuration for environment '%s' is not valid JSON", env).
			WithSuggestion("Fix or delete " + s.path(env))
	}
	// A JSON null unmarshals into a nil map without error.
	if doc == nil {
		return nil, eserrors.E(eserrors.KindIO, "configuration for environment '%s' is not a JSON object", env).
			WithSuggestion("Fix or delete " + s.path(env))
	}

	return doc, nil
}

// Write overwrites the document for env. The previous content is fully
// replaced.
func (s *Store) Write(env string, doc Document) error {
	if err := ValidateName(env); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eserrors.Wrap(eserrors.KindIO, err, "failed to create config directory %s", s.dir)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eserrors.Wrap(eserrors.KindIO, err, "failed to encode configuration for environment '%s'", env)
	}

	if err := os.WriteFile(s.path(env), append(data, '\n'), 0o644); err != nil {
		return eserrors.Wrap(eserrors.KindIO, err, "failed to write configuration for environment '%s'", env)
	}

	return nil
}

// Exists reports whether env has a local document.
func (s *Store) Exists(env string) (bool, error) {
	if err := ValidateName(env); err != nil {
		return false, err
	}

	_, err := os.Stat(s.path(env))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, eserrors.Wrap(eserrors.KindIO, err, "failed to stat configuration for environment '%s'", env)
}

// Delete removes the document for env. Returns NotFound if none exists.
func (s *Store) Delete(env string) error {
	if err := ValidateName(env); err != nil {
		return err
	}

	if err := os.Remove(s.path(env)); err != nil {
		if os.IsNotExist(err) {
			return eserrors.E(eserrors.KindNotFound, "no configuration found for environment '%s'", env)
		}
		return eserrors.Wrap(eserrors.KindIO, err, "failed to delete configuration for environment '%s'", env)
	}

	return nil
}

// List returns every environment with a local document, sorted, excluding
// the reserved default document.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eserrors.Wrap(eserrors.KindIO, err, "failed to list config directory %s", s.dir)
	}

	var envs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		env := strings.TrimSuffix(name, ".json")
		if env == DefaultEnvironment || ValidateName(env) != nil {
			continue
		}
		envs = append(envs, env)
	}

	sort.Strings(envs)
	return envs, nil
}
