// Package resolve computes merged configuration views across the default
// document, environment documents, and the remote secret, and projects them
// for output.
package resolve

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"unicode"

	"github.com/systmms/envsync/internal/configstore"
	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/secretstore"
)

// Resolver reads the local and remote stores for one package identity.
type Resolver struct {
	local       *configstore.Store
	remote      *secretstore.Store
	packageName string
}

// New creates a resolver over the two stores.
func New(local *configstore.Store, remote *secretstore.Store, packageName string) *Resolver {
	return &Resolver{
		local:       local,
		remote:      remote,
		packageName: packageName,
	}
}

// Merge overlays the given documents shallowly, left to right; later
// documents win on key collision. The inputs are not modified.
func Merge(docs ...configstore.Document) configstore.Document {
	merged := configstore.Document{}
	for _, doc := range docs {
		for k, v := range doc {
			merged[k] = v
		}
	}
	return merged
}

// Local returns the default document overlaid by the environment document.
// Fails with a NotFound error only when neither exists.
func (r *Resolver) Local(env string) (configstore.Document, error) {
	defaults, defErr := r.local.Read(configstore.DefaultEnvironment)
	if defErr != nil && !eserrors.IsNotFound(defErr) {
		return nil, defErr
	}

	doc, envErr := r.local.Read(env)
	if envErr != nil && !eserrors.IsNotFound(envErr) {
		return nil, envErr
	}

	if defErr != nil && envErr != nil {
		return nil, eserrors.E(eserrors.KindNotFound, "no local configuration found for environment '%s'", env).
			WithSuggestion("Run 'envsync env create " + env + "' to create it")
	}

	return Merge(defaults, doc), nil
}

// Remote returns the environment's secret payload. NotFound when the secret
// is absent; Credentials when remote auth fails.
func (r *Resolver) Remote(ctx context.Context, env string) (configstore.Document, error) {
	return r.remote.Get(ctx, secretstore.Name(r.packageName, env))
}

// Merged returns the full view: default < environment < remote, shallow,
// key by key. A missing remote secret contributes an empty document rather
// than failing; only when nothing exists on either side is the result a
// NotFound error.
func (r *Resolver) Merged(ctx context.Context, env string) (configstore.Document, error) {
	local, localErr := r.Local(env)
	if localErr != nil && !eserrors.IsNotFound(localErr) {
		return nil, localErr
	}

	remote, remoteErr := r.Remote(ctx, env)
	if remoteErr != nil && !eserrors.IsNotFound(remoteErr) {
		return nil, remoteErr
	}

	if localErr != nil && remoteErr != nil {
		return nil, eserrors.E(eserrors.KindNotFound, "no configuration found for environment '%s' locally or remotely", env)
	}

	return Merge(local, remote), nil
}

// ToJSON renders a document as indented JSON.
func ToJSON(doc configstore.Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", eserrors.Wrap(eserrors.KindIO, err, "failed to encode document")
	}
	return string(data), nil
}

// ToEnvFormat renders a document as KEY=value lines, sorted by key. Keys
// are upper-snake-cased; string values stay literal, everything else is
// compact JSON.
func ToEnvFormat(doc configstore.Document) (string, error) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		value, err := envValue(doc[k])
		if err != nil {
			return "", err
		}
		lines = append(lines, EnvKey(k)+"="+value)
	}

	return strings.Join(lines, "\n"), nil
}

// EnvKey converts a document key to upper-snake-case: every uppercase
// letter is prefixed with an underscore, then the whole key is uppercased.
// "databaseUrl" becomes "DATABASE_URL".
func EnvKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

func envValue(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", eserrors.Wrap(eserrors.KindIO, err, "failed to encode value")
	}
	return string(data), nil
}
