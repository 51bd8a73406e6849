// Package migrate holds the metadata file's schema migration chain.
// Each migration is a pure function over raw, unparsed JSON — it never
// imports the current Go struct definitions in internal/metadata,
// because a migration must keep working for documents written by
// versions of this program that predate whatever struct shape exists
// today. tidwall/gjson/sjson read and rewrite the document field by
// field without a full unmarshal/marshal round-trip, which would
// silently drop unknown fields a migration hasn't gotten to yet.
package migrate

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Func migrates a raw JSON document from one schema version to the
// next. It must return a document whose "version" field is exactly
// its input version + 1; Run returns an error if a Func fails to bump
// the version to exactly that value.
type Func func(doc []byte) ([]byte, error)

// registry maps "migrate from this version" to the function that
// advances the document to version+1. There are no registered
// migrations yet — gitcuttle's on-disk schema has not changed since
// its first release — but the chain exists so that a future version
// bump only needs to add an entry here, never touch the read path.
var registry = map[int]Func{}

// Register adds a migration from fromVersion to fromVersion+1. Called
// from init() by files in this package. It panics if a migration is
// already registered for fromVersion.
func Register(fromVersion int, fn Func) {
	if _, exists := registry[fromVersion]; exists {
		panic(fmt.Sprintf("migrate: duplicate registration for version %d", fromVersion))
	}
	registry[fromVersion] = fn
}

// Run applies the registered migration chain starting at fromVersion
// until the document reaches toVersion. It returns the migrated
// document, or the original document unchanged if fromVersion already
// equals toVersion.
func Run(doc []byte, fromVersion, toVersion int) ([]byte, error) {
	if fromVersion == toVersion {
		return doc, nil
	}
	if fromVersion > toVersion {
		return nil, fmt.Errorf("migrate: fromVersion %d is newer than toVersion %d", fromVersion, toVersion)
	}

	current := doc
	for v := fromVersion; v < toVersion; v++ {
		fn, ok := registry[v]
		if !ok {
			return nil, fmt.Errorf("migrate: no registered migration from version %d", v)
		}
		next, err := fn(current)
		if err != nil {
			return nil, fmt.Errorf("migrate: version %d -> %d: %w", v, v+1, err)
		}
		gotVersion := gjson.GetBytes(next, "version").Int()
		if gotVersion != int64(v+1) {
			return nil, fmt.Errorf("migrate: version %d -> %d migration produced version %d instead of %d", v, v+1, gotVersion, v+1)
		}
		current = next
	}
	return current, nil
}

// setVersion is a small helper migrations use to bump the top-level
// version field after making their structural changes.
func setVersion(doc []byte, version int) ([]byte, error) {
	return sjson.SetBytes(doc, "version", version)
}
