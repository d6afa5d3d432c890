package seed

import (
	"bytes"
	"embed"
	"io/fs"
	"path"
	"sort"

	"github.com/pkg/errors"
)

//go:embed foundation/*.json
var foundationFS embed.FS

// FoundationSeeds decodes the built-in foundation personalities in file name order.
func FoundationSeeds() ([]*Seed, error) {
	entries, err := fs.ReadDir(foundationFS, "foundation")
	if err != nil {
		return nil, errors.Wrap(err, "read foundation seeds")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	seeds := make([]*Seed, 0, len(names))
	for _, name := range names {
		raw, err := foundationFS.ReadFile(path.Join("foundation", name))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		s, err := Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "foundation seed %s", name)
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}

// Foundation returns a repository holding the built-in foundation personalities.
func Foundation() (*MemoryRepository, error) {
	seeds, err := FoundationSeeds()
	if err != nil {
		return nil, err
	}
	return NewMemoryRepository(seeds...)
}
