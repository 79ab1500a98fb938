package definition

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type Kind string

const (
	KindView     Kind = "views"
	KindFunction Kind = "functions"
)

// ErrNotFound is returned when no definition file matches.
var ErrNotFound = errors.New("definition not found")

var fileNameRegex = regexp.MustCompile(`^(.+)_v(\d+)\.sql$`)

// Definition is one version of the SQL defining a view or a function body.
type Definition struct {
	Kind    Kind
	Name    string
	Version int
	// Path is relative to the root of the store
	Path string
	SQL  string
}

// Store reads versioned definitions laid out as <root>/<kind>/<name>_v<NN>.sql, e.g.,
// views/active_users_v02.sql. The store reads the files on every call.
type Store struct {
	fsys fs.FS
}

func NewStore(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// FileName returns the file name of a definition version. Versions are zero-padded to two digits.
func FileName(name string, version int) string {
	return fmt.Sprintf("%s_v%02d.sql", name, version)
}

// ParseFileName is the inverse of FileName. ok is false if the file is not a definition file.
func ParseFileName(file string) (name string, version int, ok bool) {
	matches := fileNameRegex.FindStringSubmatch(file)
	if matches == nil {
		return "", 0, false
	}
	version, err := strconv.Atoi(matches[2])
	if err != nil {
		return "", 0, false
	}
	return matches[1], version, true
}

// Load reads the given version of the definition.
func (s *Store) Load(kind Kind, name string, version int) (Definition, error) {
	versions, err := s.versionFiles(kind, name)
	if err != nil {
		return Definition{}, err
	}
	file, ok := versions[version]
	if !ok {
		return Definition{}, fmt.Errorf("%s %s version %d: %w", kind, name, version, ErrNotFound)
	}
	return s.read(kind, name, version, file)
}

// Latest reads the highest version of the definition.
func (s *Store) Latest(kind Kind, name string) (Definition, error) {
	versions, err := s.Versions(kind, name)
	if err != nil {
		return Definition{}, err
	}
	if len(versions) == 0 {
		return Definition{}, fmt.Errorf("%s %s: %w", kind, name, ErrNotFound)
	}
	return s.Load(kind, name, versions[len(versions)-1])
}

// Versions returns the available versions of the definition in ascending order.
func (s *Store) Versions(kind Kind, name string) ([]int, error) {
	files, err := s.versionFiles(kind, name)
	if err != nil {
		return nil, err
	}
	var versions []int
	for v := range files {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}

func (s *Store) versionFiles(kind Kind, name string) (map[int]string, error) {
	entries, err := fs.ReadDir(s.fsys, string(kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s directory: %w", kind, err)
	}

	files := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName, version, ok := ParseFileName(entry.Name())
		if !ok || fileName != name {
			continue
		}
		if existing, ok := files[version]; ok {
			return nil, fmt.Errorf("%s and %s both define version %d of %s", existing, entry.Name(), version, name)
		}
		files[version] = entry.Name()
	}
	return files, nil
}

func (s *Store) read(kind Kind, name string, version int, file string) (Definition, error) {
	filePath := path.Join(string(kind), file)
	content, err := fs.ReadFile(s.fsys, filePath)
	if err != nil {
		return Definition{}, fmt.Errorf("reading %s: %w", filePath, err)
	}
	sql := strings.TrimSpace(string(content))
	if sql == "" {
		return Definition{}, fmt.Errorf("%s is empty", filePath)
	}
	return Definition{
		Kind:    kind,
		Name:    name,
		Version: version,
		Path:    filePath,
		SQL:     sql,
	}, nil
}
