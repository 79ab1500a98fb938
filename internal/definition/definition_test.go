package definition

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	store := NewStore(fstest.MapFS{
		"views/active_users_v01.sql":         {Data: []byte("SELECT * FROM users WHERE active;\n")},
		"views/active_users_v02.sql":         {Data: []byte("SELECT id, email FROM users WHERE active\n")},
		"views/active_users_v10.sql":         {Data: []byte("SELECT id FROM users WHERE active")},
		"views/active_users_archive_v01.sql": {Data: []byte("SELECT 1")},
		"views/empty_v01.sql":                {Data: []byte("  \n")},
		"views/README.md":                    {Data: []byte("not a definition")},
		"functions/add_v01.sql":              {Data: []byte("$$ SELECT a + b $$ LANGUAGE sql")},
	})

	versions, err := store.Versions(KindView, "active_users")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 10}, versions)

	def, err := store.Load(KindView, "active_users", 2)
	require.NoError(t, err)
	assert.Equal(t, Definition{
		Kind:    KindView,
		Name:    "active_users",
		Version: 2,
		Path:    "views/active_users_v02.sql",
		SQL:     "SELECT id, email FROM users WHERE active",
	}, def)

	latest, err := store.Latest(KindView, "active_users")
	require.NoError(t, err)
	assert.Equal(t, 10, latest.Version)

	function, err := store.Latest(KindFunction, "add")
	require.NoError(t, err)
	assert.Equal(t, "$$ SELECT a + b $$ LANGUAGE sql", function.SQL)

	_, err = store.Load(KindView, "active_users", 3)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Latest(KindView, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Latest(KindView, "empty")
	assert.ErrorContains(t, err, "is empty")
}

func TestStoreMissingKindDirectory(t *testing.T) {
	store := NewStore(fstest.MapFS{})
	versions, err := store.Versions(KindFunction, "add")
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, err = store.Latest(KindFunction, "add")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreDuplicateVersion(t *testing.T) {
	store := NewStore(fstest.MapFS{
		"views/foo_v1.sql":  {Data: []byte("SELECT 1")},
		"views/foo_v01.sql": {Data: []byte("SELECT 2")},
	})
	_, err := store.Versions(KindView, "foo")
	assert.ErrorContains(t, err, "both define version 1 of foo")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "active_users_v01.sql", FileName("active_users", 1))
	assert.Equal(t, "active_users_v12.sql", FileName("active_users", 12))
}

func TestParseFileName(t *testing.T) {
	for _, tc := range []struct {
		file            string
		expectedName    string
		expectedVersion int
		expectedOk      bool
	}{
		{file: "active_users_v01.sql", expectedName: "active_users", expectedVersion: 1, expectedOk: true},
		{file: "active_users_v2_v12.sql", expectedName: "active_users_v2", expectedVersion: 12, expectedOk: true},
		{file: "active_users.sql"},
		{file: "active_users_v01.sql.bak"},
		{file: "README.md"},
	} {
		t.Run(tc.file, func(t *testing.T) {
			name, version, ok := ParseFileName(tc.file)
			assert.Equal(t, tc.expectedOk, ok)
			assert.Equal(t, tc.expectedName, name)
			assert.Equal(t, tc.expectedVersion, version)
		})
	}
}
