package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const updateActiveUsersManifest = `
name: update_active_users
up:
  - action: update_view
    name: active_users
    version: 2
    verify_indexes: true
  - action: create_function
    name: add
    version: 1
    returns: integer
    arguments:
      - name: a
        type: integer
      - name: b
        type: integer
        default: "0"
      - name: c
        type: text
        default: "''"
down:
  - action: drop_function
    name: add
    if_exists: true
  - action: update_view
    name: active_users
    version: 1
`

func TestParse(t *testing.T) {
	manifest, err := Parse(strings.NewReader(updateActiveUsersManifest))
	require.NoError(t, err)

	zero := "0"
	emptyLiteral := "''"
	assert.Equal(t, Manifest{
		Name: "update_active_users",
		Up: []Step{
			{Action: ActionUpdateView, Name: "active_users", Version: 2, VerifyIndexes: true},
			{
				Action:  ActionCreateFunction,
				Name:    "add",
				Version: 1,
				Returns: "integer",
				Arguments: []Argument{
					{Name: "a", Type: "integer"},
					{Name: "b", Type: "integer", Default: &zero},
					{Name: "c", Type: "text", Default: &emptyLiteral},
				},
			},
		},
		Down: []Step{
			{Action: ActionDropFunction, Name: "add", IfExists: true},
			{Action: ActionUpdateView, Name: "active_users", Version: 1},
		},
	}, manifest)

	down, err := manifest.Steps(DirectionDown)
	require.NoError(t, err)
	assert.Len(t, down, 2)

	_, err = manifest.Steps(Direction("sideways"))
	assert.ErrorContains(t, err, "unknown direction")
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name          string
		manifest      string
		expectedError string
	}{
		{
			name:          "empty",
			manifest:      "",
			expectedError: "manifest is empty",
		},
		{
			name: "unknown key",
			manifest: `
name: typo
up:
  - action: drop_view
    name: foo
    if_exist: true
`,
			expectedError: "field if_exist not found",
		},
		{
			name: "unknown action",
			manifest: `
name: bad
up:
  - action: alter_view
    name: foo
`,
			expectedError: `up step 0: unknown action "alter_view"`,
		},
		{
			name: "missing version",
			manifest: `
name: bad
up:
  - action: drop_view
    name: foo
  - action: create_view
    name: foo
`,
			expectedError: "up step 1: create_view foo: a positive version is required",
		},
		{
			name: "missing name in down",
			manifest: `
name: bad
up:
  - action: drop_view
    name: foo
down:
  - action: drop_view
`,
			expectedError: "down step 0: name is required",
		},
		{
			name: "arguments on a view",
			manifest: `
name: bad
up:
  - action: create_view
    name: foo
    version: 1
    arguments:
      - type: integer
`,
			expectedError: "arguments are only allowed for create_function",
		},
		{
			name:          "no up steps",
			manifest:      "name: nothing\n",
			expectedError: `manifest "nothing" has no up steps`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.manifest))
			assert.ErrorContains(t, err, tc.expectedError)
		})
	}
}

func TestParseNullDefaults(t *testing.T) {
	manifest, err := Parse(strings.NewReader(`
name: nullable_args
up:
  - action: create_function
    name: greet
    version: 1
    arguments:
      - name: a
        type: integer
        default: NULL
      - name: b
        type: text
        default: ~
      - name: c
        type: text
        default:
      - name: d
        type: text
        default: 'null'
      - name: e
        type: integer
        default: 0
`))
	require.NoError(t, err)

	args := manifest.Up[0].Arguments
	require.Len(t, args, 5)
	for _, arg := range args {
		require.NotNil(t, arg.Default, "argument %s lost its default", arg.Name)
	}
	assert.Equal(t, "NULL", *args[0].Default)
	assert.Equal(t, "NULL", *args[1].Default)
	assert.Equal(t, "NULL", *args[2].Default)
	assert.Equal(t, "null", *args[3].Default)
	assert.Equal(t, "0", *args[4].Default)

	rendered := toFunctionArguments(args)
	assert.True(t, rendered[0].HasDefault())
}

func TestParseArgumentErrors(t *testing.T) {
	for _, tc := range []struct {
		name          string
		argument      string
		expectedError string
	}{
		{
			name:          "unknown key",
			argument:      "{name: a, type: integer, defualt: 1}",
			expectedError: "field defualt not found in argument",
		},
		{
			name:          "non-scalar default",
			argument:      "{name: a, type: integer, default: [1]}",
			expectedError: "default must be a scalar SQL expression",
		},
		{
			name:          "not a mapping",
			argument:      "integer",
			expectedError: "argument must be a mapping",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(`
name: bad
up:
  - action: create_function
    name: f
    version: 1
    arguments:
      - ` + tc.argument + `
`))
			assert.ErrorContains(t, err, tc.expectedError)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(updateActiveUsersManifest), 0o600))

	manifest, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "update_active_users", manifest.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading manifest")
}
