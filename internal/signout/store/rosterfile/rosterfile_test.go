package rosterfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
)

const tomlRoster = `
[[staff]]
name = "Sam"
code = 1234

[[staff]]
name = "Alex"
code = "42"
active = "no"

[[staff]]
name = "Jo"
code = 77.0
active = true
`

const yamlRoster = `
staff:
  - name: Sam
    code: 1234
  - name: " Alex "
    code: "0042"
    active: false
  - name: Jo
    code: 77
    active: "Yes"
`

func TestParse_TOML(t *testing.T) {
	recs, err := Parse(".toml", []byte(tomlRoster))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, credential.Record{Name: "Sam", Code: "1234", Active: true}, recs[0])
	assert.False(t, recs[1].Active)
	assert.Equal(t, "0077", credential.Normalize(recs[2].Code))
	assert.True(t, recs[2].Active)
}

func TestParse_YAML(t *testing.T) {
	recs, err := Parse(".yml", []byte(yamlRoster))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "Alex", recs[1].Name)
	assert.Equal(t, "0042", recs[1].Code)
	assert.False(t, recs[1].Active)
	assert.True(t, recs[2].Active)

	r := credential.NewRoster(recs)
	assert.Equal(t, credential.Authorized, credential.Authorize("Jo", "77", r))
	assert.Equal(t, credential.InactiveActor, credential.Authorize("Alex", "42", r))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(".json", []byte(`{}`))
	assert.Error(t, err)

	_, err = Parse(".toml", []byte(`[[staff]`))
	assert.Error(t, err)

	_, err = Parse(".yaml", []byte("staff:\n  - name: Sam\n    code: [1, 2]\n"))
	assert.Error(t, err)
}

func TestFile_ReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staff.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlRoster), 0o600))

	f := New(path)
	recs, err := f.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml")).ReadAll(context.Background())
	assert.Error(t, err)
}
