package cli

import (
	"bytes"
	"encoding/json"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToStdout(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewGenerateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{relationsDir, "--package", "lineage"})

	require.NoError(t, cmd.Execute())

	src := buf.String()
	assert.Contains(t, src, "package lineage")
	assert.Contains(t, src, `relation.MustDefine[Family]("Family",`)
	assert.Contains(t, src, "func Register(w *ecs.World) error")

	_, err := parser.ParseFile(token.NewFileSet(), "relations_gen.go", src, parser.AllErrors)
	require.NoError(t, err)
}

func TestGenerateToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "lineage", "relations_gen.go")

	buf := &bytes.Buffer{}
	cmd := NewGenerateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{relationsDir, "--package", "lineage", "-o", out})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string          `json:"status"`
		Data   GenerateSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "lineage", resp.Data.Package)
	assert.Equal(t, 3, resp.Data.Relations)
	assert.NotEmpty(t, resp.Data.SpecHash)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `const SpecHash = "`+resp.Data.SpecHash+`"`)
}

func TestGenerateRequiresPackage(t *testing.T) {
	cmd := NewGenerateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{relationsDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package")
}

func TestGenerateInvalidPackageName(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewGenerateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{relationsDir, "--package", "func"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateInvalidDeclarations(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewGenerateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeRelations(t, unknownSideCUE), "--package", "lineage"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeUnknownSide)
}
