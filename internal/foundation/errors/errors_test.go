package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	cause := stderrors.New("exit status 128")
	err := WrapError(cause, CategoryGit, "error while git cloning").
		Fatal().
		WithContext("url", "git@example.com:group/paper.git").
		Build()

	assert.Equal(t, CategoryGit, err.Category())
	assert.Equal(t, SeverityFatal, err.Severity())
	assert.Equal(t, "error while git cloning", err.Message())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[git:fatal] error while git cloning: exit status 128", err.Error())

	url, ok := err.Context().GetString("url")
	require.True(t, ok)
	assert.Equal(t, "git@example.com:group/paper.git", url)
}

func TestConstructorSeverities(t *testing.T) {
	assert.Equal(t, SeverityWarning, AuthError("invalid secret token").Build().Severity())
	assert.Equal(t, SeverityWarning, ValidationError("bad payload").Build().Severity())
	assert.Equal(t, SeverityError, StorageError("upload failed").Build().Severity())
	assert.Equal(t, SeverityFatal, FileSystemError("rm failed").Build().Severity())
}

func TestHasCategory_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("pipeline: %w", StorageError("upload failed").Build())

	assert.True(t, HasCategory(wrapped, CategoryStorage))
	assert.False(t, HasCategory(wrapped, CategoryGit))
	assert.False(t, HasCategory(stderrors.New("plain"), CategoryInternal))
}

func TestContext_GetStringIgnoresOtherTypes(t *testing.T) {
	err := ConfigError("bad port").WithContext("port", 70000).Build()

	_, ok := err.Context().GetString("port")
	assert.False(t, ok)
}
