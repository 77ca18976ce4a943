package webhook

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

const samplePush = `{
  "object_kind": "push",
  "ref": "refs/heads/main",
  "checkout_sha": "da1560886d4f094c3e6c9ef40349f7d38b5d27d7",
  "user_name": "Jane Doe",
  "total_commits_count": 2,
  "project": {
    "id": 15,
    "name": "thesis",
    "path_with_namespace": "group/thesis",
    "git_ssh_url": "git@example.com:group/thesis.git",
    "git_http_url": "https://example.com/group/thesis.git"
  }
}`

func headers(token, event string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set(HeaderToken, token)
	}
	if event != "" {
		h.Set(HeaderEvent, event)
	}
	return h
}

func TestValidate_WrongToken(t *testing.T) {
	_, err := NewValidator("abc").Validate(headers("xyz", PushHook), []byte(samplePush))
	require.Error(t, err)

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryAuth, ce.Category())
	assert.Equal(t, "invalid secret token", ce.Message())
}

func TestValidate_TokenCheckedBeforeEvent(t *testing.T) {
	_, err := NewValidator("abc").Validate(headers("", "Tag Push Hook"), []byte("not json"))
	assert.True(t, errors.HasCategory(err, errors.CategoryAuth))
}

func TestValidate_UnsupportedEvent(t *testing.T) {
	_, err := NewValidator("abc").Validate(headers("abc", "Tag Push Hook"), []byte(samplePush))
	require.Error(t, err)

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryValidation, ce.Category())
	assert.Equal(t, "only 'Push Hook' supported, not 'Tag Push Hook'", ce.Message())
}

func TestValidate_NoSecretConfigured(t *testing.T) {
	v := NewValidator("")
	assert.False(t, v.RequiresToken())

	ev, err := v.Validate(headers("anything", PushHook), []byte(samplePush))
	require.NoError(t, err)
	assert.Equal(t, "thesis", ev.ProjectName)
	assert.Equal(t, "group/thesis", ev.PathWithNamespace)
	assert.Equal(t, "refs/heads/main", ev.Ref)
	assert.Equal(t, 2, ev.CommitCount)
	assert.Equal(t, "git@example.com:group/thesis.git", ev.CloneURL(false))
	assert.Equal(t, "https://example.com/group/thesis.git", ev.CloneURL(true))
}

func TestParsePushEvent_Rejections(t *testing.T) {
	tests := map[string]string{
		"malformed":      `{"project": `,
		"no project":     `{"ref": "refs/heads/main"}`,
		"no name":        `{"project": {"git_ssh_url": "git@x:y.git"}}`,
		"no url":         `{"project": {"name": "thesis"}}`,
		"traversal name": `{"project": {"name": "..", "git_ssh_url": "git@x:y.git"}}`,
		"slash in name":  `{"project": {"name": "a/b", "git_ssh_url": "git@x:y.git"}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePushEvent([]byte(body))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}

func TestParsePushEvent_LegacyRepositoryBlock(t *testing.T) {
	ev, err := ParsePushEvent([]byte(`{
		"project": {"name": "thesis"},
		"repository": {"git_http_url": "https://example.com/thesis.git"},
		"commits": [{"id": "a"}, {"id": "b"}, {"id": "c"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/thesis.git", ev.CloneURL(false))
	assert.Equal(t, 3, ev.CommitCount)
}

func TestIsSafeName(t *testing.T) {
	assert.True(t, IsSafeName("thesis"))
	assert.True(t, IsSafeName("My Paper"))
	assert.False(t, IsSafeName(""))
	assert.False(t, IsSafeName("."))
	assert.False(t, IsSafeName(`a\b`))
}

func TestIsSafeDocumentPath(t *testing.T) {
	assert.True(t, IsSafeDocumentPath("doc1.tex"))
	assert.True(t, IsSafeDocumentPath("paper/main.tex"))
	assert.True(t, IsSafeDocumentPath("paper/../main.tex"))
	assert.False(t, IsSafeDocumentPath(""))
	assert.False(t, IsSafeDocumentPath("."))
	assert.False(t, IsSafeDocumentPath(".."))
	assert.False(t, IsSafeDocumentPath("../../etc/secret.tex"))
	assert.False(t, IsSafeDocumentPath("paper/../../secret.tex"))
	assert.False(t, IsSafeDocumentPath("/etc/secret.tex"))
}

func TestValidateDocumentPaths(t *testing.T) {
	require.NoError(t, ValidateDocumentPaths([]string{"doc1.tex", "paper/main.tex"}))
	require.NoError(t, ValidateDocumentPaths(nil))

	err := ValidateDocumentPaths([]string{"doc1.tex", "../../etc/secret.tex"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "../../etc/secret.tex")
}
