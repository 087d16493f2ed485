package audit_test

import (
	"testing"

	"github.com/natvps/panel/pkg/audit"

	"github.com/stretchr/testify/assert"
)

func TestMetadataFilter_Defaults(t *testing.T) {
	t.Parallel()
	f := audit.NewMetadataFilter()

	in := audit.Properties{
		"email":             "jane@example.com",
		"password":          "hunter2",
		"new_password":      "hunter3",
		"two_factor_secret": "JBSWY3DPEHPK3PXP",
		"csrf_token":        "abc",
		"code":              "123456",
		"recovery_code":     "ABCD-EFGH-IJKL",
		"phone":             "+15551234567",
		"result":            "success",
	}
	out := f.Filter(in)

	assert.Equal(t, audit.Properties{
		"email":  "jane@example.com",
		"phone":  "+1********67",
		"result": "success",
	}, out)
	assert.Equal(t, "hunter2", in["password"], "input is not modified")
}

func TestMetadataFilter_Nested(t *testing.T) {
	t.Parallel()
	f := audit.NewMetadataFilter()

	props := audit.UpdateProperties(
		map[string]any{"name": "old", "Password": "a"},
		map[string]any{"name": "new", "password": "b"},
		map[string]any{"items": []any{map[string]any{"token": "t", "id": 1}}},
	)
	out := f.Filter(props)

	assert.Equal(t, map[string]any{"name": "old"}, out["old"])
	assert.Equal(t, map[string]any{"name": "new"}, out["new"])
	assert.Equal(t, map[string]any{"items": []any{map[string]any{"id": 1}}}, out["metadata"])
}

func TestMetadataFilter_Options(t *testing.T) {
	t.Parallel()
	f := audit.NewMetadataFilter(
		audit.WithFieldRule("email", audit.FilterActionHash),
		audit.WithAllowedField("code"),
	)

	out := f.Filter(audit.Properties{"email": "a@b.c", "code": "vps-7"})
	assert.Equal(t, "vps-7", out["code"])
	assert.Len(t, out["email"], 64)
	assert.NotEqual(t, "a@b.c", out["email"])

	assert.Nil(t, f.Filter(nil))
}

func TestActionProperties(t *testing.T) {
	t.Parallel()
	p := audit.ActionProperties(audit.ResultFailure, assert.AnError, map[string]any{"result": "ignored", "vps": 3})
	assert.Equal(t, audit.Properties{"result": audit.ResultFailure, "error": assert.AnError.Error(), "vps": 3}, p)

	p = audit.ActionProperties(audit.ResultSuccess, nil, nil)
	assert.Equal(t, audit.Properties{"result": audit.ResultSuccess}, p)
}

func TestUpdateProperties_OmitsEmptyParts(t *testing.T) {
	t.Parallel()
	p := audit.UpdateProperties(nil, map[string]any{"a": 1}, nil)
	assert.Equal(t, audit.Properties{"new": map[string]any{"a": 1}}, p)
}
