package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestNormalizeGuardianRef(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		uid  string
		ok   bool
	}{
		{name: "bare uid", raw: `"fam-1"`, uid: "fam-1", ok: true},
		{name: "object", raw: `{"uid":" fam-2 ","nombre":"Ana"}`, uid: "fam-2", ok: true},
		{name: "blank string", raw: `"  "`, ok: false},
		{name: "object without uid", raw: `{"email":"x@example.com"}`, ok: false},
		{name: "number", raw: `42`, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uid, ok := NormalizeGuardianRef(json.RawMessage(tc.raw))
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.uid, uid)
		})
	}
}

func TestChildGuardianUIDsMixedShapes(t *testing.T) {
	child := Child{Responsables: datatypes.JSON(`["fam-1", {"uid": "fam-2"}, null, {"name": "x"}]`)}

	require.Equal(t, []string{"fam-1", "fam-2"}, child.GuardianUIDs())
	require.True(t, child.HasGuardian("fam-2"))
	require.False(t, child.HasGuardian("fam-3"))
	require.False(t, child.HasGuardian(""))
}

func TestEncodeGuardianIndex(t *testing.T) {
	require.Equal(t, "", EncodeGuardianIndex(nil))
	require.Equal(t, "|a|b|", EncodeGuardianIndex([]string{" a ", "", "b", "c|d"}))
}

func TestParseGuardianRefsMalformed(t *testing.T) {
	require.Nil(t, ParseGuardianRefs(datatypes.JSON(`{"uid":"x"}`)))
	require.Nil(t, ParseGuardianRefs(nil))
}
