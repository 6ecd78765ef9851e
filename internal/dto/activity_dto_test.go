package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivityUpdateRequestDueDatePresence(t *testing.T) {
	var absent ActivityUpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	require.False(t, absent.DueDate.Set)
	require.True(t, absent.IsEmpty())

	var null ActivityUpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"due_date": null}`), &null))
	require.True(t, null.DueDate.Set)
	require.Nil(t, null.DueDate.Value)
	require.False(t, null.IsEmpty())

	var value ActivityUpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":"2026-11-01","title":"Huerta"}`), &value))
	require.Equal(t, "2026-11-01", value.DueDate.String())
	require.Equal(t, "Huerta", *value.Title)

	var both ActivityUpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"due_date":"2026-01-01","dueDate":"2027-01-01"}`), &both))
	require.Equal(t, "2026-01-01", both.DueDate.String())

	var invalid ActivityUpdateRequest
	require.Error(t, json.Unmarshal([]byte(`{"due_date": 5}`), &invalid))
}
