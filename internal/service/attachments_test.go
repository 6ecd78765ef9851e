package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/puertonuevo/portal-api/internal/dto"
)

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Guía de Lectura.PDF":   "guia-de-lectura.pdf",
		"../../etc/passwd":      "passwd",
		"  Niño_ñandú (1).docx": "nino_nandu--1.docx",
		"???.txt":               "archivo.txt",
		"sin-extension":         "sin-extension",
	}
	for input, expected := range cases {
		require.Equal(t, expected, sanitizeFileName(input), input)
	}
}

func TestAttachmentPath(t *testing.T) {
	at := time.UnixMilli(1760000000123)
	path := attachmentPath("act-1", "uid/with space", at, 2, "Mapa.png")
	require.Equal(t, "activities/act-1/uid_with_space/1760000000123_2_mapa.png", path)
}

func TestNormalizeLinks(t *testing.T) {
	items, err := normalizeLinks([]dto.LinkInput{
		{Label: " Video ", URL: " HTTPS://WWW.Example.com/Clase?id=1 "},
		{URL: ""},
		{URL: "http://example.org"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Video", items[0].Label)
	require.Equal(t, "https://www.example.com/Clase?id=1", items[0].URL)
	require.Equal(t, "www.example.com", items[0].Host)
	require.Equal(t, "example.org", items[1].Label)

	for _, raw := range []string{"ftp://example.com/file", "javascript:alert(1)", "example.com/no-scheme", "https://"} {
		_, err := normalizeLinks([]dto.LinkInput{{URL: raw}})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation, raw)
		require.Contains(t, validation.Message, raw)
	}
}

func TestParseDueDate(t *testing.T) {
	due, err := parseDueDate("2026-03-15")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *due)

	due, err = parseDueDate("2026-03-15T10:00:00-03:00")
	require.NoError(t, err)
	require.Equal(t, 13, due.Hour())
	require.Equal(t, time.UTC, due.Location())

	due, err = parseDueDate("  ")
	require.NoError(t, err)
	require.Nil(t, due)

	_, err = parseDueDate("15/03/2026")
	require.Error(t, err)
}
