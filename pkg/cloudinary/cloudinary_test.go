package cloudinary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}

func TestPublicIDPrefixesFolder(t *testing.T) {
	svc, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "/puerto-nuevo/"}, zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, "puerto-nuevo/activities/a1/u1/1_0_guia.pdf", svc.publicID("/activities/a1/u1/1_0_guia.pdf"))

	svc.folder = ""
	require.Equal(t, "activities/a1/x.pdf", svc.publicID("activities/a1/x.pdf"))
}
