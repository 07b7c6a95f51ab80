package truststore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverridesPersistAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.db")

	db, err := OpenOverrides(path)
	require.NoError(t, err)
	s := New(nil)
	s.SetPersister(db)
	require.NoError(t, s.AddTrustedDomain("partner.example"))
	require.NoError(t, s.AddOrganization("Partner Academy", "https://verify.partner.example/c/"))
	require.NoError(t, db.Close())

	db, err = OpenOverrides(path)
	require.NoError(t, err)
	defer db.Close()

	fresh := New(nil)
	n, err := db.Replay(fresh)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, fresh.IsTrustedDomain("https://partner.example/x"))
	u, ok := fresh.LookupBaseURL("partner academy")
	require.True(t, ok)
	assert.Equal(t, "https://verify.partner.example/c/", u)
}
