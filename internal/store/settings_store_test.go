package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podbay/internal/models"
	"podbay/internal/store"
	"podbay/internal/testutil"
)

func TestSettingsStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	st := store.New(db)

	t.Run("defaults", func(t *testing.T) {
		settings, err := st.GetSettings()
		require.NoError(t, err)
		assert.Equal(t, "dark", settings.Theme)
		assert.False(t, settings.AutoDownload)
	})

	t.Run("save and reload", func(t *testing.T) {
		require.NoError(t, st.SaveSettings(&models.Settings{Theme: "light", AutoDownload: true}))

		settings, err := st.GetSettings()
		require.NoError(t, err)
		assert.Equal(t, "light", settings.Theme)
		assert.True(t, settings.AutoDownload)

		// Saving again overwrites, not duplicates.
		require.NoError(t, st.SaveSettings(&models.Settings{Theme: "dark", AutoDownload: false}))
		settings, err = st.GetSettings()
		require.NoError(t, err)
		assert.Equal(t, "dark", settings.Theme)
		assert.False(t, settings.AutoDownload)
	})
}
