package planner

import (
	"testing"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestSnapshot() *models.CollectionSnapshot {
	return &models.CollectionSnapshot{
		CollectionID: 5,
		Items: []models.ItemDescriptor{
			{ID: 11, Title: "Intro", Position: 1},
			{ID: 12, Title: "Greetings", Position: 2},
			{ID: 13, Title: "Numbers", Position: 3},
			{ID: 14, Title: "Numbers", Position: 4},
		},
	}
}

func TestManifest(t *testing.T) {
	t.Run("mapping form", func(t *testing.T) {
		m, err := ParseManifest([]byte("order:\n  - 13\n  - Greetings\n  - 11\n  - 14\n"))
		require.NoError(t, err)

		ids, err := m.Resolve(manifestSnapshot())
		require.NoError(t, err)
		assert.Equal(t, []int{13, 12, 11, 14}, ids)
	})

	t.Run("sequence form from file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/order.yaml", []byte("- 12\n- 11\n"), 0644))

		m, err := LoadManifest(fs, "/order.yaml")
		require.NoError(t, err)

		ids, err := m.Resolve(manifestSnapshot())
		require.NoError(t, err)
		assert.Equal(t, []int{12, 11}, ids)
	})

	t.Run("ambiguous title", func(t *testing.T) {
		m, err := ParseManifest([]byte("- Numbers\n"))
		require.NoError(t, err)
		_, err = m.Resolve(manifestSnapshot())
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("unknown title", func(t *testing.T) {
		m, err := ParseManifest([]byte("- Farewell\n"))
		require.NoError(t, err)
		_, err = m.Resolve(manifestSnapshot())
		assert.ErrorIs(t, err, shared.ErrSetMismatch)
	})

	t.Run("invalid documents", func(t *testing.T) {
		for _, doc := range []string{"", "just a string", "order: [1, [2]]", "- {a: 1}\n"} {
			m, err := ParseManifest([]byte(doc))
			if err == nil {
				_, err = m.Resolve(manifestSnapshot())
			}
			assert.ErrorIs(t, err, shared.ErrInvalidInput, "doc %q", doc)
		}
	})
}
