package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSearchTerm(t *testing.T) {
	require.Equal(t, "limon", NormalizeSearchTerm("Limón"))
	require.Equal(t, "anejo especial", NormalizeSearchTerm("  Añejo Especial "))
	require.Equal(t, "", NormalizeSearchTerm("   "))
}

func TestSearchColumnStripsCaseAndAccents(t *testing.T) {
	require.Equal(t, "unaccent(lower(p.name))", SearchColumn("p.name"))
}
