package translit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii unchanged", "AK74_Black", "AK74_Black"},
		{"empty", "", ""},
		{"german umlaut", "Gewehr_Grün", "Gewehr_Grun"},
		{"french accents", "Épée", "Epee"},
		{"cyrillic", "Автомат", "Avtomat"},
		{"whitespace preserved", "  M4A1 ", "  M4A1 "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestFoldIdempotent(t *testing.T) {
	names := []string{"Gewehr_Grün", "Épée", "Plain"}
	for _, name := range names {
		once := Fold(name)
		assert.Equal(t, once, Fold(once))
	}
}

func TestIsASCII(t *testing.T) {
	assert.True(t, IsASCII("AKM"))
	assert.True(t, IsASCII(""))
	assert.False(t, IsASCII("Grün"))
}
