package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n ", ""},
		{"latin lowercased", "  Coca COLA  ", "coca cola"},
		{"whitespace collapsed", "a \t\n  b", "a b"},
		{"alef variants", "أحمد إبراهيم آمال", "احمد ابراهيم امال"},
		{"teh marbuta", "مياه معدنية", "مياه معدنيه"},
		{"alef maksura", "مصطفى", "مصطفي"},
		{"diacritics stripped", "مَاءٌ", "ماء"},
		{"tatweel stripped", "مـــاء", "ماء"},
		{"eastern digits", "كود ١٢٣ ۴۵", "كود 123 45"},
		{"punctuation removed", "code-100/A!", "code100a"},
		{"mixed", "  زيت  Olive-Oil ٥ لتر ", "زيت oliveoil 5 لتر"},
		{"yeh barree with hamza", "\u06d3", "ي"},
		{"yeh barree with combining hamza", "\u06d2\u0654", "ي"},
		{"heh goal with hamza", "\u06c1\u0654", "ه"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"أحمد", "مَاءٌ", "إسكندرية", "ـــ", "Ünïcödé", "١٢٣ abc", "  x  ", "ؤئىة", "آ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func FuzzNormalizeIdempotent(f *testing.F) {
	for _, seed := range []string{"", "أحمد", "Coca-Cola 12", "مـــاءٌ ١٢"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("مياه معدنيّة", Normalize("معدنية")))
	assert.False(t, Contains("water", ""))
	assert.False(t, Contains("water", "oil"))
}
