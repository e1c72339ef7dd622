package imap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagSet(t *testing.T) {
	s := NewFlagSet(`\Seen`, "$Work", `\Flagged`, "", `\`)

	assert.Len(t, s, 3)
	assert.True(t, s.Has("seen"))
	assert.True(t, s.Has(`\SEEN`))
	assert.True(t, s.Has("$work"))
	assert.False(t, s.Has("Deleted"))
	assert.Equal(t, []string{"$Work", "Flagged", "Seen"}, s.Slice())

	s.Add("Seen")
	assert.Len(t, s, 3)
}

func TestFlagUpdateSplit(t *testing.T) {
	tests := []struct {
		name   string
		update FlagUpdate
		add    []string
		remove []string
	}{
		{"empty", FlagUpdate{}, nil, nil},
		{"seen", FlagUpdate{Seen: FlagAdd}, []string{`\Seen`}, nil},
		{"system order", FlagUpdate{Draft: FlagAdd, Answered: FlagRemove, Deleted: FlagAdd}, []string{`\Deleted`, `\Draft`}, []string{`\Answered`}},
		{"keywords sorted", FlagUpdate{Keywords: map[string]bool{"$b": true, "$a": true, "$c": false}}, []string{"$a", "$b"}, []string{"$c"}},
		{"unsafe keywords dropped", FlagUpdate{Keywords: map[string]bool{"two words": true, "x)": false, `"q"`: true}}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			add, remove := tt.update.split()
			assert.Equal(t, tt.add, add)
			assert.Equal(t, tt.remove, remove)
		})
	}
}

func TestIsSafeFlag(t *testing.T) {
	tests := map[string]bool{
		`\Seen`:      true,
		"$Label1":    true,
		"Junk-Mail":  true,
		"a.b+c_d":    true,
		"":           false,
		`\`:          false,
		"two words":  false,
		"paren)":     false,
		`quote"`:     false,
		"star*":      false,
		"non-ascii€": false,
	}
	for in, want := range tests {
		if got := isSafeFlag(in); got != want {
			t.Errorf("isSafeFlag(%q) = %v, want %v", in, got, want)
		}
	}
}
