package article

import "testing"

func TestReveal(t *testing.T) {
	tests := []struct {
		name     string
		step     int
		segments int
		code     bool
	}{
		{"title only", 0, 0, false},
		{"negative", -1, 0, false},
		{"first segment", 1, 1, false},
		{"all segments", 2, 2, false},
		{"everything", 3, 2, true},
		{"past the end", 9, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reveal(sample(), tt.step)
			if got.Title != "Channels in Go" {
				t.Errorf("Title = %q", got.Title)
			}
			if len(got.Description) != tt.segments {
				t.Errorf("len(Description) = %d, want %d", len(got.Description), tt.segments)
			}
			if got.HasCode() != tt.code {
				t.Errorf("HasCode() = %v, want %v", got.HasCode(), tt.code)
			}
		})
	}
}

func TestReveal_Nil(t *testing.T) {
	if Reveal(nil, 3) != nil {
		t.Error("Reveal(nil) should be nil")
	}
}

func TestReveal_DoesNotAlias(t *testing.T) {
	c := sample()
	got := Reveal(c, 2)
	got.Description[0].Content = "changed"
	if c.Description[0].Content == "changed" {
		t.Error("Reveal() shares the description slice with its input")
	}
}
