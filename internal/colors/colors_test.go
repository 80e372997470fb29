package colors

import "testing"

func TestToRGB(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"rgba comma", "255,0,0,255", "rgb(255,0,0)"},
		{"rgb comma", "0,128,255", "rgb(0,128,255)"},
		{"spaces", " 1, 2, 3, 4 ", "rgb(1,2,3)"},
		{"hex", "#ff8000", "rgb(255,128,0)"},
		{"hex without hash", "00ff00", "rgb(0,255,0)"},
		{"short hex", "#fff", "rgb(255,255,255)"},
		{"empty", "", Default},
		{"garbage", "not a color", Default},
		{"out of range", "300,0,0,255", Default},
		{"two parts", "1,2", Default},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToRGB(tt.input); got != tt.want {
				t.Errorf("ToRGB(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestChannels(t *testing.T) {
	tests := []struct {
		input   string
		r, g, b int
		ok      bool
	}{
		{"rgb(10,20,30)", 10, 20, 30, true},
		{"rgba(1, 2, 3, 255)", 1, 2, 3, true},
		{"rgb(1,2)", 0, 0, 0, false},
	}

	for _, tt := range tests {
		r, g, b, ok := Channels(tt.input)
		if ok != tt.ok || r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("Channels(%q) = %d,%d,%d,%v want %d,%d,%d,%v", tt.input, r, g, b, ok, tt.r, tt.g, tt.b, tt.ok)
		}
	}
}

func TestHostRoundTrip(t *testing.T) {
	for _, c := range []string{"255,0,0,255", "12,34,56,255"} {
		if got := Host(ToRGB(c)); got != c {
			t.Errorf("Host(ToRGB(%q)) = %q", c, got)
		}
	}
	if got := Host("bogus"); got != "0,0,0,255" {
		t.Errorf("Host(bogus) = %q", got)
	}
	if got := RGBA(1, 2, 3); got != "rgba(1, 2, 3, 255)" {
		t.Errorf("RGBA = %q", got)
	}
}
