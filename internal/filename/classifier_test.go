package filename

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantSiteID   string
		wantCategory Category
		wantExt      string
	}{
		{
			name:         "pan token",
			input:        "123456789012_PAN.img",
			wantSiteID:   "123456789012",
			wantCategory: CategoryPAN,
			wantExt:      ".img",
		},
		{
			name:         "psh token lowercase",
			input:        "123456789012-psh.tif",
			wantSiteID:   "123456789012",
			wantCategory: CategoryPSH,
			wantExt:      ".tif",
		},
		{
			name:         "mixed case pan",
			input:        "site_Pan_01.img",
			wantSiteID:   "site",
			wantCategory: CategoryPAN,
			wantExt:      ".img",
		},
		{
			name:         "pan wins over psh",
			input:        "42_PSH_PAN.img",
			wantSiteID:   "42",
			wantCategory: CategoryPAN,
			wantExt:      ".img",
		},
		{
			name:         "pan wins regardless of order",
			input:        "42_pan-psh.img",
			wantSiteID:   "42",
			wantCategory: CategoryPAN,
			wantExt:      ".img",
		},
		{
			name:         "substring is not a token",
			input:        "PANORAMA_1.img",
			wantSiteID:   "PANORAMA",
			wantCategory: CategoryUncategorized,
			wantExt:      ".img",
		},
		{
			name:         "uncategorized",
			input:        "unknownfile.img",
			wantSiteID:   "unknownfile",
			wantCategory: CategoryUncategorized,
			wantExt:      ".img",
		},
		{
			name:         "full path uses base name",
			input:        "/data/PAN_dir/987_PSH.tif",
			wantSiteID:   "987",
			wantCategory: CategoryPSH,
			wantExt:      ".tif",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Classify(tt.input)
			if err != nil {
				t.Fatalf("Classify(%q) returned error: %v", tt.input, err)
			}
			if id.SiteID != tt.wantSiteID {
				t.Errorf("Expected site ID %s, got %s", tt.wantSiteID, id.SiteID)
			}
			if id.Category != tt.wantCategory {
				t.Errorf("Expected category %s, got %s", tt.wantCategory, id.Category)
			}
			if id.Extension != tt.wantExt {
				t.Errorf("Expected extension %s, got %s", tt.wantExt, id.Extension)
			}
		})
	}
}

func TestClassifyMalformed(t *testing.T) {
	for _, input := range []string{"", "___", "-.-", "."} {
		_, err := Classify(input)
		if !errors.Is(err, ErrMalformedFilename) {
			t.Errorf("Classify(%q): expected ErrMalformedFilename, got %v", input, err)
		}
	}
}

func TestMatchKeys(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"123456789012_PIXEL_SHAPE.shp", []string{"123456789012"}},
		{"12345678901_PIXEL_SHAPE.shp", nil},
		{"1234567890123_PIXEL_SHAPE.shp", nil},
		{"area_12345678901a_PIXEL.shp", nil},
		{"a-123456789012-b-210987654321.shp", []string{"123456789012", "210987654321"}},
	}

	for _, tt := range tests {
		id, err := Classify(tt.input)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", tt.input, err)
		}
		got := id.MatchKeys()
		if len(got) != len(tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.input, tt.want, got)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: expected %v, got %v", tt.input, tt.want, got)
			}
		}
	}
}

func TestHasPixelMarker(t *testing.T) {
	tests := map[string]bool{
		"123456789012_PIXEL_SHAPE.shp": true,
		"123456789012_pixel_shape.shp": true,
		"123456789012-Pixel.shp":       true,
		"123456789012_PIXELS.shp":      false,
		"123456789012_BOUNDARY.shp":    false,
	}

	for input, want := range tests {
		id, err := Classify(input)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", input, err)
		}
		if got := id.HasPixelMarker(); got != want {
			t.Errorf("%s: expected %v, got %v", input, want, got)
		}
	}
}

func TestRenamedName(t *testing.T) {
	tests := map[string]string{
		"123456789012_PAN.img":      "123456789012_PAN.img",
		"123456789012-03-psh-x.tif": "123456789012_PSH.tif",
		"unknownfile.img":           "unknownfile.img",
		"odd-name.with.dots.img":    "odd-name.with.dots.img",
	}

	for input, want := range tests {
		id, err := Classify(input)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", input, err)
		}
		if got := id.RenamedName(); got != want {
			t.Errorf("%s: expected %s, got %s", input, want, got)
		}
	}
}
