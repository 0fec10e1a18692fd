package models

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw     string
		want    Category
		wantErr bool
	}{
		{raw: "meditation", want: CategoryMeditation},
		{raw: "  Tutorial ", want: CategoryTutorial},
		{raw: "NEWS", want: CategoryNews},
		{raw: "meditacao", want: CategoryMeditation},
		{raw: "noticia", want: CategoryNews},
		{raw: "", wantErr: true},
		{raw: "sermon", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseCategory(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseCategory(%q): expected error, got %q", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseCategory(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseCategory(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	cats := Categories()
	if len(cats) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(cats))
	}
	cats[0] = "changed"
	if Categories()[0] != CategoryMeditation {
		t.Fatal("Categories must not expose internal slice")
	}
}

func TestPostHasImage(t *testing.T) {
	if (Post{}).HasImage() {
		t.Fatal("empty post should not have image")
	}
	if !(Post{Image: []byte{0x89}}).HasImage() {
		t.Fatal("expected image")
	}
}
