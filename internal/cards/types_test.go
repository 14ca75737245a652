package cards

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		title   string
		score   int
		want    string
		wantErr error
	}{
		{"valid", "Chrono Trigger", 95, "Chrono Trigger", nil},
		{"trims title", "  Chrono Trigger  ", 0, "Chrono Trigger", nil},
		{"blank title", "   ", 50, "", ErrTitleRequired},
		{"score too low", "x y", -1, "", ErrScoreOutOfRange},
		{"score too high", "x y", 101, "", ErrScoreOutOfRange},
		{"score boundaries", "x y", 100, "x y", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validate(tt.title, tt.score)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("validate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeCategories(t *testing.T) {
	t.Parallel()

	got := normalizeCategories([]string{" a ", "b", "a", "", "  ", "b"})
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeCategories() = %v, want %v", got, want)
	}

	if got := normalizeCategories(nil); len(got) != 0 {
		t.Fatalf("normalizeCategories(nil) = %v, want empty", got)
	}
}
