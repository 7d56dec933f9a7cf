package i18n_test

import (
	"testing"

	"github.com/samirrijal/carcompanion/internal/pkg/i18n"
)

func TestNew_FormatsArgs(t *testing.T) {
	tr := i18n.New("en")
	if got := tr("tracking.saved.body", 12.3456); got != "Distance: 12.35 km" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestNew_RegionAndCase(t *testing.T) {
	tr := i18n.New("ES-es")
	if got := tr("tracking.saved.title"); got != "Viaje guardado" {
		t.Fatalf("expected spanish, got %q", got)
	}
}

func TestNew_FallsBackToEnglish(t *testing.T) {
	fr := i18n.New("fr")
	if got := fr("push.failed.title"); got != "Registration Failed" {
		t.Errorf("expected english fallback, got %q", got)
	}

	xx := i18n.New("xx")
	if got := xx("services.carWash"); got != "Car Wash" {
		t.Errorf("expected english for unknown language, got %q", got)
	}
}

func TestNew_UnknownKey(t *testing.T) {
	tr := i18n.New("de")
	if got := tr("no.such.key"); got != "no.such.key" {
		t.Fatalf("expected key echo, got %q", got)
	}
}

func TestNew_AcceptLanguageList(t *testing.T) {
	tr := i18n.New("ja,pt-BR;q=0.8,en;q=0.5")
	if got := tr("services.carWash"); got != i18n.New("pt")("services.carWash") {
		t.Fatalf("expected portuguese, got %q", got)
	}
}

func TestNew_LocalizesNumbers(t *testing.T) {
	de := i18n.New("de-AT")
	if got := de("tracking.saved.body", 2.5); got != "Strecke: 2,50 km" {
		t.Fatalf("expected german decimal comma, got %q", got)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"pt-BR", "pt", true},
		{"es-ES", "es", true},
		{"fr-CA,en;q=0.5", "fr", true},
		{"ja", "en", false},
		{"", "en", false},
		{"not a tag!", "en", false},
	}
	for _, tt := range tests {
		tag, ok := i18n.Match(tt.in)
		if tag.String() != tt.want || ok != tt.ok {
			t.Errorf("Match(%q) = %s, %v; want %s, %v", tt.in, tag, ok, tt.want, tt.ok)
		}
	}
}

func TestLanguages(t *testing.T) {
	got := i18n.Languages()
	if len(got) != 5 || got[0] != i18n.DefaultLanguage {
		t.Errorf("unexpected languages %v", got)
	}
}
