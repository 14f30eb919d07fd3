package notify

import "testing"

func TestRenderLocalizedTemplates(t *testing.T) {
	params := map[string]string{"sender": "Dana", "amount": "25.00", "provider": "paypal"}

	en := Render("money_received", "en", params)
	if en.Body != "Dana sent you $25.00 via paypal." {
		t.Fatalf("en body = %q", en.Body)
	}

	es := Render("money_received", "es-MX", params)
	if es.Title != "Recibiste dinero" {
		t.Fatalf("es title = %q", es.Title)
	}
	if es.Body != "Dana te envió $25.00 por paypal." {
		t.Fatalf("es body = %q", es.Body)
	}
}

func TestRenderFallsBackToEnglish(t *testing.T) {
	msg := Render("money_sent", "fr-FR", map[string]string{"amount": "5.00", "provider": "venmo"})
	if msg.Title != "Money sent" {
		t.Fatalf("title = %q", msg.Title)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	msg := Render("no_such_template", "en", nil)
	if msg.Title != "FamWell" || msg.Body != "no_such_template" {
		t.Fatalf("unknown template rendered %+v", msg)
	}
}

func TestMatchLocale(t *testing.T) {
	cases := map[string]string{
		"es":    "es",
		"es-AR": "es",
		"en-GB": "en",
		"de":    "en",
		"":      "en",
		"junk!": "en",
	}
	for in, want := range cases {
		if got := matchLocale(in); got != want {
			t.Errorf("matchLocale(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("dana smith", "en"); got != "Dana Smith" {
		t.Fatalf("DisplayName = %q", got)
	}
	if got := DisplayName("   ", "en"); got != "Someone" {
		t.Fatalf("DisplayName empty = %q", got)
	}
}
