package notify

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Message is a rendered notification ready for push and/or email delivery.
type Message struct {
	Title string
	Body  string
}

var supportedLocales = []language.Tag{
	language.English, // first entry is the fallback
	language.Spanish,
}

var localeMatcher = language.NewMatcher(supportedLocales)

type template struct {
	title string
	body  string
}

// Template bodies use {param} placeholders filled from the dispatch params.
var templates = map[string]map[string]template{
	"money_sent": {
		"en": {title: "Money sent", body: "Your {provider} transfer of ${amount} is complete."},
		"es": {title: "Dinero enviado", body: "Tu transferencia de ${amount} por {provider} se ha completado."},
	},
	"money_received": {
		"en": {title: "You received money", body: "{sender} sent you ${amount} via {provider}."},
		"es": {title: "Recibiste dinero", body: "{sender} te envió ${amount} por {provider}."},
	},
	"payment_failed": {
		"en": {title: "Payment not completed", body: "Your transfer of ${amount} could not be verified ({status})."},
		"es": {title: "Pago no completado", body: "Tu transferencia de ${amount} no pudo verificarse ({status})."},
	},
	"confirm_receipt": {
		"en": {title: "Did it arrive?", body: "A ${amount} transfer via {provider} was marked as sent. Confirm when it arrives."},
		"es": {title: "¿Llegó?", body: "Una transferencia de ${amount} por {provider} fue marcada como enviada. Confirma cuando llegue."},
	},
	"spend_cap_blocked": {
		"en": {title: "Monthly limit reached", body: "A ${amount} transfer is waiting because your monthly limit is reached. Upgrade your plan or cancel it."},
		"es": {title: "Límite mensual alcanzado", body: "Una transferencia de ${amount} está en espera porque alcanzaste tu límite mensual. Mejora tu plan o cancélala."},
	},
	"encouragement": {
		"en": {title: "A note from {sender}", body: "{note}"},
		"es": {title: "Un mensaje de {sender}", body: "{note}"},
	},
	"family_joined": {
		"en": {title: "Family update", body: "{member} joined your family."},
		"es": {title: "Novedad familiar", body: "{member} se unió a tu familia."},
	},
}

// matchLocale maps an arbitrary locale string to a supported template locale.
func matchLocale(locale string) string {
	tag, _ := language.MatchStrings(localeMatcher, locale)
	base, _ := tag.Base()
	if base.String() == "es" {
		return "es"
	}
	return "en"
}

// Render builds the localized message for a template. Unknown templates fall
// back to a generic notification rather than failing delivery.
func Render(name, locale string, params map[string]string) Message {
	byLocale, ok := templates[name]
	if !ok {
		return Message{Title: "FamWell", Body: name}
	}
	tpl, ok := byLocale[matchLocale(locale)]
	if !ok {
		tpl = byLocale["en"]
	}
	return Message{
		Title: fill(tpl.title, params),
		Body:  fill(tpl.body, params),
	}
}

func fill(text string, params map[string]string) string {
	for key, value := range params {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return text
}

// DisplayName renders a user-facing name with locale-aware title casing.
func DisplayName(name, locale string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Someone"
	}
	tag, _ := language.MatchStrings(localeMatcher, locale)
	return cases.Title(tag).String(name)
}
