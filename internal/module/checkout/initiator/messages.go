package initiator

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Notification message keys.
const (
	msgErrorTitle     = "notify.error.title"
	msgLoginRequired  = "notify.login_required"
	msgTaxIDRequired  = "notify.tax_id_required"
	msgInitiateFailed = "notify.initiate_failed"
)

var supportedLanguages = []language.Tag{language.BrazilianPortuguese, language.English}

var translations = map[language.Tag]map[string]string{
	language.BrazilianPortuguese: {
		msgErrorTitle:     "Erro",
		msgLoginRequired:  "Você precisa estar logado para assinar.",
		msgTaxIDRequired:  "Informe seu CPF no perfil para assinar.",
		msgInitiateFailed: "Erro ao processar assinatura. Tente novamente.",
	},
	language.English: {
		msgErrorTitle:     "Error",
		msgLoginRequired:  "You need to be signed in to subscribe.",
		msgTaxIDRequired:  "Add your CPF to your profile to subscribe.",
		msgInitiateFailed: "Could not process your subscription. Please try again.",
	},
}

var messages = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.BrazilianPortuguese))
	for tag, entries := range translations {
		for key, text := range entries {
			if err := b.SetString(tag, key, text); err != nil {
				panic(err)
			}
		}
	}
	return b
}

var matcher = language.NewMatcher(supportedLanguages)

// newPrinter returns a printer for the closest supported language.
func newPrinter(tag language.Tag) *message.Printer {
	_, idx, _ := matcher.Match(tag)
	return message.NewPrinter(supportedLanguages[idx], message.Catalog(messages))
}
