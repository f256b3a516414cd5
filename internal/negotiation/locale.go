package negotiation

import (
	"fmt"

	"github.com/dyike/marktbot/consts"
	"github.com/dyike/marktbot/internal/models"
)

type phrasebook struct {
	opening string
	// language named in AI prompts
	language string
}

var phrasebooks = map[string]phrasebook{
	consts.Locale_NL: {
		opening:  "Hoi! Is de %s nog beschikbaar? Ik ben geïnteresseerd.",
		language: "Dutch",
	},
	consts.Locale_EN: {
		opening:  "Hi! Is the %s still available? I'm interested.",
		language: "English",
	},
}

func phrasesFor(locale string) phrasebook {
	if pb, ok := phrasebooks[locale]; ok {
		return pb
	}
	return phrasebooks[consts.Locale_NL]
}

func openingMessage(locale string, l models.Listing) string {
	return fmt.Sprintf(phrasesFor(locale).opening, l.Title)
}
