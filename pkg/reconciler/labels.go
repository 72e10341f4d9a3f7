package reconciler

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"

	"github.com/agentstation/listingmap/pkg/listings"
)

// Labeler renders the text shown on markers.
type Labeler interface {
	// Listing returns the title and snippet of a listing marker.
	Listing(l listings.Listing) (title, snippet string)
	// CurrentLocation returns the title of the current-location marker.
	CurrentLocation() string
	// SearchResult returns the title of the search marker for label.
	SearchResult(label string) string
}

// Message keys.
const (
	msgPricePerMonth   = "$%v/month"
	msgCurrentLocation = "My Location"
	msgSearchResult    = "Searched: %s"
)

var labelCatalog = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}
	set(language.English, msgPricePerMonth, "$%v/month")
	set(language.English, msgCurrentLocation, "My Location")
	set(language.English, msgSearchResult, "Searched: %s")
	set(language.Swahili, msgPricePerMonth, "$%v kwa mwezi")
	set(language.Swahili, msgCurrentLocation, "Mahali Nilipo")
	set(language.Swahili, msgSearchResult, "Imetafutwa: %s")
	return b
}()

// SupportedLocales lists the locales with translated marker text.
var SupportedLocales = []language.Tag{language.English, language.Swahili}

type localeLabeler struct {
	p *message.Printer
}

// NewLabeler returns a Labeler for the closest supported locale to tag.
func NewLabeler(tag language.Tag) Labeler {
	matched, _, _ := language.NewMatcher(SupportedLocales).Match(tag)
	base, _ := matched.Base()
	return &localeLabeler{
		p: message.NewPrinter(language.Make(base.String()), message.Catalog(labelCatalog)),
	}
}

// Listing formats "$price/month" with the address on a second line.
func (ll *localeLabeler) Listing(l listings.Listing) (string, string) {
	snippet := ll.p.Sprintf(msgPricePerMonth, number.Decimal(l.Price, number.MaxFractionDigits(2)))
	if l.Address != "" {
		snippet += "\n" + l.Address
	}
	return l.Title, snippet
}

func (ll *localeLabeler) CurrentLocation() string {
	return ll.p.Sprintf(msgCurrentLocation)
}

func (ll *localeLabeler) SearchResult(label string) string {
	return ll.p.Sprintf(msgSearchResult, label)
}
