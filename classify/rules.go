package classify

// Rule describes one carrier's detection patterns. FromPatterns and
// SubjectPatterns are case-insensitive regular expressions matched anywhere
// in the sender address and subject line.
type Rule struct {
	Carrier         string
	FromPatterns    []string
	SubjectPatterns []string

	// Generic rules match on subject alone, regardless of sender. They act
	// as a safety net for carriers not in the explicit list.
	Generic bool
}

// Rules is the ordered rule table. Order matters: the first matching rule
// wins, so explicit carriers must come before the generic catch-all to be
// attributed correctly.
var Rules = []Rule{
	{
		Carrier:         "JetBlue",
		FromPatterns:    []string{`jetblue`, `@.*jetblue\.com`},
		SubjectPatterns: []string{`booking confirmation`, `itinerary`, `flight confirmation`},
	},
	{
		Carrier:         "Delta",
		FromPatterns:    []string{`delta`, `@.*delta\.com`},
		SubjectPatterns: []string{`ereceipt`, `trip confirmation`, `itinerary`, `booking confirmation`},
	},
	{
		Carrier:         "United",
		FromPatterns:    []string{`united`, `@.*united\.com`},
		SubjectPatterns: []string{`confirmation`, `itinerary`, `trip details`},
	},
	{
		Carrier:         "American Airlines",
		FromPatterns:    []string{`american`, `@.*aa\.com`, `americanairlines`},
		SubjectPatterns: []string{`reservation`, `confirmation`, `itinerary`},
	},
	{
		Carrier:         "Southwest",
		FromPatterns:    []string{`southwest`, `@.*southwest\.com`},
		SubjectPatterns: []string{`confirmation`, `itinerary`, `trip`},
	},
	{
		Carrier:         "Alaska Airlines",
		FromPatterns:    []string{`alaska`, `@.*alaskaair\.com`},
		SubjectPatterns: []string{`confirmation`, `itinerary`},
	},
	{
		Carrier:         "Spirit",
		FromPatterns:    []string{`spirit`, `@.*spirit\.com`},
		SubjectPatterns: []string{`confirmation`, `itinerary`},
	},
	{
		Carrier:         "Frontier",
		FromPatterns:    []string{`frontier`, `@.*flyfrontier\.com`},
		SubjectPatterns: []string{`confirmation`, `itinerary`},
	},
	{
		Carrier:         "Hawaiian Airlines",
		FromPatterns:    []string{`hawaiian`, `@.*hawaiianairlines\.com`},
		SubjectPatterns: []string{`confirmation`, `itinerary`},
	},
	{
		Carrier:         "Air Canada",
		FromPatterns:    []string{`aircanada`, `@.*aircanada\.com`},
		SubjectPatterns: []string{`confirmation`, `itinerary`},
	},
	{
		Carrier:         "British Airways",
		FromPatterns:    []string{`british`, `@.*britishairways\.com`, `@.*ba\.com`},
		SubjectPatterns: []string{`confirmation`, `booking`, `itinerary`},
	},
	{
		Carrier:         "Lufthansa",
		FromPatterns:    []string{`lufthansa`, `@.*lufthansa\.com`},
		SubjectPatterns: []string{`confirmation`, `booking`},
	},
	{
		Carrier:         "Emirates",
		FromPatterns:    []string{`emirates`, `@.*emirates\.com`},
		SubjectPatterns: []string{`confirmation`, `booking`, `itinerary`},
	},
	{
		Carrier:         "KLM",
		FromPatterns:    []string{`klm`, `@.*klm\.com`},
		SubjectPatterns: []string{`confirmation`, `booking`, `itinerary`},
	},
	{
		Carrier:         "Air France",
		FromPatterns:    []string{`airfrance`, `@.*airfrance\.com`},
		SubjectPatterns: []string{`confirmation`, `booking`, `itinerary`},
	},
	{
		Carrier:         "Qantas",
		FromPatterns:    []string{`qantas`, `@.*qantas\.com`},
		SubjectPatterns: []string{`confirmation`, `booking`, `itinerary`},
	},
	{
		Carrier:         "Singapore Airlines",
		FromPatterns:    []string{`singapore`, `@.*singaporeair\.com`},
		SubjectPatterns: []string{`confirmation`, `booking`, `itinerary`},
	},
	{
		Carrier: "Generic Flight",
		Generic: true,
		SubjectPatterns: []string{
			`flight.*confirmation`,
			`booking.*confirmation.*flight`,
			`e-?ticket`,
			`itinerary.*flight`,
			`your.*trip.*confirmation`,
			`airline.*confirmation`,
		},
	},
}
