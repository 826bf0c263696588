// Package blocklist holds the static exclusion sets used by the pipeline
// filter: vector-database competitors and large enterprises we don't pursue.
// The defaults are embedded; config may replace or extend either list so
// tests and one-off runs can override them.
package blocklist

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// MatchMode controls how a company name is tested against a list entry.
type MatchMode string

const (
	// MatchSubstring is the source-faithful behavior: case-insensitive
	// containment. "ibm" matching inside an unrelated name is an accepted
	// false-positive risk.
	MatchSubstring MatchMode = "substring"
	// MatchToken requires the entry to appear as a whole whitespace token.
	MatchToken MatchMode = "token"
)

// Lists is an immutable pair of exclusion sets plus the matching mode.
type Lists struct {
	Competitors []string
	Enterprises []string
	Mode        MatchMode
}

// Default returns the embedded lists with substring matching.
func Default() Lists {
	return Lists{
		Competitors: defaultCompetitors,
		Enterprises: defaultEnterprises,
		Mode:        MatchSubstring,
	}
}

// LoadFile reads replacement lists from a YAML file of the form
//
//	competitors: [vendor1, vendor2]
//	enterprises: [corp1, corp2]
//
// Either key may be omitted to keep the embedded default for that list.
func LoadFile(path string) (Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lists{}, eris.Wrap(err, "blocklist: read file")
	}

	var doc struct {
		Competitors []string  `yaml:"competitors"`
		Enterprises []string  `yaml:"enterprises"`
		Match       MatchMode `yaml:"match"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Lists{}, eris.Wrap(err, "blocklist: parse file")
	}

	lists := Default()
	if len(doc.Competitors) > 0 {
		lists.Competitors = doc.Competitors
	}
	if len(doc.Enterprises) > 0 {
		lists.Enterprises = doc.Enterprises
	}
	if doc.Match != "" {
		lists.Mode = doc.Match
	}
	return lists, nil
}

// MatchCompetitor returns the competitor entry contained in name, or "".
func (l Lists) MatchCompetitor(name string) string {
	return match(name, l.Competitors, l.Mode)
}

// MatchEnterprise returns the enterprise entry contained in name, or "".
func (l Lists) MatchEnterprise(name string) string {
	return match(name, l.Enterprises, l.Mode)
}

func match(name string, entries []string, mode MatchMode) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return ""
	}
	var tokens map[string]bool
	if mode == MatchToken {
		tokens = make(map[string]bool)
		for _, t := range strings.Fields(lowered) {
			tokens[t] = true
		}
	}
	for _, e := range entries {
		entry := strings.ToLower(e)
		switch mode {
		case MatchToken:
			if tokens[entry] {
				return e
			}
		default:
			if strings.Contains(lowered, entry) {
				return e
			}
		}
	}
	return ""
}

// defaultCompetitors lists vector-database vendors. Leads already using or
// building one of these are competitors, not prospects.
var defaultCompetitors = []string{
	"pinecone",
	"weaviate",
	"qdrant",
	"milvus",
	"zilliz",
	"pgvector",
	"vespa",
	"marqo",
	"lancedb",
	"turbopuffer",
	"vald",
	"deeplake",
	"activeloop",
	"mongodb atlas vector",
	"elastic",
	"elasticsearch",
	"opensearch",
	"typesense",
	"meilisearch",
	"algolia",
	"redis",
	"singlestore",
	"rockset",
	"vectara",
	"supabase",
	"neon",
	"timescale",
	"clickhouse",
	"myscale",
	"epsilla",
	"nuclia",
	"vearch",
	"annoy",
	"faiss",
	"usearch",
	"objectbox",
	"couchbase",
	"datastax",
	"astra db",
	"momento",
}

// defaultEnterprises lists companies too large (or too conflicted) for
// outbound: hyperscalers, big tech, banks, and megacorps with existing
// vendor relationships or procurement walls.
var defaultEnterprises = []string{
	"google",
	"alphabet",
	"microsoft",
	"amazon",
	"aws",
	"apple",
	"meta",
	"facebook",
	"netflix",
	"nvidia",
	"intel",
	"amd",
	"ibm",
	"oracle",
	"sap",
	"salesforce",
	"adobe",
	"cisco",
	"dell",
	"hewlett packard",
	"hpe",
	"lenovo",
	"samsung",
	"sony",
	"tencent",
	"alibaba",
	"baidu",
	"bytedance",
	"huawei",
	"xiaomi",
	"uber",
	"lyft",
	"airbnb",
	"booking",
	"expedia",
	"paypal",
	"stripe",
	"block inc",
	"square",
	"visa",
	"mastercard",
	"jpmorgan",
	"goldman sachs",
	"morgan stanley",
	"bank of america",
	"wells fargo",
	"citigroup",
	"citibank",
	"hsbc",
	"barclays",
	"ubs",
	"deutsche bank",
	"blackrock",
	"fidelity",
	"vanguard",
	"walmart",
	"target",
	"costco",
	"home depot",
	"nike",
	"coca-cola",
	"pepsico",
	"procter & gamble",
	"unilever",
	"johnson & johnson",
	"pfizer",
	"moderna",
	"merck",
	"novartis",
	"roche",
	"astrazeneca",
	"boeing",
	"airbus",
	"lockheed martin",
	"raytheon",
	"northrop grumman",
	"general electric",
	"general motors",
	"ford",
	"toyota",
	"volkswagen",
	"bmw",
	"mercedes",
	"tesla",
	"exxon",
	"chevron",
	"shell",
	"bp ",
	"accenture",
	"deloitte",
	"pwc",
	"kpmg",
	"ernst & young",
	"mckinsey",
	"verizon",
	"at&t",
	"t-mobile",
	"comcast",
	"disney",
}
