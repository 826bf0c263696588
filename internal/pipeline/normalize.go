// Package pipeline implements the canonical lead pipeline: normalize,
// filter, score, deduplicate, write. Every sync command drives the same
// implementation; sources and sinks differ per command.
package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/trychroma/gtm-cli/internal/model"
)

// Field-name aliases per canonical field, first-match-wins. Sources disagree
// on key names; this table is the single place they are reconciled.
var (
	companyAliases  = []string{"company_name", "company", "name", "clean_name", "vendor_name", "platform_name"}
	websiteAliases  = []string{"website", "url", "company_website", "company_url", "homepage"}
	emailAliases    = []string{"email", "contact_email", "work_email"}
	nameAliases     = []string{"contact_name", "full_name", "person", "person_name"}
	titleAliases    = []string{"title", "job_title", "contact_title", "role", "position"}
	linkedinAliases = []string{"linkedin_url", "linkedin", "profile_url"}
	tierAliases     = []string{"tier", "priority", "priority_tier"}
	categoryAliases = []string{"category", "segment", "type"}
	vectorDBAliases = []string{"vector_db_used", "vector_db", "vector_database", "current_vector_db"}
	fundingAliases  = []string{"funding_stage", "funding", "last_round", "stage"}
)

// suffixPattern matches common business entity suffixes for name canonicalization.
var suffixPattern = regexp.MustCompile(`(?i),?\s*(inc\.?|llc\.?|ltd\.?|co\.?|corp\.?|corporation|company|gmbh|llp|lp|pllc|pc|p\.?c\.?)$`)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// diacriticFold strips combining marks so "Café" and "Cafe" dedupe together.
var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// freeMailDomains are consumer mail providers that carry no company signal.
var freeMailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"live.com":       true,
	"aol.com":        true,
	"icloud.com":     true,
	"me.com":         true,
	"proton.me":      true,
	"protonmail.com": true,
	"gmx.com":        true,
	"mail.com":       true,
}

// jobBoardDomains show up as "websites" in scraped job postings and are
// noise, not company domains.
var jobBoardDomains = map[string]bool{
	"indeed.com":        true,
	"linkedin.com":      true,
	"glassdoor.com":     true,
	"ziprecruiter.com":  true,
	"lever.co":          true,
	"greenhouse.io":     true,
	"workable.com":      true,
	"wellfound.com":     true,
	"angel.co":          true,
	"builtin.com":       true,
	"simplyhired.com":   true,
	"monster.com":       true,
	"careerbuilder.com": true,
}

// Normalize maps a raw source record onto the canonical Lead shape. A record
// with no resolvable company name is not an error: it returns a nil Lead and
// SkipMissingCompany so the driver can count it.
func Normalize(raw model.RawRecord, now time.Time) (*model.Lead, model.SkipReason) {
	company := resolveString(raw.Fields, companyAliases)
	if strings.TrimSpace(company) == "" {
		return nil, model.SkipMissingCompany
	}

	website := resolveString(raw.Fields, websiteAliases)
	email := strings.ToLower(strings.TrimSpace(resolveString(raw.Fields, emailAliases)))

	lead := &model.Lead{
		CompanyName:  strings.TrimSpace(company),
		Website:      website,
		Domain:       ExtractDomain(website, email),
		Category:     parseCategory(resolveString(raw.Fields, categoryAliases)),
		Tier:         parseTier(resolveString(raw.Fields, tierAliases)),
		Source:       raw.Source,
		VectorDBUsed: resolveString(raw.Fields, vectorDBAliases),
		FundingStage: strings.ToLower(strings.TrimSpace(resolveString(raw.Fields, fundingAliases))),
		AddedAt:      now,
		UpdatedAt:    now,
	}

	contact := model.Contact{
		Name:        resolveString(raw.Fields, nameAliases),
		Title:       resolveString(raw.Fields, titleAliases),
		Email:       email,
		LinkedInURL: resolveString(raw.Fields, linkedinAliases),
	}
	if contact != (model.Contact{}) {
		lead.Contacts = append(lead.Contacts, contact)
	}

	return lead, ""
}

// resolveString returns the first alias present in fields with a non-empty
// string rendering.
func resolveString(fields map[string]any, aliases []string) string {
	for _, key := range aliases {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		s := stringify(v)
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ExtractDomain derives a company domain from a website URL, falling back to
// the domain part of an email address. Free-mail and job-board domains are
// excluded: they carry no company identity. Returns "" when nothing usable.
func ExtractDomain(website, email string) string {
	if d := domainFromWebsite(website); d != "" {
		return d
	}
	if d := domainFromEmail(email); d != "" {
		return d
	}
	return ""
}

func domainFromWebsite(website string) string {
	d := strings.ToLower(strings.TrimSpace(website))
	if d == "" {
		return ""
	}
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	if !strings.Contains(d, ".") {
		return ""
	}
	if jobBoardDomains[d] || freeMailDomains[d] {
		return ""
	}
	return d
}

func domainFromEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	d := strings.ToLower(strings.TrimSpace(email[at+1:]))
	if !strings.Contains(d, ".") {
		return ""
	}
	if freeMailDomains[d] || jobBoardDomains[d] {
		return ""
	}
	return d
}

// CanonicalName standardizes a company name for matching: trim, lowercase,
// strip one legal suffix, fold diacritics, drop punctuation, collapse spaces.
// No further canonicalization is attempted; false duplicates and false news
// are expected and accepted (names are the only shared key across sources).
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.ToLower(name)
	name = suffixPattern.ReplaceAllString(name, "")

	if folded, _, err := transform.String(diacriticFold, name); err == nil {
		name = folded
	}

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "and",
		"-", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// IdempotencyKey is the durable processed-set key for a lead: primary email
// when present, else canonical company name scoped by source.
func IdempotencyKey(lead *model.Lead) string {
	if email := lead.PrimaryEmail(); email != "" {
		return strings.ToLower(email)
	}
	return CanonicalName(lead.CompanyName) + "|" + lead.Source
}

func parseTier(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "tier")
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 3 {
		return 0
	}
	return n
}

func parseCategory(s string) model.Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer":
		return model.CategoryCustomer
	case "competitor":
		return model.CategoryCompetitor
	case "partner":
		return model.CategoryPartner
	case "prospect":
		return model.CategoryProspect
	case "lead":
		return model.CategoryLead
	default:
		return ""
	}
}
