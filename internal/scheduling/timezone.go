// Package scheduling computes when queued emails go out: recipient timezone
// lookup, draft subject/body splitting and business-hour aware send times.
package scheduling

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// DefaultTimezone is returned for any country the table does not know.
const DefaultTimezone = "UTC"

// Keys shorter than minFuzzyKeyLen, such as "us" or "uk", only match a whole
// word of the input ("australia" contains "us").
const minFuzzyKeyLen = 4

var countryTimezones = map[string]string{
	"united states":            "America/New_York",
	"united states of america": "America/New_York",
	"usa":                      "America/New_York",
	"us":                       "America/New_York",
	"canada":                   "America/Toronto",
	"mexico":                   "America/Mexico_City",
	"brazil":                   "America/Sao_Paulo",
	"argentina":                "America/Argentina/Buenos_Aires",
	"chile":                    "America/Santiago",
	"colombia":                 "America/Bogota",
	"peru":                     "America/Lima",
	"united kingdom":           "Europe/London",
	"uk":                       "Europe/London",
	"great britain":            "Europe/London",
	"england":                  "Europe/London",
	"scotland":                 "Europe/London",
	"wales":                    "Europe/London",
	"ireland":                  "Europe/Dublin",
	"france":                   "Europe/Paris",
	"germany":                  "Europe/Berlin",
	"spain":                    "Europe/Madrid",
	"portugal":                 "Europe/Lisbon",
	"italy":                    "Europe/Rome",
	"netherlands":              "Europe/Amsterdam",
	"belgium":                  "Europe/Brussels",
	"switzerland":              "Europe/Zurich",
	"austria":                  "Europe/Vienna",
	"sweden":                   "Europe/Stockholm",
	"norway":                   "Europe/Oslo",
	"denmark":                  "Europe/Copenhagen",
	"finland":                  "Europe/Helsinki",
	"poland":                   "Europe/Warsaw",
	"czech republic":           "Europe/Prague",
	"greece":                   "Europe/Athens",
	"turkey":                   "Europe/Istanbul",
	"romania":                  "Europe/Bucharest",
	"ukraine":                  "Europe/Kyiv",
	"russia":                   "Europe/Moscow",
	"israel":                   "Asia/Jerusalem",
	"united arab emirates":     "Asia/Dubai",
	"uae":                      "Asia/Dubai",
	"saudi arabia":             "Asia/Riyadh",
	"qatar":                    "Asia/Qatar",
	"egypt":                    "Africa/Cairo",
	"nigeria":                  "Africa/Lagos",
	"kenya":                    "Africa/Nairobi",
	"south africa":             "Africa/Johannesburg",
	"morocco":                  "Africa/Casablanca",
	"ghana":                    "Africa/Accra",
	"india":                    "Asia/Kolkata",
	"pakistan":                 "Asia/Karachi",
	"bangladesh":               "Asia/Dhaka",
	"china":                    "Asia/Shanghai",
	"hong kong":                "Asia/Hong_Kong",
	"japan":                    "Asia/Tokyo",
	"south korea":              "Asia/Seoul",
	"singapore":                "Asia/Singapore",
	"malaysia":                 "Asia/Kuala_Lumpur",
	"indonesia":                "Asia/Jakarta",
	"philippines":              "Asia/Manila",
	"thailand":                 "Asia/Bangkok",
	"vietnam":                  "Asia/Ho_Chi_Minh",
	"australia":                "Australia/Sydney",
	"new zealand":              "Pacific/Auckland",
}

// fuzzyKeys holds the table keys longest first so "united states of america"
// wins over "united states".
var fuzzyKeys = func() []string {
	keys := make([]string, 0, len(countryTimezones))
	for k := range countryTimezones {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// ResolveTimezone maps a free-text country to an IANA timezone name. The city
// is accepted for future per-city refinement and is ignored today. Unknown
// input resolves to UTC.
func ResolveTimezone(country, city string) string {
	key := normalize(country)
	if key == "" {
		return DefaultTimezone
	}
	if tz, ok := countryTimezones[key]; ok {
		return tz
	}
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(key, func(r rune) bool { return !unicode.IsLetter(r) }) {
		words[w] = struct{}{}
	}
	for _, k := range fuzzyKeys {
		if len(k) < minFuzzyKeyLen {
			if _, ok := words[k]; ok {
				return countryTimezones[k]
			}
			continue
		}
		if strings.Contains(key, k) {
			return countryTimezones[k]
		}
	}
	return DefaultTimezone
}

// LoadLocation returns the location for name, or UTC if it cannot be loaded.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
