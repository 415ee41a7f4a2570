// Package fieldgen implements the Field Generator (spec.md §4.A): a pure
// function from (descriptor, context) to a model.Value.
//
// spec.md §9 calls out the source's runtime attribute-based faker lookup
// as a pattern requiring re-architecture: "replace with an explicit
// registry: a map from method name to a function implementing that
// generator. Unknown names fail at Init, not per record." The registry
// below, and its per-field-name string generators, are grounded on
// mcolomerc-pipegen's generateStringValue — the only generator in the
// example pack that produces realistic-looking field values from a
// field's declared name — generalized here from AVRO-field-name
// dispatch to faker-method dispatch.
package fieldgen

import (
	"fmt"
	"math/rand"
)

// FakerFunc produces one realistic-data value for a method invocation.
// seq is the entity's current monotonic counter, supplied so faker
// methods can vary deterministically with record position if useful.
type FakerFunc func(seq int64) string

var registry = map[string]FakerFunc{
	"name":           fakerName,
	"email":          fakerEmail,
	"phone_number":   fakerPhoneNumber,
	"street_address": fakerStreetAddress,
	"city":           fakerCity,
	"postcode":       fakerPostcode,
	"country_code":   fakerCountryCode,
	"iso8601":        fakerISO8601,
	"company":        fakerCompany,
	"first_name":     fakerFirstName,
	"last_name":      fakerLastName,
	"currency_code":  fakerCurrencyCode,
	"ipv4":           fakerIPv4,
	"user_agent":     fakerUserAgent,
}

// KnownMethod reports whether method is registered. The Entity Generator
// (or its Init-time validator) uses this to fail with ConfigError at
// startup rather than at record time, per spec.md §4.A.
func KnownMethod(method string) bool {
	_, ok := registry[method]
	return ok
}

// Invoke calls the registered faker method, or returns an error for an
// unregistered name — callers are expected to have already validated
// with KnownMethod at Init, so this path should be unreachable in
// practice.
func Invoke(method string, seq int64) (string, error) {
	fn, ok := registry[method]
	if !ok {
		return "", fmt.Errorf("unknown faker method %q", method)
	}
	return fn(seq), nil
}

var firstNames = []string{"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda", "William", "Elizabeth"}
var lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
var streetNames = []string{"Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Elm St", "Washington Ave", "Park Rd", "Lake St"}
var cities = []string{"Springfield", "Franklin", "Greenville", "Clinton", "Madison", "Georgetown", "Arlington", "Salem"}
var countryCodes = []string{"US", "CA", "GB", "DE", "FR", "AU", "JP", "BR"}
var companySuffixes = []string{"Inc", "LLC", "Group", "Partners", "Holdings", "Co"}
var companyWords = []string{"Acme", "Globex", "Initech", "Umbrella", "Stark", "Wayne", "Hooli", "Soylent"}
var currencyCodes = []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "CNY"}
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
}

func fakerName(_ int64) string {
	return firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))]
}

func fakerEmail(seq int64) string {
	return fmt.Sprintf("user%d@example.com", seq)
}

func fakerPhoneNumber(_ int64) string {
	return fmt.Sprintf("+1-%03d-%03d-%04d", rand.Intn(900)+100, rand.Intn(900)+100, rand.Intn(9000)+1000)
}

func fakerStreetAddress(_ int64) string {
	return fmt.Sprintf("%d %s", rand.Intn(9000)+100, streetNames[rand.Intn(len(streetNames))])
}

func fakerCity(_ int64) string {
	return cities[rand.Intn(len(cities))]
}

func fakerPostcode(_ int64) string {
	return fmt.Sprintf("%05d", rand.Intn(100000))
}

func fakerCountryCode(_ int64) string {
	return countryCodes[rand.Intn(len(countryCodes))]
}

func fakerISO8601(_ int64) string {
	return nowISO8601()
}

func fakerCompany(_ int64) string {
	return fmt.Sprintf("%s %s", companyWords[rand.Intn(len(companyWords))], companySuffixes[rand.Intn(len(companySuffixes))])
}

func fakerFirstName(_ int64) string {
	return firstNames[rand.Intn(len(firstNames))]
}

func fakerLastName(_ int64) string {
	return lastNames[rand.Intn(len(lastNames))]
}

func fakerCurrencyCode(_ int64) string {
	return currencyCodes[rand.Intn(len(currencyCodes))]
}

func fakerIPv4(_ int64) string {
	return fmt.Sprintf("%d.%d.%d.%d", rand.Intn(256), rand.Intn(256), rand.Intn(256), rand.Intn(256))
}

func fakerUserAgent(_ int64) string {
	return userAgents[rand.Intn(len(userAgents))]
}
