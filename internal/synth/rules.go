// Package synth produces plausible synthetic column values from column
// names and types.
package synth

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// Category is the semantic class a column name falls into.
type Category string

const (
	CategoryName     Category = "name"
	CategoryEmail    Category = "email"
	CategoryAddress  Category = "address"
	CategoryCompany  Category = "company"
	CategoryInternet Category = "internet"
	CategoryPayment  Category = "payment"
	CategoryPhone    Category = "phone"
	CategoryColor    Category = "color"
	CategoryTime     Category = "time"
	CategoryJob      Category = "job"
	CategoryLorem    Category = "lorem"
	CategoryDefault  Category = "default"
)

// Rule maps column names containing any of Keywords to a value generator.
type Rule struct {
	Category Category
	Keywords []string
	generate func(f *gofakeit.Faker, name string) string
}

// Matches reports whether the lowercased column name contains a keyword.
func (r Rule) Matches(lowerName string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(lowerName, k) {
			return true
		}
	}

	return false
}

// Rules is evaluated top to bottom and the first match wins, so a column
// like company_email is an email and phone_number is a card number.
var Rules = []Rule{
	{CategoryName, []string{"name", "fullname", "username"}, fullName},
	{CategoryEmail, []string{"email"}, email},
	{CategoryAddress, []string{"address", "street", "city", "state", "country", "zip", "postal"}, address},
	{CategoryCompany, []string{"company", "industry", "buzzword", "business"}, company},
	{CategoryInternet, []string{"domain", "ip", "mac"}, internet},
	{CategoryPayment, []string{"credit", "card", "number"}, payment},
	{CategoryPhone, []string{"phone"}, phone},
	{CategoryColor, []string{"color", "rgb", "hex"}, color},
	{CategoryTime, []string{"time", "zone"}, timeZone},
	{CategoryJob, []string{"job", "field", "position", "seniority", "title"}, job},
	{CategoryLorem, []string{"tweet", "text", "post", "comment", "review", "paragraph", "sentence", "word"}, lorem},
}

var defaultRule = Rule{Category: CategoryDefault, generate: word}

// Classify returns the category the generator picks for a column name.
func Classify(columnName string) Category {
	return match(strings.ToLower(columnName)).Category
}

func match(lowerName string) Rule {
	for _, r := range Rules {
		if r.Matches(lowerName) {
			return r
		}
	}

	return defaultRule
}

func fullName(f *gofakeit.Faker, _ string) string {
	return f.Name()
}

func email(f *gofakeit.Faker, _ string) string {
	return f.Email()
}

func address(f *gofakeit.Faker, name string) string {
	switch {
	case strings.Contains(name, "street"):
		return f.Street()
	case strings.Contains(name, "city"):
		return f.City()
	case strings.Contains(name, "state"):
		return f.State()
	case strings.Contains(name, "country"):
		return f.Country()
	case strings.Contains(name, "zip"), strings.Contains(name, "postal"):
		return f.Zip()
	}

	return fmt.Sprintf("%s, Apt. %d, %s %s, %s",
		f.Street(), f.Number(1, 999), f.City(), f.Zip(), f.Country())
}

func company(f *gofakeit.Faker, name string) string {
	switch {
	case strings.Contains(name, "company"):
		return f.Company()
	case strings.Contains(name, "industry"):
		return f.BS()
	case strings.Contains(name, "buzzword"):
		return f.BuzzWord()
	}

	return f.CompanySuffix()
}

func internet(f *gofakeit.Faker, name string) string {
	switch {
	case strings.Contains(name, "domain"):
		return f.DomainSuffix()
	case strings.Contains(name, "ip"):
		return f.IPv4Address()
	case strings.Contains(name, "mac"):
		return f.MacAddress()
	}

	return f.Username()
}

func payment(f *gofakeit.Faker, _ string) string {
	return f.CreditCardNumber(nil)
}

func phone(f *gofakeit.Faker, _ string) string {
	return f.Phone()
}

func color(f *gofakeit.Faker, name string) string {
	switch {
	case strings.Contains(name, "rgb"):
		c := f.RGBColor()
		return fmt.Sprintf("rgb(%d,%d,%d)", c[0], c[1], c[2])
	case strings.Contains(name, "hex"):
		return f.HexColor()
	}

	return f.Color()
}

func timeZone(f *gofakeit.Faker, name string) string {
	if strings.Contains(name, "zone") {
		return f.TimeZoneRegion()
	}

	return f.Word()
}

func job(f *gofakeit.Faker, name string) string {
	switch {
	case strings.Contains(name, "field"):
		return f.JobDescriptor()
	case strings.Contains(name, "position"):
		return f.JobTitle()
	case strings.Contains(name, "seniority"):
		return f.JobLevel()
	}

	return f.Word()
}

func lorem(f *gofakeit.Faker, name string) string {
	switch {
	case strings.Contains(name, "paragraph"), strings.Contains(name, "review"), strings.Contains(name, "post"):
		return f.LoremIpsumParagraph(1, 3, 12, " ")
	case strings.Contains(name, "sentence"), strings.Contains(name, "tweet"), strings.Contains(name, "comment"):
		return f.LoremIpsumSentence(8)
	}

	return f.Word()
}

func word(f *gofakeit.Faker, _ string) string {
	return f.Word()
}
