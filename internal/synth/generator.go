package synth

import (
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/kyleking/lernspark/internal/schema"
)

const (
	maxInt      = 100
	maxFloat    = 100.0
	maxDayShift = 100
)

// Generator draws column values. It is not safe for concurrent use.
type Generator struct {
	faker *gofakeit.Faker
}

// New returns a generator. A zero seed picks a random one; any other seed
// makes every value except UUIDs reproducible.
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Strings returns n values produced by the rule the column name selects.
func (g *Generator) Strings(columnName string, n int) []string {
	lower := strings.ToLower(columnName)
	rule := match(lower)

	out := make([]string, n)
	for i := range out {
		out[i] = rule.generate(g.faker, lower)
	}

	return out
}

// Values returns n values whose Go types match the column's storage type:
// int32 for Int and DateTime, float32 for Float, bool for Boolean and
// string for everything else.
func (g *Generator) Values(column schema.Column, n int) []any {
	out := make([]any, n)

	switch column.DataType.Kind {
	case schema.KindInt:
		for i := range out {
			out[i] = int32(g.faker.IntRange(0, maxInt))
		}
	case schema.KindFloat:
		for i := range out {
			out[i] = g.faker.Float32Range(0, maxFloat)
		}
	case schema.KindBoolean:
		for i := range out {
			out[i] = g.faker.Bool()
		}
	case schema.KindDateTime:
		// days after the epoch, not calendar aware
		for i := range out {
			out[i] = int32(g.faker.IntRange(0, maxDayShift))
		}
	case schema.KindUUID:
		for i := range out {
			out[i] = uuid.NewString()
		}
	default:
		for i, s := range g.Strings(column.Name, n) {
			out[i] = s
		}
	}

	return out
}

// IntRange draws uniformly from [lo, hi]. Callers use it for row and upload
// counts so a seeded generator reproduces those too.
func (g *Generator) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}

	return g.faker.IntRange(lo, hi)
}
