package dataset

import (
	"fmt"
	"math/rand"

	"github.com/m-mizutani/traject"
)

const (
	dataSourceToyMath = "toy_math"

	// Share of plain arithmetic problems; the rest are word problems.
	arithmeticRatio = 0.7
)

// Generator produces toy math problems: a mix of plain arithmetic and
// templated word problems.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator with a deterministic seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Generate produces n dataset records.
func (g *Generator) Generate(n int) []*Record {
	records := make([]*Record, 0, n)
	for i := 0; i < n; i++ {
		var problem, answer, kind string
		if g.rng.Float64() < arithmeticRatio {
			problem, answer = g.arithmeticProblem()
			kind = "arithmetic"
		} else {
			problem, answer = g.wordProblem()
			kind = "word_problem"
		}

		records = append(records, &Record{
			Prompt:      []traject.Message{traject.UserMessage(problem)},
			GroundTruth: answer,
			DataSource:  dataSourceToyMath,
			ExtraInfo: map[string]any{
				"problem_type": kind,
			},
		})
	}
	return records
}

func (g *Generator) arithmeticProblem() (string, string) {
	switch g.rng.Intn(4) {
	case 0:
		a, b := g.rng.Intn(100)+1, g.rng.Intn(100)+1
		return fmt.Sprintf("What is %d + %d?", a, b), fmt.Sprintf("%d", a+b)
	case 1:
		a, b := g.rng.Intn(100)+1, g.rng.Intn(50)+1
		return fmt.Sprintf("What is %d - %d?", a, b), fmt.Sprintf("%d", a-b)
	case 2:
		a, b := g.rng.Intn(20)+1, g.rng.Intn(20)+1
		return fmt.Sprintf("What is %d * %d?", a, b), fmt.Sprintf("%d", a*b)
	default:
		// Divisor and quotient first so the division is always exact.
		b := g.rng.Intn(9) + 2
		q := g.rng.Intn(10) + 1
		return fmt.Sprintf("What is %d / %d?", b*q, b), fmt.Sprintf("%d", q)
	}
}

type wordTemplate struct {
	format string
	gen    func(rng *rand.Rand) (int, int)
	solve  func(a, b int) int
}

var wordTemplates = []wordTemplate{
	{
		format: "If a train travels %d miles per hour for %d hours, how far does it travel?",
		gen: func(rng *rand.Rand) (int, int) {
			return rng.Intn(61) + 20, rng.Intn(5) + 1
		},
		solve: func(a, b int) int { return a * b },
	},
	{
		format: "Sarah has %d apples. She gives away %d apples. How many apples does she have left?",
		gen: func(rng *rand.Rand) (int, int) {
			return rng.Intn(41) + 10, rng.Intn(10) + 1
		},
		solve: func(a, b int) int { return a - b },
	},
	{
		format: "A store sells %d items for $%d each. How much money does the store make?",
		gen: func(rng *rand.Rand) (int, int) {
			return rng.Intn(16) + 5, rng.Intn(16) + 5
		},
		solve: func(a, b int) int { return a * b },
	},
	{
		format: "There are %d students in a class. %d are boys. How many are girls?",
		gen: func(rng *rand.Rand) (int, int) {
			return rng.Intn(21) + 20, rng.Intn(11) + 10
		},
		solve: func(a, b int) int { return a - b },
	},
}

func (g *Generator) wordProblem() (string, string) {
	tmpl := wordTemplates[g.rng.Intn(len(wordTemplates))]
	a, b := tmpl.gen(g.rng)
	return fmt.Sprintf(tmpl.format, a, b), fmt.Sprintf("%d", tmpl.solve(a, b))
}
