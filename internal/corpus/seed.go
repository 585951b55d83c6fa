package corpus

import "slices"

// Default returns the compiled-in exam corpus. Problems marked Pinned form
// the fallback set used when retrieval is unavailable.
func Default() Catalog {
	return Catalog{
		Problems: slices.Clone(seedProblems),
		Concepts: slices.Clone(seedConcepts),
	}
}

var seedConcepts = []Concept{
	{
		ID:          "arithmetic",
		Name:        "Arithmetic operations",
		Explanation: "Adding, subtracting, multiplying and dividing signed numbers, keeping track of the sign at every step.",
	},
	{
		ID:            "fraction-ops",
		Name:          "Fraction operations",
		Prerequisites: []string{"arithmetic"},
		Explanation:   "Fractions are added over a common denominator and divided by multiplying by the reciprocal.",
	},
	{
		ID:            "percent",
		Name:          "Percentages",
		Prerequisites: []string{"fraction-ops"},
		Explanation:   "A percent is a fraction of 100; a change of p% multiplies the original amount by (1 ± p/100).",
	},
	{
		ID:            "inverse-operations",
		Name:          "Inverse operations",
		Prerequisites: []string{"arithmetic"},
		Explanation:   "Undo addition with subtraction and multiplication with division, doing the same thing to both sides of the equation.",
	},
	{
		ID:            "distributive-property",
		Name:          "Distributive property",
		Prerequisites: []string{"arithmetic"},
		Explanation:   "a(b + c) = ab + ac; the factor outside multiplies every term inside, including its sign.",
	},
	{
		ID:            "like-terms",
		Name:          "Combining like terms",
		Prerequisites: []string{"distributive-property"},
		Explanation:   "Terms with the same variable part are added by adding their coefficients.",
	},
	{
		ID:            "linear-solving",
		Name:          "Solving linear equations",
		Prerequisites: []string{"inverse-operations", "like-terms"},
		Explanation:   "Collect variable terms on one side and constants on the other, then divide by the coefficient.",
	},
	{
		ID:            "square-roots",
		Name:          "Square roots",
		Prerequisites: []string{"arithmetic"},
		Explanation:   "Every positive number has two square roots, ±√a; √(ab) = √a·√b lets you pull perfect squares out of a radical.",
	},
	{
		ID:            "factoring",
		Name:          "Factoring quadratics",
		Prerequisites: []string{"distributive-property"},
		Explanation:   "x² + bx + c factors as (x + p)(x + q) when p + q = b and pq = c.",
	},
	{
		ID:            "zero-product",
		Name:          "Zero product property",
		Prerequisites: []string{"factoring"},
		Explanation:   "If a product is zero, at least one of its factors is zero, so each factor gives a solution.",
	},
	{
		ID:            "quadratic-formula",
		Name:          "Quadratic formula",
		Prerequisites: []string{"square-roots", "linear-solving"},
		Explanation:   "The solutions of ax² + bx + c = 0 are x = (-b ± √(b² - 4ac)) / 2a; b² - 4ac is the discriminant.",
	},
	{
		ID:            "squaring-both-sides",
		Name:          "Squaring both sides",
		Prerequisites: []string{"square-roots", "distributive-property"},
		Explanation:   "Square both sides to remove a radical; remember (a - b)² = a² - 2ab + b².",
	},
	{
		ID:            "extraneous-solutions",
		Name:          "Extraneous solutions",
		Prerequisites: []string{"squaring-both-sides"},
		Explanation:   "Squaring can introduce solutions that do not satisfy the original equation; substitute every candidate back in.",
	},
}

var seedProblems = []Problem{
	{
		ID:         "lin-001",
		Topic:      TopicLinear,
		Difficulty: 1,
		Statement:  "Solve 2x + 3 = 11.",
		Steps: []Step{
			{Description: "Subtract 3 from both sides.", Result: "2x = 8", ConceptID: "inverse-operations"},
			{Description: "Divide both sides by 2.", Result: "x = 4", ConceptID: "inverse-operations"},
		},
		FinalAnswer: "x = 4",
		ConceptIDs:  []string{"linear-solving", "inverse-operations"},
		Pinned:      true,
	},
	{
		ID:         "lin-002",
		Topic:      TopicLinear,
		Difficulty: 2,
		Statement:  "Solve 3(x - 2) = 2x + 5.",
		Steps: []Step{
			{Description: "Distribute the 3 on the left.", Result: "3x - 6 = 2x + 5", ConceptID: "distributive-property"},
			{Description: "Subtract 2x from both sides.", Result: "x - 6 = 5", ConceptID: "like-terms"},
			{Description: "Add 6 to both sides.", Result: "x = 11", ConceptID: "inverse-operations"},
		},
		FinalAnswer: "x = 11",
		ConceptIDs:  []string{"linear-solving", "distributive-property"},
	},
	{
		ID:         "lin-003",
		Topic:      TopicLinear,
		Difficulty: 2,
		Statement:  "Solve x/4 + 2 = 5.",
		Steps: []Step{
			{Description: "Subtract 2 from both sides.", Result: "x/4 = 3", ConceptID: "inverse-operations"},
			{Description: "Multiply both sides by 4.", Result: "x = 12", ConceptID: "inverse-operations"},
		},
		FinalAnswer: "x = 12",
		ConceptIDs:  []string{"linear-solving", "fraction-ops"},
	},
	{
		ID:         "lin-004",
		Topic:      TopicLinear,
		Difficulty: 3,
		Statement:  "Solve 5 - 2(x + 1) = 3x - 7.",
		Steps: []Step{
			{Description: "Distribute the -2 and combine the constants on the left.", Result: "3 - 2x = 3x - 7", ConceptID: "distributive-property"},
			{Description: "Collect x terms on one side.", Result: "10 = 5x", ConceptID: "linear-solving"},
			{Description: "Divide by 5.", Result: "x = 2", ConceptID: "inverse-operations"},
		},
		FinalAnswer: "x = 2",
		ConceptIDs:  []string{"linear-solving", "distributive-property", "like-terms"},
	},
	{
		ID:         "quad-000",
		Topic:      TopicQuadratic,
		Difficulty: 1,
		Statement:  "Solve x^2 = 49.",
		Steps: []Step{
			{Description: "Take the square root of 49.", Result: "7", ConceptID: "square-roots"},
			{Description: "Remember both the positive and negative root.", Result: "x = 7 or x = -7", ConceptID: "square-roots"},
		},
		FinalAnswer: "x = -7 or x = 7",
		ConceptIDs:  []string{"square-roots"},
		Pinned:      true,
	},
	{
		ID:         "quad-001",
		Topic:      TopicQuadratic,
		Difficulty: 2,
		Statement:  "Solve x^2 - 5x + 6 = 0.",
		Steps: []Step{
			{Description: "Find two numbers whose product is 6 and whose sum is -5.", Result: "-2 and -3", ConceptID: "factoring"},
			{Description: "Write the factored form.", Result: "(x - 2)(x - 3) = 0", ConceptID: "factoring"},
			{Description: "Set each factor to zero.", Result: "x = 2 or x = 3", ConceptID: "zero-product"},
		},
		FinalAnswer: "x = 2 or x = 3",
		ConceptIDs:  []string{"factoring", "zero-product"},
	},
	{
		ID:         "quad-002",
		Topic:      TopicQuadratic,
		Difficulty: 3,
		Statement:  "Solve x^2 + 2x - 15 = 0.",
		Steps: []Step{
			{Description: "Find two numbers whose product is -15 and whose sum is 2.", Result: "5 and -3", ConceptID: "factoring"},
			{Description: "Write the factored form.", Result: "(x + 5)(x - 3) = 0", ConceptID: "factoring"},
			{Description: "Set each factor to zero.", Result: "x = -5 or x = 3", ConceptID: "zero-product"},
		},
		FinalAnswer: "x = -5 or x = 3",
		ConceptIDs:  []string{"factoring", "zero-product"},
	},
	{
		ID:         "quad-003",
		Topic:      TopicQuadratic,
		Difficulty: 4,
		Statement:  "Solve x^2 - 4x + 1 = 0 using the quadratic formula.",
		Steps: []Step{
			{Description: "Compute the discriminant b^2 - 4ac.", Result: "12", ConceptID: "quadratic-formula"},
			{Description: "Simplify the square root of the discriminant.", Result: "2sqrt(3)", ConceptID: "square-roots"},
			{Description: "Apply the formula and simplify.", Result: "x = 2 ± sqrt(3)", ConceptID: "quadratic-formula"},
		},
		FinalAnswer: "x = 2 + sqrt(3) or x = 2 - sqrt(3)",
		ConceptIDs:  []string{"quadratic-formula", "square-roots"},
	},
	{
		ID:         "rad-001",
		Topic:      TopicRadical,
		Difficulty: 3,
		Statement:  "Solve sqrt(x + 3) = x - 3.",
		Steps: []Step{
			{Description: "Square both sides.", Result: "x + 3 = x^2 - 6x + 9", ConceptID: "squaring-both-sides"},
			{Description: "Move everything to one side.", Result: "x^2 - 7x + 6 = 0", ConceptID: "like-terms"},
			{Description: "Solve and reject the extraneous root.", Result: "x = 6", ConceptID: "extraneous-solutions"},
		},
		FinalAnswer: "x = 6",
		ConceptIDs:  []string{"squaring-both-sides", "extraneous-solutions"},
		Pinned:      true,
	},
	{
		ID:         "rad-002",
		Topic:      TopicRadical,
		Difficulty: 4,
		Statement:  "Solve sqrt(2x + 1) = x - 1.",
		Steps: []Step{
			{Description: "Square both sides.", Result: "2x + 1 = x^2 - 2x + 1", ConceptID: "squaring-both-sides"},
			{Description: "Move everything to one side.", Result: "x^2 - 4x = 0", ConceptID: "like-terms"},
			{Description: "Solve and reject the extraneous root.", Result: "x = 4", ConceptID: "extraneous-solutions"},
		},
		FinalAnswer: "x = 4",
		ConceptIDs:  []string{"squaring-both-sides", "extraneous-solutions"},
	},
	{
		ID:         "frac-001",
		Topic:      TopicFractions,
		Difficulty: 1,
		Statement:  "Compute 1/2 + 1/3.",
		Steps: []Step{
			{Description: "Find the least common denominator.", Result: "6", ConceptID: "fraction-ops"},
			{Description: "Rewrite both fractions over 6 and add.", Result: "5/6", ConceptID: "fraction-ops"},
		},
		FinalAnswer: "5/6",
		ConceptIDs:  []string{"fraction-ops"},
		Pinned:      true,
	},
	{
		ID:         "frac-002",
		Topic:      TopicFractions,
		Difficulty: 2,
		Statement:  "Compute (3/4) ÷ (1/2).",
		Steps: []Step{
			{Description: "Take the reciprocal of the divisor.", Result: "2", ConceptID: "fraction-ops"},
			{Description: "Multiply 3/4 by the reciprocal.", Result: "3/2", ConceptID: "fraction-ops"},
		},
		FinalAnswer: "1.5",
		ConceptIDs:  []string{"fraction-ops"},
	},
	{
		ID:         "frac-003",
		Topic:      TopicFractions,
		Difficulty: 3,
		Statement:  "Compute 2/3 × 9/4 - 1/2.",
		Steps: []Step{
			{Description: "Multiply the two fractions and simplify.", Result: "3/2", ConceptID: "fraction-ops"},
			{Description: "Subtract 1/2.", Result: "1", ConceptID: "arithmetic"},
		},
		FinalAnswer: "1",
		ConceptIDs:  []string{"fraction-ops", "arithmetic"},
	},
	{
		ID:         "pct-001",
		Topic:      TopicPercentages,
		Difficulty: 1,
		Statement:  "A jacket costs $80 and is discounted by 25%. What is the sale price in dollars?",
		Steps: []Step{
			{Description: "Compute 25% of 80.", Result: "20", ConceptID: "percent"},
			{Description: "Subtract the discount from the original price.", Result: "60", ConceptID: "arithmetic"},
		},
		FinalAnswer: "60",
		ConceptIDs:  []string{"percent"},
		Pinned:      true,
	},
	{
		ID:         "pct-002",
		Topic:      TopicPercentages,
		Difficulty: 2,
		Statement:  "A price rises from $50 to $65. What is the percent increase?",
		Steps: []Step{
			{Description: "Find the amount of the increase.", Result: "15", ConceptID: "arithmetic"},
			{Description: "Divide the increase by the original price and express it as a percent.", Result: "30%", ConceptID: "percent"},
		},
		FinalAnswer: "0.3",
		ConceptIDs:  []string{"percent", "fraction-ops"},
	},
}
