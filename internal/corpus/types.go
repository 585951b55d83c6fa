package corpus

// Topic is an exam topic tag.
type Topic string

const (
	TopicLinear      Topic = "linear equations"
	TopicQuadratic   Topic = "quadratic equations"
	TopicRadical     Topic = "radical equations"
	TopicFractions   Topic = "fractions"
	TopicPercentages Topic = "percentages"
)

// AllTopics returns all topics in display order.
func AllTopics() []Topic {
	return []Topic{
		TopicLinear,
		TopicQuadratic,
		TopicRadical,
		TopicFractions,
		TopicPercentages,
	}
}

// Keywords returns the word stems used to recognise a topic in free text.
func (t Topic) Keywords() []string {
	switch t {
	case TopicLinear:
		return []string{"linear", "solve for", "one variable"}
	case TopicQuadratic:
		return []string{"quadratic", "factor", "parabola", "roots", "discriminant"}
	case TopicRadical:
		return []string{"radical", "square root", "sqrt", "extraneous"}
	case TopicFractions:
		return []string{"fraction", "numerator", "denominator", "reciprocal"}
	case TopicPercentages:
		return []string{"percent", "discount", "markup", "interest"}
	default:
		return nil
	}
}

// Step is one canonical unit of a reference solution. Result is written in
// the verifier's answer grammar.
type Step struct {
	Description string `json:"description" validate:"required"`
	Result      string `json:"result" validate:"required"`
	ConceptID   string `json:"concept_id,omitempty"`
}

// Problem is an immutable reference problem.
type Problem struct {
	ID          string    `json:"id" validate:"required"`
	Topic       Topic     `json:"topic" validate:"required"`
	Difficulty  int       `json:"difficulty" validate:"min=1,max=5"`
	Statement   string    `json:"statement" validate:"required"`
	Steps       []Step    `json:"steps" validate:"required,min=1,dive"`
	FinalAnswer string    `json:"final_answer" validate:"required"`
	ConceptIDs  []string  `json:"concept_ids" validate:"required,min=1,dive,required"`
	Pinned      bool      `json:"pinned,omitempty"`
	Embedding   []float32 `json:"-"`
}

// LastStep returns the index of the final canonical step.
func (p Problem) LastStep() int {
	return len(p.Steps) - 1
}

// ImplicatedConcept returns the concept a mistake at step i most likely
// points at: the step's own concept, else the problem's first concept.
func (p Problem) ImplicatedConcept(i int) string {
	if i >= 0 && i < len(p.Steps) && p.Steps[i].ConceptID != "" {
		return p.Steps[i].ConceptID
	}
	if len(p.ConceptIDs) > 0 {
		return p.ConceptIDs[0]
	}
	return ""
}

// Concept is an immutable node of the prerequisite graph.
type Concept struct {
	ID            string    `json:"id" validate:"required"`
	Name          string    `json:"name" validate:"required"`
	Prerequisites []string  `json:"prerequisites,omitempty"`
	Explanation   string    `json:"explanation" validate:"required"`
	Embedding     []float32 `json:"-"`
}

// Catalog is a problem and concept corpus.
type Catalog struct {
	Problems []Problem
	Concepts []Concept
}
