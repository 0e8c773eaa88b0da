package domain

import "time"

type DecisionType string

const (
	DecisionTypePersonal DecisionType = "personal"
	DecisionTypeTeam     DecisionType = "team"
)

type WasCorrect string

const (
	WasCorrectYes WasCorrect = "yes"
	WasCorrectNo  WasCorrect = "no"
)

// Decision is a single logged decision. The collection is serialized
// wholesale to the key-value store, so the JSON tags here are the durable
// storage schema as well as the API representation.
type Decision struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"userId"`
	UserName    string       `json:"userName"`
	Title       string       `json:"title"`
	Type        DecisionType `json:"type"`
	Situation   string       `json:"situation"`
	Options     []Option     `json:"options"`
	// FinalChoice is free text and is not required to match any option name.
	FinalChoice   string         `json:"finalChoice"`
	Criteria      Criteria       `json:"criteria"`
	Retrospective *Retrospective `json:"retrospective"`
	DecisionDate  time.Time      `json:"decisionDate"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Option is one considered alternative.
type Option struct {
	Name  string `json:"name"`
	Pros  string `json:"pros"`
	Cons  string `json:"cons"`
	Risks string `json:"risks"`
}

// Criteria holds the four scoring dimensions, each in [0,5].
type Criteria struct {
	Speed          int `json:"speed"`
	Cost           int `json:"cost"`
	Scalability    int `json:"scalability"`
	TeamCapability int `json:"teamCapability"`
}

// Retrospective is the follow-up evaluation of a decision's outcome.
// Absent (nil) until the owner records one.
type Retrospective struct {
	ActualResult string     `json:"actualResult"`
	WasCorrect   WasCorrect `json:"wasCorrect"`
	Improvements string     `json:"improvements"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Stats summarizes a set of decisions.
type Stats struct {
	Total             int `json:"total"`
	Personal          int `json:"personal"`
	Team              int `json:"team"`
	WithRetrospective int `json:"withRetrospective"`
}
