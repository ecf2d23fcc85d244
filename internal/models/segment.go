package models

// Segment is one time-bounded unit of transcribed speech placed on the
// global video timeline. Start/End are seconds; RelevanceScore is zero
// until the ranker annotates the batch.
type Segment struct {
	Start          float64 `bson:"start" json:"start"`
	End            float64 `bson:"end" json:"end"`
	Text           string  `bson:"text" json:"text"`
	Confidence     float64 `bson:"confidence,omitempty" json:"confidence,omitempty"`
	RelevanceScore float64 `bson:"relevance_score,omitempty" json:"relevance_score,omitempty"`
}
