package crf

// Evaluation accumulates per-position decoding results against gold labels.
type Evaluation struct {
	Labels    *Alphabet
	Correct   int
	Total     int
	Confusion map[int]map[int]int // gold -> predicted -> count
}

// NewEvaluation creates an empty evaluation over a label alphabet.
func NewEvaluation(labels *Alphabet) *Evaluation {
	return &Evaluation{
		Labels:    labels,
		Confusion: make(map[int]map[int]int),
	}
}

// Add records one decoded sequence. Positions past the shorter slice are
// ignored.
func (e *Evaluation) Add(gold, pred []int) {
	for t := range min(len(gold), len(pred)) {
		g, p := gold[t], pred[t]
		if e.Confusion[g] == nil {
			e.Confusion[g] = make(map[int]int)
		}
		e.Confusion[g][p]++
		e.Total++
		if g == p {
			e.Correct++
		}
	}
}

// Merge adds the counts of other into e.
func (e *Evaluation) Merge(other *Evaluation) {
	for g, row := range other.Confusion {
		if e.Confusion[g] == nil {
			e.Confusion[g] = make(map[int]int)
		}
		for p, n := range row {
			e.Confusion[g][p] += n
		}
	}
	e.Correct += other.Correct
	e.Total += other.Total
}

// Accuracy returns the fraction of correctly labeled positions.
func (e *Evaluation) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total)
}

// LabelScore holds precision, recall and F1 of one label.
type LabelScore struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Scores returns per-label scores in label ID order.
func (e *Evaluation) Scores() []LabelScore {
	var scores []LabelScore
	for id, label := range e.Labels.Tokens() {
		tp := e.Confusion[id][id]
		var goldN, predN int
		for _, n := range e.Confusion[id] {
			goldN += n
		}
		for _, row := range e.Confusion {
			predN += row[id]
		}
		s := LabelScore{Label: label, Support: goldN}
		if predN > 0 {
			s.Precision = float64(tp) / float64(predN)
		}
		if goldN > 0 {
			s.Recall = float64(tp) / float64(goldN)
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		scores = append(scores, s)
	}
	return scores
}

// Test decodes every sequence of corpus with m and scores it against the
// gold labels.
func Test(m Model, corpus *Corpus) *Evaluation {
	e := NewEvaluation(m.Params().Labels)
	for _, seq := range corpus.Sequences {
		e.Add(seq.Labels(), m.Predict(seq))
	}
	return e
}
