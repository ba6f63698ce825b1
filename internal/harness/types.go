package harness

// EventRecord is one emitted change event with entities shown by name.
type EventRecord struct {
	Seq        int64  `json:"seq"`
	FlushToken string `json:"flush_token"`
	Relation   string `json:"relation"`
	Kind       string `json:"kind"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// TraceEvent records one executed step.
type TraceEvent struct {
	Step       int      `json:"step"`
	Op         string   `json:"op"`
	Entity     string   `json:"entity,omitempty"`
	Side       string   `json:"side,omitempty"`
	Peers      []string `json:"peers,omitempty"`
	FlushToken string   `json:"flush_token,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Events contains every change event in emission order.
	Events []EventRecord `json:"events"`

	// State maps side name to entity name to the record's peers, after the
	// last step.
	State map[string]map[string][]string `json:"state"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Events: []EventRecord{},
		State:  make(map[string]map[string][]string),
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// EventsFor returns the events of one relation, in emission order.
func (r *Result) EventsFor(relation string) []EventRecord {
	var out []EventRecord
	for _, ev := range r.Events {
		if ev.Relation == relation {
			out = append(out, ev)
		}
	}
	return out
}
