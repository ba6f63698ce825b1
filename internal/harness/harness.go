package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/multierr"

	"github.com/roach88/relsync/internal/compiler"
	"github.com/roach88/relsync/internal/ecs"
	"github.com/roach88/relsync/internal/event"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/relation"
	"github.com/roach88/relsync/internal/testutil"
)

// declared marks relations built at run time from CUE declarations. Every
// scenario relation shares it; relations are told apart by name.
type declared struct{}

// Harness is the scenario execution engine.
// It runs one scenario in a fresh world with deterministic flush tokens.
type Harness struct {
	world     *ecs.World
	relations []*relation.Relation[declared]
	sides     map[string]*relation.Side[declared]
	entities  map[string]ecs.Entity
	names     map[ecs.Entity]string
	recorder  *event.MemoryRecorder
	tokens    *trackingTokens
	logger    *slog.Logger
}

// trackingTokens remembers the last token it handed out so each flush step
// can be traced with its token.
type trackingTokens struct {
	gen  ecs.TokenGenerator
	last string
}

func (t *trackingTokens) Generate() string {
	t.last = t.gen.Generate()
	return t.last
}

// teeRecorder forwards every record to each recorder in turn.
type teeRecorder []event.Recorder

func (t teeRecorder) Record(ctx context.Context, rec event.Record) error {
	var errs error
	for _, r := range t {
		errs = multierr.Append(errs, r.Record(ctx, rec))
	}
	return errs
}

// Option configures a run.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	maxSteps int
	maxDepth int
	recorder event.Recorder
	tokens   ecs.TokenGenerator
	clock    *ecs.Clock
}

// WithLogger routes world and harness logs to logger.
// Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxSteps overrides the per-flush step quota.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// WithMaxCascadeDepth overrides the cascade depth guard.
func WithMaxCascadeDepth(n int) Option {
	return func(o *options) {
		o.maxDepth = n
	}
}

// WithRecorder tees every change event to rec in addition to the
// in-memory record the assertions read.
func WithRecorder(rec event.Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

// WithTokenGenerator replaces the numbered "flush-N" tokens.
func WithTokenGenerator(gen ecs.TokenGenerator) Option {
	return func(o *options) {
		o.tokens = gen
	}
}

// WithClock starts the world's logical clock at c instead of zero.
func WithClock(c *ecs.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// LoadRelations compiles the scenario's CUE declarations.
func LoadRelations(scenario *Scenario) ([]ir.RelationSpec, error) {
	src := []byte(scenario.Declarations)
	filename := scenario.Name + ".cue"
	if scenario.Relations != "" {
		data, err := os.ReadFile(scenario.Relations)
		if err != nil {
			return nil, fmt.Errorf("read relations: %w", err)
		}
		src, filename = data, scenario.Relations
	}

	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	specs, err := compiler.CompileRelations(v)
	if err != nil {
		return nil, fmt.Errorf("compile relations: %w", err)
	}
	return specs, nil
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Compile the relation declarations and register them on a fresh world
//  2. Spawn the declared entities
//  3. Execute steps, recording step errors that were not expected
//  4. Snapshot events and final records
//  5. Evaluate assertions
//
// An error is returned only when the scenario cannot be set up; failed
// steps and assertions are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{
		logger:   testutil.DiscardLogger(),
		maxSteps: ecs.DefaultMaxSteps,
		maxDepth: ecs.DefaultMaxCascadeDepth,
		tokens:   testutil.NewSequentialTokens("flush"),
		clock:    ecs.NewClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	specs, err := LoadRelations(scenario)
	if err != nil {
		return nil, err
	}

	tokens := &trackingTokens{gen: o.tokens}
	h := &Harness{
		world: ecs.NewWorld(
			ecs.WithTokenGenerator(tokens),
			ecs.WithClock(o.clock),
			ecs.WithLogger(o.logger),
			ecs.WithMaxSteps(o.maxSteps),
			ecs.WithMaxCascadeDepth(o.maxDepth),
		),
		sides:    make(map[string]*relation.Side[declared]),
		entities: make(map[string]ecs.Entity),
		names:    make(map[ecs.Entity]string),
		recorder: &event.MemoryRecorder{},
		tokens:   tokens,
		logger:   o.logger,
	}

	for _, spec := range specs {
		rel, err := relation.Build[declared](spec)
		if err != nil {
			return nil, err
		}
		if err := relation.Register(h.world, rel); err != nil {
			return nil, err
		}
		var rec event.Recorder = h.recorder
		if o.recorder != nil {
			rec = teeRecorder{h.recorder, o.recorder}
		}
		event.Register[declared](h.world, rel.Name(), event.WithRecorder(rec))
		h.relations = append(h.relations, rel)
		for _, side := range rel.Sides() {
			h.sides[side.Name()] = side
		}
	}

	for _, name := range scenario.Entities {
		h.spawn(name)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	result.Events = h.events()
	result.State = h.state()

	actx := &AssertionContext{
		Sides:      h.sideNames(),
		Consistent: h.consistent,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) spawn(name string) {
	e := h.world.Spawn()
	h.entities[name] = e
	h.names[e] = name
}

// executeStep runs one step and checks it against its expect_error clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	trace := TraceEvent{Step: i, Op: step.Op, Entity: step.Entity, Side: step.Side, Peers: step.Peers}

	err := h.apply(ctx, step, &trace)
	if err != nil {
		trace.Error = err.Error()
	}
	result.Trace = append(result.Trace, trace)

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s): %v", i, step.Op, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got none", i, step.Op, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got %v", i, step.Op, step.ExpectError, err))
	}

	h.logger.Debug("scenario step completed",
		"step", i,
		"op", step.Op,
		"entity", step.Entity,
		"side", step.Side,
		"pending", h.world.Pending(),
	)
}

func (h *Harness) apply(ctx context.Context, step Step, trace *TraceEvent) error {
	switch step.Op {
	case OpFlush:
		err := h.world.Flush(ctx)
		trace.FlushToken = h.tokens.last
		return err
	case OpSpawn:
		h.spawn(step.Entity)
		return nil
	}

	e, err := h.entity(step.Entity)
	if err != nil {
		return err
	}
	if step.Op == OpDespawn {
		h.world.Despawn(e)
		return nil
	}

	side, ok := h.sides[step.Side]
	if !ok {
		return fmt.Errorf("unknown side %q", step.Side)
	}
	peers := make([]ecs.Entity, 0, len(step.Peers))
	for _, name := range step.Peers {
		p, err := h.entity(name)
		if err != nil {
			return err
		}
		peers = append(peers, p)
	}

	switch step.Op {
	case OpInsert:
		return relation.Insert(h.world, e, side, peers...)
	case OpAdd:
		return relation.Add(h.world, e, side, peers...)
	case OpDiscard:
		return relation.Discard(h.world, e, side, peers...)
	case OpRemove:
		return relation.Remove(h.world, e, side)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) entity(name string) (ecs.Entity, error) {
	e, ok := h.entities[name]
	if !ok {
		return ecs.Entity{}, fmt.Errorf("unknown entity %q", name)
	}
	return e, nil
}

// name returns the scenario name of e, falling back to its id.
func (h *Harness) name(e ecs.Entity) string {
	if n, ok := h.names[e]; ok {
		return n
	}
	return e.String()
}

func (h *Harness) nameAll(es []ecs.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = h.name(e)
	}
	return out
}

func (h *Harness) events() []EventRecord {
	recs := h.recorder.Records()
	out := make([]EventRecord, len(recs))
	for i, rec := range recs {
		out[i] = EventRecord{
			Seq:        rec.Seq,
			FlushToken: rec.FlushToken,
			Relation:   rec.Relation,
			Kind:       rec.Kind,
			From:       h.name(rec.From),
			To:         h.name(rec.To),
		}
	}
	return out
}

func (h *Harness) state() map[string]map[string][]string {
	state := make(map[string]map[string][]string)
	for _, rel := range h.relations {
		for _, side := range rel.Sides() {
			records := make(map[string][]string)
			relation.Each(h.world, side, func(e ecs.Entity, rec *relation.Related[declared]) {
				records[h.name(e)] = h.nameAll(rec.Entities())
			})
			state[side.Name()] = records
		}
	}
	return state
}

// consistent checks the mirror invariant for every relation.
func (h *Harness) consistent() error {
	var errs error
	for _, rel := range h.relations {
		errs = multierr.Append(errs, relation.Consistent(h.world, rel))
	}
	if n := h.world.Pending(); n > 0 {
		errs = multierr.Append(errs, fmt.Errorf("%d mirror commands still pending", n))
	}
	return errs
}

// sideNames returns every declared side name, sorted.
func (h *Harness) sideNames() []string {
	out := make([]string, 0, len(h.sides))
	for name := range h.sides {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
