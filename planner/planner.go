// Package planner implements the classifier pipeline of spec §4.5: it
// walks a parsed segment list, decides which functions push down to a
// connector and which run on the platform, validates GROUP BY soundness,
// and emits a Plan the execution engine runs directly. Each stage is
// fallible and short-circuits with a qerr tagged with its own stage name.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/exp/slices"

	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/qerr"
	"github.com/fedsql/fedsql/registry"
)

// PlanStep is one entry of the query-plan introspection trail exposed via
// get_query_plan (spec §6.1), recording a human-readable account of a
// planning decision.
type PlanStep struct {
	Stage  string
	Detail string
}

// JoinSpec carries a prepared JOIN's type and ON clause through to the
// engine's join stage.
type JoinSpec struct {
	Type   ast.JoinType
	Clause ast.BinaryClause
}

// ResourcePlan is one resource (the base SELECT resource, or the single
// JOIN resource) together with the attributes the engine must fetch for
// it. Merge is nil for the base resource.
type ResourcePlan struct {
	Alias      string
	Resource   ast.Resource
	Attributes []connector.Attribute
	Merge      *JoinSpec
}

// FuncPlan is one function call from the SELECT list after classification:
// either pushed down to a single source connector, or left for platform
// evaluation.
type FuncPlan struct {
	Call     ast.FuncCall
	Pushdown bool
	Src      string // source alias, only meaningful when Pushdown
	Rendered string // connector-rendered fragment, only meaningful when Pushdown
}

func (f FuncPlan) header() string {
	if f.Call.Alias != nil {
		return *f.Call.Alias
	}
	return f.Call.Ident
}

// ProjectionEntry is one column of the final (non-aggregated) output, in
// SELECT declaration order.
type ProjectionEntry struct {
	Ordinal   int
	IsStar    bool
	StarSrc   string
	IsFunc    bool
	Func      FuncPlan
	Src       string
	Field     string
	UserAlias string
}

func (p ProjectionEntry) Header() string {
	if p.UserAlias != "" {
		return p.UserAlias
	}
	if p.IsFunc {
		return p.Func.header()
	}
	return p.Field
}

// AggregationPlan replaces ProjectionEntry-based output whenever the
// SELECT list contains at least one aggregate call (spec §4.6.7). With a
// GroupKey, output is [group value, agg1, ..., aggN]; without one, the
// whole row set is one group and output is just the aggregate values, in
// SELECT declaration order.
type AggregationPlan struct {
	GroupKey       ast.AttrRef
	GroupKeyHeader string
	Aggregates     []FuncPlan
}

// Plan is the complete, engine-ready description of one query.
type Plan struct {
	Resources        []ResourcePlan
	Where            *ast.Where
	OrderBy          *ast.OrderBy
	Limit            *ast.Limit
	ScalarPlatform   []FuncPlan // scalar/varargs calls evaluated on the platform, declaration order
	Aggregation      *AggregationPlan
	Projection       []ProjectionEntry // used only when Aggregation is nil
	Steps            []PlanStep
}

type fieldKey struct{ src, field string }

// attrSet accumulates the attributes one resource needs fetched, in first-
// seen order, deduplicated by field name.
type attrSet struct {
	star     bool
	fields   []string
	fieldSet map[string]bool
	funcs    []FuncPlan
}

func newAttrSet() *attrSet { return &attrSet{fieldSet: map[string]bool{}} }

func (s *attrSet) addField(name string) {
	if s.fieldSet[name] {
		return
	}
	s.fieldSet[name] = true
	s.fields = append(s.fields, name)
}

func (s *attrSet) addStar() { s.star = true }

func (s *attrSet) toAttributes() []connector.Attribute {
	var attrs []connector.Attribute
	if s.star {
		attrs = append(attrs, connector.Attribute{Star: true})
	}
	for _, f := range s.fields {
		attrs = append(attrs, connector.Attribute{Field: f})
	}
	for _, fp := range s.funcs {
		attrs = append(attrs, connector.Attribute{Rendered: fp.Rendered, Ident: fp.Call.Ident, IsFunction: true})
	}
	return attrs
}

// BuildPlan runs the full classifier pipeline over a parsed segment list.
func BuildPlan(segments []ast.Segment, reg *registry.Registry) (*Plan, error) {
	p := &builder{reg: reg}
	return p.run(segments)
}

type builder struct {
	reg       *registry.Registry
	resources map[string]ast.Resource // alias -> resource
	order     []string                // resource alias declaration order
	attrs     map[string]*attrSet
	plan      *Plan
}

func (b *builder) step(stage, detail string) {
	b.plan.Steps = append(b.plan.Steps, PlanStep{Stage: stage, Detail: detail})
}

func (b *builder) run(segments []ast.Segment) (*Plan, error) {
	sel, err := b.preValidate(segments)
	if err != nil {
		return nil, err
	}
	b.resources = map[string]ast.Resource{}
	b.attrs = map[string]*attrSet{}
	b.plan = &Plan{}

	var funcPlans []FuncPlan
	var projection []ProjectionEntry
	if err := b.extractSelectFields(sel, &funcPlans, &projection); err != nil {
		return nil, err
	}

	var join *ast.Join
	var where *ast.Where
	var groupBy *ast.GroupBy
	var orderBy *ast.OrderBy
	var limit *ast.Limit
	for _, seg := range segments[1:] {
		switch s := seg.(type) {
		case *ast.Join:
			if join != nil {
				return nil, qerr.WithStage("extract-segment-fields", qerr.E(qerr.ValidationError, "at most one JOIN segment is supported"))
			}
			join = s
		case *ast.Where:
			where = s
		case *ast.GroupBy:
			groupBy = s
		case *ast.OrderBy:
			orderBy = s
		case *ast.Limit:
			limit = s
		}
	}

	if err := b.extractSegmentFields(join, where, groupBy, orderBy); err != nil {
		return nil, err
	}
	if err := b.validateDataSources(); err != nil {
		return nil, err
	}
	if err := b.classifyFunctions(funcPlans); err != nil {
		return nil, err
	}
	if err := b.validateGroupBy(projection, funcPlans, groupBy); err != nil {
		return nil, err
	}
	b.extractFunctionParamFields(funcPlans)

	b.plan.Where = where
	b.plan.OrderBy = orderBy
	b.plan.Limit = limit
	for _, fp := range funcPlans {
		if fp.Call.Kind == ast.AggregateFunc {
			continue
		}
		if !fp.Pushdown {
			b.plan.ScalarPlatform = append(b.plan.ScalarPlatform, fp)
		} else {
			b.attrs[fp.Src].funcs = append(b.attrs[fp.Src].funcs, fp)
		}
	}

	hasAggregate := false
	for _, fp := range funcPlans {
		if fp.Call.Kind == ast.AggregateFunc {
			hasAggregate = true
			break
		}
	}
	if hasAggregate {
		agg := &AggregationPlan{}
		if groupBy != nil {
			agg.GroupKey = groupBy.Attr
			agg.GroupKeyHeader = attrHeader(groupBy.Attr)
		}
		for _, fp := range funcPlans {
			if fp.Call.Kind == ast.AggregateFunc {
				agg.Aggregates = append(agg.Aggregates, fp)
			}
		}
		b.plan.Aggregation = agg
	} else {
		b.plan.Projection = projection
	}

	b.prepareResources(join)
	return b.plan, nil
}

func attrHeader(attr ast.AttrRef) string {
	switch v := attr.(type) {
	case ast.AliasRef:
		return v.Alias
	case ast.FieldRef:
		return v.Field
	}
	return ""
}

func (b *builder) preValidate(segments []ast.Segment) (*ast.Select, error) {
	if len(segments) == 0 {
		return nil, qerr.WithStage("pre-validate", qerr.E(qerr.ValidationError, "empty query"))
	}
	sel, ok := segments[0].(*ast.Select)
	if !ok {
		return nil, qerr.WithStage("pre-validate", qerr.E(qerr.ValidationError, "first segment must be SELECT"))
	}
	return sel, nil
}

func (b *builder) extractSelectFields(sel *ast.Select, funcPlans *[]FuncPlan, projection *[]ProjectionEntry) error {
	b.resources[sel.Resource.Alias] = sel.Resource
	b.order = append(b.order, sel.Resource.Alias)
	b.attrs[sel.Resource.Alias] = newAttrSet()

	for i, f := range sel.Fields {
		switch v := f.(type) {
		case ast.Field:
			b.ensureField(v.Src, v.Field)
			alias := ""
			if v.Alias != nil {
				alias = *v.Alias
			}
			*projection = append(*projection, ProjectionEntry{Ordinal: i, Src: v.Src, Field: v.Field, UserAlias: alias})
		case ast.Star:
			if b.attrs[v.Src] == nil {
				b.attrs[v.Src] = newAttrSet()
			}
			b.attrs[v.Src].addStar()
			*projection = append(*projection, ProjectionEntry{Ordinal: i, IsStar: true, StarSrc: v.Src})
		case ast.FuncCall:
			fp := FuncPlan{Call: v}
			*funcPlans = append(*funcPlans, fp)
			*projection = append(*projection, ProjectionEntry{Ordinal: i, IsFunc: true, Func: fp, UserAlias: derefOr(v.Alias, "")})
		}
	}
	return nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// ensureField records that (src, field) must be fetched, even if it was
// never part of the SELECT projection — the "extract segment fields" and
// "extract function-param fields" stages both call this.
func (b *builder) ensureField(src, field string) {
	if b.attrs[src] == nil {
		b.attrs[src] = newAttrSet()
	}
	b.attrs[src].addField(field)
}

func (b *builder) ensureAttr(attr interface{}) {
	switch v := attr.(type) {
	case ast.FieldRef:
		b.ensureField(v.Src, v.Field)
	case ast.AliasRef:
		// resolved purely by name at validation/evaluation time; no
		// native fetch is required beyond what the alias already maps to.
	case ast.Star:
		if b.attrs[v.Src] == nil {
			b.attrs[v.Src] = newAttrSet()
		}
		b.attrs[v.Src].addStar()
	}
}

func (b *builder) extractSegmentFields(join *ast.Join, where *ast.Where, groupBy *ast.GroupBy, orderBy *ast.OrderBy) error {
	if join != nil {
		if _, dup := b.resources[join.Resource.Alias]; dup {
			return qerr.WithStage("extract-segment-fields", qerr.E(qerr.ValidationError, "duplicate resource alias: "+join.Resource.Alias))
		}
		b.resources[join.Resource.Alias] = join.Resource
		b.order = append(b.order, join.Resource.Alias)
		if b.attrs[join.Resource.Alias] == nil {
			b.attrs[join.Resource.Alias] = newAttrSet()
		}
		lhs, lok := join.Clause.P1.(ast.FieldRef)
		rhs, rok := join.Clause.P2.(ast.FieldRef)
		if !lok || !rok || lhs.Src == rhs.Src {
			return qerr.WithStage("extract-segment-fields", qerr.E(qerr.ValidationError, "Invalid join clause"))
		}
		b.ensureField(lhs.Src, lhs.Field)
		b.ensureField(rhs.Src, rhs.Field)
	}
	if where != nil {
		b.ensureOperand(where.Clause.P1)
		b.ensureOperand(where.Clause.P2)
	}
	if groupBy != nil {
		b.ensureAttr(groupBy.Attr)
	}
	if orderBy != nil {
		b.ensureAttr(orderBy.Attr)
	}
	return nil
}

func (b *builder) ensureOperand(op ast.Operand) {
	if fr, ok := op.(ast.FieldRef); ok {
		b.ensureField(fr.Src, fr.Field)
	}
}

func (b *builder) validateDataSources() error {
	var missing []string
	for _, alias := range b.order {
		res := b.resources[alias]
		if _, err := b.reg.ByName(res.DataSource); err != nil {
			if !slices.Contains(missing, res.DataSource) {
				missing = append(missing, res.DataSource)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return qerr.WithStage("validate-sources", qerr.E(qerr.ValidationError, fmt.Sprintf("Data source(s) do not exist: %s", strings.Join(missing, ", "))))
	}
	return nil
}

func (b *builder) classifyFunctions(funcPlans []FuncPlan) error {
	var errs []error
	for i := range funcPlans {
		fp := &funcPlans[i]
		switch fp.Call.Kind {
		case ast.AggregateFunc, ast.ScalarVarargsFunc:
			continue
		case ast.UnknownFunc:
			errs = append(errs, qerr.E(qerr.ValidationError, unknownFuncMessage(fp.Call.Name)))
			continue
		}
		sources := map[string]bool{}
		onlyFieldish := true
		for _, param := range fp.Call.Params {
			switch pv := param.(type) {
			case ast.FieldRef:
				sources[pv.Src] = true
			case ast.Star:
				sources[pv.Src] = true
			default:
				onlyFieldish = false
			}
		}
		if !onlyFieldish || len(sources) != 1 {
			continue // platform: ambiguous or literal-only source set
		}
		var src string
		for s := range sources {
			src = s
		}
		res, ok := b.resources[src]
		if !ok {
			continue
		}
		fm, err := b.reg.FunctionModule(res.DataSource)
		if err != nil || fm == nil {
			continue
		}
		if sup, ok := fm.Supports(fp.Call); ok {
			fp.Pushdown = true
			fp.Src = src
			fp.Rendered = sup.Rendered
		}
	}
	if len(errs) > 0 {
		return qerr.WithStage("classify-functions", qerr.Combine(errs...))
	}
	return nil
}

func unknownFuncMessage(name string) string {
	best, bestDist := "", -1
	for _, known := range ast.KnownFuncNames() {
		d := levenshtein.ComputeDistance(name, known)
		if bestDist == -1 || d < bestDist {
			best, bestDist = known, d
		}
	}
	if best != "" && bestDist <= 3 {
		return fmt.Sprintf("unknown function %q, did you mean %q?", name, best)
	}
	return fmt.Sprintf("unknown function %q", name)
}

func (b *builder) validateGroupBy(projection []ProjectionEntry, funcPlans []FuncPlan, groupBy *ast.GroupBy) error {
	hasAggregate := false
	for _, fp := range funcPlans {
		if fp.Call.Kind == ast.AggregateFunc {
			hasAggregate = true
			break
		}
	}
	if !hasAggregate {
		return nil
	}
	var errs []error
	if groupBy == nil {
		for _, entry := range projection {
			if entry.IsFunc {
				continue
			}
			if !b.consumedByAggregate(entry, funcPlans) {
				errs = append(errs, qerr.E(qerr.ValidationError, "aggregate without GROUP BY requires all fields in a function"))
			}
		}
	} else {
		for _, entry := range projection {
			if entry.IsFunc {
				continue
			}
			if !b.matchesGroupKey(entry, groupBy.Attr) && !b.consumedByAggregate(entry, funcPlans) {
				errs = append(errs, qerr.E(qerr.ValidationError, "GROUP BY requires every selected field to be the group key or an aggregate argument"))
			}
		}
	}
	if len(errs) > 0 {
		return qerr.WithStage("validate-group-by", qerr.Combine(errs...))
	}
	return nil
}

func (b *builder) matchesGroupKey(entry ProjectionEntry, attr ast.AttrRef) bool {
	switch v := attr.(type) {
	case ast.FieldRef:
		return !entry.IsStar && entry.Src == v.Src && entry.Field == v.Field
	case ast.AliasRef:
		return entry.UserAlias == v.Alias
	}
	return false
}

func (b *builder) consumedByAggregate(entry ProjectionEntry, funcPlans []FuncPlan) bool {
	if entry.IsStar {
		return false
	}
	for _, fp := range funcPlans {
		if fp.Call.Kind != ast.AggregateFunc {
			continue
		}
		for _, param := range fp.Call.Params {
			if fr, ok := param.(ast.FieldRef); ok && fr.Src == entry.Src && fr.Field == entry.Field {
				return true
			}
		}
	}
	return false
}

func (b *builder) extractFunctionParamFields(funcPlans []FuncPlan) {
	for _, fp := range funcPlans {
		if fp.Pushdown {
			continue
		}
		for _, param := range fp.Call.Params {
			switch v := param.(type) {
			case ast.FieldRef:
				b.ensureField(v.Src, v.Field)
			case ast.Star:
				if b.attrs[v.Src] == nil {
					b.attrs[v.Src] = newAttrSet()
				}
				b.attrs[v.Src].addStar()
			}
		}
	}
}

func (b *builder) prepareResources(join *ast.Join) {
	for _, alias := range b.order {
		res := b.resources[alias]
		set := b.attrs[alias]
		if set == nil {
			set = newAttrSet()
		}
		rp := ResourcePlan{Alias: alias, Resource: res, Attributes: set.toAttributes()}
		if join != nil && alias == join.Resource.Alias {
			rp.Merge = &JoinSpec{Type: join.Type, Clause: join.Clause}
		}
		b.plan.Resources = append(b.plan.Resources, rp)
		b.step("prepare-segments", fmt.Sprintf("resource %s: %d attribute(s)", alias, len(rp.Attributes)))
	}
}
