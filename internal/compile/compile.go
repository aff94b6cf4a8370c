package compile

import (
	"context"
	"fmt"

	"github.com/cyl1d3/EntityGraphQL/internal/expr"
	"github.com/cyl1d3/EntityGraphQL/internal/extensions"
)

// Context carries the per-pass compilation state. A fresh Context is made
// for each pass; the parameter sequence is shared with forks so generated
// names never collide within a pass.
type Context struct {
	Ctx context.Context
	Req *Request

	// ServicePass marks the second pass of a two-pass compilation: field
	// values are read from the materialized pass-1 result and service
	// calls consume their recorded slots.
	ServicePass bool

	// Live marks compilation rooted at a materialized service result. The
	// result is live data by then, so nested service-bound fields invoke
	// directly on its members instead of reading slots.
	Live bool

	seq *int
}

func newContext(ctx context.Context, req *Request, servicePass bool) *Context {
	seq := 0
	return &Context{Ctx: ctx, Req: req, ServicePass: servicePass, seq: &seq}
}

// fork copies the context with a different pass discriminator, sharing the
// parameter sequence.
func (cc *Context) fork(servicePass bool) *Context {
	c := *cc
	c.ServicePass = servicePass
	return &c
}

func (cc *Context) freshParam(typeName string) *expr.Parameter {
	name := "p"
	if *cc.seq > 0 {
		name = fmt.Sprintf("p%d", *cc.seq)
	}
	*cc.seq++
	return &expr.Parameter{Name: name, TypeName: typeName}
}

func (cc *Context) contextOf(n *Node) expr.Expr {
	if n.NextContext != nil {
		return n.NextContext
	}
	return n.RootParameter
}

func (cc *Context) hookContext(n *Node) *extensions.Context {
	return &extensions.Context{
		Arguments:   EffectiveArguments(n),
		ServicePass: cc.ServicePass,
		Replace:     expr.Replace,
		Constant:    n.Constant,
	}
}

// liftedArgs lifts literal argument values into named placeholder constants
// before they reach a resolve function, keeping the produced graph
// structurally stable across requests that differ only in argument values.
// Values that are already expressions pass through unchanged. Fields
// without a custom resolver ignore their arguments, so nothing is lifted
// for them.
func (cc *Context) liftedArgs(n *Node) map[string]any {
	args := EffectiveArguments(n)
	if len(args) == 0 || n.Field == nil || n.Field.Resolve == nil {
		return args
	}
	if n.liftedArgs != nil {
		return n.liftedArgs
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if e, ok := v.(expr.Expr); ok {
			out[k] = e
			continue
		}
		out[k] = n.Constant("arg_"+k, v)
	}
	n.liftedArgs = out
	return out
}

// GetNodeExpression compiles one node of the expanded tree into its
// expression over the node's current context.
func GetNodeExpression(cc *Context, n *Node) (expr.Expr, error) {
	switch n.Kind {
	case KindScalar:
		return cc.scalarExpression(n)
	case KindObject:
		return cc.objectExpression(n, nil)
	case KindList:
		return cc.listExpression(n, nil)
	default:
		return nil, compileErrorf("fragment node %q survived expansion", n.Name)
	}
}

func (cc *Context) scalarExpression(n *Node) (expr.Expr, error) {
	source := cc.contextOf(n)
	var e expr.Expr
	if cc.ServicePass {
		e = &expr.Member{Target: source, Name: n.Name}
	} else {
		e = n.resolveField(source, cc.liftedArgs(n))
	}
	return cc.applyScalarHooks(n, e)
}

func (cc *Context) applyScalarHooks(n *Node, e expr.Expr) (expr.Expr, error) {
	if n.Field == nil || len(n.Field.Extensions) == 0 {
		return e, nil
	}
	hc := cc.hookContext(n)
	for _, ext := range n.Field.Extensions {
		var err error
		e, err = ext.ProcessScalarExpression(hc, e)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", n.Name, err)
		}
	}
	return e, nil
}

// objectExpression compiles an object-projection node. A nil base means
// the node derives its own from the current context; callers that already
// hold the base (the service pass does) pass it in.
func (cc *Context) objectExpression(n *Node, base expr.Expr) (expr.Expr, error) {
	if base == nil {
		source := cc.contextOf(n)
		switch {
		case n.Field == nil:
			base = source
		case cc.ServicePass:
			base = &expr.Member{Target: source, Name: n.Name}
		default:
			base = n.resolveField(source, cc.liftedArgs(n))
		}
	}

	hc := cc.hookContext(n)
	if n.Field != nil {
		for _, ext := range n.Field.Extensions {
			var err error
			base, _, err = ext.ProcessExpressionPreSelection(hc, base, nil)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", n.Name, err)
			}
		}
	}

	// A single object computed by a call is bound once and projected from
	// the binding, never recomputed per member access.
	childCtx := base
	var capture *expr.Parameter
	if _, isCall := base.(*expr.Call); isCall {
		capture = cc.freshParam(n.TypeName)
		childCtx = capture
	}

	sel, err := cc.assembleSelection(n, childCtx)
	if err != nil {
		return nil, err
	}

	if n.Field != nil {
		prev := base
		for _, ext := range n.Field.Extensions {
			var err error
			base, sel, _, err = ext.ProcessExpressionSelection(hc, base, sel, nil)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", n.Name, err)
			}
		}
		if base != prev && capture == nil {
			// The hook swapped the base out from under the assembled
			// fields; re-root them on the replacement.
			for i := range sel.Fields {
				sel.Fields[i].Expr = expr.Replace(sel.Fields[i].Expr, prev, base)
			}
			childCtx = base
		}
	}

	proj := &expr.Projection{Source: childCtx, Fields: projected(sel)}
	if n.Field == nil {
		return proj, nil
	}
	body := expr.Expr(proj)
	if capture != nil {
		if n.nullable() {
			body = expr.NullGuard(capture, body)
		}
		return &expr.Binding{Param: capture, Value: base, Body: body}, nil
	}
	if n.nullable() {
		body = expr.NullGuard(base, body)
	}
	return body, nil
}

// listExpression compiles a per-element projection node.
func (cc *Context) listExpression(n *Node, base expr.Expr) (expr.Expr, error) {
	if base == nil {
		source := cc.contextOf(n)
		if cc.ServicePass {
			base = &expr.Member{Target: source, Name: n.Name}
		} else {
			base = n.resolveField(source, cc.liftedArgs(n))
		}
	}
	item := cc.freshParam(n.TypeName)

	hc := cc.hookContext(n)
	if n.Field != nil {
		for _, ext := range n.Field.Extensions {
			var err error
			base, item, err = ext.ProcessExpressionPreSelection(hc, base, item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", n.Name, err)
			}
		}
	}

	sel, err := cc.assembleSelection(n, item)
	if err != nil {
		return nil, err
	}

	if n.Field != nil {
		for _, ext := range n.Field.Extensions {
			var err error
			base, sel, item, err = ext.ProcessExpressionSelection(hc, base, sel, item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", n.Name, err)
			}
		}
	}

	var out expr.Expr = &expr.Projection{Source: base, Item: item, Fields: projected(sel)}
	if n.nullable() {
		out = expr.NullGuard(base, out)
	}
	return out, nil
}

func (cc *Context) assembleSelection(n *Node, childCtx expr.Expr) (*extensions.Selection, error) {
	sel := &extensions.Selection{}
	slotKeys := map[string]bool{}
	for _, c := range n.ChildFields {
		if c.Field != nil && c.Field.HasServices() {
			switch {
			case cc.Live:
				e, err := cc.liveServiceExpression(c, childCtx)
				if err != nil {
					return nil, err
				}
				sel.Add(c.Name, e)
			case cc.ServicePass:
				e, err := cc.serviceExpression(c, childCtx)
				if err != nil {
					return nil, err
				}
				sel.Add(c.Name, e)
			default:
				if err := cc.prepareServiceField(c, childCtx, sel, slotKeys); err != nil {
					return nil, err
				}
			}
			continue
		}
		c.NextContext = childCtx
		e, err := GetNodeExpression(cc, c)
		if err != nil {
			return nil, err
		}
		sel.Add(c.Name, e)
	}
	return sel, nil
}

// prepareServiceField runs during the pure pass for a service-bound child:
// the service call is built, its context dependencies are extracted, and
// each distinct dependency is appended to the enclosing selection as a
// named slot. The call itself is held back for the service pass.
func (cc *Context) prepareServiceField(n *Node, levelCtx expr.Expr, sel *extensions.Selection, slotKeys map[string]bool) error {
	if err := cc.checkServices(n); err != nil {
		return err
	}
	call := n.resolveField(levelCtx, cc.liftedArgs(n))
	root := chainRoot(levelCtx)
	if root == nil {
		root = n.RootParameter
	}
	deps, err := expr.Extract(root, call, false)
	if err != nil {
		return fmt.Errorf("field %q: %w", n.Name, err)
	}
	n.serviceExpr, n.serviceDeps = call, deps
	for _, key := range deps.Keys() {
		if slotKeys[key] {
			continue
		}
		slotKeys[key] = true
		sel.Add(key, deps.Instances(key)[0])
	}
	return nil
}

// checkServices resolves every service the field requires so that a missing
// provider fails at compile time, not at execution.
func (cc *Context) checkServices(n *Node) error {
	for _, svc := range n.Field.Services {
		if cc.Req.Services == nil {
			return compileErrorf("field %q requires service %q but no service provider is configured", n.Name, svc)
		}
		if _, err := cc.Req.Services.Resolve(cc.Ctx, svc); err != nil {
			return compileErrorf("field %q: service %q: %v", n.Name, svc, err)
		}
	}
	return nil
}

// serviceExpression compiles a service-bound child on the service pass: the
// call recorded by the pure pass has every extracted dependency occurrence
// replaced with a read of its materialized slot. A service result carrying
// a selection is then projected live off the call result; service-bound
// fields inside that selection compile against the live result.
func (cc *Context) serviceExpression(n *Node, levelCtx expr.Expr) (expr.Expr, error) {
	if n.serviceExpr == nil {
		return nil, compileErrorf("service field %q reached the service pass without a pure pass", n.Name)
	}
	e := n.serviceExpr
	for _, key := range n.serviceDeps.Keys() {
		slot := expr.Expr(&expr.Member{Target: levelCtx, Name: key})
		for _, inst := range n.serviceDeps.Instances(key) {
			e = expr.Replace(e, inst, slot)
		}
	}
	if len(n.ChildFields) == 0 {
		return cc.applyScalarHooks(n, e)
	}
	pure := cc.fork(false)
	pure.Live = true
	if n.Kind == KindList {
		return pure.listExpression(n, e)
	}
	return pure.objectExpression(n, e)
}

// liveServiceExpression compiles a service-bound child whose context is an
// already-materialized service result. The bound result is live data on the
// service pass, so the call reads its members directly; there is no earlier
// pass left to materialize slots into.
func (cc *Context) liveServiceExpression(n *Node, levelCtx expr.Expr) (expr.Expr, error) {
	if err := cc.checkServices(n); err != nil {
		return nil, err
	}
	call := n.resolveField(levelCtx, cc.liftedArgs(n))
	if len(n.ChildFields) == 0 {
		return cc.applyScalarHooks(n, call)
	}
	if n.Kind == KindList {
		return cc.listExpression(n, call)
	}
	return cc.objectExpression(n, call)
}

// chainRoot walks a member/call chain to the parameter it terminates at,
// or nil when the chain roots elsewhere.
func chainRoot(e expr.Expr) *expr.Parameter {
	for {
		switch n := e.(type) {
		case *expr.Parameter:
			return n
		case *expr.Member:
			e = n.Target
		case *expr.Call:
			if n.Target == nil {
				return nil
			}
			e = n.Target
		default:
			return nil
		}
	}
}

func projected(sel *extensions.Selection) []expr.ProjectedField {
	fields := make([]expr.ProjectedField, len(sel.Fields))
	for i, f := range sel.Fields {
		fields[i] = expr.ProjectedField{Key: f.Key, Value: f.Expr}
	}
	return fields
}

// CompiledQuery is the output of CompileQuery.
type CompiledQuery struct {
	// PassOne is evaluable against the backing data context. For pure
	// documents it is the whole plan.
	PassOne expr.Expr

	// PassTwo is non-nil when the document has service-bound fields. It
	// evaluates against the materialized pass-1 result.
	PassTwo expr.Expr

	// Slots lists the materialized dependency slots in document order.
	Slots []string

	// ConstantParameters maps lifted placeholder names to runtime values.
	ConstantParameters map[string]any

	// FieldErrors are per-field failures whose subtrees were omitted; the
	// rest of the document compiled normally.
	FieldErrors []*FieldError
}

// TwoPass reports whether execution needs the service pass.
func (q *CompiledQuery) TwoPass() bool { return q.PassTwo != nil }

// Fingerprint is the canonical textual form of the whole plan. Lifted
// constants render as placeholders, so requests differing only in argument
// or literal values share a fingerprint. Callers key plan caches on it.
func (q *CompiledQuery) Fingerprint() string {
	if q.PassTwo == nil {
		return expr.Render(q.PassOne)
	}
	return expr.Render(q.PassOne) + "\n" + expr.Render(q.PassTwo)
}

// CompileQuery builds, expands, and compiles the named operation. Pure
// documents compile in a single pass. Documents with service-bound fields
// compile in two: the first pass is free of service calls and materializes
// their data dependencies as slots, the second reads the slots instead of
// the live context.
func CompileQuery(ctx context.Context, req *Request, operationName string) (*CompiledQuery, error) {
	root, err := Build(req, operationName)
	if err != nil {
		return nil, err
	}
	if err := Expand(req, root); err != nil {
		return nil, err
	}
	out := &CompiledQuery{FieldErrors: pruneUnauthorized(ctx, root)}

	cc := newContext(ctx, req, false)
	if out.PassOne, err = GetNodeExpression(cc, root); err != nil {
		return nil, err
	}

	if root.HasAnyServices() {
		root.NextContext = &expr.Parameter{Name: "ctx1", TypeName: root.TypeName}
		cc2 := newContext(ctx, req, true)
		if out.PassTwo, err = GetNodeExpression(cc2, root); err != nil {
			return nil, err
		}
		out.Slots = collectSlots(root)
	}
	out.ConstantParameters = collectConstants(root)
	return out, nil
}

// pruneUnauthorized drops subtrees whose authorization check fails,
// recording one FieldError per dropped field.
func pruneUnauthorized(ctx context.Context, n *Node) []*FieldError {
	var errs []*FieldError
	kept := n.ChildFields[:0]
	for _, c := range n.ChildFields {
		if c.Field != nil && c.Field.Authorize != nil {
			if err := c.Field.Authorize(ctx); err != nil {
				errs = append(errs, &FieldError{Field: c.Name, Err: err})
				continue
			}
		}
		errs = append(errs, pruneUnauthorized(ctx, c)...)
		kept = append(kept, c)
	}
	n.ChildFields = kept
	return errs
}

func collectSlots(n *Node) []string {
	var slots []string
	seen := map[string]bool{}
	var walk func(*Node)
	walk = func(n *Node) {
		if n.serviceDeps != nil {
			for _, k := range n.serviceDeps.Keys() {
				if !seen[k] {
					seen[k] = true
					slots = append(slots, k)
				}
			}
		}
		for _, c := range n.ChildFields {
			walk(c)
		}
	}
	walk(n)
	return slots
}

func collectConstants(n *Node) map[string]any {
	out := map[string]any{}
	var walk func(*Node)
	walk = func(n *Node) {
		for k, v := range n.ConstantParameters {
			out[k] = v
		}
		for _, c := range n.ChildFields {
			walk(c)
		}
	}
	walk(n)
	if len(out) == 0 {
		return nil
	}
	return out
}
