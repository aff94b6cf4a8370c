package expr

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract_ServiceCallDependencies(t *testing.T) {
	// svc.Call(ctx.A, other.Call(ctx.B.C)) with root ctx must yield exactly
	// ctx.A and ctx.B.C, one instance each. Neither service receiver opens a
	// unit because neither is rooted at the context.
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	svc := &Parameter{Name: "svc", TypeName: "Formatter"}
	other := &Parameter{Name: "other", TypeName: "Helper"}

	depA := &Member{Target: ctx, Name: "A"}
	depBC := &Member{Target: &Member{Target: ctx, Name: "B"}, Name: "C"}
	e := &Call{Target: svc, Method: "Call", Args: []Expr{
		depA,
		&Call{Target: other, Method: "Call", Args: []Expr{depBC}},
	}}

	got, err := Extract(ctx, e, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	wantKeys := []string{"ctx_A", "ctx_B_C"}
	if diff := cmp.Diff(wantKeys, got.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if n := len(got.Instances("ctx_A")); n != 1 {
		t.Errorf("ctx_A instances = %d, want 1", n)
	}
	if is := got.Instances("ctx_B_C"); len(is) != 1 || is[0] != Expr(depBC) {
		t.Errorf("ctx_B_C must record the original sub-expression instance")
	}
}

func TestExtract_DuplicatePathsCollapse(t *testing.T) {
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	svc := &Parameter{Name: "svc", TypeName: "Formatter"}

	first := &Member{Target: &Member{Target: ctx, Name: "B"}, Name: "C"}
	second := &Member{Target: &Member{Target: ctx, Name: "B"}, Name: "C"}
	e := &Call{Target: svc, Method: "Call", Args: []Expr{first, second}}

	got, err := Extract(ctx, e, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if diff := cmp.Diff([]string{"ctx_B_C"}, got.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	is := got.Instances("ctx_B_C")
	if len(is) != 2 || is[0] != Expr(first) || is[1] != Expr(second) {
		t.Fatalf("want both original instances recorded under one key, got %d", len(is))
	}
}

func TestExtract_BareRootReferenceFails(t *testing.T) {
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	svc := &Parameter{Name: "svc", TypeName: "Formatter"}
	e := &Call{Target: svc, Method: "Call", Args: []Expr{ctx}}

	_, err := Extract(ctx, e, false)
	var rre *RootReferenceError
	if !errors.As(err, &rre) {
		t.Fatalf("want RootReferenceError, got %v", err)
	}
	if rre.Parameter != "ctx" {
		t.Errorf("error must name the parameter, got %q", rre.Parameter)
	}
}

func TestExtract_InstanceCallCapturedWhole(t *testing.T) {
	// ctx.Orders.Count() is one unit: the call as a whole, with the nested
	// member access captured as part of it rather than separately.
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	e := &Call{Target: &Member{Target: ctx, Name: "Orders"}, Method: "Count"}

	got, err := Extract(ctx, e, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if diff := cmp.Diff([]string{"ctx_Orders_Count"}, got.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_TransparentAccessorLiftsWrappedValue(t *testing.T) {
	// ctx.Age.HasValue and ctx.Age.Value are presence accessors on the same
	// nullable value: both collapse to one slot holding ctx.Age.
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	svc := &Parameter{Name: "svc", TypeName: "Formatter"}
	age1 := &Member{Target: ctx, Name: "Age", Nullable: true}
	age2 := &Member{Target: ctx, Name: "Age", Nullable: true}
	e := &Call{Target: svc, Method: "Call", Args: []Expr{
		&Member{Target: age1, Name: "HasValue", Transparent: true},
		&Member{Target: age2, Name: "Value", Transparent: true},
	}}

	got, err := Extract(ctx, e, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if diff := cmp.Diff([]string{"ctx_Age"}, got.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if n := len(got.Instances("ctx_Age")); n != 2 {
		t.Errorf("ctx_Age instances = %d, want 2", n)
	}
}

func TestExtract_MatchByType(t *testing.T) {
	declared := &Parameter{Name: "ctx", TypeName: "Person"}
	reentrant := &Parameter{Name: "ctx2", TypeName: "Person"}
	svc := &Parameter{Name: "svc", TypeName: "Formatter"}
	e := &Call{Target: svc, Method: "Call", Args: []Expr{
		&Member{Target: reentrant, Name: "FirstName"},
	}}

	if got, err := Extract(declared, e, false); err != nil || got.Len() != 0 {
		t.Fatalf("identity mode must not match a different parameter, got %v, %v", got, err)
	}
	got, err := Extract(declared, e, true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if diff := cmp.Diff([]string{"ctx2_FirstName"}, got.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_DependencyInsideOpenUnitNotSplit(t *testing.T) {
	// ctx.Orders.Where((o) => (o.Total > ctx.Min)) is a single unit; ctx.Min
	// under the open call is part of it, not a second slot.
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	o := &Parameter{Name: "o", TypeName: "Order"}
	e := &Call{
		Target: &Member{Target: ctx, Name: "Orders"},
		Method: "Where",
		Args: []Expr{&Lambda{Params: []*Parameter{o}, Body: &Binary{
			Op:    ">",
			Left:  &Member{Target: o, Name: "Total"},
			Right: &Member{Target: ctx, Name: "Min"},
		}}},
	}

	got, err := Extract(ctx, e, false)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("want a single unit, got keys %v", got.Keys())
	}
}
