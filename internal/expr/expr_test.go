package expr

import (
	"testing"
)

func TestRender(t *testing.T) {
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	person := &Member{Target: ctx, Name: "Person"}

	cases := []struct {
		name string
		in   Expr
		want string
	}{
		{"member chain", &Member{Target: person, Name: "Name"}, "ctx.Person.Name"},
		{"null guard", NullGuard(person, &Member{Target: person, Name: "Name"}),
			"iif(ctx.Person == null, null, ctx.Person.Name)"},
		{"service call", &Call{Service: "Formatter", Method: "Format", Args: []Expr{&Member{Target: person, Name: "FirstName"}}},
			"Formatter.Format(ctx.Person.FirstName)"},
		{"named constant", &Call{Target: person, Method: "Take", Args: []Expr{&Constant{Name: "limit"}}},
			"ctx.Person.Take($limit)"},
		{"string literal", &Binary{Op: "==", Left: &Member{Target: ctx, Name: "Name"}, Right: &Constant{Value: "x"}},
			`(ctx.Name == "x")`},
		{"binding", &Binding{Param: &Parameter{Name: "v"}, Value: &Call{Target: ctx, Method: "Load"}, Body: &Parameter{Name: "v"}},
			"let v = ctx.Load() in v"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tc.in); got != tc.want {
				t.Fatalf("Render = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRender_ListProjection(t *testing.T) {
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	p := &Parameter{Name: "p", TypeName: "Person"}
	e := &Projection{
		Source: &Member{Target: ctx, Name: "People"},
		Item:   p,
		Fields: []ProjectedField{{Key: "name", Value: &Member{Target: p, Name: "Name"}}},
	}
	want := "ctx.People.Select(p => {name: p.Name})"
	if got := Render(e); got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

func TestKeyOf_NormalizesPunctuation(t *testing.T) {
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	e := &Call{Target: &Member{Target: ctx, Name: "Orders"}, Method: "Count"}
	if got := KeyOf(e); got != "ctx_Orders_Count" {
		t.Fatalf("KeyOf = %q", got)
	}
	// Structurally identical graphs produce identical keys.
	e2 := &Call{Target: &Member{Target: &Parameter{Name: "ctx"}, Name: "Orders"}, Method: "Count"}
	if KeyOf(e) != KeyOf(e2) {
		t.Fatal("structurally identical expressions must share a key")
	}
}

func TestReplace_SubstitutesByIdentity(t *testing.T) {
	ctx := &Parameter{Name: "ctx", TypeName: "Query"}
	slotCtx := &Parameter{Name: "ctx1", TypeName: "Pass1"}
	dep := &Member{Target: &Member{Target: ctx, Name: "Person"}, Name: "FirstName"}
	call := &Call{Service: "Formatter", Method: "Format", Args: []Expr{dep}}

	got := Replace(call, dep, &Member{Target: slotCtx, Name: "ctx_Person_FirstName"})
	if Render(got) != "Formatter.Format(ctx1.ctx_Person_FirstName)" {
		t.Fatalf("Replace = %q", Render(got))
	}
	// The original graph is untouched.
	if Render(call) != "Formatter.Format(ctx.Person.FirstName)" {
		t.Fatalf("Replace must not mutate its input, got %q", Render(call))
	}
}

func TestWalk_PreorderVisitsAllNodes(t *testing.T) {
	ctx := &Parameter{Name: "ctx"}
	e := &Condition{
		Test:    &IsNull{Target: ctx},
		IfTrue:  Null(),
		IfFalse: &Member{Target: ctx, Name: "Name"},
	}
	var count int
	Walk(e, func(Expr) bool { count++; return true })
	// Condition, IsNull, ctx, Null, Member, ctx again.
	if count != 6 {
		t.Fatalf("visited %d nodes, want 6", count)
	}
}
