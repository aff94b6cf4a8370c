// Package grpcsvc backs schema-declared services with gRPC. Descriptors for
// each service are built dynamically from the schema's @service declarations;
// calls go over pooled client connections carrying JSON-encoded payloads.
package grpcsvc

import (
	"sort"
	"strings"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/cyl1d3/EntityGraphQL/internal/schema"
)

// protoPackage is the package every generated service file lives in.
const protoPackage = "entitygraphql"

// Registry holds the built protobuf descriptors for every service the
// schema declares. It is immutable after BuildRegistry returns.
type Registry struct {
	files   []protoreflect.FileDescriptor
	methods map[[2]string]protoreflect.MethodDescriptor // service name, method name
}

// BuildRegistry collects the service method bindings declared across the
// schema's fields and builds one proto file per service. Each service gets a
// single request/response message pair; the method-specific payload travels
// in the args_json and data_json fields.
func BuildRegistry(s *schema.Schema) (*Registry, error) {
	byService := map[string][]string{}
	for _, t := range s.Types {
		for _, f := range t.Fields {
			for _, sm := range f.ServiceMethods {
				if !containsString(byService[sm.Service], sm.Method) {
					byService[sm.Service] = append(byService[sm.Service], sm.Method)
				}
			}
		}
	}

	names := make([]string, 0, len(byService))
	for svc := range byService {
		names = append(names, svc)
	}
	sort.Strings(names)

	reg := &Registry{methods: map[[2]string]protoreflect.MethodDescriptor{}}
	for _, svc := range names {
		methods := byService[svc]
		sort.Strings(methods)

		fb := protobuilder.NewFile(protoPackage + "/" + strings.ToLower(svc) + ".proto")
		fb.SetPackageName(protoreflect.FullName(protoPackage))
		fb.SetSyntax(protoreflect.Proto3)

		reqMB := protobuilder.NewMessage(protoreflect.Name(svc + "InvokeRequest"))
		argsField := protobuilder.NewField("args_json", protobuilder.FieldTypeScalar(protoreflect.StringKind))
		argsField.SetNumber(protoreflect.FieldNumber(1))
		reqMB.AddField(argsField)

		respMB := protobuilder.NewMessage(protoreflect.Name(svc + "InvokeResponse"))
		dataField := protobuilder.NewField("data_json", protobuilder.FieldTypeScalar(protoreflect.StringKind))
		dataField.SetNumber(protoreflect.FieldNumber(1))
		respMB.AddField(dataField)

		sb := protobuilder.NewService(protoreflect.Name(svc))
		for _, m := range methods {
			mb := protobuilder.NewMethod(
				protoreflect.Name(m),
				protobuilder.RpcTypeMessage(reqMB, false),
				protobuilder.RpcTypeMessage(respMB, false),
			)
			sb.AddMethod(mb)
		}

		fb.AddMessage(reqMB)
		fb.AddMessage(respMB)
		fb.AddService(sb)

		fd, err := fb.Build()
		if err != nil {
			return nil, err
		}
		reg.files = append(reg.files, fd)

		svcs := fd.Services()
		for i := 0; i < svcs.Len(); i++ {
			sd := svcs.Get(i)
			mds := sd.Methods()
			for j := 0; j < mds.Len(); j++ {
				md := mds.Get(j)
				reg.methods[[2]string{svc, string(md.Name())}] = md
			}
		}
	}
	return reg, nil
}

// Files returns the built file descriptors, one per service.
func (r *Registry) Files() []protoreflect.FileDescriptor { return r.files }

// Method returns the descriptor for a declared service method, or nil.
func (r *Registry) Method(service, method string) protoreflect.MethodDescriptor {
	return r.methods[[2]string{service, method}]
}

// HasService reports whether any method was declared for the service.
func (r *Registry) HasService(service string) bool {
	for key := range r.methods {
		if key[0] == service {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
