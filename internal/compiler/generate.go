package compiler

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strconv"
	"text/template"

	"go.uber.org/multierr"

	"github.com/roach88/relsync/internal/container"
	"github.com/roach88/relsync/internal/ir"
)

var kindConst = map[container.Kind]string{
	container.KindSingle: "container.KindSingle",
	container.KindInline: "container.KindInline",
	container.KindList:   "container.KindList",
	container.KindSet:    "container.KindSet",
}

var goTemplate = template.Must(template.New("relations").Funcs(template.FuncMap{
	"sideSpec": sideSpecLiteral,
	"quote":    strconv.Quote,
}).Parse(`// Code generated by relsync generate. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/roach88/relsync/internal/container"
	"github.com/roach88/relsync/internal/ecs"
	"github.com/roach88/relsync/internal/relation"
)

// SpecHash identifies the declarations this file was generated from.
const SpecHash = {{quote .Hash}}
{{range .Relations}}
// {{.Name}} marks the {{.Name}} relation.
type {{.Name}} struct{}
{{if .Symmetric}}
// {{.Name}}Relation describes the symmetric {{.Name}} relation.
var {{.Name}}Relation = relation.MustDefineSymmetric[{{.Name}}]({{quote .Name}},
	{{sideSpec .Source}},
)

// {{.Source.Name}} is the only side of {{.Name}}.
var {{.Source.Name}} = {{.Name}}Relation.Source()
{{else}}
// {{.Name}}Relation describes the {{.Name}} relation.
var {{.Name}}Relation = relation.MustDefine[{{.Name}}]({{quote .Name}},
	{{sideSpec .Source}},
	{{sideSpec .Target}},
)

var (
	{{.Source.Name}} = {{.Name}}Relation.Source()
	{{.Target.Name}} = {{.Name}}Relation.Target()
)
{{end}}{{end}}
// Register installs every relation above on w.
func Register(w *ecs.World) error {
{{- range .Relations}}
	if err := relation.Register(w, {{.Name}}Relation); err != nil {
		return err
	}
{{- end}}
	return nil
}
`))

func sideSpecLiteral(s ir.SideSpec) (string, error) {
	kind, err := container.ParseKind(s.Container)
	if err != nil {
		return "", err
	}
	lit := fmt.Sprintf("relation.SideSpec{Name: %q, Container: %s", s.Name, kindConst[kind])
	if s.Capacity != 0 {
		lit += fmt.Sprintf(", Capacity: %d", s.Capacity)
	}
	return lit + "}", nil
}

// GenerateGo emits gofmt'd Go source declaring static descriptors for specs:
// one marker type, one descriptor variable and one variable per side for
// each relation, plus a Register function.
func GenerateGo(pkg string, specs []ir.RelationSpec) ([]byte, error) {
	if !token.IsIdentifier(pkg) || token.IsKeyword(pkg) {
		return nil, fmt.Errorf("generate: invalid package name %q", pkg)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("generate: no relations")
	}

	var errs error
	for _, verr := range Validate(specs) {
		errs = multierr.Append(errs, verr)
	}
	if errs != nil {
		return nil, fmt.Errorf("generate: %w", errs)
	}

	hash, err := ir.SpecHash(specs)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	sorted := append([]ir.RelationSpec(nil), specs...)
	ir.SortSpecs(sorted)

	var buf bytes.Buffer
	err = goTemplate.Execute(&buf, struct {
		Package   string
		Hash      string
		Relations []ir.RelationSpec
	}{pkg, hash, sorted})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generate: format output: %w", err)
	}
	return src, nil
}
