// Copyright (c) 2019 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package wireup

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

// CompileMode selects whether the compiler emits synchronous accessor
// methods, or both synchronous and Async ones (CompileMode x LockMode
// together select one of four variants).
type CompileMode int

const (
	CompileSync CompileMode = iota
	CompileAsync
)

// LockMode selects whether emitted accessors guard their memoized field
// with a mutex. Unsafe is appropriate when the compiled container is known
// to be built from a single goroutine.
type LockMode int

const (
	LockUnsafe LockMode = iota
	LockThreadSafe
)

// kwArg is one rendered keyword argument: a literal key plus a Go
// expression (either a hoisted dependency variable or a literal value)
// for the accessor template to emit into a map[string]any composite.
type kwArg struct {
	Key  string
	Expr string
}

// entryPlan is the per-entry data the code-generation template needs: its
// Go-safe identifier, its direct wired dependencies (in the order of their
// sorted spec names), and whether it is a synthetic (promoted constant)
// entry.
type entryPlan struct {
	Name           string
	GoName         string
	Module         string
	Type           string
	Factory        string
	Synthetic      bool
	QuotedTemplate string   // Go string literal for a synthetic string entry's "{name}" template
	DepNames       []string // Go-safe identifiers of direct dependencies, sorted by spec name
	DepTokens      []string // Go string literals of "{name}" per DepNames entry, 1:1
	PosExprs       []string // rendered Go expressions for the ctor's positional args, in order
	KwArgs         []kwArg  // rendered Go expressions for the ctor's keyword args
}

// Compile renders an equivalent, statically unrolled Go source file for
// the container's current spec: a struct type with one memoized field per
// wired entry and generated accessor methods, instead of the general
// dependency-graph walk New/Build perform at runtime. This mirrors
// a reference compiler that likewise builds one accessor
// property per wired attribute directly from the resolved graph.
//
// The compiled file still calls back into a supplied TypeResolver to
// actually construct values; what it removes is runtime graph traversal,
// per-entry map lookups and (in the CompileSync/LockUnsafe variant) all
// locking overhead, since the build order is now baked in as Go source.
func (c *Container) Compile(packageName, typeName string, mode CompileMode, lock LockMode) ([]byte, error) {
	plans := make([]entryPlan, 0, len(c.resolved.buildOrder))
	goName := make(map[string]string, len(c.resolved.buildOrder))
	for _, name := range c.resolved.buildOrder {
		goName[name] = exportedGoName(name)
	}

	for _, name := range c.resolved.buildOrder {
		entry := c.resolved.wired[name]
		deps := c.resolved.deps[name]
		depGoNames := make([]string, len(deps))
		depTokens := make([]string, len(deps))
		depVar := make(map[string]string, len(deps))
		for i, d := range deps {
			depGoNames[i] = goName[d]
			depTokens[i] = strconv.Quote("{" + d + "}")
			depVar[d] = fmt.Sprintf("dep%d", i)
		}
		var quoted string
		isStringTemplate := false
		if template, ok := entry.Data.(string); ok {
			quoted = strconv.Quote(template)
			isStringTemplate = true
		}
		synthetic := entry.synthetic() && isStringTemplate

		var posExprs []string
		var kwArgs []kwArg
		if !synthetic {
			var err error
			posExprs, kwArgs, err = planArgs(entry.Data, depVar, c.resolved.constants)
			if err != nil {
				return nil, fmt.Errorf("wireup: cannot compile entry %q: %w", name, err)
			}
		}

		plans = append(plans, entryPlan{
			Name:           name,
			GoName:         goName[name],
			Module:         entry.Module,
			Type:           entry.Type,
			Factory:        entry.Factory,
			Synthetic:      synthetic,
			QuotedTemplate: quoted,
			DepNames:       depGoNames,
			DepTokens:      depTokens,
			PosExprs:       posExprs,
			KwArgs:         kwArgs,
		})
	}

	src, err := renderSource(packageName, typeName, plans, mode, lock)
	if err != nil {
		return nil, err
	}

	// Parsing the rendered text into an *ast.File and handing that back
	// to go/format (rather than formatting the text directly) matches
	// the source material's own ast.parse -> ast.fix_missing_locations ->
	// unparse pipeline: build a tree, then print the tree.
	fset := token.NewFileSet()
	file, err := parseCompiled(fset, typeName+".go", src)
	if err != nil {
		return nil, fmt.Errorf("wireup: compiled source failed to parse: %w", err)
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("wireup: failed to render compiled source: %w", err)
	}
	return buf.Bytes(), nil
}

// parseCompiled parses rendered source into an *ast.File. Splitting this
// out of Compile makes the go/ast dependency explicit at the type level,
// rather than leaving *ast.File as an unnamed inferred type.
func parseCompiled(fset *token.FileSet, filename, src string) (*ast.File, error) {
	return parser.ParseFile(fset, filename, src, parser.ParseComments)
}

// exportedGoName turns a spec entry name into an exported Go identifier
// suitable for a method name, stripping characters go/parser would choke
// on and upper-casing the first rune.
func exportedGoName(name string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range name {
		switch {
		case r == '_' || r == '.' || r == '-' || r == ' ':
			upperNext = true
		case upperNext:
			b.WriteRune(toUpper(r))
			upperNext = false
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "Entry"
	}
	return b.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

// planArgs mirrors normalize (container.go) over a wired entry's raw
// Data tree instead of an already-built value: the int/string key split
// into positional/keyword arguments is the same structural decision,
// just rendered as Go source text for each leaf rather than performed on
// live values. A Ref to another wired entry renders as its hoisted
// dependency variable (depVar); a Ref to a plain, non-promoted constant
// renders as that constant's literal value, since it is already fully
// known at compile time.
func planArgs(data Value, depVar map[string]string, constants map[string]Value) (pos []string, kw []kwArg, err error) {
	switch t := data.(type) {
	case Mapping:
		var intKeys []int
		for k := range t {
			if i, ok := k.(int); ok {
				intKeys = append(intKeys, i)
			}
		}
		sort.Ints(intKeys)
		pos = make([]string, len(intKeys))
		for i, k := range intKeys {
			expr, err := renderValueExpr(t[k], depVar, constants)
			if err != nil {
				return nil, nil, err
			}
			pos[i] = expr
		}

		var strKeys []string
		for k := range t {
			if s, ok := k.(string); ok {
				strKeys = append(strKeys, s)
			}
		}
		sort.Strings(strKeys)
		for _, k := range strKeys {
			expr, err := renderValueExpr(t[k], depVar, constants)
			if err != nil {
				return nil, nil, err
			}
			kw = append(kw, kwArg{Key: k, Expr: expr})
		}
		return pos, kw, nil
	case Tuple:
		pos = make([]string, len(t))
		for i, child := range t {
			expr, err := renderValueExpr(child, depVar, constants)
			if err != nil {
				return nil, nil, err
			}
			pos[i] = expr
		}
		return pos, nil, nil
	case []Value:
		pos = make([]string, len(t))
		for i, child := range t {
			expr, err := renderValueExpr(child, depVar, constants)
			if err != nil {
				return nil, nil, err
			}
			pos[i] = expr
		}
		return pos, nil, nil
	default:
		expr, err := renderValueExpr(t, depVar, constants)
		if err != nil {
			return nil, nil, err
		}
		return []string{expr}, nil, nil
	}
}

// renderValueExpr renders a single Value leaf (or nested composite) as a
// Go source expression. Refs resolve either to a hoisted dependency
// variable or, for a reference to a plain constant, to that constant's
// own literal rendering. Nested composites (an argument whose value is
// itself a Mapping/Tuple/[]Value) are rendered as a wireup composite
// literal rather than split into positional/keyword form: per normalize
// (container.go), only the entry's top-level Data tree is split that way.
func renderValueExpr(v Value, depVar map[string]string, constants map[string]Value) (string, error) {
	switch t := v.(type) {
	case Ref:
		if v, ok := depVar[t.Name]; ok {
			return v, nil
		}
		if cv, ok := constants[t.Name]; ok {
			return renderValueExpr(cv, depVar, constants)
		}
		return "", fmt.Errorf("reference to undeclared name %q", t.Name)
	case nil:
		return "nil", nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case string:
		return strconv.Quote(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int8, int16, int32:
		return fmt.Sprintf("%d", t), nil
	case int64:
		return fmt.Sprintf("int64(%d)", t), nil
	case float32:
		return fmt.Sprintf("float32(%v)", t), nil
	case float64:
		return fmt.Sprintf("float64(%v)", t), nil
	case complex128:
		return fmt.Sprintf("complex(%v, %v)", real(t), imag(t)), nil
	case []byte:
		return fmt.Sprintf("[]byte(%s)", strconv.Quote(string(t))), nil
	case Ellipsis:
		return "wireup.EllipsisValue", nil
	case Mapping:
		type mapEntry struct {
			sortKey, keyExpr string
			value            Value
		}
		entries := make([]mapEntry, 0, len(t))
		for k, v := range t {
			sortKey, keyExpr, err := renderMapKey(k)
			if err != nil {
				return "", err
			}
			entries = append(entries, mapEntry{sortKey, keyExpr, v})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].sortKey < entries[j].sortKey })

		parts := make([]string, len(entries))
		for i, e := range entries {
			vExpr, err := renderValueExpr(e.value, depVar, constants)
			if err != nil {
				return "", err
			}
			parts[i] = e.keyExpr + ": " + vExpr
		}
		return "wireup.Mapping{" + strings.Join(parts, ", ") + "}", nil
	case Tuple:
		parts := make([]string, len(t))
		for i, child := range t {
			expr, err := renderValueExpr(child, depVar, constants)
			if err != nil {
				return "", err
			}
			parts[i] = expr
		}
		return "wireup.Tuple{" + strings.Join(parts, ", ") + "}", nil
	case []Value:
		parts := make([]string, len(t))
		for i, child := range t {
			expr, err := renderValueExpr(child, depVar, constants)
			if err != nil {
				return "", err
			}
			parts[i] = expr
		}
		return "[]wireup.Value{" + strings.Join(parts, ", ") + "}", nil
	default:
		return "", fmt.Errorf("cannot express value of type %T in compiled source", v)
	}
}

// renderMapKey renders a Mapping key (string or int) as Go source,
// alongside a sortable string form used to keep emitted composite
// literals in deterministic order.
func renderMapKey(k any) (sortKey, expr string, err error) {
	switch t := k.(type) {
	case string:
		return "s:" + t, strconv.Quote(t), nil
	case int:
		return fmt.Sprintf("i:%020d", t), strconv.Itoa(t), nil
	default:
		return "", "", fmt.Errorf("unsupported mapping key type %T", k)
	}
}

const compiledFileTemplate = `// Code generated by wireup's AOT compiler. DO NOT EDIT.

package {{.Package}}

import (
	"context"
{{if .HasSynthetic}}	"fmt"
{{end}}{{if .ThreadSafe}}	"sync"
{{end}}{{if .HasSynthetic}}	"strings"
{{end}}
	"github.com/sywhang/wireup"
)

// {{.TypeName}} is a statically unrolled, compiled equivalent of a
// wireup.Container built from the same spec: one memoized field and one
// accessor method pair per wired entry, in build order.
type {{.TypeName}} struct {
	resolver wireup.TypeResolver
{{range .Entries}}
	{{.GoName}}Built bool
	{{.GoName}}Value any
	{{.GoName}}Err   error
{{if $.ThreadSafe}}	{{.GoName}}Mu sync.Mutex
{{end}}{{end}}
}

// New{{.TypeName}} builds a compiled container around resolver.
func New{{.TypeName}}(resolver wireup.TypeResolver) *{{.TypeName}} {
	return &{{.TypeName}}{resolver: resolver}
}
{{range .Entries}}
{{template "accessor" dict "Entry" . "ThreadSafe" $.ThreadSafe "Async" $.Async "RootType" $.RootType}}
{{end}}
`

const accessorTemplate = `
func (c *{{.RootType}}) {{.Entry.GoName}}(ctx context.Context) (any, error) {
{{if .ThreadSafe}}	c.{{.Entry.GoName}}Mu.Lock()
	defer c.{{.Entry.GoName}}Mu.Unlock()
{{end}}	if c.{{.Entry.GoName}}Built {
		return c.{{.Entry.GoName}}Value, c.{{.Entry.GoName}}Err
	}
{{if .Entry.Synthetic}}	result := {{.Entry.QuotedTemplate}}
{{range $i, $dep := .Entry.DepNames}}	dep{{$i}}, err := c.{{$dep}}(ctx)
	if err != nil {
		c.{{$.Entry.GoName}}Err = err
		c.{{$.Entry.GoName}}Built = true
		return nil, err
	}
	result = strings.ReplaceAll(result, {{index $.Entry.DepTokens $i}}, fmt.Sprint(dep{{$i}}))
{{end}}	c.{{.Entry.GoName}}Value = result
	c.{{.Entry.GoName}}Err = nil
	c.{{.Entry.GoName}}Built = true
	return c.{{.Entry.GoName}}Value, c.{{.Entry.GoName}}Err
{{else}}{{range $i, $dep := .Entry.DepNames}}	dep{{$i}}, err := c.{{$dep}}(ctx)
	if err != nil {
		c.{{$.Entry.GoName}}Err = err
		c.{{$.Entry.GoName}}Built = true
		return nil, err
	}
{{end}}	pos := []any{ {{range $i, $p := .Entry.PosExprs}}{{if $i}}, {{end}}{{$p}}{{end}} }
	kw := map[string]any{ {{range $i, $kv := .Entry.KwArgs}}{{if $i}}, {{end}}{{printf "%q" $kv.Key}}: {{$kv.Expr}}{{end}} }
	ctor, err := c.resolver.Resolve("{{.Entry.Module}}", "{{.Entry.Type}}", "{{.Entry.Factory}}")
	if err != nil {
		c.{{.Entry.GoName}}Err = err
		c.{{.Entry.GoName}}Built = true
		return nil, err
	}
	value, err := ctor(ctx, pos, kw)
	c.{{.Entry.GoName}}Value = value
	c.{{.Entry.GoName}}Err = err
	c.{{.Entry.GoName}}Built = true
	return c.{{.Entry.GoName}}Value, c.{{.Entry.GoName}}Err
{{end}}}
{{if .Async}}
func (c *{{.RootType}}) {{.Entry.GoName}}Async(ctx context.Context) <-chan error {
	out := make(chan error, 1)
	// Every dependency is resolved synchronously before the goroutine
	// below is spawned: capturing an unresolved accessor by reference
	// instead of its already-built value is the async-capture hazard
	// this ordering avoids.
{{range .Entry.DepNames}}	if _, err := c.{{.}}(ctx); err != nil {
		out <- err
		close(out)
		return out
	}
{{end}}	go func() {
		_, err := c.{{.Entry.GoName}}(ctx)
		out <- err
		close(out)
	}()
	return out
}
{{end}}`

type templateData struct {
	Package      string
	TypeName     string
	ThreadSafe   bool
	Async        bool
	HasSynthetic bool
	Entries      []entryPlan
}

func renderSource(packageName, typeName string, plans []entryPlan, mode CompileMode, lock LockMode) (string, error) {
	funcs := template.FuncMap{
		"dict": func(pairs ...any) (map[string]any, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict requires an even number of arguments")
			}
			m := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				m[key] = pairs[i+1]
			}
			return m, nil
		},
	}

	tmpl, err := template.New("file").Funcs(funcs).Parse(compiledFileTemplate)
	if err != nil {
		return "", err
	}
	tmpl, err = tmpl.New("accessor").Parse(accessorTemplate)
	if err != nil {
		return "", err
	}

	hasSynthetic := false
	for _, p := range plans {
		if p.Synthetic {
			hasSynthetic = true
			break
		}
	}

	data := templateData{
		Package:      packageName,
		TypeName:     typeName,
		ThreadSafe:   lock == LockThreadSafe,
		Async:        mode == CompileAsync,
		HasSynthetic: hasSynthetic,
		Entries:      plans,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "file", struct {
		templateData
		RootType string
	}{data, typeName}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
