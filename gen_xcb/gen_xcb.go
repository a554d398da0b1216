/*
A CLI tool that takes contract function signatures and outputs their 4-byte
selectors as Go code.

Installation:

	go install github.com/purelabio/xcb/gen_xcb

Example usage:

	gen_xcb -help
	gen_xcb -out gen_selectors.go 'addr(bytes32)' 'text(bytes32,string)'

To use with "go generate", include a "go:generate" comment in your source code:

	//go:generate gen_xcb -out gen_selectors.go addr(bytes32) name(bytes32)

Every signature becomes a variable named after the function, such as
"SelectorAddr" for "addr(bytes32)". Signatures must be canonical: no spaces,
no parameter names, full type names such as "uint256".

The generated code doesn't contain any function calls and has no impact on the
program startup.
*/
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"os"
	"strings"
	"text/template"
	"unicode"

	"github.com/Mitranim/repr"
	"github.com/pkg/errors"

	"github.com/purelabio/xcb"
)

var (
	flagOut  = flag.String("out", "", "output path for the generated Go file (required)")
	flagPkg  = flag.String("pkg", "main", "package name for the generated code")
	flagSelf = flag.Bool("self", false, "generate without imports or package prefixes")
)

type selectorDef struct {
	Name      string
	Signature string
	Selector  xcb.Selector
}

var codeTemplate = template.Must(template.New("").
	Funcs(template.FuncMap{"repr": reprString}).
	Parse(`
{{range .}}
// {{.Signature}}
var Selector{{.Name}} = {{.Selector | repr}}
{{end}}
`))

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(flag.CommandLine.Output(), "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	execName := os.Args[0]

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %v:

	%v <flags> <signatures ...>

Signatures must have the form "name(type0,type1)". Examples:

	%v -out=gen_selectors.go 'addr(bytes32)'
	%v -out=gen_selectors.go 'transfer(address,uint256)' 'balanceOf(address)'

`, execName, execName, execName, execName)
		flag.PrintDefaults()
		flag.CommandLine.Output().Write([]byte("\n"))
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	flag.Parse()

	if *flagOut == "" {
		return errors.New(`must specify "-out": output path for the generated Go file`)
	}

	signatures := flag.Args()
	if len(signatures) == 0 {
		return errors.New(`must specify at least one function signature, in the form "name(type0,type1)"`)
	}

	defs, err := selectorDefs(signatures)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("// Code generated by gen_xcb. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %v\n", *flagPkg)
	if !*flagSelf {
		buf.WriteString(`import "github.com/purelabio/xcb"` + "\n")
	}

	err = codeTemplate.Execute(&buf, defs)
	if err != nil {
		panic(err)
	}

	source, err := format.Source(buf.Bytes())
	if err != nil {
		panic(err)
	}

	const readWriteMode = os.FileMode(0600)
	err = os.WriteFile(*flagOut, source, readWriteMode)
	if err != nil {
		return errors.Wrapf(err, "failed to write %q", *flagOut)
	}
	return nil
}

func selectorDefs(signatures []string) ([]selectorDef, error) {
	seen := map[string]string{}
	var out []selectorDef

	for _, signature := range signatures {
		if strings.ContainsAny(signature, " \t") {
			return nil, errors.Errorf(`signature %q must not contain whitespace`, signature)
		}
		open := strings.IndexByte(signature, '(')
		if open <= 0 || !strings.HasSuffix(signature, ")") {
			return nil, errors.Errorf(`signatures must have the form "name(type0,type1)", got %q`, signature)
		}

		name := exportedName(signature[:open])
		if prev, ok := seen[name]; ok {
			return nil, errors.Errorf(`signatures %q and %q both map to "Selector%v"`, prev, signature, name)
		}
		seen[name] = signature

		out = append(out, selectorDef{
			Name:      name,
			Signature: signature,
			Selector:  xcb.FunctionSelector(signature),
		})
	}
	return out, nil
}

func exportedName(name string) string {
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func reprString(val interface{}) string {
	if *flagSelf {
		return repr.StringC(val, repr.Config{
			PackageMap: map[string]string{
				"github.com/purelabio/xcb": "",
			},
		})
	}
	return repr.String(val)
}
