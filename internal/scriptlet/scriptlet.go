// Package scriptlet parses script injection rules and renders the injection source for a page.
package scriptlet

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/anfragment/zenfilter/internal/hostmatch"
	baserule "github.com/anfragment/zenfilter/internal/rule"
)

var (
	reUboScriptlet     = regexp.MustCompile(`^([^#]*)#(@?)#\+js\((.*)\)$`)
	reAdguardScriptlet = regexp.MustCompile(`^([^#]*)#(@?)%#\/\/scriptlet\((.*)\)$`)
	reScriptletName    = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

	errUnsupportedSyntax = errors.New("unsupported syntax")
	errGeneric           = errors.New("generic scriptlet rules are not supported")
)

var injectionTemplate = template.Must(template.New("scriptletInjection").Parse(
	`try { scriptlets[{{printf "%q" .Name}}]({{.Args}}); } catch (ex) { console.error(ex); }`,
))

// Scriptlet is a parsed script injection rule.
type Scriptlet struct {
	RawRule   string
	Exception bool
	// Hostnames is the normalized comma-separated hostname list.
	Hostnames string
	// Name is empty for exceptions that cancel every scriptlet.
	Name string
	// Args are the normalized JS string literals passed to the scriptlet.
	Args argList
}

// Parse parses a uBlock Origin "##+js(...)" or an AdGuard "#%#//scriptlet(...)" rule, or their exceptions.
// The returned error is a *baserule.ParseError.
func Parse(line string) (*Scriptlet, error) {
	var hostnames, marker string
	var args argList
	if match := reUboScriptlet.FindStringSubmatch(line); match != nil {
		hostnames, marker = match[1], match[2]
		args = argList(match[3]).ConvertUboToCanonical()
	} else if match := reAdguardScriptlet.FindStringSubmatch(line); match != nil {
		hostnames, marker = match[1], match[2]
		args = argList(match[3])
	} else {
		return nil, baserule.Unsupported(line, baserule.SkipUnsupportedSyntax, errUnsupportedSyntax)
	}

	s := &Scriptlet{
		RawRule:   line,
		Exception: marker == "@",
	}

	var err error
	s.Hostnames, err = hostmatch.NormalizePatterns(hostnames)
	if err != nil {
		return nil, baserule.Malformed(line, baserule.SkipInvalidDomain, err)
	}
	if !s.Exception && hostmatch.IsGeneric(s.Hostnames) {
		return nil, baserule.Unsupported(line, baserule.SkipGenericScriptlet, errGeneric)
	}

	if strings.TrimSpace(string(args)) == "" {
		if !s.Exception {
			return nil, baserule.Malformed(line, baserule.SkipInvalidScriptlet, errors.New("scriptlet name is empty"))
		}
		return s, nil
	}

	args, err = args.Normalize()
	if err != nil {
		return nil, baserule.Malformed(line, baserule.SkipInvalidScriptlet, fmt.Errorf("normalize arguments: %w", err))
	}

	quotedName, rest := args.head()
	name := normalizeName(quotedName[1 : len(quotedName)-1])
	if !reScriptletName.MatchString(name) {
		return nil, baserule.Malformed(line, baserule.SkipInvalidScriptlet, fmt.Errorf("invalid scriptlet name %q", name))
	}
	s.Name = name
	s.Args = rest

	return s, nil
}

// normalizeName drops the file suffix of uBlock Origin names and the prefix AdGuard uses for them.
func normalizeName(name string) string {
	name = strings.TrimSuffix(name, ".js")
	return strings.TrimPrefix(name, "ubo-")
}

// CancelsAll reports whether the scriptlet is an exception that cancels every scriptlet on its hostnames.
func (s *Scriptlet) CancelsAll() bool {
	return s.Exception && s.Name == ""
}

// key identifies the rules an exception cancels.
func (s *Scriptlet) key() string {
	return s.Name + "(" + string(s.Args) + ")"
}

// GenerateInjection renders the scriptlet call, guarded against exceptions thrown by the scriptlet.
func (s *Scriptlet) GenerateInjection(w io.Writer) error {
	return injectionTemplate.Execute(w, s)
}
