package manager

import (
	"regexp"
	"strings"

	"github.com/yosida95/uritemplate/v3"

	"github.com/robdobsn/rdweb/reqheader"
	"github.com/robdobsn/rdweb/responder"
)

// TemplateRoute is one REST endpoint addressed by a URI template (e.g.
// "/api/devices/{deviceId}/reboot") rather than a plain prefix, grounded on
// original_source/src/RdWebHandlerRestAPI.h's path-with-placeholder
// matching but using github.com/yosida95/uritemplate/v3 for the actual
// match instead of hand-rolled segment splitting.
type TemplateRoute struct {
	Method   reqheader.Method
	Template *uritemplate.Template
	Endpoint responder.RESTEndpoint
}

// NewTemplateRoute compiles pattern (an RFC 6570 level-1 template — only
// "{name}" placeholders are used by any endpoint in this server).
func NewTemplateRoute(method reqheader.Method, pattern string, ep responder.RESTEndpoint) (*TemplateRoute, error) {
	tmpl, err := uritemplate.New(pattern)
	if err != nil {
		return nil, err
	}
	return &TemplateRoute{Method: method, Template: tmpl, Endpoint: ep}, nil
}

// routeMatcher matches incoming request paths against a set of compiled
// templates and makes the captured variables available to endpoint
// functions via PathValue.
type routeMatcher struct {
	routes []compiledRoute
}

type compiledRoute struct {
	method reqheader.Method
	route  *TemplateRoute
	re     *regexp.Regexp
	names  []string
}

// NewTemplateMatch builds a Match callback suitable for RESTHandler.Match
// out of a set of TemplateRoutes.
func NewTemplateMatch(routes []*TemplateRoute) func(path string, method reqheader.Method) (responder.RESTEndpoint, bool) {
	rm := &routeMatcher{}
	for _, r := range routes {
		re := r.Template.Regexp()
		rm.routes = append(rm.routes, compiledRoute{
			method: r.Method,
			route:  r,
			re:     re,
			names:  r.Template.Varnames(),
		})
	}
	return rm.match
}

func (rm *routeMatcher) match(path string, method reqheader.Method) (responder.RESTEndpoint, bool) {
	for _, cr := range rm.routes {
		if cr.method != method {
			continue
		}
		sub := cr.re.FindStringSubmatch(path)
		if sub == nil {
			continue
		}
		if len(cr.names) > 0 {
			vals := make(map[string]string, len(cr.names))
			for i, name := range cr.names {
				if i+1 < len(sub) {
					vals[name] = sub[i+1]
				}
			}
			return withPathValues(cr.route.Endpoint, vals), true
		}
		return cr.route.Endpoint, true
	}
	return responder.RESTEndpoint{}, false
}

// withPathValues wraps ep.Fn so handlers can recover template variables
// from the request string via PathValues(requestStr), spec §4.4.1's
// "requestStr" being the only channel endpoints have into request context.
func withPathValues(ep responder.RESTEndpoint, vals map[string]string) responder.RESTEndpoint {
	if ep.Fn == nil {
		return ep
	}
	wrapped := ep
	wrapped.Fn = func(requestStr string, sourceInfo responder.SourceInfo) (string, error) {
		return ep.Fn(encodePathValues(requestStr, vals), sourceInfo)
	}
	return wrapped
}

const pathValueSep = "\x00pv\x00"

func encodePathValues(requestStr string, vals map[string]string) string {
	if len(vals) == 0 {
		return requestStr
	}
	var b strings.Builder
	b.WriteString(requestStr)
	for k, v := range vals {
		b.WriteString(pathValueSep)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

// PathValue extracts one template variable previously encoded by
// encodePathValues; REST endpoint functions call this on the requestStr
// they are handed.
func PathValue(requestStr, name string) (string, bool) {
	parts := strings.Split(requestStr, pathValueSep)
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 2 && kv[0] == name {
			return kv[1], true
		}
	}
	return "", false
}
