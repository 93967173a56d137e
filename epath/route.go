package epath

// Explicit routes: ordered port segments parsed from strings like "1/0",
// "backplane/2/enet/10.0.0.5", or composed programmatically.

import (
	"strconv"
	"strings"
)

// Route is an ordered list of port segments describing the hops to a target.
type Route []*PortSegment

// ParseRoute parses a route string of port/link pairs separated by "/", ","
// or "\". An empty string is the empty route.
func ParseRoute(route string) (Route, error) {
	if route == "" {
		return Route{}, nil
	}
	cleaned := strings.NewReplacer(",", "/", "\\", "/").Replace(route)
	parts := strings.Split(cleaned, "/")
	if len(parts)%2 != 0 {
		return nil, dataErrf("route must be pairs of port and link, odd number of segments: %v", parts)
	}
	r := make(Route, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		seg, err := NewPortSegment(parts[i], parts[i+1])
		if err != nil {
			return nil, err
		}
		r = append(r, seg)
	}
	return r, nil
}

// Extend returns a new route with more hops appended, parsed from a route
// string.
func (r Route) Extend(route string) (Route, error) {
	more, err := ParseRoute(route)
	if err != nil {
		return nil, err
	}
	out := make(Route, 0, len(r)+len(more))
	out = append(out, r...)
	return append(out, more...), nil
}

// Append returns a new route with segments added.
func (r Route) Append(segments ...*PortSegment) Route {
	out := make(Route, 0, len(r)+len(segments))
	out = append(out, r...)
	return append(out, segments...)
}

// Path converts the route into a Path of its port segments.
func (r Route) Path() Path {
	p := make(Path, len(r))
	for i, seg := range r {
		p[i] = seg
	}
	return p
}

// Empty reports whether the route has no hops.
func (r Route) Empty() bool { return len(r) == 0 }

func (r Route) String() string {
	parts := make([]string, 0, len(r)*2)
	for _, seg := range r {
		parts = append(parts, fmtPort(seg))
	}
	return strings.Join(parts, "/")
}

func fmtPort(seg *PortSegment) string {
	port := strconv.Itoa(int(seg.Port()))
	link := seg.Link()
	if len(link) == 1 {
		return port + "/" + strconv.Itoa(int(link[0]))
	}
	return port + "/" + string(link)
}
