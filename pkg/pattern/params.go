package pattern

// Param is a single path parameter, a key/value pair captured during matching.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of path parameters. Order follows the declaration
// order of the parameter tokens in the pattern. When routers nest, parameters
// bound by inner patterns are appended after those bound by enclosing mounts.
type Params []Param

// ByName returns the value of the parameter with the given name, or the empty
// string if no such parameter was captured. When the same name appears more
// than once (an inner router rebinding a name captured by an enclosing mount),
// the innermost binding wins.
func (ps Params) ByName(name string) string {
	for i := len(ps) - 1; i >= 0; i-- {
		if ps[i].Key == name {
			return ps[i].Value
		}
	}
	return ""
}

// Has reports whether a parameter with the given name was captured.
func (ps Params) Has(name string) bool {
	for i := range ps {
		if ps[i].Key == name {
			return true
		}
	}
	return false
}
