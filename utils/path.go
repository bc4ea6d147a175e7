package utils

import "strings"

// Path locates a state inside nested Parallel and Map states.
type Path []string

func NewPath(s ...string) Path {
	p := Path{}
	p = append(p, s...)
	return p
}

// Child returns a copy of p extended by s, p itself is never modified.
func (p Path) Child(s ...string) Path {
	c := make(Path, 0, len(p)+len(s))
	c = append(c, p...)
	return append(c, s...)
}

func (p Path) String() string {
	return strings.Join(p, ".")
}
