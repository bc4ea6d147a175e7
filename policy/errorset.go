package policy

import (
	"strings"

	"github.com/warriorguo/asl/types"
)

// ErrorSet is a case-insensitive set of error names, States.ALL matches everything.
type ErrorSet struct {
	all   bool
	names map[string]struct{}
}

func NewErrorSet(names ...string) ErrorSet {
	set := ErrorSet{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		if strings.EqualFold(name, types.ErrorAll) {
			set.all = true
			continue
		}
		set.names[strings.ToLower(name)] = struct{}{}
	}
	return set
}

func (s ErrorSet) MatchesName(name string) bool {
	if s.all {
		return true
	}
	_, exists := s.names[strings.ToLower(name)]
	return exists
}

// Matches never matches configuration errors, they are fatal.
func (s ErrorSet) Matches(err error) bool {
	if err == nil || types.IsConfigError(err) {
		return false
	}
	return s.MatchesName(types.ErrorName(err))
}
