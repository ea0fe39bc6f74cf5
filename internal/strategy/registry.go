package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/achupradeep3050/crypto/internal/domain"
)

var registry = map[string]func() domain.Strategy{
	"tma":      func() domain.Strategy { return NewTMA() },
	"breakout": func() domain.Strategy { return NewBreakout() },
	"sniper":   func() domain.Strategy { return NewSniper() },
}

// New returns a fresh strategy by name.
func New(name string) (domain.Strategy, error) {
	ctor, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
