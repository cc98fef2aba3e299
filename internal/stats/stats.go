package stats

import (
	"expvar"
	"log"
)

// StatsUpdater is the write side handed to components that count things.
type StatsUpdater interface {
	Incr(stat string)
	Decr(stat string)
}

// Stats publishes counters through expvar so they show up on /debug/vars.
type Stats struct {
	log  *log.Logger
	vars map[string]*expvar.Int
}

func NewStats(l *log.Logger, names ...string) *Stats {
	s := &Stats{
		log:  l,
		vars: make(map[string]*expvar.Int, len(names)),
	}

	for _, name := range names {
		s.vars[name] = expvar.NewInt(name)
	}

	return s
}

func (s *Stats) Incr(stat string) {
	v, ok := s.vars[stat]
	if !ok {
		s.log.Printf("unknown stat %q", stat)
		return
	}

	v.Add(1)
}

func (s *Stats) Decr(stat string) {
	v, ok := s.vars[stat]
	if !ok {
		s.log.Printf("unknown stat %q", stat)
		return
	}

	v.Add(-1)
}
