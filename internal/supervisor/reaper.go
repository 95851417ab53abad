package supervisor

import (
	"log"
	"os"
	"regexp"
	"time"
)

// Reaper terminates backend processes left behind by earlier runs. It is best
// effort: processes that cannot be signalled are skipped silently.
type Reaper struct {
	patterns []string
	settle   time.Duration
	logger   *log.Logger

	reap  func(patterns []string, self int, logger *log.Logger) int
	sleep func(time.Duration)
}

// NewReaper returns a reaper for patterns. After each sweep it waits settle so
// the OS can release the port the stale instance held.
func NewReaper(patterns []string, settle time.Duration, logger *log.Logger) *Reaper {
	return &Reaper{
		patterns: append([]string(nil), patterns...),
		settle:   settle,
		logger:   logger,
		reap:     reapMatching,
		sleep:    time.Sleep,
	}
}

// Reap signals every matching process except this one, then waits the settle
// delay whether or not anything matched. It returns the number of processes
// (or, where the platform tool only reports success per pattern, patterns)
// that were signalled.
func (r *Reaper) Reap() int {
	n := 0
	if len(r.patterns) > 0 {
		n = r.reap(r.patterns, os.Getpid(), r.logger)
	}
	if n > 0 {
		r.logger.Printf("Reaper: signalled %d stale backend process(es)", n)
	} else {
		r.logger.Printf("Reaper: no stale backend processes")
	}
	if r.settle > 0 {
		r.sleep(r.settle)
	}
	return n
}

// compilePatterns turns patterns into regexps. A pattern that is not a valid
// regexp is matched literally.
func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			re = regexp.MustCompile(regexp.QuoteMeta(p))
		}
		out = append(out, re)
	}
	return out
}

func matchesAny(res []*regexp.Regexp, cmdline string) bool {
	for _, re := range res {
		if re.MatchString(cmdline) {
			return true
		}
	}
	return false
}
