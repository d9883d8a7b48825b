package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/BartoszJatczyszyn/journai/internal/journal"
)

var dayParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// resolveDay turns a user-supplied date expression into a day key.
// Accepts the canonical YYYY-MM-DD form as well as natural language
// like "yesterday" or "last friday". An empty expression means today.
func resolveDay(expr string) (journal.DayKey, error) {
	if expr == "" {
		return journal.DayKeyFor(time.Now()), nil
	}

	if day, err := journal.ParseDayKey(expr); err == nil {
		return day, nil
	}

	r, err := dayParser.Parse(expr, time.Now())
	if err == nil && r != nil {
		return journal.DayKeyFor(r.Time), nil
	}

	return "", fmt.Errorf("cannot interpret %q as a date (try YYYY-MM-DD or e.g. \"yesterday\")", expr)
}
