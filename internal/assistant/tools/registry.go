package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/talksphere/server/internal/assistant/model"
)

const (
	ToolDate = "date"
	ToolTime = "time"
	ToolDay  = "day"
)

// Tool is a local endpoint that answers one kind of question from the clock.
type Tool struct {
	model.ToolSpec
	Answer func(now time.Time) string
}

// Registry holds the tools in a fixed order and the clock they read.
type Registry struct {
	tools    []Tool
	byPath   map[string]Tool
	location *time.Location
	now      func() time.Time
}

// NewRegistry builds the date/time/day tools evaluated in the named IANA
// timezone ("Local" and "" mean the server's zone).
func NewRegistry(timezone string) (*Registry, error) {
	loc := time.Local
	if tz := strings.TrimSpace(timezone); tz != "" && !strings.EqualFold(tz, "local") {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc = l
	}

	r := &Registry{location: loc, now: time.Now, byPath: map[string]Tool{}}
	for _, t := range defaultTools() {
		r.tools = append(r.tools, t)
		r.byPath[t.Path] = t
	}
	return r, nil
}

func defaultTools() []Tool {
	return []Tool{
		{
			ToolSpec: model.ToolSpec{
				Name:        ToolDate,
				Path:        "/api/date",
				Description: "the current date",
				Examples:    `"what's the date today?", "today's date"`,
			},
			Answer: func(now time.Time) string {
				return fmt.Sprintf("The current date is %s.", now.Format("Monday, January 2, 2006"))
			},
		},
		{
			ToolSpec: model.ToolSpec{
				Name:        ToolTime,
				Path:        "/api/time",
				Description: "the current time",
				Examples:    `"what time is it?", "current time", "now"`,
			},
			Answer: func(now time.Time) string {
				return fmt.Sprintf("The current time is %s.", now.Format("3:04 PM"))
			},
		},
		{
			ToolSpec: model.ToolSpec{
				Name:        ToolDay,
				Path:        "/api/day",
				Description: "the current day of the week",
				Examples:    `"what day is today?", "day of week"`,
			},
			Answer: func(now time.Time) string {
				return fmt.Sprintf("Today is %s.", now.Weekday())
			},
		},
	}
}

// Tools returns the registered tools in prompt order.
func (r *Registry) Tools() []Tool {
	return r.tools
}

// Specs returns the prompt-facing description of every tool.
func (r *Registry) Specs() []model.ToolSpec {
	specs := make([]model.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, t.ToolSpec)
	}
	return specs
}

// Lookup resolves a model-supplied URL to a tool. Query strings, fragments,
// a scheme/host prefix and a trailing slash are ignored.
func (r *Registry) Lookup(rawURL string) (Tool, bool) {
	t, ok := r.byPath[normalizePath(rawURL)]
	return t, ok
}

// Answer evaluates t against the registry clock.
func (r *Registry) Answer(t Tool) string {
	return t.Answer(r.now().In(r.location))
}

func normalizePath(raw string) string {
	p := strings.TrimSpace(raw)
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+3:]
		if j := strings.Index(p, "/"); j >= 0 {
			p = p[j:]
		} else {
			p = "/"
		}
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.ToLower(p)
}
