// Package crawler defines the core domain types shared across subsystems:
// the crawl input descriptor, per-site crawler contract, result payloads,
// and the site registry.
package crawler

import (
	"fmt"
	"sync"
	"time"
)

// Language is a closed set of display-language codes.
type Language string

// Language values accepted by --language and --org-language.
const (
	LanguageUndefined Language = "undefined"
	LanguageZhCN      Language = "zh_cn"
	LanguageZhTW      Language = "zh_tw"
	LanguageJP        Language = "jp"
	LanguageEN        Language = "en"
)

// ParseLanguage maps a CLI string to a Language. The empty string means
// "undefined" rather than an error.
func ParseLanguage(s string) (Language, error) {
	if s == "" {
		return LanguageUndefined, nil
	}
	switch l := Language(s); l {
	case LanguageUndefined, LanguageZhCN, LanguageZhTW, LanguageJP, LanguageEN:
		return l, nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// Input describes what to fetch. It is built once per invocation and must
// not be mutated after dispatch begins; tasks receive it by value.
type Input struct {
	Number        string   `json:"number"`
	AppointURL    string   `json:"appoint_url"`
	FilePath      string   `json:"file_path"`
	ShortNumber   string   `json:"short_number"`
	Mosaic        string   `json:"mosaic"`
	AppointNumber string   `json:"appoint_number"`
	Language      Language `json:"language"`
	OrgLanguage   Language `json:"org_language"`
}

// EmptyInput returns an Input with both languages set to undefined, for the
// single-URL fetch path where only AppointURL is filled in afterwards.
func EmptyInput() Input {
	return Input{
		Language:    LanguageUndefined,
		OrgLanguage: LanguageUndefined,
	}
}

// Metadata is the structured payload scraped from a detail page.
type Metadata struct {
	Number        string   `json:"number"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"originaltitle,omitempty"`
	Actors        []string `json:"actors,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Release       string   `json:"release,omitempty"`
	Runtime       string   `json:"runtime,omitempty"`
	Studio        string   `json:"studio,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	Series        string   `json:"series,omitempty"`
	Director      string   `json:"director,omitempty"`
	Outline       string   `json:"outline,omitempty"`
	Cover         string   `json:"cover,omitempty"`
	Poster        string   `json:"poster,omitempty"`
	Mosaic        string   `json:"mosaic,omitempty"`
	Source        string   `json:"source"`
	ExternalID    string   `json:"external_id"`
}

// DebugInfo carries the log trail, timing and optional error for one task.
type DebugInfo struct {
	Logs          []string `json:"logs"`
	ExecutionTime float64  `json:"execution_time"`
	Error         string   `json:"error,omitempty"`
}

// Result is the outcome of one site task. Exactly one of the two states
// holds: Data non-nil with an empty Debug.Error, or Data nil with
// Debug.Error describing the failure.
type Result struct {
	Data  *Metadata `json:"data,omitempty"`
	Debug DebugInfo `json:"debug_info"`
}

// Succeeded reports whether the task produced a payload.
func (r Result) Succeeded() bool {
	return r.Data != nil
}

// Clock returns the current time. Tasks measure execution time through it
// so tests can substitute a fake.
type Clock interface {
	Now() time.Time
}

// TaskContext accumulates per-task debug output. It is safe for use from
// the goroutine running the task plus any helpers it spawns.
type TaskContext struct {
	Input Input

	mu   sync.Mutex
	logs []string
}

// NewTaskContext creates a context for one crawl task.
func NewTaskContext(input Input) *TaskContext {
	return &TaskContext{Input: input}
}

// Debugf appends a formatted line to the task log.
func (c *TaskContext) Debugf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, fmt.Sprintf(format, args...))
}

// Logs returns a copy of the accumulated log lines.
func (c *TaskContext) Logs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.logs...)
}
