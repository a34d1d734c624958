// Package curriculum generates and stores learning paths.
package curriculum

import (
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/pathwise/internal/directive"
)

// Parameter keys and their defaults.
const (
	ParamGoal    = "goal"
	ParamRole    = "role"
	ParamOutcome = "outcome"
	ParamLevel   = "level"
	ParamTime    = "time"

	DefaultLevel   = "Beginner"
	DefaultTime    = "10 hours"
	DefaultRole    = "Learner"
	DefaultOutcome = "Growth"
)

// Normalize folds keys with directive.CanonicalKeys and fills defaults for level,
// time, role and outcome. Values are trimmed and blank entries dropped; unknown keys are kept.
func Normalize(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+4)
	for k, v := range directive.CanonicalKeys(params) {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	defaults := map[string]string{
		ParamLevel:   DefaultLevel,
		ParamTime:    DefaultTime,
		ParamRole:    DefaultRole,
		ParamOutcome: DefaultOutcome,
	}
	for k, v := range defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// Request is the normalized input to generation.
type Request struct {
	Goal    string            `json:"goal"`
	Role    string            `json:"role"`
	Outcome string            `json:"outcome"`
	Level   string            `json:"level"`
	Time    string            `json:"time"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// RequestFrom builds a request from normalized params.
func RequestFrom(params map[string]string) Request {
	req := Request{
		Goal:    params[ParamGoal],
		Role:    params[ParamRole],
		Outcome: params[ParamOutcome],
		Level:   params[ParamLevel],
		Time:    params[ParamTime],
	}
	for k, v := range params {
		switch k {
		case ParamGoal, ParamRole, ParamOutcome, ParamLevel, ParamTime:
			continue
		}
		if req.Extra == nil {
			req.Extra = make(map[string]string)
		}
		req.Extra[k] = v
	}
	return req
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Goal) == "" {
		return fmt.Errorf("goal is required")
	}
	return nil
}

// Curriculum is a generated learning path.
type Curriculum struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Modules []Module `json:"modules"`
}

func (c Curriculum) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(c.Modules) == 0 {
		return fmt.Errorf("at least one module is required")
	}
	for i := range c.Modules {
		if strings.TrimSpace(c.Modules[i].Title) == "" {
			return fmt.Errorf("module[%d]: title is required", i)
		}
	}
	return nil
}

// Module is one step of a curriculum.
type Module struct {
	Title     string   `json:"title" yaml:"title"`
	Objective string   `json:"objective" yaml:"objective"`
	Hours     float64  `json:"hours,omitempty" yaml:"hours,omitempty"`
	Lessons   []Lesson `json:"lessons,omitempty" yaml:"lessons,omitempty"`
}

// Lesson is a unit of study inside a module.
type Lesson struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Resources   []string `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// Record is a stored curriculum.
type Record struct {
	ID         string            `json:"id" yaml:"id"`
	Goal       string            `json:"goal" yaml:"goal"`
	Params     map[string]string `json:"params" yaml:"params"`
	Curriculum Curriculum        `json:"curriculum" yaml:"curriculum"`
	CreatedAt  time.Time         `json:"created_at" yaml:"created_at"`
}
