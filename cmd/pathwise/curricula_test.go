package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/metalagman/pathwise/internal/content"
	"github.com/metalagman/pathwise/internal/curriculum"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleRecord() curriculum.Record {
	return curriculum.Record{
		ID:     "c-1",
		Goal:   "ship a Go service",
		Params: map[string]string{"goal": "ship a Go service", "level": "Beginner"},
		Curriculum: curriculum.Curriculum{
			Title:   "Go services",
			Summary: "From zero to production.",
			Modules: []curriculum.Module{{
				Title:     "HTTP basics",
				Objective: "Serve requests",
				Hours:     2.5,
				Lessons:   []curriculum.Lesson{{Title: "net/http", Description: "Handlers", Resources: []string{"https://go.dev/doc"}}},
			}},
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestWriteRecord_Formats(t *testing.T) {
	t.Parallel()

	rec := sampleRecord()

	var js bytes.Buffer
	require.NoError(t, writeRecord(&js, rec, "json"))
	var fromJSON curriculum.Record
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	assert.Equal(t, "Go services", fromJSON.Curriculum.Title)

	var ym bytes.Buffer
	require.NoError(t, writeRecord(&ym, rec, "yaml"))
	assert.Contains(t, ym.String(), "title: Go services")
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, "c-1", fromYAML["id"])

	var txt bytes.Buffer
	require.NoError(t, writeRecord(&txt, rec, "text"))
	assert.Contains(t, txt.String(), "1. HTTP basics (2.5h)")
	assert.Contains(t, txt.String(), "https://go.dev/doc")

	assert.Error(t, writeRecord(&txt, rec, "xml"))
}

func TestRenderTables(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	renderPages(&out, []model.Page{{SourceURL: "https://go.dev/", Title: "Go", Body: "hello"}})
	assert.Contains(t, out.String(), "https://go.dev/")
	assert.Contains(t, out.String(), "TOTAL")

	out.Reset()
	renderEntries(&out, []content.Entry{{SourceID: "https://go.dev/", Size: 42, RetrievedAt: time.Now()}})
	assert.Contains(t, out.String(), "42")
}
