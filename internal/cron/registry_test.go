package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(nil)
	registry.Register(jobB)

	jobs := registry.Jobs()
	assert.Equal(t, []Job{jobA, jobB}, jobs)

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryReplacesByName(t *testing.T) {
	ran := false
	registry := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "b"})
	registry.Register(JobFunc{JobName: "a", Fn: func(context.Context) error { ran = true; return nil }})

	assert.Equal(t, []string{"a", "b"}, registry.Names())
	assert.NoError(t, registry.Jobs()[0].Run(context.Background()))
	assert.True(t, ran)
}
