package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "rfpgest.jobs.sectioning.succeeded",
		Subject(DefaultSubjectPrefix, Event{Kind: "sectioning", Status: "succeeded"}))
	assert.Equal(t, "p.unknown.a_b",
		Subject("p", Event{Status: "a.b"}))
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
