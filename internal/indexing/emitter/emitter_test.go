package emitter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingBroadcaster struct {
	events []string
	err    error
}

func (r *recordingBroadcaster) Publish(ctx context.Context, event string, payload any) error {
	r.events = append(r.events, event)
	return r.err
}

func TestMulti_PublishesToAll(t *testing.T) {
	failing := &recordingBroadcaster{err: errors.New("down")}
	ok := &recordingBroadcaster{}

	err := Multi{failing, ok}.Publish(context.Background(), EventTransaction, nil)

	assert.EqualError(t, err, "down")
	assert.Equal(t, []string{EventTransaction}, failing.events)
	assert.Equal(t, []string{EventTransaction}, ok.events, "a failing broadcaster must not stop the rest")
}

func TestLogEmitter_NeverFails(t *testing.T) {
	e := NewLogEmitter()
	ctx := context.Background()

	assert.NoError(t, e.Publish(ctx, EventBlockProcessed, &BlockProcessed{BlockNumber: 1}))
	assert.NoError(t, e.Publish(ctx, EventWhale, &Whale{TxID: "a"}))
	assert.NoError(t, e.Publish(ctx, "custom", 42))
}
