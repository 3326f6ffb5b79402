package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carlink/market/internal/utils"
)

func sampleEvent() Event {
	room := utils.NewSixID()
	return Event{
		Type:        MessageSent,
		RecipientID: utils.NewSixID(),
		ActorID:     utils.NewSixID(),
		RoomID:      &room,
		Preview:     "is it still available?",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestComposite_FansOutAndJoinsErrors(t *testing.T) {
	a, b := &Recorder{}, &Recorder{Err: errors.New("b down")}
	c := NewComposite(a, nil, b)
	assert.Equal(t, 2, c.Len())

	err := c.Emit(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.ErrorContains(t, err, "b down")
	assert.Len(t, a.Events, 1)
	assert.Len(t, b.Events, 1)
}

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	}
	return cmd
}

func TestRedis_PublishesOnRecipientChannel(t *testing.T) {
	pub := &fakePublisher{}
	e := sampleEvent()
	require.NoError(t, NewRedis(pub).Emit(context.Background(), e))

	assert.Equal(t, "notifications:"+e.RecipientID.String(), pub.channel)
	var decoded Event
	require.NoError(t, json.Unmarshal(pub.payload, &decoded))
	assert.Equal(t, e.Type, decoded.Type)
	assert.Equal(t, *e.RoomID, *decoded.RoomID)

	pub.err = errors.New("conn refused")
	assert.ErrorContains(t, NewRedis(pub).Emit(context.Background(), e), "conn refused")
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func TestKafka_KeysByRecipient(t *testing.T) {
	w := &fakeWriter{}
	k := NewKafka(w)
	e := sampleEvent()
	require.NoError(t, k.Emit(context.Background(), e))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, e.RecipientID.String(), string(w.msgs[0].Key))
	assert.Equal(t, "message.sent", string(w.msgs[0].Headers[0].Value))
	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

type fakePush struct{ sent []*messaging.Message }

func (f *fakePush) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "projects/x/messages/1", nil
}

type tokenMap map[utils.SixID]string

func (m tokenMap) DeviceToken(_ context.Context, id utils.SixID) (string, error) {
	return m[id], nil
}

func TestPush_SkipsUsersWithoutDevice(t *testing.T) {
	sender := &fakePush{}
	e := sampleEvent()
	p := NewPush(sender, tokenMap{})
	require.NoError(t, p.Emit(context.Background(), e))
	assert.Empty(t, sender.sent)

	p = NewPush(sender, tokenMap{e.RecipientID: "tok"})
	require.NoError(t, p.Emit(context.Background(), e))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "tok", sender.sent[0].Token)
	assert.Equal(t, "New message", sender.sent[0].Notification.Title)
	assert.Equal(t, e.RoomID.String(), sender.sent[0].Data["room_id"])
}
