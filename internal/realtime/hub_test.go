package realtime

import (
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/require"
)

func TestHubDeliversInSubscriptionOrder(t *testing.T) {
    h := NewHub(nil)
    var got []string
    h.Subscribe(TopicPayoutUpdated, func(Event) { got = append(got, "first") })
    h.Subscribe(AllTopics, func(Event) { got = append(got, "all") })
    h.Subscribe(TopicFinanceSynced, func(Event) { got = append(got, "other") })
    h.Subscribe(TopicPayoutUpdated, func(Event) { got = append(got, "second") })

    h.Publish(Event{Topic: TopicPayoutUpdated})
    require.Equal(t, []string{"first", "all", "second"}, got)
}

func TestHubUnsubscribe(t *testing.T) {
    h := NewHub(nil)
    n := 0
    unsub := h.Subscribe(TopicFinanceSynced, func(Event) { n++ })

    h.Publish(Event{Topic: TopicFinanceSynced})
    unsub()
    unsub()
    h.Publish(Event{Topic: TopicFinanceSynced})

    require.Equal(t, 1, n)
    require.Zero(t, h.Len())
}

func TestHubRecoversPanics(t *testing.T) {
    h := NewHub(nil)
    delivered := false
    h.Subscribe(AllTopics, func(Event) { panic("boom") })
    h.Subscribe(AllTopics, func(Event) { delivered = true })

    require.NotPanics(t, func() { h.Publish(Event{Topic: TopicScheduleReordered}) })
    require.True(t, delivered)
}

func TestPublishJSON(t *testing.T) {
    h := NewHub(nil)
    var ev Event
    h.Subscribe(TopicScheduleReordered, func(e Event) { ev = e })

    require.NoError(t, h.PublishJSON(TopicScheduleReordered, map[string]string{"day_id": "d1"}))
    require.False(t, ev.At.IsZero())

    var body map[string]string
    require.NoError(t, json.Unmarshal(ev.Payload, &body))
    require.Equal(t, "d1", body["day_id"])
}
