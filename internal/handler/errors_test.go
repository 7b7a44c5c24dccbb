package handler

import (
    "testing"

    "github.com/sirupsen/logrus"
    "github.com/sirupsen/logrus/hooks/test"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/civeni-admin/internal/realtime"
)

func TestNotifyLogsPublishFailure(t *testing.T) {
    log, hook := test.NewNullLogger()
    hub := realtime.NewHub(log)
    delivered := 0
    hub.Subscribe(realtime.TopicFinanceSynced, func(realtime.Event) { delivered++ })

    // a channel cannot be encoded, so the event never leaves
    notify(hub, log, "DeleteCustomer", realtime.TopicFinanceSynced, map[string]any{"bad": make(chan int)})
    require.Zero(t, delivered)
    entry := hook.LastEntry()
    require.NotNil(t, entry)
    require.Equal(t, logrus.WarnLevel, entry.Level)
    require.Equal(t, "DeleteCustomer", entry.Data["funcName"])
    require.Equal(t, realtime.TopicFinanceSynced, entry.Data["topic"])

    hook.Reset()
    notify(hub, log, "DeleteCustomer", realtime.TopicFinanceSynced, map[string]any{"deleted": 1})
    require.Equal(t, 1, delivered)
    require.Empty(t, hook.AllEntries())

    notify(nil, log, "DeleteCustomer", realtime.TopicFinanceSynced, nil)
}
