package report

import (
    "testing"

    "github.com/stretchr/testify/require"

    "github.com/iliyamo/civeni-admin/internal/model"
)

func TestBuildFunnel(t *testing.T) {
    regs := []model.Registration{
        {PaymentStatus: "completed", AmountPaid: 15000},
        {PaymentStatus: "pending"},
        {PaymentStatus: "PROCESSING"},
        {PaymentStatus: "cancelled"},
    }
    f := BuildFunnel(regs)

    require.Len(t, f.Stages, 3)
    require.Equal(t, StageCheckout, f.Stages[0].Step)
    require.Equal(t, 4, f.Stages[0].Count)
    require.Equal(t, 100.0, f.Stages[0].Percentage)
    require.Equal(t, 3, f.Stages[1].Count)
    require.Equal(t, 75.0, f.Stages[1].Percentage)
    require.Equal(t, 1, f.Stages[2].Count)
    require.Equal(t, int64(15000), f.Stages[2].Value)
    require.Equal(t, 25.0, f.TaxaConversao)
}

func TestBuildFunnelEmpty(t *testing.T) {
    f := BuildFunnel(nil)
    require.Len(t, f.Stages, 3)
    for _, s := range f.Stages {
        require.Zero(t, s.Count)
        require.Zero(t, s.Percentage)
    }
    require.Zero(t, f.TaxaConversao)
}
