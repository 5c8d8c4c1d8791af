package coordinator

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"buildledger/internal/domain"
	"buildledger/internal/testutil"
)

func TestApproveExpense_ConcurrentApprovalsSumExactly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "1000000")
	ph := testutil.CreatePhase(t, env.db, p.ID, "500000")
	testutil.Allocate(t, env.db, p.ID, "100000")

	const n = 8
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = testutil.CreateExpense(t, env.db, p.ID, &ph.ID, "1000.25", domain.ExpensePending).ID
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := env.svc.ApproveExpense(ctx, id, 4); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	require.Empty(t, errs)

	want := testutil.D("1000.25").Mul(decimal.NewFromInt(n))
	f := env.finances(t, p.ID)
	testutil.AssertMoney(t, want.String(), f.TotalUsed)
	testutil.AssertMoney(t, testutil.D("100000").Sub(want).String(), f.CapitalBalance)
	testutil.AssertMoney(t, want.String(), env.phase(t, ph.ID).Actual.Total)
}
