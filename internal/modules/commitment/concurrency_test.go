package commitment

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/domain"
	"buildledger/internal/testutil"
)

func TestTransitionContract_ConcurrentActivationsWithReconcile(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, db, "1000000")
	ph := testutil.CreatePhase(t, db, p.ID, "500000")

	values := []string{"1200.10", "850.25", "4300", "75.05", "999.99", "15000", "640.40", "2100.01"}
	ids := make([]int64, len(values))
	want := decimal.Zero
	for i, v := range values {
		ids[i] = testutil.CreateContract(t, db, p.ID, &ph.ID, v, domain.ContractDraft).ID
		want = want.Add(testutil.D(v))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.TransitionContract(ctx, id, domain.ContractActive, 1)
			record(err)
		}(id)
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reconcile(ctx, p.ID, true)
			record(err)
		}()
	}
	wg.Wait()
	require.Empty(t, errs)

	testutil.AssertMoney(t, want.String(), committed(t, db, p.ID))
	testutil.AssertMoney(t, want.String(), phaseCommitted(t, db, ph.ID))

	res, err := svc.Reconcile(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Empty(t, res.Drifts)
}
