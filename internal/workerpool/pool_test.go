package workerpool_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deskware/win_scripts/internal/workerpool"
)

func TestNewPoolRejectsNonPositiveWorkerCount(testInstance *testing.T) {
	pool, creationError := workerpool.NewPool(0, 4)
	require.ErrorIs(testInstance, creationError, workerpool.ErrInvalidWorkerCount)
	require.Nil(testInstance, pool)
}

func TestSubmitRejectsNilJob(testInstance *testing.T) {
	pool, creationError := workerpool.NewPool(1, 1)
	require.NoError(testInstance, creationError)
	defer pool.Shutdown()

	future, submitError := pool.Submit(nil)
	require.ErrorIs(testInstance, submitError, workerpool.ErrNilJob)
	require.Nil(testInstance, future)
}

func TestSubmittedJobDeliversResult(testInstance *testing.T) {
	pool, creationError := workerpool.NewPool(2, 4)
	require.NoError(testInstance, creationError)
	defer pool.Shutdown()

	future, submitError := pool.Submit(func() (any, error) { return 42, nil })
	require.NoError(testInstance, submitError)

	waitContext, cancelWait := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelWait()
	jobResult, jobError := future.Wait(waitContext)
	require.NoError(testInstance, jobError)
	require.Equal(testInstance, 42, jobResult)
}

func TestSubmittedJobDeliversError(testInstance *testing.T) {
	pool, creationError := workerpool.NewPool(1, 1)
	require.NoError(testInstance, creationError)
	defer pool.Shutdown()

	jobFailure := errors.New("job failed")
	future, submitError := pool.Submit(func() (any, error) { return nil, jobFailure })
	require.NoError(testInstance, submitError)

	waitContext, cancelWait := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelWait()
	_, jobError := future.Wait(waitContext)
	require.ErrorIs(testInstance, jobError, jobFailure)
}

func TestEachJobRunsExactlyOnce(testInstance *testing.T) {
	pool, creationError := workerpool.NewPool(4, 16)
	require.NoError(testInstance, creationError)

	var executionCount atomic.Int64
	futures := make([]*workerpool.Future, 0, 32)
	for jobIndex := 0; jobIndex < 32; jobIndex++ {
		future, submitError := pool.Submit(func() (any, error) {
			executionCount.Add(1)
			return nil, nil
		})
		require.NoError(testInstance, submitError)
		futures = append(futures, future)
	}

	pool.Shutdown()

	waitContext, cancelWait := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelWait()
	for _, future := range futures {
		_, jobError := future.Wait(waitContext)
		require.NoError(testInstance, jobError)
	}
	require.Equal(testInstance, int64(32), executionCount.Load())
}

func TestSubmitAfterShutdownFails(testInstance *testing.T) {
	pool, creationError := workerpool.NewPool(1, 1)
	require.NoError(testInstance, creationError)
	pool.Shutdown()

	future, submitError := pool.Submit(func() (any, error) { return nil, nil })
	require.ErrorIs(testInstance, submitError, workerpool.ErrPoolClosed)
	require.Nil(testInstance, future)
}

func TestShutdownDrainsQueuedJobs(testInstance *testing.T) {
	pool, creationError := workerpool.NewPool(1, 8)
	require.NoError(testInstance, creationError)

	var executionCount atomic.Int64
	for jobIndex := 0; jobIndex < 8; jobIndex++ {
		_, submitError := pool.Submit(func() (any, error) {
			time.Sleep(5 * time.Millisecond)
			executionCount.Add(1)
			return nil, nil
		})
		require.NoError(testInstance, submitError)
	}

	pool.Shutdown()
	require.Equal(testInstance, int64(8), executionCount.Load())
}

func TestWaitHonorsContextDeadline(testInstance *testing.T) {
	pool, creationError := workerpool.NewPool(1, 1)
	require.NoError(testInstance, creationError)
	defer pool.Shutdown()

	jobRelease := make(chan struct{})
	future, submitError := pool.Submit(func() (any, error) {
		<-jobRelease
		return nil, nil
	})
	require.NoError(testInstance, submitError)

	waitContext, cancelWait := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelWait()
	_, waitError := future.Wait(waitContext)
	require.ErrorIs(testInstance, waitError, context.DeadlineExceeded)
	close(jobRelease)
}
