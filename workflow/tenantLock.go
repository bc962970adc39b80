package workflow

import (
	"context"
	"time"

	"github.com/bsm/redislock"

	"bitbucket.org/mmdatafocus/crm_backend/config"
)

// acquireTenantLock serializes multi-step workflows per tenant across
// instances, best effort. When Redis is not configured or the lock
// cannot be obtained the workflow proceeds unserialized; the lock
// narrows the inconsistency window, it does not make the writes atomic.
func (o *Orchestrator) acquireTenantLock(ctx context.Context, tenantId string) func() {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}
	}
	lock, err := locker.Obtain(ctx, "workflow:"+tenantId, 10*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
	})
	if err != nil {
		config.LogWarn(o.logger, "workflow", "acquireTenantLock", tenantId, "proceeding without tenant lock: "+err.Error())
		return func() {}
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && err != redislock.ErrLockNotHeld {
			config.LogError(o.logger, "workflow", "acquireTenantLock", tenantId, nil, err)
		}
	}
}
