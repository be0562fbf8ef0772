package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	idempotencyKeyPrefix = "judge:submit:idempotency:"
	rateAccountKeyPrefix = "judge:submit:rate:account:"
	rateIPKeyPrefix      = "judge:submit:rate:ip:"
	processingMarker     = "processing"
)

// acquireSlot bounds the number of judge runs in flight.
func (s *JudgeService) acquireSlot(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(defaultSlotWait)
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return appErr.Wrapf(ctx.Err(), appErr.Timeout, "waiting for a judge slot")
	case <-timer.C:
		return appErr.New(appErr.ServiceUnavailable).WithMessage("judge is busy, retry later")
	}
}

func (s *JudgeService) releaseSlot() {
	select {
	case <-s.sem:
	default:
	}
}

// idempotencyKey scopes a client key to one account and problem. Empty keys disable replay.
func idempotencyKey(accountID int64, problemID, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%s%d:%s:%s", idempotencyKeyPrefix, accountID, strings.TrimSpace(problemID), key)
}

func (s *JudgeService) acquireIdempotency(ctx context.Context, cacheKey string) (bool, string, error) {
	if cacheKey == "" || s.cache == nil {
		return true, "", nil
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()

	existing, err := s.cache.Get(ctxCache.ctx, cacheKey)
	if err != nil {
		return false, "", appErr.Wrapf(err, appErr.CacheError, "read idempotency key failed")
	}
	if existing != "" && existing != processingMarker {
		return false, existing, nil
	}

	ok, err := s.cache.SetNX(ctxCache.ctx, cacheKey, processingMarker, s.idempotencyTTL)
	if err != nil {
		return false, "", appErr.Wrapf(err, appErr.CacheError, "reserve idempotency key failed")
	}
	if ok {
		return true, "", nil
	}
	existing, err = s.cache.Get(ctxCache.ctx, cacheKey)
	if err != nil {
		return false, "", appErr.Wrapf(err, appErr.CacheError, "read idempotency key failed")
	}
	if existing != "" && existing != processingMarker {
		return false, existing, nil
	}
	return false, "", appErr.New(appErr.TooManyRequests).WithMessage("request is processing")
}

func (s *JudgeService) finalizeIdempotency(ctx context.Context, cacheKey, submissionID string, acquired bool) {
	if !acquired || cacheKey == "" || s.cache == nil {
		return
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()
	if err := s.cache.Set(ctxCache.ctx, cacheKey, submissionID, s.idempotencyTTL); err != nil {
		logger.Warn(ctx, "update idempotency key failed", zap.Error(err))
	}
}

func (s *JudgeService) releaseIdempotency(ctx context.Context, cacheKey string, acquired bool) {
	if !acquired || cacheKey == "" || s.cache == nil {
		return
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()
	if err := s.cache.Del(ctxCache.ctx, cacheKey); err != nil {
		logger.Warn(ctx, "release idempotency key failed", zap.Error(err))
	}
}

func (s *JudgeService) checkRateLimit(ctx context.Context, accountID int64, clientIP string) error {
	if s.cache == nil || s.rateLimit.Window <= 0 || (s.rateLimit.AccountMax <= 0 && s.rateLimit.IPMax <= 0) {
		return nil
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()

	if s.rateLimit.AccountMax > 0 && accountID > 0 {
		if err := s.checkRateCounter(ctxCache.ctx, rateAccountKeyPrefix+fmt.Sprintf("%d", accountID), s.rateLimit.AccountMax); err != nil {
			return err
		}
	}
	if s.rateLimit.IPMax > 0 && clientIP != "" {
		if err := s.checkRateCounter(ctxCache.ctx, rateIPKeyPrefix+clientIP, s.rateLimit.IPMax); err != nil {
			return err
		}
	}
	return nil
}

func (s *JudgeService) checkRateCounter(ctx context.Context, key string, max int) error {
	count, err := s.cache.IncrWindow(ctx, key, s.rateLimit.Window)
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "rate limit check failed")
	}
	if int(count) > max {
		return appErr.New(appErr.SubmitTooFrequently).WithMessage("submit too frequently")
	}
	return nil
}
