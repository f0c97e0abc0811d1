// Package resolver decides, per request, whether a locally known response is
// replayed or a fresh one is fetched from upstream.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/any-hub/api-replay/internal/models"
)

// ErrCacheMiss 表示禁止转发时本地既无覆盖也无缓存。
var ErrCacheMiss = errors.New("no stored response")

// ErrUnknownBehavior 表示配置了不受支持的策略。
var ErrUnknownBehavior = errors.New("unknown proxy behavior")

// Source 标识最终响应的来源。
type Source string

const (
	SourceOverwrite Source = "overwrite"
	SourceCache     Source = "cache"
	SourceUpstream  Source = "upstream"
)

// OverwriteLookup 由覆盖表实现。
type OverwriteLookup interface {
	Get(id string) (*models.Response, bool)
}

// CacheLookup 由响应缓存实现。
type CacheLookup interface {
	GetResponse(id string) (*models.Response, bool)
}

// FetchFunc 向上游请求新的响应。
type FetchFunc func(ctx context.Context) (*models.Response, error)

// Input 汇总一次决策需要的全部协作者。
type Input struct {
	ID         string
	Behavior   models.Behavior
	Overwrites OverwriteLookup
	Cache      CacheLookup
	Fetch      FetchFunc
}

// Result 是决策结果。
type Result struct {
	Response *models.Response
	Source   Source
}

// Fetched 表示响应来自上游，需要写入缓存。
func (r Result) Fetched() bool { return r.Source == SourceUpstream }

// Resolve 按策略选择响应：
//
//	FORCE_UPDATE_ALL                总是请求上游
//	SAVE_RESPONSES_FOR_NEW_QUERIES  有本地响应则复用，否则请求上游
//	RELOAD_RESPONSES_WITH_ERRORS    本地响应存在且不是错误时复用，否则请求上游
//	NO_REQUEST_FORWARDING           只用本地响应，缺失时返回 ErrCacheMiss
//
// 本地响应先查覆盖表，再查缓存。
func Resolve(ctx context.Context, in Input) (Result, error) {
	behavior := in.Behavior.Normalize()
	switch behavior {
	case models.BehaviorForceUpdateAll:
		return fetch(ctx, in)
	case models.BehaviorSaveResponsesForNewQuery:
		if local, ok := lookupLocal(in); ok {
			return local, nil
		}
		return fetch(ctx, in)
	case models.BehaviorReloadResponsesWithErrors:
		if local, ok := lookupLocal(in); ok && !models.IsError(local.Response) {
			return local, nil
		}
		return fetch(ctx, in)
	case models.BehaviorNoRequestForwarding:
		if local, ok := lookupLocal(in); ok {
			return local, nil
		}
		return Result{}, fmt.Errorf("%w for %s (proxyBehavior is %s)", ErrCacheMiss, in.ID, behavior)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownBehavior, in.Behavior)
	}
}

func lookupLocal(in Input) (Result, bool) {
	if in.Overwrites != nil {
		if resp, ok := in.Overwrites.Get(in.ID); ok {
			return Result{Response: resp, Source: SourceOverwrite}, true
		}
	}
	if in.Cache != nil {
		if resp, ok := in.Cache.GetResponse(in.ID); ok {
			return Result{Response: resp, Source: SourceCache}, true
		}
	}
	return Result{}, false
}

func fetch(ctx context.Context, in Input) (Result, error) {
	if in.Fetch == nil {
		return Result{}, errors.New("resolver: no fetcher configured")
	}
	resp, err := in.Fetch(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Response: resp, Source: SourceUpstream}, nil
}
