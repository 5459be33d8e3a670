// Package ratelimit implements fixed-window request quotas keyed by client
// fingerprint, with limits chosen per route class and subscription tier.
package ratelimit

import (
	"fmt"
	"time"

	"github.com/dtroode/beatstream-server/internal/model"
)

// RouteClass groups routes that share a quota.
type RouteClass int

const (
	ClassGeneral RouteClass = iota
	ClassStrict
	ClassAuth
	ClassAuthLogin
	ClassAuthCallback
	ClassSearch
	ClassUpload
)

// Classes returns every route class.
func Classes() []RouteClass {
	return []RouteClass{ClassGeneral, ClassStrict, ClassAuth, ClassAuthLogin, ClassAuthCallback, ClassSearch, ClassUpload}
}

func (c RouteClass) String() string {
	switch c {
	case ClassGeneral:
		return "general"
	case ClassStrict:
		return "strict"
	case ClassAuth:
		return "auth"
	case ClassAuthLogin:
		return "auth_login"
	case ClassAuthCallback:
		return "auth_callback"
	case ClassSearch:
		return "search"
	case ClassUpload:
		return "upload"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Tier is the caller's authentication state and plan.
type Tier int

const (
	TierAnonymous Tier = iota
	TierAuthenticated
	TierPremium
)

// TierOf returns the tier of an optionally authenticated caller at now.
func TierOf(user model.User, authenticated bool, now time.Time) Tier {
	switch {
	case !authenticated:
		return TierAnonymous
	case user.IsPremium(now):
		return TierPremium
	default:
		return TierAuthenticated
	}
}

// Quota is the number of requests allowed per window.
type Quota struct {
	Limit   int64
	Window  time.Duration
	Message string
}

const (
	authWindow    = 15 * time.Minute
	generalWindow = 15 * time.Minute
	searchWindow  = time.Minute
	uploadWindow  = time.Hour
)

// QuotaFor returns the quota of a route class for a tier.
func QuotaFor(class RouteClass, tier Tier) Quota {
	switch class {
	case ClassStrict:
		return Quota{Limit: 5, Window: authWindow, Message: "Too many attempts for this operation, please try again later."}
	case ClassAuthLogin:
		return Quota{Limit: 8, Window: authWindow, Message: "Too many login attempts, please try again later."}
	case ClassAuthCallback:
		return Quota{Limit: 20, Window: authWindow, Message: "Too many authentication attempts, please try again later."}
	case ClassAuth:
		return Quota{Limit: 10, Window: authWindow, Message: "Too many authentication attempts, please try again later."}
	case ClassSearch:
		return Quota{Limit: byTier(tier, 20, 50, 100), Window: searchWindow, Message: "Search rate limit exceeded. Please slow down and try again in a minute."}
	case ClassUpload:
		return Quota{Limit: byTier(tier, 10, 10, 100), Window: uploadWindow, Message: "Upload limit exceeded, please try again later."}
	default:
		return Quota{Limit: byTier(tier, 500, 1000, 2000), Window: generalWindow, Message: "Too many requests, please try again later."}
	}
}

func byTier(tier Tier, anonymous, authenticated, premium int64) int64 {
	switch tier {
	case TierPremium:
		return premium
	case TierAuthenticated:
		return authenticated
	default:
		return anonymous
	}
}

// LoginQuota is the per-account login quota. It shrinks as failed attempts grow.
func LoginQuota(failedAttempts int) Quota {
	limit := int64(20)
	switch {
	case failedAttempts >= 3:
		limit = 5
	case failedAttempts >= 2:
		limit = 8
	}
	return Quota{Limit: limit, Window: authWindow, Message: "Too many failed login attempts for this account, please try again later."}
}
