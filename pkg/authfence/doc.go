// Package authfence provides fixed-window rate limiting for pre-authentication
// endpoints such as login, signup and password-reset requests.
//
// # Quick Start
//
//	limiter, err := authfence.NewLimiter()  // login 20/10m, signup 10/10m, pwreset 5/10m
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	decision, err := limiter.Allow(ctx, authfence.PurposeLogin, r)
//	if err == nil && !decision.Allowed {
//	    // respond 429, optionally with decision.ResetAt as a retry hint
//	}
//
// CheckAndConsume is the lower-level call when the caller already has a key:
//
//	decision, err := limiter.CheckAndConsume(ctx, "login:203.0.113.7:curl/8.0", 20, 10*time.Minute)
//
// # Fixed Windows
//
// The first request for a key opens a window with count 1 that ends at
// now+window. Each later request inside the window increments the count until
// it reaches the limit; from then on requests are denied and the count stays
// put. The first request after the window ends opens a new one.
//
// # Keys
//
// DeriveKey builds "{purpose}:{origin}:{fingerprint}". The origin is the first
// X-Forwarded-For hop or "ip:unknown". The fingerprint joins User-Agent, Accept,
// Accept-Language and Accept-Encoding with "|", capped at 256 characters.
//
// X-Forwarded-For is not authenticated. Deploy behind a proxy that overwrites
// it, or a client can rotate its own origin.
//
// # Configuration
//
// Load configuration from YAML file:
//
//	limiter, err := authfence.NewLimiter(
//	    authfence.WithConfigFile("authfence.yaml"),
//	)
//
// Example YAML configuration:
//
//	policies:
//	  login:
//	    limit: 20
//	    window: 10m
//	  pwreset:
//	    limit: 5
//	    window: 10m
//	key_extractor: fingerprint
//	sweep_interval: 10m
//
// # Storage
//
// Windows live in a store.Store injected with WithStore. The default
// store.MemoryStore is process-local and lost on restart; it keeps one entry per
// key ever seen unless StartBackgroundCleanup is running. store.RedisStore
// shares windows between instances.
package authfence
