package domain

import "time"

// URL is the durable record behind a short link. Exactly one live record
// exists per alias; a record past ExpiresAt is dead even before the sweeper
// removes it.
type URL struct {
	Alias       string    `json:"alias"`
	OriginalURL string    `json:"original_url"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (u *URL) Expired(now time.Time) bool {
	return u.ExpiresAt.Before(now)
}

// CacheEntry mirrors the subset of URL kept in the fast store. An entry is a
// hint: its absence is always valid, and its presence must be revalidated
// against ExpiresAt and the URL rules before use. Timestamps are epoch
// milliseconds to keep the cached payload small and comparison cheap.
type CacheEntry struct {
	OriginalURL string `json:"original_url"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt < now.UnixMilli()
}

type CreateURLRequest struct {
	OriginalURL string `json:"original_url" validate:"required,shorturl"`
	Alias       string `json:"alias,omitempty" validate:"omitempty,alias"`
}

type CreateURLResponse struct {
	Alias       string `json:"alias"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
	ExpiresAt   int64  `json:"expires_at"`
	CreatedAt   int64  `json:"created_at"`
}

type CheckAliasResponse struct {
	Available bool   `json:"available"`
	Alias     string `json:"alias"`
	Reason    string `json:"reason,omitempty"`
}

type RedirectResponse struct {
	OriginalURL string `json:"original_url"`
	Alias       string `json:"alias"`
}

type URLStats struct {
	Alias      string `json:"alias"`
	ClickCount int64  `json:"click_count"`
	CreatedAt  int64  `json:"created_at"`
	ExpiresAt  int64  `json:"expires_at"`
}
