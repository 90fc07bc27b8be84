package banlist

import (
	"context"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/itchan-dev/itboard/shared/domain"
	"github.com/itchan-dev/itboard/shared/logger"
)

// BanStorage is the read side needed to populate the cache.
// Ban management itself belongs to the admin tooling.
type BanStorage interface {
	ActiveBans(ctx context.Context) ([]domain.Ban, error)
}

type Cache struct {
	storage        BanStorage
	prefixes       []netip.Prefix
	mu             sync.RWMutex
	lastUpdateTime time.Time
	now            func() time.Time
}

func NewCache(storage BanStorage) *Cache {
	return &Cache{storage: storage, now: time.Now}
}

// Update replaces the cached ban set with the currently active bans.
// Entries may be single addresses or CIDR ranges; unparsable entries are skipped.
func (c *Cache) Update(ctx context.Context) error {
	bans, err := c.storage.ActiveBans(ctx)
	if err != nil {
		return err
	}

	now := c.now()
	prefixes := make([]netip.Prefix, 0, len(bans))
	for _, ban := range bans {
		if !ban.Active || (ban.ExpiresAt != nil && !ban.ExpiresAt.After(now)) {
			continue
		}
		prefix, err := parsePrefix(ban.IpAddress)
		if err != nil {
			logger.Log.Warn("skipping malformed ban entry",
				"component", "banlist",
				"ban_id", ban.Id,
				"ip_address", ban.IpAddress)
			continue
		}
		prefixes = append(prefixes, prefix)
	}

	c.mu.Lock()
	c.prefixes = prefixes
	c.lastUpdateTime = now
	c.mu.Unlock()

	logger.Log.Info("ban cache updated", "component", "banlist", "entries", len(prefixes))
	return nil
}

func (c *Cache) IsBanned(ipAddress string) bool {
	addr, err := netip.ParseAddr(ipAddress)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, prefix := range c.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (c *Cache) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdateTime
}

// StartBackgroundUpdate periodically refreshes the cache until ctx is done.
func (c *Cache) StartBackgroundUpdate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started ban cache background updates", "component", "banlist", "interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Update(ctx); err != nil {
					logger.Log.Error("ban cache update failed", "component", "banlist", "error", err)
				}
			case <-ctx.Done():
				logger.Log.Info("ban cache shutting down gracefully", "component", "banlist")
				return
			}
		}
	}()
}

func parsePrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
