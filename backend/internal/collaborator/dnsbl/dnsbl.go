// Package dnsbl checks client addresses against DNS-based blocklists.
package dnsbl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// LookupFunc resolves host to its addresses. net.Resolver.LookupHost fits.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

type Checker struct {
	providers []string
	timeout   time.Duration
	lookup    LookupFunc
}

type Option func(*Checker)

func WithLookup(fn LookupFunc) Option {
	return func(c *Checker) { c.lookup = fn }
}

func New(providers []string, timeout time.Duration, opts ...Option) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	c := &Checker{
		providers: providers,
		timeout:   timeout,
		lookup:    net.DefaultResolver.LookupHost,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Listed queries every provider concurrently and reports whether any of them
// lists ipAddress. Only IPv4 addresses are checked. A missing record means
// not listed; resolver failures are returned.
func (c *Checker) Listed(ctx context.Context, ipAddress string) (bool, error) {
	addr, err := netip.ParseAddr(ipAddress)
	if err != nil {
		return false, fmt.Errorf("dnsbl: %w", err)
	}
	addr = addr.Unmap()
	if !addr.Is4() || len(c.providers) == 0 {
		return false, nil
	}
	reversed := reverse(addr)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	listed := make([]bool, len(c.providers))
	g, ctx := errgroup.WithContext(ctx)
	for i, provider := range c.providers {
		i, provider := i, provider
		g.Go(func() error {
			hit, err := c.query(ctx, reversed+"."+strings.TrimSuffix(provider, "."))
			if err != nil {
				return fmt.Errorf("dnsbl %s: %w", provider, err)
			}
			listed[i] = hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	for _, hit := range listed {
		if hit {
			return true, nil
		}
	}
	return false, nil
}

func (c *Checker) query(ctx context.Context, host string) (bool, error) {
	addrs, err := c.lookup(ctx, host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, err
	}
	// listings answer inside 127.0.0.0/8
	for _, a := range addrs {
		if strings.HasPrefix(a, "127.") {
			return true, nil
		}
	}
	return false, nil
}

func reverse(addr netip.Addr) string {
	b := addr.As4()
	return fmt.Sprintf("%d.%d.%d.%d", b[3], b[2], b[1], b[0])
}
