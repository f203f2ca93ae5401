package hub

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"magnetar/internal/device"
)

const (
	defaultNonceCacheSize  = 50
	defaultNonceExpiration = time.Hour
	nonceCleanupInterval   = 10 * time.Minute
)

// NonceResponse is the response remembered for one nonce
type NonceResponse struct {
	Nonce     string                 `json:"nonce"`
	Response  *device.ActionResponse `json:"response"`
	Timestamp time.Time              `json:"timestamp"`
}

// NonceCache deduplicates retried action requests per device. A button
// press is not idempotent, so a retry carrying the same nonce gets the
// first response instead of pressing the button again.
type NonceCache struct {
	deviceCaches *xsync.MapOf[string, *lru.Cache[string, *NonceResponse]]
	maxSize      int
	expiration   time.Duration
	now          func() time.Time
	done         chan struct{}
}

// NewNonceCache creates a cache holding up to maxSize nonces per device
func NewNonceCache(maxSize int, expiration time.Duration) *NonceCache {
	if maxSize <= 0 {
		maxSize = defaultNonceCacheSize
	}
	if expiration <= 0 {
		expiration = defaultNonceExpiration
	}

	nc := &NonceCache{
		deviceCaches: xsync.NewMapOf[string, *lru.Cache[string, *NonceResponse]](),
		maxSize:      maxSize,
		expiration:   expiration,
		now:          time.Now,
		done:         make(chan struct{}),
	}

	go nc.cleanupExpired()

	return nc
}

// GenerateNonce returns "<unix millis>-<8 hex chars>"
func GenerateNonce() string {
	timestamp := time.Now().UnixMilli()

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		mixed := timestamp + int64(time.Now().Nanosecond())
		randomBytes = []byte{byte(mixed >> 24), byte(mixed >> 16), byte(mixed >> 8), byte(mixed)}
	}

	return fmt.Sprintf("%d-%x", timestamp, randomBytes)
}

func (nc *NonceCache) deviceCache(deviceID string) *lru.Cache[string, *NonceResponse] {
	cache, _ := nc.deviceCaches.LoadOrCompute(deviceID, func() *lru.Cache[string, *NonceResponse] {
		c, _ := lru.New[string, *NonceResponse](nc.maxSize)
		return c
	})
	return cache
}

// CheckNonce returns the stored response for a nonce that was already seen
func (nc *NonceCache) CheckNonce(deviceID, nonce string) (*device.ActionResponse, bool) {
	if nonce == "" {
		return nil, false
	}

	cache, ok := nc.deviceCaches.Load(deviceID)
	if !ok {
		return nil, false
	}

	cached, found := cache.Get(nonce)
	if !found {
		return nil, false
	}
	if nc.now().Sub(cached.Timestamp) > nc.expiration {
		cache.Remove(nonce)
		return nil, false
	}

	return cached.Response, true
}

// StoreResponse remembers the response produced for a nonce
func (nc *NonceCache) StoreResponse(deviceID, nonce string, response *device.ActionResponse) {
	if nonce == "" {
		return
	}

	nc.deviceCache(deviceID).Add(nonce, &NonceResponse{
		Nonce:     nonce,
		Response:  response,
		Timestamp: nc.now(),
	})
}

// ClearDevice forgets every nonce recorded for a device
func (nc *NonceCache) ClearDevice(deviceID string) {
	if cache, ok := nc.deviceCaches.LoadAndDelete(deviceID); ok {
		cache.Purge()
	}
}

// DeviceNonceCount returns the number of cached nonces for a device
func (nc *NonceCache) DeviceNonceCount(deviceID string) int {
	cache, ok := nc.deviceCaches.Load(deviceID)
	if !ok {
		return 0
	}
	return cache.Len()
}

// GetStats returns cache statistics
func (nc *NonceCache) GetStats() map[string]interface{} {
	totalNonces := 0
	deviceStats := make(map[string]int)

	nc.deviceCaches.Range(func(deviceID string, cache *lru.Cache[string, *NonceResponse]) bool {
		count := cache.Len()
		totalNonces += count
		deviceStats[deviceID] = count
		return true
	})

	return map[string]interface{}{
		"total_devices": len(deviceStats),
		"total_nonces":  totalNonces,
		"max_size":      nc.maxSize,
		"expiration":    nc.expiration.String(),
		"device_stats":  deviceStats,
	}
}

func (nc *NonceCache) cleanupExpired() {
	ticker := time.NewTicker(nonceCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			nc.performCleanup()
		case <-nc.done:
			return
		}
	}
}

// performCleanup drops expired entries and empty per-device caches
func (nc *NonceCache) performCleanup() int {
	now := nc.now()
	expired := 0

	nc.deviceCaches.Range(func(deviceID string, cache *lru.Cache[string, *NonceResponse]) bool {
		for _, nonce := range cache.Keys() {
			if value, found := cache.Peek(nonce); found && now.Sub(value.Timestamp) > nc.expiration {
				cache.Remove(nonce)
				expired++
			}
		}
		if cache.Len() == 0 {
			nc.deviceCaches.Delete(deviceID)
		}
		return true
	})

	return expired
}

// Shutdown stops the cleanup loop and drops all entries
func (nc *NonceCache) Shutdown() {
	select {
	case <-nc.done:
	default:
		close(nc.done)
	}
	nc.deviceCaches.Clear()
}

// ValidateNonce checks the "<13+ digit millis>-<8 hex chars>" format
func ValidateNonce(nonce string) bool {
	timestampPart, randomPart, found := strings.Cut(nonce, "-")
	if !found || strings.Contains(randomPart, "-") {
		return false
	}

	if len(timestampPart) < 13 {
		return false
	}
	for _, c := range timestampPart {
		if c < '0' || c > '9' {
			return false
		}
	}

	if len(randomPart) != 8 {
		return false
	}
	for _, c := range randomPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}

	return true
}
