// ABOUTME: Charm KV client wrapper for a cloud-synced passage index
// ABOUTME: Keys are namespaced by partition so one document can be listed or dropped as a unit
package charm

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/kv"
)

// PassagePrefix namespaces every stored passage record
const PassagePrefix = "passage:"

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// Client wraps charm KV for storage operations
type Client struct {
	kv     *kv.KV
	config *Config
	mu     sync.Mutex
}

// NewClient opens the charm KV database named in cfg
func NewClient(cfg *Config) (*Client, error) {
	// charm reads the host from the environment when opening KV
	os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{
		kv:     db,
		config: cfg,
	}

	// Pull passages indexed on other machines
	if cfg.AutoSync {
		_ = db.Sync()
	}

	return c, nil
}

// Close closes the KV database
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv != nil {
		err := c.kv.Close()
		c.kv = nil
		return err
	}
	return nil
}

func (c *Client) syncIfEnabled() {
	if c.config.AutoSync {
		_ = c.kv.Sync()
	}
}

// Get retrieves a value by key
func (c *Client) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.kv.Get([]byte(key))
}

// GetJSON retrieves and unmarshals a JSON value
func (c *Client) GetJSON(key string, dest any) error {
	data, err := c.Get(key)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("key not found: %s", key)
	}
	return json.Unmarshal(data, dest)
}

// SetJSONBatch marshals and stores every value, syncing once at the end
func (c *Client) SetJSONBatch(values map[string]any) error {
	encoded := make(map[string][]byte, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		encoded[key] = data
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, data := range encoded {
		if err := c.kv.Set([]byte(key), data); err != nil {
			return fmt.Errorf("failed to set key %s: %w", key, err)
		}
	}
	c.syncIfEnabled()
	return nil
}

// DeleteKeys removes keys, syncing once at the end
func (c *Client) DeleteKeys(keys []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if err := c.kv.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}
	c.syncIfEnabled()
	return nil
}

// ListKeys returns all keys with the given prefix
func (c *Client) ListKeys(prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var result []string
	for _, key := range keys {
		keyStr := string(key)
		if strings.HasPrefix(keyStr, prefix) {
			result = append(result, keyStr)
		}
	}
	return result, nil
}

// Sync manually triggers a sync with the cloud
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

// PassageKey generates the key for one passage record
func PassageKey(partition, id string) string {
	return PartitionPrefix(partition) + id
}

// PartitionPrefix is the key prefix shared by every passage of a partition
func PartitionPrefix(partition string) string {
	return PassagePrefix + partition + ":"
}

// PartitionFromKey extracts the partition from a passage key
func PartitionFromKey(key string) string {
	rest := strings.TrimPrefix(key, PassagePrefix)
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		return rest[:i]
	}
	return ""
}
