// Package filecache backs the `@path.prop` file-reference feature and the
// loadJsonFile/loadYamlFile builtins with a persistent parse cache keyed by
// path + mtime + SHA-1 content hash, stored via
// gorm over the pure-Go glebarez/sqlite driver.
package filecache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/pmezard/go-difflib/difflib"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oxhq/zenlang/internal/builtin"
	"github.com/oxhq/zenlang/internal/logging"
	"github.com/oxhq/zenlang/internal/value"
)

// entry is the persisted row for one cached file parse. Parsed holds the
// document's canonical JSON rendering, which keeps object key order stable
// across cache hits (a decoded-any blob would lose it).
type entry struct {
	Path    string `gorm:"primaryKey"`
	ModTime int64
	SHA1    string
	RawText string
	Parsed  datatypes.JSON
}

func (entry) TableName() string { return "file_cache" }

// Cache is a file-reference parse cache. A Cache with no database (returned
// by Disabled) makes every Load a plain read-and-parse, no persistence.
type Cache struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite cache database at path.
func Open(path string) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open file cache: %w", err)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrate file cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Disabled returns a Cache that never persists (ZEN_NO_CACHE).
func Disabled() *Cache { return &Cache{} }

// Resolver returns a builtin.FileResolver backed by this cache.
func (c *Cache) Resolver() builtin.FileResolver {
	return func(path, propertyPath string) (*value.Value, error) {
		return c.Load(path, propertyPath)
	}
}

// Load reads path (JSON, or the restricted flat-YAML subset for .yaml/
// .yml extensions), reusing a cached parse when the file's mtime and
// content hash have not changed, and resolves propertyPath against the
// result ("" returns the whole document). On a cache hit whose underlying
// file changed, Load logs a unified diff of old vs. new text before
// invalidating the entry.
func (c *Cache) Load(path, propertyPath string) (*value.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	hash := sha1Hex(raw)
	var parsed *value.Value

	if c.db != nil {
		var row entry
		found := c.db.First(&row, "path = ?", path).Error == nil
		if found && row.SHA1 == hash && row.ModTime == info.ModTime().Unix() {
			// a corrupt row falls through to a fresh parse below
			parsed, _ = builtin.ParseJSON(string(row.Parsed))
		}
		if parsed == nil {
			if found && row.SHA1 != hash {
				c.logInvalidation(path, row.RawText, string(raw))
			}
			parsed, err = parseByExtension(path, raw)
			if err != nil {
				return nil, err
			}
			c.store(path, info.ModTime().Unix(), hash, string(raw), parsed)
		}
	} else {
		parsed, err = parseByExtension(path, raw)
		if err != nil {
			return nil, err
		}
	}

	if propertyPath == "" {
		return parsed, nil
	}
	leaf := value.GetPath(parsed, propertyPath)
	if leaf == nil {
		value.Unref(parsed)
		return nil, fmt.Errorf("%s: no such property %s", path, propertyPath)
	}
	value.Ref(leaf)
	value.Unref(parsed)
	return leaf, nil
}

func (c *Cache) store(path string, modTime int64, hash, raw string, parsed *value.Value) {
	row := entry{
		Path:    path,
		ModTime: modTime,
		SHA1:    hash,
		RawText: raw,
		Parsed:  datatypes.JSON([]byte(builtin.StringifyJSON(parsed, ""))),
	}
	c.db.Save(&row)
}

func (c *Cache) logInvalidation(path, oldText, newText string) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: path + " (cached)",
		ToFile:   path + " (current)",
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil || strings.TrimSpace(text) == "" {
		logging.Debug(fmt.Sprintf("file cache: %s changed, no textual diff available", path))
		return
	}
	logging.Info(fmt.Sprintf("file cache: invalidating stale entry for %s\n%s", path, text))
}

func parseByExtension(path string, raw []byte) (*value.Value, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return builtin.ParseYAML(string(raw))
	}
	return builtin.ParseJSON(string(raw))
}

func sha1Hex(data []byte) string {
	h := sha1.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
