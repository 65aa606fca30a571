package doctor

import (
	"context"
	"fmt"
	"os"
	"time"

	"S3Joiner/internal/backend"
	"S3Joiner/internal/config"
	"S3Joiner/internal/lock"
	"S3Joiner/internal/objstore"
)

type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

type Options struct {
	// LockDir overrides lock.DefaultLockDir.
	LockDir string
	// Store skips opening the configured backend.
	Store objstore.Lister
}

func Run(ctx context.Context, cfg *config.Config, opts Options) []CheckResult {
	var results []CheckResult

	if cfg == nil {
		results = append(results, CheckResult{Name: "config", OK: false, Detail: "configuration not loaded"})
	} else if err := config.Validate(cfg); err != nil {
		results = append(results, CheckResult{Name: "config", OK: false, Detail: err.Error()})
	} else {
		results = append(results, CheckResult{Name: "config", OK: true, Detail: fmt.Sprintf("configuration loaded (%d jobs)", len(cfg.Jobs))})
	}

	ok, detail := checkStorage(ctx, cfg, opts.Store)
	results = append(results, CheckResult{Name: "storage", OK: ok, Detail: detail})

	ok, detail = checkLocalLock(opts.LockDir)
	results = append(results, CheckResult{Name: "local lock", OK: ok, Detail: detail})

	ok, detail = checkDisk()
	results = append(results, CheckResult{Name: "disk", OK: ok, Detail: detail})

	return results
}

// Healthy reports whether every check passed.
func Healthy(results []CheckResult) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}

func checkStorage(ctx context.Context, cfg *config.Config, lister objstore.Lister) (bool, string) {
	desc := "injected store"
	if lister == nil {
		if cfg == nil {
			return false, "storage not configured"
		}
		store, err := backend.Open(ctx, cfg)
		if err != nil {
			return false, fmt.Sprintf("storage init failed: %v", err)
		}
		defer store.Close()
		lister, desc = store, store.String()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := lister.ListObjects(ctx, "", 1); err != nil {
		return false, fmt.Sprintf("list failed: %v", err)
	}
	return true, desc + " OK"
}

func checkLocalLock(dir string) (bool, string) {
	if dir == "" {
		dir = lock.DefaultLockDir
	}
	l, err := lock.NewLocal(lock.LocalOptions{Dir: dir, Name: "doctor"})
	if err != nil {
		return false, fmt.Sprintf("local lock init failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Acquire(ctx); err != nil {
		return false, fmt.Sprintf("local lock acquire failed: %v", err)
	}
	if err := l.Release(context.Background()); err != nil {
		return false, fmt.Sprintf("local lock release failed: %v", err)
	}
	return true, fmt.Sprintf("local lock dir accessible (%s)", dir)
}

func checkDisk() (bool, string) {
	dir := os.TempDir()
	f, err := os.CreateTemp(dir, "s3joiner-doctor-*")
	if err != nil {
		return false, fmt.Sprintf("create temp file failed in %s: %v", dir, err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString("test"); err != nil {
		_ = f.Close()
		return false, fmt.Sprintf("write temp file failed: %v", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Sprintf("close temp file failed: %v", err)
	}
	return true, fmt.Sprintf("temp dir writable (%s)", dir)
}
